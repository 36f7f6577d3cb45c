package ai

import "context"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are per-call generation parameters. Zero values fall back to the
// client's defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer is the text-completion collaborator: role-tagged messages in,
// free text out.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, opts Options) (string, error)
}
