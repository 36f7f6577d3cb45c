package ai

import (
	"context"
	"fmt"
	"strings"
)

// Generator produces free-text replies, translations and summaries on top
// of a Completer.
type Generator struct {
	LLM         Completer
	Model       string
	AppName     string
	Temperature float64
	MaxTokens   int
}

func (g Generator) persona() string {
	name := g.AppName
	if name == "" {
		name = "Simhastha Samwad"
	}
	return "You are a highly engaging, positive festival assistant for Simhastha. " +
		"Greet users warmly and keep responses concise. You represent " + name + ". " +
		"Understand intent (sanitation/emergency/info/guidance) and provide clear, empathetic replies. " +
		"Do not invent facts. If you need to escalate, say you will inform the authorities."
}

func (g Generator) options() Options {
	opts := Options{Model: g.Model, Temperature: g.Temperature, MaxTokens: g.MaxTokens}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return opts
}

func (g Generator) Reply(ctx context.Context, text string) (string, error) {
	out, err := g.LLM.Complete(ctx, []ChatMessage{
		{Role: "system", Content: g.persona()},
		{Role: "user", Content: text},
	}, g.options())
	return strings.TrimSpace(out), err
}

func (g Generator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	out, err := g.LLM.Complete(ctx, []ChatMessage{
		{Role: "system", Content: fmt.Sprintf("Translate the user's message into %s. Return only the translation.", targetLanguage)},
		{Role: "user", Content: text},
	}, Options{Model: g.Model, Temperature: 0.1, MaxTokens: g.options().MaxTokens})
	return strings.TrimSpace(out), err
}

// Summarize condenses a speaker-tagged transcript into a short staff note.
func (g Generator) Summarize(ctx context.Context, transcript string) (string, error) {
	out, err := g.LLM.Complete(ctx, []ChatMessage{
		{Role: "system", Content: "Summarize this support conversation for festival staff in 3-5 short bullet points. Mention location, issue and any pending action. Do not invent facts."},
		{Role: "user", Content: transcript},
	}, Options{Model: g.Model, Temperature: 0.2, MaxTokens: g.options().MaxTokens})
	return strings.TrimSpace(out), err
}
