package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/simhastha_samwad/backend/internal/utils"
)

// MockCompleter answers without a model server. Classification prompts get
// a keyword-derived JSON label; everything else gets one of a few canned
// replies picked deterministically from the input.
type MockCompleter struct{}

var mockKeywords = []struct {
	intent string
	words  []string
}{
	{"emergency", []string{"emergency", "ambulance", "injured", "bleeding", "faint", "doctor"}},
	{"sanitation", []string{"toilet", "garbage", "dirty", "sanitation", "clean", "smell", "washroom"}},
	{"lost_found", []string{"lost", "missing", "kho gaya", "kho gyi"}},
	{"guidance", []string{"route", "reach", "raasta", "directions", "way to"}},
	{"info", []string{"time", "schedule", "aarti", "when", "timing"}},
}

var mockReplies = []string{
	"Namaste! I am here to help you at the festival. How can I assist you today?",
	"Thank you for reaching out. Please tell me your nearest gate or ghat so I can help.",
	"Jai Mahakal! Let me know what you need and I will guide you.",
}

func (MockCompleter) Complete(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	system := messages[0].Content
	user := messages[len(messages)-1].Content

	if strings.Contains(system, "intent classifier") {
		lower := strings.ToLower(user)
		for _, k := range mockKeywords {
			for _, w := range k.words {
				if strings.Contains(lower, w) {
					return fmt.Sprintf(`{"intent":"%s","confidence":0.75,"reason":"keyword %q"}`, k.intent, w), nil
				}
			}
		}
		return `{"intent":"other","confidence":0.3,"reason":"no keyword"}`, nil
	}
	if strings.HasPrefix(system, "Translate") || strings.HasPrefix(system, "Summarize") {
		return user, nil
	}

	h := utils.HashKey(user)
	return mockReplies[int(h%uint64(len(mockReplies)))], nil
}
