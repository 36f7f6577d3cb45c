package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/simhastha_samwad/backend/internal/models"
)

const classifierPrompt = "You are an intent classifier for civic festival support. " +
	"Return STRICT JSON with fields: intent (one of: sanitation, emergency, info, guidance, directions, lost_found, other), " +
	"confidence (0..1), reason (short). No extra text. " +
	"Interpret synonyms and Hindi phrases, e.g., 'kho gaya/kho gyi' => lost_found; " +
	"'how to reach/route/raasta' => guidance/directions."

var ErrUnparseable = errors.New("classifier returned no json object")

type Classifier struct {
	LLM   Completer
	Model string
}

// Classify asks the model for a label. Transport failures are returned as
// errors; a reply that cannot be parsed is also an error so the caller can
// apply its own default.
func (c Classifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	raw, err := c.LLM.Complete(ctx, []ChatMessage{
		{Role: "system", Content: classifierPrompt},
		{Role: "user", Content: text},
	}, Options{Model: c.Model, Temperature: 0.1, MaxTokens: 200})
	if err != nil {
		return models.Classification{Intent: models.IntentOther}, err
	}
	return ParseClassification(raw)
}

// ParseClassification extracts the first {...} span of raw, maps unknown
// labels to other and clamps confidence into [0, 1].
func ParseClassification(raw string) (models.Classification, error) {
	fallback := models.Classification{Intent: models.IntentOther}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fallback, ErrUnparseable
	}

	var parsed struct {
		Intent     string `json:"intent"`
		Confidence any    `json:"confidence"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return fallback, err
	}

	out := models.Classification{
		Intent: strings.ToLower(strings.TrimSpace(parsed.Intent)),
		Reason: parsed.Reason,
	}
	if !models.IsIntent(out.Intent) {
		out.Intent = models.IntentOther
	}
	out.Confidence = clamp01(toFloat(parsed.Confidence))
	return out, nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
