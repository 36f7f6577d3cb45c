package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/models"
)

// OverrideConfidence is the floor applied when a keyword override fires.
const OverrideConfidence = 0.8

var (
	routeKeywords = []string{
		"how to reach", "how do i get", "route", "directions", "raasta", "rasta",
		"kaise pahu", "kaise pahun", "kaise jaa", "lost my way", "lost way", "rasta bhool",
	}
	lostItemKeywords = []string{
		"wallet", "purse", "phone", "mobile", "bag", "keys", "id card", "aadhaar", "pan card",
	}
	lostVerbKeywords = []string{"kho gaya", "kho gyi", "gum gaya", "stolen", "missing item"}
)

// KeywordIntent returns the deterministic override for text, if any. Route
// requests win over lost items so "lost my way" is guidance.
func KeywordIntent(text string) (string, bool) {
	t := strings.ToLower(text)
	if containsAny(t, routeKeywords) {
		return models.IntentGuidance, true
	}
	if containsAny(t, lostItemKeywords) || containsAny(t, lostVerbKeywords) {
		return models.IntentLostFound, true
	}
	return "", false
}

// ApplyOverrides stabilizes a classifier label with the keyword rules.
func ApplyOverrides(text string, c models.Classification) models.Classification {
	intent, ok := KeywordIntent(text)
	if !ok {
		return c
	}
	c.Intent = intent
	if c.Confidence < OverrideConfidence {
		c.Confidence = OverrideConfidence
	}
	return c
}

type IntentResolver struct {
	Classifier Classifier
	Logger     zerolog.Logger
}

// Resolve never fails: classifier errors degrade to (other, 0) before the
// overrides run.
func (r *IntentResolver) Resolve(ctx context.Context, text string) models.Classification {
	c, err := r.Classifier.Classify(ctx, text)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("intent classification degraded")
		c = models.Classification{Intent: models.IntentOther}
	}
	if !models.IsIntent(c.Intent) {
		c.Intent = models.IntentOther
	}
	return ApplyOverrides(text, c)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
