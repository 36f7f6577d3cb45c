package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhastha_samwad/backend/internal/models"
)

func TestExtractZone(t *testing.T) {
	cases := []struct {
		text string
		zone string
		ok   bool
	}{
		{"sanitation issue near Gate 5", "Gate 5", true},
		{"stuck at SECTOR 9B", "Sector 9B", true},
		{"meet me at ghat3", "Ghat 3", true},
		{"no landmark here", "", false},
		{"hello", "", false},
	}
	for _, tc := range cases {
		zone, ok := ExtractZone(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.zone, zone, tc.text)
	}
}

func TestResolveZonePrecedence(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	ctx := context.Background()
	res := h.actions.Context

	_, ok := res.ResolveZone(ctx, "+911", "help")
	assert.False(t, ok)

	_, err := h.repo.CreateFeedback(ctx, models.Feedback{PhoneNumber: "+911", Category: "sanitation", Zone: "Sector 2"})
	require.NoError(t, err)
	zone, ok := res.ResolveZone(ctx, "+911", "help")
	assert.True(t, ok)
	assert.Equal(t, "Sector 2", zone)

	_, err = h.repo.UpsertContact(ctx, models.Contact{PhoneNumber: "+911", Zone: "Zone 4"})
	require.NoError(t, err)
	zone, _ = res.ResolveZone(ctx, "+911", "help")
	assert.Equal(t, "Zone 4", zone)

	zone, _ = res.ResolveZone(ctx, "+911", "now at gate 7")
	assert.Equal(t, "Gate 7", zone)
}

func TestResolveTargetsPrecedence(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	ctx := context.Background()
	res := h.actions.Context

	assert.Equal(t, Targets{SanitationMinutes: 12, MedicalMinutes: 7}, res.ResolveTargets(ctx, ""))
	assert.Equal(t, Targets{SanitationMinutes: 12, MedicalMinutes: 7}, res.ResolveTargets(ctx, "Gate 5"))

	h.repo.zones["Zone 5"] = models.ZoneConfig{Zone: "Zone 5", SanitationETAMinutes: intPtr(20)}
	assert.Equal(t, Targets{SanitationMinutes: 20, MedicalMinutes: 7}, res.ResolveTargets(ctx, "Gate 5"),
		"numeric alias applies only the fields it sets")

	h.repo.zones["Gate 5"] = models.ZoneConfig{Zone: "Gate 5", MedicalETAMinutes: intPtr(3)}
	assert.Equal(t, Targets{SanitationMinutes: 12, MedicalMinutes: 3}, res.ResolveTargets(ctx, "Gate 5"),
		"exact match wins over the numeric alias")
}

func TestResolveTargetsStoreFailureFallsBackToDefaults(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	h.repo.failZone = true
	assert.Equal(t, Targets{SanitationMinutes: 12, MedicalMinutes: 7}, h.actions.Context.ResolveTargets(context.Background(), "Gate 5"))
}

func TestResolveContext(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	ctx := context.Background()
	info := h.actions.ResolveContext(ctx, "+912")
	assert.Nil(t, info.Zone)
	assert.Equal(t, 12, info.SanitationMinutes)

	h.repo.contacts["+912"] = models.Contact{PhoneNumber: "+912", Zone: "Sector 9"}
	h.repo.zones["9"] = models.ZoneConfig{Zone: "9", MedicalETAMinutes: intPtr(4)}
	info = h.actions.ResolveContext(ctx, "+912")
	require.NotNil(t, info.Zone)
	assert.Equal(t, "Sector 9", *info.Zone)
	assert.Equal(t, 4, info.MedicalMinutes)
}
