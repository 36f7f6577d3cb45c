package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://relay@localhost/samwad")
	t.Setenv("ADMIN_KEY", "secret")
	t.Setenv("WEBHOOK_RATE_PER_MIN", "12")
	t.Setenv("AI_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://relay@localhost/samwad", cfg.DatabaseURL)
	assert.Equal(t, "secret", cfg.AdminKey)
	assert.Equal(t, 12.0, cfg.WebhookRatePerMin)
	assert.Equal(t, 5*time.Second, cfg.AITimeout)
	assert.Equal(t, "Ujjain", cfg.CityDefault)
	assert.Equal(t, "8080", cfg.Port)
}

func TestProviderSettings(t *testing.T) {
	t.Setenv("AI_AUTOREPLY", "true")
	t.Setenv("ESCALATION_NUMBERS", "+911, ,+912")
	t.Setenv("ASSIGNEE_SANITATION", "ravi, meera")

	s := NewProvider().Settings()
	assert.True(t, s.AutoReply)
	assert.False(t, s.AutoApproveHighRisk)
	assert.Equal(t, []string{"+911", "+912"}, s.EscalationNumbers)
	assert.Equal(t, []string{"ravi", "meera"}, s.AssigneesFor("Sanitation"))
	assert.Nil(t, s.AssigneesFor("emergency"))
	assert.Equal(t, 2*time.Minute, s.TicketDedupeWindow)
	assert.Equal(t, 12, s.SanitationETAMinutes)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, SplitCSV(""))
	assert.Equal(t, []string{"a", "b"}, SplitCSV(" a,,b ,"))
}
