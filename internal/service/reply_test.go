package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhastha_samwad/backend/internal/models"
)

func TestStructuredReplyTemplates(t *testing.T) {
	targets := Targets{SanitationMinutes: 12, MedicalMinutes: 7}
	assert.Equal(t,
		"Thank you for reporting. Our sanitation team has been notified. Team for Gate 5 is on the way. ETA: 12 minutes.",
		StructuredReply(models.IntentSanitation, "Gate 5", targets))
	assert.Equal(t,
		"Thank you for reporting. Our sanitation team has been notified. ETA: 12 minutes.",
		StructuredReply(models.IntentSanitation, "", targets))
	assert.Equal(t,
		"Help is on the way. Nearest medical unit is being alerted for Zone 4. Estimated arrival: 7 minutes. Please keep the area clear for paramedics and share live location if possible.",
		StructuredReply(models.IntentEmergency, "Zone 4", targets))
	assert.Equal(t, guidanceOffer, StructuredReply(models.IntentDirections, "", targets))
	assert.Equal(t, infoOffer, StructuredReply(models.IntentInfo, "", targets))
	assert.Empty(t, StructuredReply(models.IntentLostFound, "", targets))
	assert.Empty(t, StructuredReply(models.IntentOther, "", targets))
}

func TestExtractDestination(t *testing.T) {
	cases := []struct {
		text, dest string
		ok         bool
	}{
		{"take me to the Main Ghat", "Main Ghat", true},
		{"how to reach ghat 12", "Ghat 12", true},
		{"route to sector 9", "Sector 9", true},
		{"which way to the ghat", "Main Ghat", true},
		{"where is the food court", "", false},
	}
	for _, tc := range cases {
		dest, ok := ExtractDestination(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.dest, dest, tc.text)
	}
}

func TestComposeGuidanceItineraryAppearsOnce(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	cls := models.Classification{Intent: models.IntentGuidance, Confidence: 0.9}
	body := "I am at Gate 2, route to main ghat"
	steps := Itinerary("Gate 2", "Main Ghat")

	for i := 0; i < 2; i++ {
		reply := h.composer.Compose(context.Background(), "+913", body, cls)
		assert.Equal(t, 1, strings.Count(reply.Text, steps), reply.Text)
		assert.Equal(t, guidanceOffer+"\n"+steps, reply.Text)
		assert.False(t, reply.LocationRequested)
	}
	assert.Contains(t, steps, "Start at Gate 2 → Walk ~200m to the main corridor")
}

func TestComposeGuidanceAsksForDestination(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	h.repo.contacts["+914"] = models.Contact{PhoneNumber: "+914", Zone: "Zone 4"}
	reply := h.composer.Compose(context.Background(), "+914", "please guide me",
		models.Classification{Intent: models.IntentGuidance, Confidence: 0.9})
	assert.Equal(t, guidanceOffer+"\n"+destinationQuestion, reply.Text)
	assert.Empty(t, h.gw.locationRequests)
}

func TestComposeGuidanceWithoutZoneRequestsLocation(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	reply := h.composer.Compose(context.Background(), "+915", "how to reach main ghat",
		models.Classification{Intent: models.IntentGuidance, Confidence: 0.9})
	require.True(t, reply.LocationRequested)
	require.Len(t, h.gw.locationRequests, 1)
	assert.Equal(t, locationRequestBody, h.gw.locationRequests[0].Body)
	assert.Equal(t, strings.Join([]string{
		locationRequestPrompt,
		guidanceOffer,
		"Head to nearest info kiosk and ask for directions to Main Ghat",
	}, "\n"), reply.Text)
}

func TestComposeLocationRequestFailureIsSilent(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	h.gw.failRequests = true
	reply := h.composer.Compose(context.Background(), "+916", "where should I go",
		models.Classification{Intent: models.IntentDirections, Confidence: 0.5})
	assert.False(t, reply.LocationRequested)
	assert.Equal(t, guidanceOffer, reply.Text)
}

func TestComposeLowConfidenceSkipsTemplates(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{reply: "Namaste! How can I help?"})
	reply := h.composer.Compose(context.Background(), "+917", "toilet dirty at gate 1",
		models.Classification{Intent: models.IntentSanitation, Confidence: 0.3})
	assert.Equal(t, "Namaste! How can I help?", reply.Text)
}

func TestComposeFallbackMayBeEmpty(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{reply: "   "})
	reply := h.composer.Compose(context.Background(), "+918", "hmm",
		models.Classification{Intent: models.IntentOther})
	assert.Empty(t, reply.Text)
}

func TestComposeLostFoundCreatesTicket(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	reply := h.composer.Compose(context.Background(), "+919", "lost my bag at sector 9",
		models.Classification{Intent: models.IntentLostFound, Confidence: 0.8})
	require.NotZero(t, reply.TicketID)
	assert.False(t, reply.LocationRequested)
	assert.Equal(t, "Lost & Found ticket created for Sector 9. Ticket ID: 1. Please share your contact number to reach you if found.", reply.Text)

	tickets := h.repo.feedbackByCategory(models.IntentLostFound)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Sector 9", tickets[0].Zone)
	assert.Equal(t, "Sector 9", tickets[0].Location)
	assert.Equal(t, models.FeedbackStatusNew, tickets[0].Status)
}

func TestComposeLostFoundFilesEveryReport(t *testing.T) {
	h := newHarness(models.Classification{}, cannedGenerator{})
	ctx := context.Background()
	cls := models.Classification{Intent: models.IntentLostFound, Confidence: 0.8}

	first := h.composer.Compose(ctx, "+920", "lost my wallet near Gate 3", cls)
	second := h.composer.Compose(ctx, "+920", "also my bag is missing, it is blue", cls)

	tickets := h.repo.feedbackByCategory(models.IntentLostFound)
	require.Len(t, tickets, 2)
	assert.Equal(t, "lost my wallet near Gate 3", tickets[0].Message)
	assert.Equal(t, "also my bag is missing, it is blue", tickets[1].Message)
	assert.Equal(t, int64(1), first.TicketID)
	assert.Equal(t, int64(2), second.TicketID)
	assert.Contains(t, second.Text, "Ticket ID: 2.")
}
