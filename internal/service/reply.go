package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/models"
)

// MinTemplateConfidence gates the structured civic templates.
const MinTemplateConfidence = 0.4

const (
	locationRequestBody   = "Please share your live location to assist you better"
	locationRequestPrompt = "I just sent a location request. Please tap Share Location, or tell me your nearest gate/ghat/zone."
	guidanceOffer         = "Here to help. Please tell me your current location or nearest gate/landmark so I can guide you."
	infoOffer             = "I can help with festival info (timings, routes, facilities). What would you like to know?"
	destinationQuestion   = "I can guide you. Which destination (ghat/gate/zone) should I route to? If unsure, please share your live location and I will send directions."
	stepSeparator         = " → "
)

var (
	ghatNumberPattern = regexp.MustCompile(`\bghat\s*(\d{1,2})\b`)
	landmarkPattern   = regexp.MustCompile(`\b(zone|sector|gate)\s*([A-Za-z0-9-]{1,6})\b`)
)

// Reply is the outcome of composing an answer to one inbound message. An
// empty Text means nothing is sent.
type Reply struct {
	Text              string                `json:"text"`
	Classification    models.Classification `json:"classification"`
	Zone              string                `json:"zone,omitempty"`
	LocationRequested bool                  `json:"location_requested"`
	TicketID          int64                 `json:"ticket_id,omitempty"`
}

// StructuredReply renders the civic template for intent, or "" when the
// intent has none.
func StructuredReply(intent, zone string, targets Targets) string {
	switch intent {
	case models.IntentSanitation:
		parts := []string{"Thank you for reporting.", "Our sanitation team has been notified."}
		if zone != "" {
			parts = append(parts, fmt.Sprintf("Team for %s is on the way.", zone))
		}
		parts = append(parts, fmt.Sprintf("ETA: %d minutes.", targets.SanitationMinutes))
		return strings.Join(parts, " ")
	case models.IntentEmergency:
		parts := []string{"Help is on the way."}
		if zone != "" {
			parts = append(parts, fmt.Sprintf("Nearest medical unit is being alerted for %s.", zone))
		}
		parts = append(parts,
			fmt.Sprintf("Estimated arrival: %d minutes.", targets.MedicalMinutes),
			"Please keep the area clear for paramedics and share live location if possible.")
		return strings.Join(parts, " ")
	case models.IntentGuidance, models.IntentDirections:
		return guidanceOffer
	case models.IntentInfo:
		return infoOffer
	}
	return ""
}

// ExtractDestination picks a routing target out of a guidance request.
func ExtractDestination(text string) (string, bool) {
	t := strings.ToLower(text)
	if strings.Contains(t, "main ghat") {
		return "Main Ghat", true
	}
	if m := ghatNumberPattern.FindStringSubmatch(t); m != nil {
		return "Ghat " + m[1], true
	}
	if m := landmarkPattern.FindStringSubmatch(t); m != nil {
		return strings.ToUpper(m[1][:1]) + m[1][1:] + " " + m[2], true
	}
	if strings.Contains(t, "ghat") {
		return "Main Ghat", true
	}
	return "", false
}

// Itinerary is the fixed walking route from zone to dest.
func Itinerary(zone, dest string) string {
	return strings.Join([]string{
		"Start at " + zone,
		"Walk ~200m to the main corridor",
		"Follow signs towards the plaza",
		"Proceed to " + dest,
	}, stepSeparator)
}

type ReplyComposer struct {
	Context   *ContextResolver
	Actions   *Actions
	Generator TextGenerator
	Logger    zerolog.Logger
}

// Compose runs the reply layers for one message. Location requests and
// lost-and-found tickets are issued here as side effects; sending the
// result is left to the caller.
func (rc *ReplyComposer) Compose(ctx context.Context, sender, body string, cls models.Classification) Reply {
	out := Reply{Classification: cls}
	zone, hasZone := rc.Context.ResolveZone(ctx, sender, body)
	out.Zone = zone
	intent := cls.Intent

	var text string
	appendLine := func(s string) {
		if s == "" {
			return
		}
		if text == "" {
			text = s
			return
		}
		text = text + "\n" + s
	}

	if !hasZone && (intent == models.IntentGuidance || intent == models.IntentDirections || intent == models.IntentLostFound) {
		if res := rc.Actions.RequestLocation(ctx, sender, locationRequestBody); res.Status == "ok" {
			out.LocationRequested = true
			appendLine(locationRequestPrompt)
		}
	}

	if cls.Confidence >= MinTemplateConfidence {
		appendLine(StructuredReply(intent, zone, rc.Context.ResolveTargets(ctx, zone)))
	}

	if intent == models.IntentGuidance || intent == models.IntentDirections {
		dest, hasDest := ExtractDestination(body)
		switch {
		case hasZone && hasDest:
			if steps := Itinerary(zone, dest); !strings.Contains(text, steps) {
				appendLine(steps)
			}
		case hasZone && !out.LocationRequested:
			appendLine(destinationQuestion)
		case !hasZone && hasDest:
			appendLine("Head to nearest info kiosk and ask for directions to " + dest)
		}
	}

	if intent == models.IntentLostFound {
		fb, err := rc.Actions.LogIssue(ctx, models.Feedback{
			PhoneNumber: sender,
			Category:    models.IntentLostFound,
			Zone:        zone,
			Location:    zone,
			Message:     body,
		})
		if err != nil {
			rc.Logger.Warn().Err(err).Str("phone", sender).Msg("lost and found ticket not created")
		} else {
			out.TicketID = fb.ID
			text = fmt.Sprintf("Lost & Found ticket created%s. Ticket ID: %d. Please share your contact number to reach you if found.",
				zoneSuffix(" for %s", zone), fb.ID)
		}
	}

	if text == "" && rc.Generator != nil {
		generated, err := rc.Generator.Reply(ctx, body)
		if err != nil {
			rc.Logger.Warn().Err(err).Str("phone", sender).Msg("reply generation failed")
		}
		text = strings.TrimSpace(generated)
	}
	out.Text = text
	return out
}
