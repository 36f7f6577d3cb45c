package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/models"
	"github.com/simhastha_samwad/backend/internal/utils"
)

const (
	locationSharePrefix = "geo:"
	recentForDest       = 5
)

var ghatLoosePattern = regexp.MustCompile(`ghat\s*(\d{1,2})`)

// AutoResponder turns one accepted inbound message into its follow-up work.
type AutoResponder struct {
	Actions  *Actions
	Composer *ReplyComposer
	Intents  *IntentResolver
	Jobs     Submitter
	Settings SettingsSource
	Logger   zerolog.Logger
}

// HandleInbound records the message and schedules classification and, when
// enabled, the automatic reply. It returns once the message is stored; the
// scheduled work never affects the result.
func (o *AutoResponder) HandleInbound(ctx context.Context, in models.InboundMessage) (models.Message, error) {
	msg, err := o.Actions.RecordInbound(ctx, in)
	if err != nil {
		return models.Message{}, err
	}

	sender, body := in.Sender, in.Body
	if lat, lng, ok := ParseLocationShare(body); ok {
		o.Jobs.Submit("location_reply", func(ctx context.Context) error {
			return o.handleLocationShare(ctx, sender, lat, lng)
		})
	}
	o.Jobs.Submit("classify_and_log", func(ctx context.Context) error {
		return o.ClassifyAndLog(ctx, sender, body)
	})
	if o.Settings.Settings().AutoReply {
		o.Jobs.Submit("auto_reply", func(ctx context.Context) error {
			_, err := o.AutoReply(ctx, sender, body)
			return err
		})
	}
	return msg, nil
}

// ClassifyAndLog files a ticket for actionable sanitation and emergency
// reports, assigns it, and alerts the escalation list for emergencies.
func (o *AutoResponder) ClassifyAndLog(ctx context.Context, sender, body string) error {
	cls := o.Intents.Resolve(ctx, body)
	if (cls.Intent != models.IntentSanitation && cls.Intent != models.IntentEmergency) || cls.Confidence < MinTemplateConfidence {
		o.Logger.Info().Str("intent", cls.Intent).Float64("confidence", cls.Confidence).Msg("not logged")
		return nil
	}

	zone, _ := o.Actions.Context.ResolveZone(ctx, sender, body)
	fb, reused, err := o.Actions.OpenTicket(ctx, models.Feedback{
		PhoneNumber: sender,
		Category:    cls.Intent,
		Zone:        zone,
		Location:    zone,
		Message:     body,
	})
	if err != nil {
		return fmt.Errorf("open ticket: %w", err)
	}
	if reused {
		o.Logger.Info().Int64("feedback_id", fb.ID).Str("intent", cls.Intent).Msg("recent ticket reused")
	} else if _, ok, err := o.Actions.AutoAssign(ctx, fb); err != nil {
		o.Logger.Warn().Err(err).Int64("feedback_id", fb.ID).Msg("auto-assign failed")
	} else if ok {
		o.Logger.Debug().Int64("feedback_id", fb.ID).Msg("auto-assigned")
	}

	if cls.Intent == models.IntentEmergency {
		numbers := dedupe(o.Settings.Settings().EscalationNumbers)
		alert := fmt.Sprintf("Emergency reported%s: %s\nPlease dispatch medical team.", zoneSuffix(" in %s", zone), body)
		if failed := o.Actions.fanOut(ctx, numbers, alert, "emergency_alert"); len(failed) > 0 {
			o.Logger.Warn().Strs("failed", failed).Int64("feedback_id", fb.ID).Msg("some escalation recipients not reached")
		}
	}

	o.Logger.Info().
		Int64("feedback_id", fb.ID).
		Str("intent", cls.Intent).
		Float64("confidence", cls.Confidence).
		Str("zone", zone).
		Msg("auto-logged feedback")
	return nil
}

// AutoReply composes and, when there is something to say, sends the reply.
func (o *AutoResponder) AutoReply(ctx context.Context, sender, body string) (Reply, error) {
	cls := o.Intents.Resolve(ctx, body)
	reply := o.Composer.Compose(ctx, sender, body, cls)
	if reply.Text == "" {
		return reply, nil
	}
	if _, err := o.Actions.SendText(ctx, sender, reply.Text); err != nil {
		return reply, fmt.Errorf("send auto reply: %w", err)
	}
	return reply, nil
}

// ParseLocationShare reads a "geo:<lat>,<lng>" body.
func ParseLocationShare(body string) (lat, lng float64, ok bool) {
	if !strings.HasPrefix(body, locationSharePrefix) {
		return 0, 0, false
	}
	parts := strings.SplitN(strings.TrimPrefix(body, locationSharePrefix), ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || !(utils.Point{Lat: lat, Lng: lng}).Valid() {
		return 0, 0, false
	}
	return lat, lng, true
}

// DestinationFromHistory guesses where the sender was headed from their
// recent messages. It defaults to Main Ghat.
func DestinationFromHistory(msgs []models.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Body)
	}
	t := strings.ToLower(strings.Join(parts, "\n"))
	if strings.Contains(t, "main ghat") {
		return "Main Ghat"
	}
	if m := ghatLoosePattern.FindStringSubmatch(t); m != nil {
		return "Ghat " + m[1]
	}
	return "Main Ghat"
}

func (o *AutoResponder) handleLocationShare(ctx context.Context, sender string, lat, lng float64) error {
	o.placeContact(ctx, sender, lat, lng)

	recent, err := o.Actions.Repo.ListMessagesByPhone(ctx, sender, recentForDest)
	if err != nil {
		o.Logger.Warn().Err(err).Str("phone", sender).Msg("recent messages lookup failed")
	}
	dest := DestinationFromHistory(recent)
	text := fmt.Sprintf("Thanks for the location. Open directions to %s: %s", dest, MapsLink(lat, lng, dest))
	_, err = o.Actions.SendText(ctx, sender, text)
	return err
}

// placeContact stores the nearest landmark zone for a contact that has none.
func (o *AutoResponder) placeContact(ctx context.Context, sender string, lat, lng float64) {
	zone, ok := NearestZone(lat, lng)
	if !ok {
		return
	}
	c, err := o.Actions.Repo.GetContact(ctx, sender)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		o.Logger.Warn().Err(err).Str("phone", sender).Msg("contact lookup failed")
		return
	}
	if c.Zone != "" {
		return
	}
	if _, err := o.Actions.Repo.UpsertContact(ctx, models.Contact{PhoneNumber: sender, Zone: zone}); err != nil {
		o.Logger.Warn().Err(err).Str("phone", sender).Msg("contact zone not stored")
	}
}
