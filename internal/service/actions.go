package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/gateway"
	"github.com/simhastha_samwad/backend/internal/geocode"
	"github.com/simhastha_samwad/backend/internal/language"
	"github.com/simhastha_samwad/backend/internal/models"
	"github.com/simhastha_samwad/backend/internal/utils"
)

const (
	EventMessage  = "message"
	EventFeedback = "feedback"

	defaultLocationPrompt = "Please share your location"
	defaultFanOut         = 8
)

// Actions holds the one implementation of every side-effecting operation.
// Direct endpoints, the tool dispatcher and background jobs all call it.
type Actions struct {
	Repo      Repository
	Gateway   gateway.Gateway
	Events    Broadcaster
	Settings  SettingsSource
	Context   *ContextResolver
	Intents   *IntentResolver
	Generator TextGenerator
	Geocoder  geocode.Geocoder
	City      string
	// MediaClient fetches images for send_media.
	MediaClient *http.Client
	FanOut      int
	Logger      zerolog.Logger
}

type GatewayResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type EscalationRequest struct {
	Message      string
	PhoneNumbers []string
	Severity     string
	Location     string
}

type EscalationResult struct {
	Status string   `json:"status"`
	Failed []string `json:"failed"`
}

type NoticeRequest struct {
	Message      string
	Zones        []string
	PhoneNumbers []string
}

type NoticeResult struct {
	models.Notice
	Recipients int      `json:"recipients"`
	Failed     []string `json:"failed"`
}

type TranslateResult struct {
	Text             string `json:"text"`
	DetectedLanguage string `json:"detected_language"`
	TargetLanguage   string `json:"target_language"`
}

type FacilitiesResult struct {
	Zone       *string    `json:"zone"`
	Facilities []Facility `json:"facilities"`
}

// RecordInbound stores a pilgrim message and pushes it to viewers.
func (a *Actions) RecordInbound(ctx context.Context, in models.InboundMessage) (models.Message, error) {
	ts := time.Now().UTC()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}
	msg, err := a.Repo.InsertMessage(ctx, models.Message{
		PhoneNumber: in.Sender,
		Body:        in.Body,
		Timestamp:   ts,
		Language:    language.Detect(in.Body),
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("store inbound message: %w", err)
	}
	a.publish(ctx, EventMessage, msg)
	return msg, nil
}

// SendText delivers body and records it as an admin message. A gateway
// failure is logged; the message is still recorded.
func (a *Actions) SendText(ctx context.Context, phone, body string) (models.Message, error) {
	if err := a.Gateway.SendText(ctx, phone, body); err != nil {
		a.Logger.Warn().Err(err).Str("phone", phone).Msg("gateway send failed")
	}
	return a.recordOutbound(ctx, phone, body)
}

// SendTemplate sends body, or the stored template text when only a key is
// given.
func (a *Actions) SendTemplate(ctx context.Context, phone, body, templateKey string) (models.Message, error) {
	if strings.TrimSpace(body) == "" && templateKey != "" {
		tpl, err := a.Repo.GetTemplateByKey(ctx, templateKey)
		if err != nil {
			return models.Message{}, fmt.Errorf("template %q: %w", templateKey, err)
		}
		body = tpl.Text
	}
	if strings.TrimSpace(body) == "" {
		return models.Message{}, fmt.Errorf("%w: body or template_key required", ErrInvalidArgs)
	}
	return a.SendText(ctx, phone, body)
}

// SendMedia fetches an image and forwards it. Fetch failure aborts the
// action.
func (a *Actions) SendMedia(ctx context.Context, phone, imageURL, body string) (models.Message, error) {
	data, name, err := gateway.FetchMedia(ctx, a.MediaClient, imageURL)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrMediaFetch, err)
	}
	if err := a.Gateway.SendImage(ctx, phone, body, data, name); err != nil {
		a.Logger.Warn().Err(err).Str("phone", phone).Msg("gateway image send failed")
	}
	stored := body
	if strings.TrimSpace(stored) == "" {
		stored = "[sent image] " + name
	}
	return a.recordOutbound(ctx, phone, stored)
}

func (a *Actions) recordOutbound(ctx context.Context, phone, body string) (models.Message, error) {
	msg, err := a.Repo.InsertMessage(ctx, models.Message{
		PhoneNumber: phone,
		Body:        body,
		Timestamp:   time.Now().UTC(),
		Language:    language.Detect(body),
		IsFromAdmin: true,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("store outbound message: %w", err)
	}
	a.publish(ctx, EventMessage, msg)
	return msg, nil
}

func (a *Actions) LogIssue(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	f.Status = models.FeedbackStatusNew
	out, err := a.Repo.CreateFeedback(ctx, f)
	if err != nil {
		return models.Feedback{}, err
	}
	a.publish(ctx, EventFeedback, out)
	return out, nil
}

// OpenTicket creates an automatically generated ticket unless the sender
// already has one of the same category inside the dedupe window. reused
// reports which happened.
func (a *Actions) OpenTicket(ctx context.Context, f models.Feedback) (out models.Feedback, reused bool, err error) {
	if window := a.Settings.Settings().TicketDedupeWindow; window > 0 {
		existing, err := a.Repo.FindRecentFeedback(ctx, f.PhoneNumber, f.Category, time.Now().UTC().Add(-window))
		switch {
		case err == nil:
			return existing, true, nil
		case !errors.Is(err, db.ErrNotFound):
			a.Logger.Warn().Err(err).Str("phone", f.PhoneNumber).Msg("ticket dedupe lookup failed")
		}
	}
	out, err = a.LogIssue(ctx, f)
	return out, false, err
}

// RegisterLostItem files a lost_found ticket from an explicit request.
func (a *Actions) RegisterLostItem(ctx context.Context, phone, description, zone string) (models.Feedback, error) {
	return a.LogIssue(ctx, models.Feedback{
		PhoneNumber: phone,
		Category:    models.IntentLostFound,
		Zone:        zone,
		Message:     "Lost item: " + description,
	})
}

func (a *Actions) UpdateIssueStatus(ctx context.Context, id int64, status string) (models.Feedback, error) {
	f, err := a.Repo.UpdateFeedbackStatus(ctx, id, status)
	if err != nil {
		return models.Feedback{}, err
	}
	a.publish(ctx, EventFeedback, f)
	return f, nil
}

func (a *Actions) AssignIssue(ctx context.Context, feedbackID int64, assignee, note string) (models.FeedbackAssignment, error) {
	return a.Repo.UpsertAssignment(ctx, models.FeedbackAssignment{FeedbackID: feedbackID, Assignee: assignee, Note: note})
}

// AutoAssign hands a ticket to one of the configured assignees for its
// category. Nothing happens when none is configured.
func (a *Actions) AutoAssign(ctx context.Context, f models.Feedback) (models.FeedbackAssignment, bool, error) {
	assignee := PickAssignee(f.ID, a.Settings.Settings().AssigneesFor(f.Category))
	if assignee == "" {
		return models.FeedbackAssignment{}, false, nil
	}
	out, err := a.AssignIssue(ctx, f.ID, assignee, "auto-assigned")
	return out, err == nil, err
}

func (a *Actions) SetContactMetadata(ctx context.Context, c models.Contact) (models.Contact, error) {
	return a.Repo.UpsertContact(ctx, c)
}

// BroadcastNotice records the notice and sends it to the listed numbers and
// to every contact in the listed zones.
func (a *Actions) BroadcastNotice(ctx context.Context, req NoticeRequest) (NoticeResult, error) {
	notice, err := a.Repo.CreateNotice(ctx, req.Message, req.Zones)
	if err != nil {
		return NoticeResult{}, fmt.Errorf("store notice: %w", err)
	}

	recipients := dedupe(req.PhoneNumbers)
	if len(req.Zones) > 0 {
		contacts, err := a.Repo.ListContactsByZone(ctx, req.Zones)
		if err != nil {
			a.Logger.Warn().Err(err).Strs("zones", req.Zones).Msg("zone recipients lookup failed")
		}
		for _, c := range contacts {
			recipients = append(recipients, c.PhoneNumber)
		}
		recipients = dedupe(recipients)
	}

	failed := a.fanOut(ctx, recipients, req.Message, "broadcast")
	return NoticeResult{Notice: notice, Recipients: len(recipients), Failed: failed}, nil
}

// Escalate notifies the given numbers, or the configured escalation list
// when none are given.
func (a *Actions) Escalate(ctx context.Context, req EscalationRequest) (EscalationResult, error) {
	numbers := dedupe(req.PhoneNumbers)
	if len(numbers) == 0 {
		numbers = dedupe(a.Settings.Settings().EscalationNumbers)
	}
	if len(numbers) == 0 {
		return EscalationResult{}, ErrNoRecipients
	}
	text := req.Message
	if req.Severity != "" {
		text += " [severity: " + req.Severity + "]"
	}
	if req.Location != "" {
		text += " [location: " + req.Location + "]"
	}
	return EscalationResult{Status: "ok", Failed: a.fanOut(ctx, numbers, text, "escalation")}, nil
}

func (a *Actions) RequestLocation(ctx context.Context, phone, body string) GatewayResult {
	if strings.TrimSpace(body) == "" {
		body = defaultLocationPrompt
	}
	if err := a.Gateway.RequestLocation(ctx, phone, body); err != nil {
		a.Logger.Warn().Err(err).Str("phone", phone).Msg("location request failed")
		return GatewayResult{Status: "error", Error: err.Error()}
	}
	return GatewayResult{Status: "ok"}
}

// SendLocation sends a pin. A pin with only an address is geocoded first.
func (a *Actions) SendLocation(ctx context.Context, phone string, pin gateway.Location) (GatewayResult, error) {
	if !(utils.Point{Lat: pin.Latitude, Lng: pin.Longitude}).Valid() {
		if strings.TrimSpace(pin.Address) == "" || a.Geocoder == nil {
			return GatewayResult{}, fmt.Errorf("%w: latitude/longitude or address required", ErrInvalidArgs)
		}
		place, err := a.Geocoder.Geocode(ctx, geocode.PinQuery(a.City, pin.Name, pin.Address))
		if err != nil {
			return GatewayResult{}, fmt.Errorf("geocode %q: %w", pin.Address, err)
		}
		pin.Latitude, pin.Longitude = place.Lat, place.Lng
		if pin.Name == "" {
			pin.Name = place.Name
		}
	}
	if err := a.Gateway.SendLocation(ctx, phone, pin); err != nil {
		a.Logger.Warn().Err(err).Str("phone", phone).Msg("location pin failed")
		return GatewayResult{Status: "error", Error: err.Error()}, nil
	}
	return GatewayResult{Status: "ok"}, nil
}

func (a *Actions) ResolveContext(ctx context.Context, phone string) ContextInfo {
	return a.Context.ResolveContext(ctx, phone)
}

func (a *Actions) ClassifyIntent(ctx context.Context, text string) models.Classification {
	return a.Intents.Resolve(ctx, text)
}

// Translate falls back to the original text when the model fails.
func (a *Actions) Translate(ctx context.Context, text, target string) TranslateResult {
	if target == "" {
		target = "en"
	}
	out := TranslateResult{Text: text, DetectedLanguage: language.Detect(text), TargetLanguage: target}
	translated, err := a.Generator.Translate(ctx, text, target)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("translation failed")
		return out
	}
	if translated != "" {
		out.Text = translated
	}
	return out
}

// Summarize condenses the last maxMessages turns with phone.
func (a *Actions) Summarize(ctx context.Context, phone string, maxMessages int) (string, error) {
	if maxMessages <= 0 {
		maxMessages = 50
	}
	msgs, err := a.Repo.ListMessagesByPhone(ctx, phone, maxMessages)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, m := range msgs {
		role := "user"
		if m.IsFromAdmin {
			role = "admin"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Body)
	}
	return a.Generator.Summarize(ctx, b.String())
}

func (a *Actions) GenerateReply(ctx context.Context, text string) (string, error) {
	return a.Generator.Reply(ctx, text)
}

// Facilities lists sanitation points for zone, or for the sender's zone when
// zone is empty.
func (a *Actions) Facilities(ctx context.Context, zone, phone string) FacilitiesResult {
	if zone == "" && phone != "" {
		zone, _ = a.Context.ResolveZone(ctx, phone, "")
	}
	out := FacilitiesResult{Facilities: SanitationFacilities(zone)}
	if zone != "" {
		out.Zone = &zone
	}
	return out
}

func (a *Actions) publish(ctx context.Context, eventType string, data any) {
	if a.Events != nil {
		a.Events.Publish(ctx, eventType, data)
	}
}

// fanOut sends body to every phone concurrently. Each failure is logged and
// reported without stopping the rest.
func (a *Actions) fanOut(ctx context.Context, phones []string, body, op string) []string {
	limit := a.FanOut
	if limit <= 0 {
		limit = defaultFanOut
	}
	var (
		mu     sync.Mutex
		failed = []string{}
		g      errgroup.Group
	)
	g.SetLimit(limit)
	for _, phone := range phones {
		phone := phone
		g.Go(func() error {
			if err := a.Gateway.SendText(ctx, phone, body); err != nil {
				a.Logger.Warn().Err(err).Str("phone", phone).Str("op", op).Msg("recipient send failed")
				mu.Lock()
				failed = append(failed, phone)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(failed)
	return failed
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
