package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/gateway"
	"github.com/simhastha_samwad/backend/internal/models"
	"github.com/simhastha_samwad/backend/internal/service"
)

var ErrFeedbackNotFound = errors.New("feedback_not_found")

// Backend is the slice of service.Actions the dispatcher drives.
type Backend interface {
	ClassifyIntent(ctx context.Context, text string) models.Classification
	Summarize(ctx context.Context, phone string, maxMessages int) (string, error)
	Translate(ctx context.Context, text, target string) service.TranslateResult
	LogIssue(ctx context.Context, f models.Feedback) (models.Feedback, error)
	UpdateIssueStatus(ctx context.Context, id int64, status string) (models.Feedback, error)
	AssignIssue(ctx context.Context, feedbackID int64, assignee, note string) (models.FeedbackAssignment, error)
	SetContactMetadata(ctx context.Context, c models.Contact) (models.Contact, error)
	SendTemplate(ctx context.Context, phone, body, templateKey string) (models.Message, error)
	BroadcastNotice(ctx context.Context, req service.NoticeRequest) (service.NoticeResult, error)
	SendMedia(ctx context.Context, phone, imageURL, body string) (models.Message, error)
	Escalate(ctx context.Context, req service.EscalationRequest) (service.EscalationResult, error)
	ResolveContext(ctx context.Context, phone string) service.ContextInfo
	RequestLocation(ctx context.Context, phone, body string) service.GatewayResult
	SendLocation(ctx context.Context, phone string, pin gateway.Location) (service.GatewayResult, error)
	Facilities(ctx context.Context, zone, phone string) service.FacilitiesResult
	RegisterLostItem(ctx context.Context, phone, description, zone string) (models.Feedback, error)
}

// Dispatcher executes catalog tools against the shared actions. It applies no
// risk policy; callers go through Gate for that.
type Dispatcher struct {
	Backend Backend
}

func (d *Dispatcher) Execute(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	params, err := Decode(name, raw)
	if err != nil {
		return nil, err
	}
	b := d.Backend

	switch p := params.(type) {
	case *ClassifyIntentParams:
		return b.ClassifyIntent(ctx, p.Text), nil

	case *SummarizeParams:
		summary, err := b.Summarize(ctx, p.PhoneNumber, p.MaxMessages)
		if err != nil {
			return nil, err
		}
		return map[string]any{"summary": summary}, nil

	case *TranslateParams:
		return b.Translate(ctx, p.Text, p.TargetLanguage), nil

	case *LogIssueParams:
		category := p.Category
		if category == "" {
			category = models.IntentInfo
		}
		f, err := b.LogIssue(ctx, models.Feedback{
			PhoneNumber: p.PhoneNumber,
			Category:    category,
			Message:     p.Message,
			Location:    p.Location,
			Zone:        p.Zone,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": f.ID}, nil

	case *UpdateIssueStatusParams:
		f, err := b.UpdateIssueStatus(ctx, p.ID, p.Status)
		if err != nil {
			return nil, feedbackErr(err)
		}
		return map[string]any{"id": f.ID, "status": f.Status}, nil

	case *AssignIssueParams:
		a, err := b.AssignIssue(ctx, p.FeedbackID, p.Assignee, p.Note)
		if err != nil {
			return nil, feedbackErr(err)
		}
		return map[string]any{"id": a.ID}, nil

	case *SetContactMetadataParams:
		return b.SetContactMetadata(ctx, models.Contact{
			PhoneNumber: p.PhoneNumber,
			Zone:        p.Zone,
			Language:    p.LanguagePref,
			Name:        p.Name,
		})

	case *SendTemplateParams:
		m, err := b.SendTemplate(ctx, p.PhoneNumber, p.Body, p.TemplateKey)
		if err != nil {
			return nil, err
		}
		return map[string]any{"message_id": m.ID}, nil

	case *BroadcastNoticeParams:
		return b.BroadcastNotice(ctx, service.NoticeRequest{
			Message:      p.Message,
			Zones:        p.Zones,
			PhoneNumbers: p.PhoneNumbers,
		})

	case *SendMediaParams:
		m, err := b.SendMedia(ctx, p.PhoneNumber, p.ImageURL, p.Body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"message_id": m.ID}, nil

	case *EscalateParams:
		return b.Escalate(ctx, service.EscalationRequest{
			Message:      p.Message,
			PhoneNumbers: p.PhoneNumbers,
			Severity:     p.Severity,
			Location:     p.Location,
		})

	case *ResolveContextParams:
		return b.ResolveContext(ctx, p.PhoneNumber), nil

	case *RequestLocationParams:
		return b.RequestLocation(ctx, p.PhoneNumber, p.Body), nil

	case *SendLocationParams:
		return b.SendLocation(ctx, p.PhoneNumber, gateway.Location{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Name:      p.Name,
			Address:   p.Address,
		})

	case *SanitationFacilityParams:
		return b.Facilities(ctx, p.Zone, p.PhoneNumber), nil

	case *FestivalScheduleParams:
		return map[string]any{"schedule": service.FestivalSchedule()}, nil

	case *RouteToVenueParams:
		origin := firstNonEmpty(p.Origin, p.Zone, p.From)
		dest := firstNonEmpty(p.Destination, "Main Ghat")
		return map[string]any{
			"origin":      origin,
			"destination": dest,
			"steps":       service.RouteSteps(origin, dest),
		}, nil

	case *RegisterLostItemParams:
		f, err := b.RegisterLostItem(ctx, p.PhoneNumber, p.Description, p.Zone)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ticket_id": f.ID, "status": f.Status}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func feedbackErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrFeedbackNotFound, err)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
