package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/simhastha_samwad/backend/internal/models"
	"github.com/simhastha_samwad/backend/internal/service"
)

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

var ErrUnknownTool = errors.New("unknown_tool")

// Tool describes one catalog entry. Params documents the argument shape
// for agents; decoding goes through the typed record built by newParams.
type Tool struct {
	Name        string            `json:"name"`
	Risk        Risk              `json:"risk"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params"`

	newParams func() any
}

type ClassifyIntentParams struct {
	Text string `json:"text" validate:"required"`
}

type SummarizeParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	MaxMessages int    `json:"max_messages" validate:"gte=0,lte=200"`
}

type TranslateParams struct {
	Text           string `json:"text" validate:"required"`
	TargetLanguage string `json:"target_language"`
}

type LogIssueParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Category    string `json:"category" validate:"omitempty,oneof=sanitation emergency info guidance directions lost_found other"`
	Message     string `json:"message" validate:"required"`
	Location    string `json:"location"`
	Zone        string `json:"zone"`
}

type UpdateIssueStatusParams struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	Status string `json:"status" validate:"required,oneof=new in_progress resolved"`
}

type AssignIssueParams struct {
	FeedbackID int64  `json:"feedback_id" validate:"required,gt=0"`
	Assignee   string `json:"assignee" validate:"required"`
	Note       string `json:"note"`
}

type SetContactMetadataParams struct {
	PhoneNumber  string `json:"phone_number" validate:"required"`
	Zone         string `json:"zone"`
	LanguagePref string `json:"language_pref"`
	Name         string `json:"name"`
}

type SendTemplateParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Body        string `json:"body" validate:"required_without=TemplateKey"`
	TemplateKey string `json:"template_key"`
}

type BroadcastNoticeParams struct {
	Message      string   `json:"message" validate:"required"`
	Zones        []string `json:"zones"`
	PhoneNumbers []string `json:"phone_numbers"`
}

type SendMediaParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	ImageURL    string `json:"image_url" validate:"required,url"`
	Body        string `json:"body"`
}

type EscalateParams struct {
	Message      string   `json:"message" validate:"required"`
	PhoneNumbers []string `json:"phone_numbers"`
	Severity     string   `json:"severity"`
	Location     string   `json:"location"`
}

type ResolveContextParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type RequestLocationParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Body        string `json:"body"`
}

type SendLocationParams struct {
	PhoneNumber string  `json:"phone_number" validate:"required"`
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
}

type SanitationFacilityParams struct {
	Zone        string `json:"zone"`
	PhoneNumber string `json:"phone_number"`
}

type FestivalScheduleParams struct {
	Date string `json:"date"`
}

type RouteToVenueParams struct {
	Origin      string `json:"origin"`
	Zone        string `json:"zone"`
	From        string `json:"from"`
	Destination string `json:"destination"`
}

type RegisterLostItemParams struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Description string `json:"description" validate:"required"`
	Zone        string `json:"zone"`
}

var catalog = []Tool{
	{Name: "classify_intent", Risk: RiskLow, Description: "Classify text intent.",
		Params: map[string]string{"text": "string"}, newParams: func() any { return &ClassifyIntentParams{} }},
	{Name: "summarize", Risk: RiskLow, Description: "Summarize conversation for a phone.",
		Params: map[string]string{"phone_number": "string", "max_messages": "int"}, newParams: func() any { return &SummarizeParams{} }},
	{Name: "translate", Risk: RiskLow, Description: "Translate text.",
		Params: map[string]string{"text": "string", "target_language": "string"}, newParams: func() any { return &TranslateParams{} }},
	{Name: "log_issue", Risk: RiskMedium, Description: "Log sanitation/emergency/info issue.",
		Params:    map[string]string{"phone_number": "string", "category": "string", "message": "string", "location": "string?", "zone": "string?"},
		newParams: func() any { return &LogIssueParams{} }},
	{Name: "update_issue_status", Risk: RiskMedium, Description: "Update issue status.",
		Params: map[string]string{"id": "int", "status": "new|in_progress|resolved"}, newParams: func() any { return &UpdateIssueStatusParams{} }},
	{Name: "assign_issue", Risk: RiskMedium, Description: "Assign issue.",
		Params: map[string]string{"feedback_id": "int", "assignee": "string", "note": "string?"}, newParams: func() any { return &AssignIssueParams{} }},
	{Name: "set_contact_metadata", Risk: RiskMedium, Description: "Upsert contact zone/language/name.",
		Params:    map[string]string{"phone_number": "string", "zone": "string?", "language_pref": "string?", "name": "string?"},
		newParams: func() any { return &SetContactMetadataParams{} }},
	{Name: "send_template", Risk: RiskHigh, Description: "Send a templated message to a phone.",
		Params: map[string]string{"phone_number": "string", "body": "string", "template_key": "string?"}, newParams: func() any { return &SendTemplateParams{} }},
	{Name: "broadcast_notice", Risk: RiskHigh, Description: "Broadcast message to zones/phones.",
		Params: map[string]string{"message": "string", "zones": "string[]?", "phone_numbers": "string[]?"}, newParams: func() any { return &BroadcastNoticeParams{} }},
	{Name: "send_media", Risk: RiskHigh, Description: "Send image via URL.",
		Params: map[string]string{"phone_number": "string", "image_url": "string", "body": "string?"}, newParams: func() any { return &SendMediaParams{} }},
	{Name: "escalate_emergency", Risk: RiskHigh, Description: "Notify ops escalation numbers.",
		Params:    map[string]string{"message": "string", "phone_numbers": "string[]?", "severity": "string?", "location": "string?"},
		newParams: func() any { return &EscalateParams{} }},
	{Name: "resolve_context", Risk: RiskLow, Description: "Resolve zone + ETAs for a phone.",
		Params: map[string]string{"phone_number": "string"}, newParams: func() any { return &ResolveContextParams{} }},
	{Name: "request_location", Risk: RiskLow, Description: "Ask user to share live location.",
		Params: map[string]string{"phone_number": "string", "body": "string?"}, newParams: func() any { return &RequestLocationParams{} }},
	{Name: "send_location", Risk: RiskLow, Description: "Send a location pin.",
		Params:    map[string]string{"phone_number": "string", "latitude": "float", "longitude": "float", "name": "string?", "address": "string?"},
		newParams: func() any { return &SendLocationParams{} }},
	{Name: "get_sanitation_facility", Risk: RiskLow, Description: "List nearby toilets/water/cleaning crews.",
		Params: map[string]string{"zone": "string?", "phone_number": "string?"}, newParams: func() any { return &SanitationFacilityParams{} }},
	{Name: "get_festival_schedule", Risk: RiskLow, Description: "Festival schedule for today.",
		Params: map[string]string{"date": "string?"}, newParams: func() any { return &FestivalScheduleParams{} }},
	{Name: "get_route_to_venue", Risk: RiskLow, Description: "Route guidance.",
		Params: map[string]string{"origin": "string?", "destination": "string"}, newParams: func() any { return &RouteToVenueParams{} }},
	{Name: "register_lost_item", Risk: RiskMedium, Description: "Register lost & found ticket (stores as feedback).",
		Params: map[string]string{"phone_number": "string", "description": "string", "zone": "string?"}, newParams: func() any { return &RegisterLostItemParams{} }},
	{Name: "escalate_to_authorities", Risk: RiskHigh, Description: "Alias to emergency escalation.",
		Params:    map[string]string{"message": "string", "phone_numbers": "string[]?", "severity": "string?", "location": "string?"},
		newParams: func() any { return &EscalateParams{} }},
}

var byName = func() map[string]Tool {
	m := make(map[string]Tool, len(catalog))
	for _, t := range catalog {
		m[t.Name] = t
	}
	return m
}()

// IntentToolMap suggests the tool an agent should reach for per intent.
var IntentToolMap = map[string]string{
	models.IntentSanitation: "get_sanitation_facility",
	models.IntentEmergency:  "escalate_to_authorities",
	models.IntentInfo:       "get_festival_schedule",
	models.IntentGuidance:   "get_route_to_venue",
	models.IntentDirections: "get_route_to_venue",
	models.IntentLostFound:  "register_lost_item",
}

var validate = validator.New()

// List returns the catalog in its fixed order.
func List() []Tool {
	out := make([]Tool, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(name string) (Tool, bool) {
	t, ok := byName[name]
	return t, ok
}

func IsHighRisk(name string) bool {
	t, ok := byName[name]
	return ok && t.Risk == RiskHigh
}

// Decode turns raw JSON arguments into the tool's typed params record and
// validates it. Missing or null args decode as an empty object.
func Decode(name string, raw json.RawMessage) (any, error) {
	t, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	params := t.newParams()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, params); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrInvalidArgs, name, err)
	}
	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", service.ErrInvalidArgs, name, describe(err))
	}
	return params, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
