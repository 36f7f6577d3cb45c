package models

import (
	"encoding/json"
	"time"
)

const (
	IntentSanitation = "sanitation"
	IntentEmergency  = "emergency"
	IntentInfo       = "info"
	IntentGuidance   = "guidance"
	IntentDirections = "directions"
	IntentLostFound  = "lost_found"
	IntentOther      = "other"
)

// Intents is the closed label set accepted from the classifier.
var Intents = []string{
	IntentSanitation,
	IntentEmergency,
	IntentInfo,
	IntentGuidance,
	IntentDirections,
	IntentLostFound,
	IntentOther,
}

func IsIntent(v string) bool {
	for _, i := range Intents {
		if i == v {
			return true
		}
	}
	return false
}

const (
	FeedbackStatusNew        = "new"
	FeedbackStatusInProgress = "in_progress"
	FeedbackStatusResolved   = "resolved"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"
)

// InboundMessage is a webhook payload after normalization. It is never
// stored as is.
type InboundMessage struct {
	Sender    string     `json:"sender"`
	Body      string     `json:"body"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type Message struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	Language    string    `json:"language,omitempty"`
	IsFromAdmin bool      `json:"is_from_admin"`
}

type Contact struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Name        string    `json:"name,omitempty"`
	Zone        string    `json:"zone,omitempty"`
	Language    string    `json:"language,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Feedback struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Zone        string    `json:"zone,omitempty"`
	Location    string    `json:"location,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FeedbackAssignment struct {
	ID         int64     `json:"id"`
	FeedbackID int64     `json:"feedback_id"`
	Assignee   string    `json:"assignee"`
	Note       string    `json:"note,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

type ZoneConfig struct {
	Zone                 string    `json:"zone"`
	SanitationETAMinutes *int      `json:"sanitation_eta_minutes"`
	MedicalETAMinutes    *int      `json:"medical_eta_minutes"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type Approval struct {
	ID        int64           `json:"id"`
	ToolName  string          `json:"tool_name"`
	Args      json.RawMessage `json:"args"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
	DecidedBy string          `json:"decided_by,omitempty"`
}

type Notice struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Zones     []string  `json:"zones"`
	CreatedAt time.Time `json:"created_at"`
}

type Template struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

type FeedbackFilter struct {
	Category string
	Status   string
	Zone     string
	Limit    int
	Offset   int
}

type HourlyCount struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

// Metrics is the admin dashboard snapshot over tickets.
type Metrics struct {
	GeneratedAt time.Time        `json:"generated_at"`
	SinceHours  int              `json:"since_hours"`
	TotalIssues int64            `json:"total_issues"`
	Resolved    int64            `json:"resolved"`
	Messages    int64            `json:"messages"`
	Pending     int64            `json:"pending_approvals"`
	ByCategory  map[string]int64 `json:"by_category"`
	ByStatus    map[string]int64 `json:"by_status"`
	ByZone      map[string]int64 `json:"by_zone"`
	Hourly      []HourlyCount    `json:"hourly"`
}
