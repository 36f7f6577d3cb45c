package service

import (
	"context"
	"errors"
	"time"

	"github.com/simhastha_samwad/backend/internal/config"
	"github.com/simhastha_samwad/backend/internal/models"
)

var (
	ErrNoRecipients = errors.New("no_numbers_provided")
	ErrMediaFetch   = errors.New("image_fetch_failed")
	ErrInvalidArgs  = errors.New("invalid arguments")
)

// Repository is the slice of the record store the pipeline needs.
// *db.Store implements it.
type Repository interface {
	InsertMessage(ctx context.Context, m models.Message) (models.Message, error)
	ListMessagesByPhone(ctx context.Context, phone string, limit int) ([]models.Message, error)

	GetContact(ctx context.Context, phone string) (models.Contact, error)
	UpsertContact(ctx context.Context, c models.Contact) (models.Contact, error)
	ListContactsByZone(ctx context.Context, zones []string) ([]models.Contact, error)

	GetZoneConfig(ctx context.Context, zone string) (models.ZoneConfig, error)

	CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error)
	GetFeedback(ctx context.Context, id int64) (models.Feedback, error)
	LatestFeedbackForPhone(ctx context.Context, phone string) (models.Feedback, error)
	FindRecentFeedback(ctx context.Context, phone, category string, since time.Time) (models.Feedback, error)
	UpdateFeedbackStatus(ctx context.Context, id int64, status string) (models.Feedback, error)
	UpsertAssignment(ctx context.Context, a models.FeedbackAssignment) (models.FeedbackAssignment, error)

	CreateNotice(ctx context.Context, message string, zones []string) (models.Notice, error)
	GetTemplateByKey(ctx context.Context, key string) (models.Template, error)
}

// Broadcaster pushes events to connected viewers. *realtime.Hub implements it.
type Broadcaster interface {
	Publish(ctx context.Context, eventType string, data any)
}

// SettingsSource is read on every decision so reloads apply immediately.
type SettingsSource interface {
	Settings() config.Settings
}

// Submitter schedules background work. *jobs.Pool implements it.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

type Classifier interface {
	Classify(ctx context.Context, text string) (models.Classification, error)
}

type TextGenerator interface {
	Reply(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}
