package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/config"
	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/gateway"
	"github.com/simhastha_samwad/backend/internal/models"
)

type memRepo struct {
	mu          sync.Mutex
	messages    []models.Message
	contacts    map[string]models.Contact
	zones       map[string]models.ZoneConfig
	feedback    []models.Feedback
	assignments map[int64]models.FeedbackAssignment
	notices     []models.Notice
	templates   map[string]models.Template
	failZone    bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		contacts:    map[string]models.Contact{},
		zones:       map[string]models.ZoneConfig{},
		assignments: map[int64]models.FeedbackAssignment{},
		templates:   map[string]models.Template{},
	}
}

func (r *memRepo) InsertMessage(ctx context.Context, m models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = int64(len(r.messages) + 1)
	r.messages = append(r.messages, m)
	return m, nil
}

func (r *memRepo) ListMessagesByPhone(ctx context.Context, phone string, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.PhoneNumber == phone {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memRepo) GetContact(ctx context.Context, phone string) (models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[phone]
	if !ok {
		return models.Contact{}, db.ErrNotFound
	}
	return c, nil
}

func (r *memRepo) UpsertContact(ctx context.Context, c models.Contact) (models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.contacts[c.PhoneNumber]
	cur.PhoneNumber = c.PhoneNumber
	if c.Name != "" {
		cur.Name = c.Name
	}
	if c.Zone != "" {
		cur.Zone = c.Zone
	}
	if c.Language != "" {
		cur.Language = c.Language
	}
	r.contacts[c.PhoneNumber] = cur
	return cur, nil
}

func (r *memRepo) ListContactsByZone(ctx context.Context, zones []string) ([]models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Contact
	for _, c := range r.contacts {
		for _, z := range zones {
			if c.Zone == z {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out, nil
}

func (r *memRepo) GetZoneConfig(ctx context.Context, zone string) (models.ZoneConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failZone {
		return models.ZoneConfig{}, errors.New("db down")
	}
	z, ok := r.zones[zone]
	if !ok {
		return models.ZoneConfig{}, db.ErrNotFound
	}
	return z, nil
}

func (r *memRepo) CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = int64(len(r.feedback) + 1)
	f.CreatedAt = time.Now().UTC()
	r.feedback = append(r.feedback, f)
	return f, nil
}

func (r *memRepo) GetFeedback(ctx context.Context, id int64) (models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.feedback {
		if f.ID == id {
			return f, nil
		}
	}
	return models.Feedback{}, db.ErrNotFound
}

func (r *memRepo) LatestFeedbackForPhone(ctx context.Context, phone string) (models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.feedback) - 1; i >= 0; i-- {
		if r.feedback[i].PhoneNumber == phone {
			return r.feedback[i], nil
		}
	}
	return models.Feedback{}, db.ErrNotFound
}

func (r *memRepo) FindRecentFeedback(ctx context.Context, phone, category string, since time.Time) (models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.feedback) - 1; i >= 0; i-- {
		f := r.feedback[i]
		if f.PhoneNumber == phone && f.Category == category && !f.CreatedAt.Before(since) {
			return f, nil
		}
	}
	return models.Feedback{}, db.ErrNotFound
}

func (r *memRepo) UpdateFeedbackStatus(ctx context.Context, id int64, status string) (models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.feedback {
		if r.feedback[i].ID == id {
			r.feedback[i].Status = status
			return r.feedback[i], nil
		}
	}
	return models.Feedback{}, db.ErrNotFound
}

func (r *memRepo) UpsertAssignment(ctx context.Context, a models.FeedbackAssignment) (models.FeedbackAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for _, f := range r.feedback {
		if f.ID == a.FeedbackID {
			found = true
		}
	}
	if !found {
		return models.FeedbackAssignment{}, db.ErrNotFound
	}
	a.ID = a.FeedbackID
	r.assignments[a.FeedbackID] = a
	return a, nil
}

func (r *memRepo) CreateNotice(ctx context.Context, message string, zones []string) (models.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := models.Notice{ID: int64(len(r.notices) + 1), Message: message, Zones: zones}
	r.notices = append(r.notices, n)
	return n, nil
}

func (r *memRepo) GetTemplateByKey(ctx context.Context, key string) (models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[key]
	if !ok {
		return models.Template{}, db.ErrNotFound
	}
	return t, nil
}

func (r *memRepo) feedbackByCategory(category string) []models.Feedback {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Feedback
	for _, f := range r.feedback {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

func (r *memRepo) adminMessages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.IsFromAdmin {
			out = append(out, m)
		}
	}
	return out
}

type sent struct {
	Phone string
	Body  string
}

type fakeGateway struct {
	mu               sync.Mutex
	texts            []sent
	images           []sent
	pins             []gateway.Location
	locationRequests []sent
	failPhones       map[string]bool
	failRequests     bool
}

func (g *fakeGateway) SendText(ctx context.Context, phone, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPhones[phone] {
		return &gateway.StatusError{Op: "send", Status: 500, Body: "boom"}
	}
	g.texts = append(g.texts, sent{phone, body})
	return nil
}

func (g *fakeGateway) SendImage(ctx context.Context, phone, body string, image []byte, filename string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.images = append(g.images, sent{phone, filename})
	return nil
}

func (g *fakeGateway) SendLocation(ctx context.Context, phone string, pin gateway.Location) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pins = append(g.pins, pin)
	return nil
}

func (g *fakeGateway) RequestLocation(ctx context.Context, phone, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRequests {
		return errors.New("gateway unavailable")
	}
	g.locationRequests = append(g.locationRequests, sent{phone, body})
	return nil
}

func (g *fakeGateway) textsTo(phone string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, s := range g.texts {
		if s.Phone == phone {
			out = append(out, s.Body)
		}
	}
	return out
}

type fixedClassifier struct {
	result models.Classification
	err    error
}

func (f fixedClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	return f.result, f.err
}

type cannedGenerator struct {
	reply string
	err   error
}

func (g cannedGenerator) Reply(ctx context.Context, text string) (string, error) {
	return g.reply, g.err
}

func (g cannedGenerator) Translate(ctx context.Context, text, target string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "[" + target + "] " + text, nil
}

func (g cannedGenerator) Summarize(ctx context.Context, transcript string) (string, error) {
	return transcript, g.err
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(ctx context.Context, eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

// inlineJobs runs submitted work immediately so tests observe its effects.
type inlineJobs struct {
	names []string
}

func (j *inlineJobs) Submit(name string, fn func(ctx context.Context) error) bool {
	j.names = append(j.names, name)
	_ = fn(context.Background())
	return true
}

type harness struct {
	repo     *memRepo
	gw       *fakeGateway
	events   *recorder
	jobs     *inlineJobs
	settings *config.Settings
	actions  *Actions
	composer *ReplyComposer
	auto     *AutoResponder
}

type settingsPtr struct{ s *config.Settings }

func (p settingsPtr) Settings() config.Settings { return *p.s }

func newHarness(cls models.Classification, gen cannedGenerator) *harness {
	h := &harness{
		repo:   newMemRepo(),
		gw:     &fakeGateway{failPhones: map[string]bool{}},
		events: &recorder{},
		jobs:   &inlineJobs{},
		settings: &config.Settings{
			SanitationETAMinutes: 12,
			MedicalETAMinutes:    7,
			TicketDedupeWindow:   2 * time.Minute,
			Assignees:            map[string][]string{},
		},
	}
	src := settingsPtr{h.settings}
	logger := zerolog.Nop()
	ctxRes := &ContextResolver{Repo: h.repo, Settings: src, Logger: logger}
	intents := &IntentResolver{Classifier: fixedClassifier{result: cls}, Logger: logger}
	h.actions = &Actions{
		Repo:      h.repo,
		Gateway:   h.gw,
		Events:    h.events,
		Settings:  src,
		Context:   ctxRes,
		Intents:   intents,
		Generator: gen,
		Logger:    logger,
	}
	h.composer = &ReplyComposer{Context: ctxRes, Actions: h.actions, Generator: gen, Logger: logger}
	h.auto = &AutoResponder{
		Actions:  h.actions,
		Composer: h.composer,
		Intents:  intents,
		Jobs:     h.jobs,
		Settings: src,
		Logger:   logger,
	}
	return h
}

func intPtr(v int) *int { return &v }
