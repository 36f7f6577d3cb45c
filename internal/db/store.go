package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simhastha_samwad/backend/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyDecided = errors.New("approval already decided")
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

const messageColumns = `id, phone_number, body, timestamp, COALESCE(language, ''), is_from_admin`

func scanMessage(row pgx.Row) (models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.PhoneNumber, &m.Body, &m.Timestamp, &m.Language, &m.IsFromAdmin)
	return m, err
}

func (s *Store) InsertMessage(ctx context.Context, m models.Message) (models.Message, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO messages (phone_number, body, timestamp, language, is_from_admin)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING `+messageColumns,
		m.PhoneNumber, m.Body, m.Timestamp, m.Language, m.IsFromAdmin)
	return scanMessage(row)
}

func (s *Store) ListMessages(ctx context.Context, limit, offset int) ([]models.Message, error) {
	limit, offset = pageBounds(limit, offset)
	return s.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY timestamp DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
}

// ListMessagesByPhone returns a conversation in chronological order.
func (s *Store) ListMessagesByPhone(ctx context.Context, phone string, limit int) ([]models.Message, error) {
	limit, _ = pageBounds(limit, 0)
	out, err := s.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages WHERE phone_number = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`, phone, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetContact(ctx context.Context, phone string) (models.Contact, error) {
	var c models.Contact
	err := s.Pool.QueryRow(ctx, `
		SELECT id, phone_number, COALESCE(name, ''), COALESCE(zone, ''), COALESCE(language, ''), updated_at
		FROM contacts WHERE phone_number = $1
	`, phone).Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.Zone, &c.Language, &c.UpdatedAt)
	if err != nil {
		return models.Contact{}, notFound(err)
	}
	return c, nil
}

// UpsertContact writes only the non-empty fields of c, keeping the stored
// value for the rest.
func (s *Store) UpsertContact(ctx context.Context, c models.Contact) (models.Contact, error) {
	var out models.Contact
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO contacts (phone_number, name, zone, language, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NOW())
		ON CONFLICT (phone_number) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, contacts.name),
			zone = COALESCE(EXCLUDED.zone, contacts.zone),
			language = COALESCE(EXCLUDED.language, contacts.language),
			updated_at = NOW()
		RETURNING id, phone_number, COALESCE(name, ''), COALESCE(zone, ''), COALESCE(language, ''), updated_at
	`, c.PhoneNumber, c.Name, c.Zone, c.Language).Scan(&out.ID, &out.PhoneNumber, &out.Name, &out.Zone, &out.Language, &out.UpdatedAt)
	return out, err
}

func (s *Store) ListContactsByZone(ctx context.Context, zones []string) ([]models.Contact, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, phone_number, COALESCE(name, ''), COALESCE(zone, ''), COALESCE(language, ''), updated_at
		FROM contacts WHERE zone = ANY($1) ORDER BY id ASC
	`, zones)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.Zone, &c.Language, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetZoneConfig(ctx context.Context, zone string) (models.ZoneConfig, error) {
	var z models.ZoneConfig
	err := s.Pool.QueryRow(ctx, `
		SELECT zone, sanitation_eta_minutes, medical_eta_minutes, updated_at
		FROM zone_configs WHERE zone = $1
	`, zone).Scan(&z.Zone, &z.SanitationETAMinutes, &z.MedicalETAMinutes, &z.UpdatedAt)
	if err != nil {
		return models.ZoneConfig{}, notFound(err)
	}
	return z, nil
}

func (s *Store) UpsertZoneConfig(ctx context.Context, z models.ZoneConfig) (models.ZoneConfig, error) {
	var out models.ZoneConfig
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO zone_configs (zone, sanitation_eta_minutes, medical_eta_minutes, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (zone) DO UPDATE SET
			sanitation_eta_minutes = COALESCE(EXCLUDED.sanitation_eta_minutes, zone_configs.sanitation_eta_minutes),
			medical_eta_minutes = COALESCE(EXCLUDED.medical_eta_minutes, zone_configs.medical_eta_minutes),
			updated_at = NOW()
		RETURNING zone, sanitation_eta_minutes, medical_eta_minutes, updated_at
	`, z.Zone, z.SanitationETAMinutes, z.MedicalETAMinutes).Scan(&out.Zone, &out.SanitationETAMinutes, &out.MedicalETAMinutes, &out.UpdatedAt)
	return out, err
}

func (s *Store) ListZoneConfigs(ctx context.Context) ([]models.ZoneConfig, error) {
	rows, err := s.Pool.Query(ctx, `SELECT zone, sanitation_eta_minutes, medical_eta_minutes, updated_at FROM zone_configs ORDER BY zone ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ZoneConfig{}
	for rows.Next() {
		var z models.ZoneConfig
		if err := rows.Scan(&z.Zone, &z.SanitationETAMinutes, &z.MedicalETAMinutes, &z.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (s *Store) CreateNotice(ctx context.Context, message string, zones []string) (models.Notice, error) {
	n := models.Notice{Message: message, Zones: zones}
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO admin_notices (message, zones, created_at) VALUES ($1, NULLIF($2, ''), NOW())
		RETURNING id, created_at
	`, message, strings.Join(zones, ",")).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

// Metrics aggregates ticket counters for the admin dashboard. The hourly
// series covers tickets created in the last sinceHours hours, one bucket per
// hour including empty ones.
func (s *Store) Metrics(ctx context.Context, sinceHours int) (models.Metrics, error) {
	if sinceHours <= 0 || sinceHours > 24*14 {
		sinceHours = 24
	}
	now := time.Now().UTC()
	m := models.Metrics{GeneratedAt: now, SinceHours: sinceHours}
	err := s.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM feedback),
			(SELECT COUNT(*) FROM feedback WHERE status = 'resolved'),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM approvals WHERE status = 'pending')
	`).Scan(&m.TotalIssues, &m.Resolved, &m.Messages, &m.Pending)
	if err != nil {
		return models.Metrics{}, err
	}

	groups := []struct {
		query  string
		target *map[string]int64
	}{
		{`SELECT category, COUNT(*) FROM feedback GROUP BY category`, &m.ByCategory},
		{`SELECT status, COUNT(*) FROM feedback GROUP BY status`, &m.ByStatus},
		{`SELECT zone, COUNT(*) FROM feedback WHERE zone IS NOT NULL AND zone <> '' GROUP BY zone`, &m.ByZone},
	}
	for _, g := range groups {
		counts, err := s.countBy(ctx, g.query)
		if err != nil {
			return models.Metrics{}, err
		}
		*g.target = counts
	}

	start := now.Truncate(time.Hour).Add(-time.Duration(sinceHours-1) * time.Hour)
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('hour', created_at AT TIME ZONE 'UTC') AS hour, COUNT(*)
		FROM feedback
		WHERE created_at >= $1
		GROUP BY hour
	`, start)
	if err != nil {
		return models.Metrics{}, err
	}
	defer rows.Close()
	counts := map[time.Time]int64{}
	for rows.Next() {
		var (
			hour  time.Time
			count int64
		)
		if err := rows.Scan(&hour, &count); err != nil {
			return models.Metrics{}, err
		}
		counts[hour.UTC()] = count
	}
	if err := rows.Err(); err != nil {
		return models.Metrics{}, err
	}
	m.Hourly = HourlyBuckets(start, sinceHours, counts)
	return m, nil
}

// HourlyBuckets lays counts out as n consecutive hours from start.
func HourlyBuckets(start time.Time, n int, counts map[time.Time]int64) []models.HourlyCount {
	out := make([]models.HourlyCount, 0, n)
	for i := 0; i < n; i++ {
		h := start.Add(time.Duration(i) * time.Hour)
		out = append(out, models.HourlyCount{Hour: h, Count: counts[h]})
	}
	return out
}

func (s *Store) countBy(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}
