package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/simhastha_samwad/backend/internal/models"
)

const feedbackColumns = `id, phone_number, category, status, COALESCE(zone, ''), COALESCE(location, ''), message, created_at, updated_at`

func scanFeedback(row pgx.Row) (models.Feedback, error) {
	var f models.Feedback
	err := row.Scan(&f.ID, &f.PhoneNumber, &f.Category, &f.Status, &f.Zone, &f.Location, &f.Message, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (s *Store) CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	if f.Status == "" {
		f.Status = models.FeedbackStatusNew
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO feedback (phone_number, category, status, zone, location, message, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NOW(), NOW())
		RETURNING `+feedbackColumns,
		f.PhoneNumber, f.Category, f.Status, f.Zone, f.Location, f.Message)
	return scanFeedback(row)
}

func (s *Store) GetFeedback(ctx context.Context, id int64) (models.Feedback, error) {
	f, err := scanFeedback(s.Pool.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id))
	if err != nil {
		return models.Feedback{}, notFound(err)
	}
	return f, nil
}

// LatestFeedbackForPhone returns the most recently created ticket of a sender.
func (s *Store) LatestFeedbackForPhone(ctx context.Context, phone string) (models.Feedback, error) {
	f, err := scanFeedback(s.Pool.QueryRow(ctx, `
		SELECT `+feedbackColumns+` FROM feedback
		WHERE phone_number = $1
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, phone))
	if err != nil {
		return models.Feedback{}, notFound(err)
	}
	return f, nil
}

// FindRecentFeedback looks up a ticket of the same sender and category
// created at or after since.
func (s *Store) FindRecentFeedback(ctx context.Context, phone, category string, since time.Time) (models.Feedback, error) {
	f, err := scanFeedback(s.Pool.QueryRow(ctx, `
		SELECT `+feedbackColumns+` FROM feedback
		WHERE phone_number = $1 AND category = $2 AND created_at >= $3
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, phone, category, since))
	if err != nil {
		return models.Feedback{}, notFound(err)
	}
	return f, nil
}

func (s *Store) ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	limit, offset := pageBounds(filter.Limit, filter.Offset)

	query := `SELECT ` + feedbackColumns + ` FROM feedback`
	var args []any
	var wheres []string
	if filter.Category != "" {
		args = append(args, filter.Category)
		wheres = append(wheres, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Zone != "" {
		args = append(args, filter.Zone)
		wheres = append(wheres, fmt.Sprintf("zone = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) UpdateFeedbackStatus(ctx context.Context, id int64, status string) (models.Feedback, error) {
	f, err := scanFeedback(s.Pool.QueryRow(ctx, `
		UPDATE feedback SET status = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+feedbackColumns, id, status))
	if err != nil {
		return models.Feedback{}, notFound(err)
	}
	return f, nil
}

// UpsertAssignment keeps one current assignment row per ticket; a second
// call re-assigns in place.
func (s *Store) UpsertAssignment(ctx context.Context, a models.FeedbackAssignment) (models.FeedbackAssignment, error) {
	var out models.FeedbackAssignment
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM feedback WHERE id = $1)`, a.FeedbackID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return tx.QueryRow(ctx, `
			INSERT INTO feedback_assignments (feedback_id, assignee, note, assigned_at)
			VALUES ($1, $2, NULLIF($3, ''), NOW())
			ON CONFLICT (feedback_id) DO UPDATE SET
				assignee = EXCLUDED.assignee,
				note = EXCLUDED.note,
				assigned_at = NOW()
			RETURNING id, feedback_id, assignee, COALESCE(note, ''), assigned_at
		`, a.FeedbackID, a.Assignee, a.Note).Scan(&out.ID, &out.FeedbackID, &out.Assignee, &out.Note, &out.AssignedAt)
	})
	return out, err
}

// ListAssignments lists assignments newest first. A zero feedbackID lists
// every ticket.
func (s *Store) ListAssignments(ctx context.Context, feedbackID int64, limit, offset int) ([]models.FeedbackAssignment, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := s.Pool.Query(ctx, `
		SELECT id, feedback_id, assignee, COALESCE(note, ''), assigned_at
		FROM feedback_assignments
		WHERE $1::bigint = 0 OR feedback_id = $1
		ORDER BY assigned_at DESC LIMIT $2 OFFSET $3
	`, feedbackID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.FeedbackAssignment{}
	for rows.Next() {
		var a models.FeedbackAssignment
		if err := rows.Scan(&a.ID, &a.FeedbackID, &a.Assignee, &a.Note, &a.AssignedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
