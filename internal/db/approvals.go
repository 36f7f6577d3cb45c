package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/simhastha_samwad/backend/internal/models"
)

const approvalColumns = `id, tool_name, args, status, result, created_at, decided_at, COALESCE(decided_by, '')`

func scanApproval(row pgx.Row) (models.Approval, error) {
	var (
		a      models.Approval
		args   []byte
		result []byte
	)
	if err := row.Scan(&a.ID, &a.ToolName, &args, &a.Status, &result, &a.CreatedAt, &a.DecidedAt, &a.DecidedBy); err != nil {
		return models.Approval{}, err
	}
	a.Args = json.RawMessage(args)
	if len(result) > 0 {
		a.Result = json.RawMessage(result)
	}
	return a, nil
}

func (s *Store) CreateApproval(ctx context.Context, toolName string, args json.RawMessage) (models.Approval, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return scanApproval(s.Pool.QueryRow(ctx, `
		INSERT INTO approvals (tool_name, args, status, created_at)
		VALUES ($1, $2, 'pending', NOW())
		RETURNING `+approvalColumns, toolName, []byte(args)))
}

func (s *Store) GetApproval(ctx context.Context, id int64) (models.Approval, error) {
	a, err := scanApproval(s.Pool.QueryRow(ctx, `SELECT `+approvalColumns+` FROM approvals WHERE id = $1`, id))
	if err != nil {
		return models.Approval{}, notFound(err)
	}
	return a, nil
}

func (s *Store) ListApprovals(ctx context.Context, status string, limit, offset int) ([]models.Approval, error) {
	limit, offset = pageBounds(limit, offset)
	query := `SELECT ` + approvalColumns + ` FROM approvals`
	var args []any
	if status != "" {
		args = append(args, status)
		query += " WHERE status = $1"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimApproval moves a pending approval to status in a single conditional
// update, so at most one caller can ever win the transition. A missing id
// yields ErrNotFound and an already decided one ErrAlreadyDecided.
func (s *Store) ClaimApproval(ctx context.Context, id int64, status, actor string) (models.Approval, error) {
	a, err := scanApproval(s.Pool.QueryRow(ctx, `
		UPDATE approvals
		SET status = $2, decided_at = NOW(), decided_by = NULLIF($3, '')
		WHERE id = $1 AND status = 'pending'
		RETURNING `+approvalColumns, id, status, actor))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Approval{}, err
	}
	if _, getErr := s.GetApproval(ctx, id); getErr != nil {
		return models.Approval{}, getErr
	}
	return models.Approval{}, ErrAlreadyDecided
}

func (s *Store) SetApprovalResult(ctx context.Context, id int64, result json.RawMessage) (models.Approval, error) {
	a, err := scanApproval(s.Pool.QueryRow(ctx, `
		UPDATE approvals SET result = $2 WHERE id = $1
		RETURNING `+approvalColumns, id, []byte(result)))
	if err != nil {
		return models.Approval{}, notFound(err)
	}
	return a, nil
}
