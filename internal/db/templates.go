package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/simhastha_samwad/backend/internal/models"
)

const templateColumns = `id, key, text, created_at, updated_at`

func scanTemplate(row pgx.Row) (models.Template, error) {
	var t models.Template
	err := row.Scan(&t.ID, &t.Key, &t.Text, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, id int64) (models.Template, error) {
	t, err := scanTemplate(s.Pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id))
	if err != nil {
		return models.Template{}, notFound(err)
	}
	return t, nil
}

func (s *Store) GetTemplateByKey(ctx context.Context, key string) (models.Template, error) {
	t, err := scanTemplate(s.Pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE key = $1`, key))
	if err != nil {
		return models.Template{}, notFound(err)
	}
	return t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, key, text string) (models.Template, error) {
	return scanTemplate(s.Pool.QueryRow(ctx, `
		INSERT INTO templates (key, text, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
		RETURNING `+templateColumns, key, text))
}

func (s *Store) UpdateTemplate(ctx context.Context, id int64, key, text string) (models.Template, error) {
	t, err := scanTemplate(s.Pool.QueryRow(ctx, `
		UPDATE templates SET key = $2, text = $3, updated_at = NOW() WHERE id = $1
		RETURNING `+templateColumns, id, key, text))
	if err != nil {
		return models.Template{}, notFound(err)
	}
	return t, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
