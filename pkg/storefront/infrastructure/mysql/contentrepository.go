package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

func NewContentRepository(db *sqlx.DB) model.ContentRepository {
	return &contentRepository{db: db}
}

type contentRepository struct {
	db *sqlx.DB
}

func (r *contentRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *contentRepository) Create(ctx context.Context, c *model.GeneratedContent) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO generated_content (id, author_id, kind, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, c.ID, c.AuthorID, c.Kind, c.Title, []byte(c.Body), c.CreatedAt)
	return errors.Wrap(err, "failed to insert generated content")
}

func (r *contentRepository) List(ctx context.Context, kind model.ContentKind) ([]model.GeneratedContent, error) {
	query := `SELECT id, author_id, kind, title, body, created_at FROM generated_content`
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	var rows []struct {
		ID        uuid.UUID `db:"id"`
		AuthorID  uuid.UUID `db:"author_id"`
		Kind      string    `db:"kind"`
		Title     string    `db:"title"`
		Body      []byte    `db:"body"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]model.GeneratedContent, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.GeneratedContent{
			ID:        row.ID,
			AuthorID:  row.AuthorID,
			Kind:      model.ContentKind(row.Kind),
			Title:     row.Title,
			Body:      row.Body,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return result, nil
}
