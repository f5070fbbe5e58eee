package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

func NewLoyaltyRepository(db *sqlx.DB) model.LoyaltyRepository {
	return &loyaltyRepository{db: db}
}

type loyaltyRepository struct {
	db *sqlx.DB
}

func (r *loyaltyRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

// Award writes the ledger entry and the account balance in one transaction.
// The unique (user_id, reason, source_id) key turns a repeat into a no-op.
func (r *loyaltyRepository) Award(ctx context.Context, e *model.LoyaltyEntry) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO loyalty_entries (id, user_id, reason, source_id, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, e.ID, e.UserID, e.Reason, e.SourceID, e.Points, e.CreatedAt)
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to insert loyalty entry")
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO loyalty_accounts (user_id, points, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE points = points + VALUES(points), updated_at = VALUES(updated_at)`,
		e.UserID, e.Points, e.CreatedAt)
	if err != nil {
		return false, errors.Wrap(err, "failed to credit loyalty account")
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *loyaltyRepository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var points int64
	err := r.db.GetContext(ctx, &points, `SELECT points FROM loyalty_accounts WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

func (r *loyaltyRepository) Entries(ctx context.Context, userID uuid.UUID) ([]model.LoyaltyEntry, error) {
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		UserID    uuid.UUID `db:"user_id"`
		Reason    string    `db:"reason"`
		SourceID  uuid.UUID `db:"source_id"`
		Points    int64     `db:"points"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT id, user_id, reason, source_id, points, created_at
		FROM loyalty_entries WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LoyaltyEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.LoyaltyEntry{
			ID:        row.ID,
			UserID:    row.UserID,
			Reason:    model.LoyaltyReason(row.Reason),
			SourceID:  row.SourceID,
			Points:    row.Points,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return entries, nil
}
