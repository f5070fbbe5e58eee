package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/pkg/storefront/domain/model"
)

func NewWishlistRepository(db *sqlx.DB) model.WishlistRepository {
	return &wishlistRepository{db: db}
}

type wishlistRepository struct {
	db *sqlx.DB
}

func (r *wishlistRepository) Toggle(ctx context.Context, userID, productID uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if removed > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT IGNORE INTO wishlist_items (user_id, product_id, added_at) VALUES (?, ?, ?)`,
		userID, productID, at)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *wishlistRepository) List(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	var rows []struct {
		UserID    uuid.UUID `db:"user_id"`
		ProductID uuid.UUID `db:"product_id"`
		AddedAt   time.Time `db:"added_at"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT user_id, product_id, added_at FROM wishlist_items WHERE user_id = ? ORDER BY added_at`, userID)
	if err != nil {
		return nil, err
	}
	items := make([]model.WishlistItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.WishlistItem{UserID: row.UserID, ProductID: row.ProductID, AddedAt: row.AddedAt.UTC()})
	}
	return items, nil
}
