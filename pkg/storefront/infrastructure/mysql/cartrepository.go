package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

type cartItemRow struct {
	UserID    uuid.UUID `db:"user_id"`
	ProductID uuid.UUID `db:"product_id"`
	Quantity  int       `db:"quantity"`
	AddedAt   time.Time `db:"added_at"`
}

func NewCartRepository(db *sqlx.DB) model.CartRepository {
	return &cartRepository{db: db}
}

type cartRepository struct {
	db *sqlx.DB
}

func (r *cartRepository) Items(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	var rows []cartItemRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT user_id, product_id, quantity, added_at FROM cart_items WHERE user_id = ? ORDER BY added_at`, userID)
	if err != nil {
		return nil, err
	}
	items := make([]model.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.CartItem{
			UserID:    row.UserID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			AddedAt:   row.AddedAt.UTC(),
		})
	}
	return items, nil
}

func (r *cartRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		userID, productID, quantity, time.Now().UTC(),
	)
	return errors.Wrap(err, "failed to add cart item")
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?`, quantity, userID, productID)
	if err != nil {
		return errors.Wrap(err, "failed to update cart item")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	return errors.Wrap(err, "failed to remove cart item")
}

func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return errors.Wrap(err, "failed to clear cart")
}
