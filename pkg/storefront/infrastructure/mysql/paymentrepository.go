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

const paymentColumns = `id, order_id, user_id, amount_cents, method, status, transaction_id, metadata,
	completed_at, created_at, updated_at`

type paymentRow struct {
	ID            uuid.UUID    `db:"id"`
	OrderID       uuid.UUID    `db:"order_id"`
	UserID        uuid.UUID    `db:"user_id"`
	AmountCents   int64        `db:"amount_cents"`
	Method        string       `db:"method"`
	Status        string       `db:"status"`
	TransactionID string       `db:"transaction_id"`
	Metadata      []byte       `db:"metadata"`
	CompletedAt   sql.NullTime `db:"completed_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func (r paymentRow) toModel() (model.Payment, error) {
	p := model.Payment{
		ID:            r.ID,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		AmountCents:   r.AmountCents,
		Method:        r.Method,
		Status:        model.PaymentStatus(r.Status),
		TransactionID: r.TransactionID,
		CompletedAt:   fromNullTime(r.CompletedAt),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if err := unmarshalJSON(r.Metadata, &p.Metadata); err != nil {
		return p, errors.Wrap(err, "corrupt payment metadata")
	}
	return p, nil
}

func NewPaymentRepository(db *sqlx.DB) model.PaymentRepository {
	return &paymentRepository{db: db}
}

type paymentRepository struct {
	db *sqlx.DB
}

func (r *paymentRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	var metadata []byte
	if len(p.Metadata) > 0 {
		var err error
		if metadata, err = marshalJSON(p.Metadata); err != nil {
			return err
		}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO payments (id, order_id, user_id, amount_cents, method, status,
		transaction_id, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.UserID, p.AmountCents, p.Method, p.Status, p.TransactionID, metadata, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "failed to insert payment")
}

func (r *paymentRepository) Find(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *paymentRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*model.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID, userID uuid.UUID) ([]model.Payment, error) {
	var rows []paymentRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+paymentColumns+` FROM payments
		WHERE order_id = ? AND user_id = ? ORDER BY created_at`, orderID, userID)
	if err != nil {
		return nil, err
	}
	payments := make([]model.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// Confirm relies on the unique completed_order_id column to reject a second
// completed payment for the same order.
func (r *paymentRepository) Confirm(ctx context.Context, c model.PaymentConfirmation) (bool, error) {
	var completedAt sql.NullTime
	if c.Status == model.PaymentCompleted {
		completedAt = sql.NullTime{Time: c.At, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET status = ?, transaction_id = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?`,
		c.Status, c.TransactionID, completedAt, c.At, c.PaymentID, c.UserID, model.PaymentPending,
	)
	if isDuplicate(err) {
		return false, model.ErrOrderAlreadyPaid
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to confirm payment")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *paymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Payment, error) {
	var row paymentRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}
