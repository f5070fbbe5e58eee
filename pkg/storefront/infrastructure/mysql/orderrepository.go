package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/storefront/domain/model"
)

const orderColumns = `id, user_id, status, total_cents, discount_cents, shipping_address, delivery_user_id,
	shipped_evidence, delivered_evidence, cancel_reason, created_at, updated_at, confirmed_at, shipped_at,
	delivered_at, cancelled_at, customer_confirmed_at`

type orderRow struct {
	ID                  uuid.UUID     `db:"id"`
	UserID              uuid.UUID     `db:"user_id"`
	Status              string        `db:"status"`
	TotalCents          int64         `db:"total_cents"`
	DiscountCents       int64         `db:"discount_cents"`
	ShippingAddress     []byte        `db:"shipping_address"`
	DeliveryUserID      uuid.NullUUID `db:"delivery_user_id"`
	ShippedEvidence     []byte        `db:"shipped_evidence"`
	DeliveredEvidence   []byte        `db:"delivered_evidence"`
	CancelReason        string        `db:"cancel_reason"`
	CreatedAt           time.Time     `db:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
	ConfirmedAt         sql.NullTime  `db:"confirmed_at"`
	ShippedAt           sql.NullTime  `db:"shipped_at"`
	DeliveredAt         sql.NullTime  `db:"delivered_at"`
	CancelledAt         sql.NullTime  `db:"cancelled_at"`
	CustomerConfirmedAt sql.NullTime  `db:"customer_confirmed_at"`
}

func (r orderRow) toModel() (model.Order, error) {
	o := model.Order{
		ID:                  r.ID,
		UserID:              r.UserID,
		Status:              model.OrderStatus(r.Status),
		TotalCents:          r.TotalCents,
		DiscountCents:       r.DiscountCents,
		DeliveryUserID:      fromNullUUID(r.DeliveryUserID),
		CancelReason:        r.CancelReason,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
		ConfirmedAt:         fromNullTime(r.ConfirmedAt),
		ShippedAt:           fromNullTime(r.ShippedAt),
		DeliveredAt:         fromNullTime(r.DeliveredAt),
		CancelledAt:         fromNullTime(r.CancelledAt),
		CustomerConfirmedAt: fromNullTime(r.CustomerConfirmedAt),
	}
	if err := unmarshalJSON(r.ShippingAddress, &o.ShippingAddress); err != nil {
		return o, errors.Wrap(err, "corrupt shipping address")
	}
	if len(r.ShippedEvidence) > 0 {
		o.ShippedEvidence = &model.DeliveryEvidence{}
		if err := unmarshalJSON(r.ShippedEvidence, o.ShippedEvidence); err != nil {
			return o, errors.Wrap(err, "corrupt shipping evidence")
		}
	}
	if len(r.DeliveredEvidence) > 0 {
		o.DeliveredEvidence = &model.DeliveryEvidence{}
		if err := unmarshalJSON(r.DeliveredEvidence, o.DeliveredEvidence); err != nil {
			return o, errors.Wrap(err, "corrupt delivery evidence")
		}
	}
	return o, nil
}

type orderItemRow struct {
	ID             uuid.UUID `db:"id"`
	OrderID        uuid.UUID `db:"order_id"`
	ProductID      uuid.UUID `db:"product_id"`
	ProductName    string    `db:"product_name"`
	Quantity       int       `db:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	LineTotalCents int64     `db:"line_total_cents"`
}

// timestampColumn names the column stamped when an order enters a status.
var timestampColumn = map[model.OrderStatus]string{
	model.OrderConfirmed: "confirmed_at",
	model.OrderShipped:   "shipped_at",
	model.OrderDelivered: "delivered_at",
	model.OrderCancelled: "cancelled_at",
}

var evidenceColumn = map[model.OrderStatus]string{
	model.OrderShipped:   "shipped_evidence",
	model.OrderDelivered: "delivered_evidence",
}

func NewOrderRepository(db *sqlx.DB) model.OrderRepository {
	return &orderRepository{db: db}
}

type orderRepository struct {
	db *sqlx.DB
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Place(ctx context.Context, order *model.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.WithError(err).WithField("order", order.ID).Warn("failed to roll back order placement")
		}
	}()

	var shortages []model.StockShortage
	for _, item := range order.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND is_active = 1 AND stock >= ?`,
			item.Quantity, order.CreatedAt, item.ProductID, item.Quantity,
		)
		if err != nil {
			return errors.Wrap(err, "failed to reserve stock")
		}
		reserved, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if reserved == 0 {
			shortage, err := r.shortageOf(ctx, tx, item)
			if err != nil {
				return err
			}
			shortages = append(shortages, shortage)
		}
	}
	if len(shortages) > 0 {
		return &model.InsufficientStockError{Lines: shortages}
	}

	address, err := marshalJSON(order.ShippingAddress)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO orders (id, user_id, status, total_cents, discount_cents,
		shipping_address, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Status, order.TotalCents, order.DiscountCents, address, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert order")
	}

	query := `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price_cents, line_total_cents) VALUES `
	values := make([]interface{}, 0, len(order.Items)*7)
	placeholders := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
		values = append(values, item.ID, order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPriceCents, item.LineTotalCents)
	}
	if _, err := tx.ExecContext(ctx, query+strings.Join(placeholders, ", "), values...); err != nil {
		return errors.Wrap(err, "failed to insert order items")
	}

	return errors.Wrap(tx.Commit(), "failed to commit order")
}

func (r *orderRepository) shortageOf(ctx context.Context, tx *sqlx.Tx, item model.OrderItem) (model.StockShortage, error) {
	shortage := model.StockShortage{ProductID: item.ProductID, ProductName: item.ProductName, Requested: item.Quantity}
	var current struct {
		Stock    int  `db:"stock"`
		IsActive bool `db:"is_active"`
	}
	err := tx.GetContext(ctx, &current, `SELECT stock, is_active FROM products WHERE id = ?`, item.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		shortage.Inactive = true
		return shortage, nil
	}
	if err != nil {
		return shortage, err
	}
	shortage.Available = current.Stock
	shortage.Inactive = !current.IsActive
	return shortage, nil
}

func (r *orderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *orderRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *orderRepository) ListByDeliveryUser(ctx context.Context, deliveryUserID uuid.UUID) ([]model.Order, error) {
	return r.findMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE delivery_user_id = ? ORDER BY created_at DESC`, deliveryUserID)
}

func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != nil {
		conditions = append(conditions, "o.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.VendorID != nil {
		conditions = append(conditions, `EXISTS (SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.vendor_id = ?)`)
		args = append(args, *filter.VendorID)
	}
	query := `SELECT ` + prefixColumns("o", orderColumns) + ` FROM orders o`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY o.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return r.findMany(ctx, query, args...)
}

func (r *orderRepository) CountByUserAndStatus(ctx context.Context, userID uuid.UUID, statuses []model.OrderStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM orders WHERE user_id = ? AND status IN (?)`, userID, statuses)
	if err != nil {
		return 0, err
	}
	var count int
	err = r.db.GetContext(ctx, &count, r.db.Rebind(query), args...)
	return count, err
}

// ChangeStatus applies the transition only while the order is in one of
// change.From. Restocking happens in the same transaction.
func (r *orderRepository) ChangeStatus(ctx context.Context, id uuid.UUID, change model.StatusChange) (bool, error) {
	if len(change.From) == 0 {
		return false, errors.Wrap(model.ErrInvalidInput, "no source statuses")
	}

	set := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{change.To, change.At}
	if column, ok := timestampColumn[change.To]; ok {
		set = append(set, column+" = ?")
		args = append(args, change.At)
	}
	if column, ok := evidenceColumn[change.To]; ok && change.Evidence != nil {
		evidence, err := marshalJSON(change.Evidence)
		if err != nil {
			return false, err
		}
		set = append(set, column+" = ?")
		args = append(args, evidence)
	}
	if change.To == model.OrderCancelled {
		set = append(set, "cancel_reason = ?")
		args = append(args, change.Reason)
	}

	where := "id = ? AND status IN (?)"
	args = append(args, id, change.From)
	if change.DeliveryUserID != nil {
		where += " AND delivery_user_id = ?"
		args = append(args, *change.DeliveryUserID)
	}

	query, args, err := sqlx.In(`UPDATE orders SET `+strings.Join(set, ", ")+` WHERE `+where, args...)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return false, errors.Wrap(err, "failed to change order status")
	}
	applied, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if applied == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM orders WHERE id = ?`, id); err != nil {
			return false, err
		}
		if exists == 0 {
			return false, model.ErrOrderNotFound
		}
		return false, nil
	}

	if change.RestoreStock {
		_, err := tx.ExecContext(ctx, `UPDATE products p JOIN order_items oi ON oi.product_id = p.id
			SET p.stock = p.stock + oi.quantity, p.updated_at = ?
			WHERE oi.order_id = ?`, change.At, id)
		if err != nil {
			return false, errors.Wrap(err, "failed to restore stock")
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit status change")
	}
	return true, nil
}

func (r *orderRepository) AssignDelivery(ctx context.Context, id, deliveryUserID uuid.UUID, from []model.OrderStatus) (bool, error) {
	query, args, err := sqlx.In(`UPDATE orders SET delivery_user_id = ?, updated_at = ?
		WHERE id = ? AND status IN (?) AND (delivery_user_id IS NULL OR delivery_user_id <> ?)`,
		deliveryUserID, time.Now().UTC(), id, from, deliveryUserID)
	if err != nil {
		return false, err
	}
	return r.conditionalUpdate(ctx, id, r.db.Rebind(query), args...)
}

func (r *orderRepository) ConfirmReceipt(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	return r.conditionalUpdate(ctx, id, `UPDATE orders SET customer_confirmed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ? AND customer_confirmed_at IS NULL`,
		at, at, id, userID, model.OrderDelivered)
}

func (r *orderRepository) conditionalUpdate(ctx context.Context, id uuid.UUID, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "failed to update order")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		if _, err := r.Find(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *orderRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	order, err := row.toModel()
	if err != nil {
		return nil, err
	}
	orders := []model.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]model.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids = append(ids, o.ID)
		index[o.ID] = i
	}
	query, args, err := sqlx.In(`SELECT id, order_id, product_id, product_name, quantity, unit_price_cents, line_total_cents
		FROM order_items WHERE order_id IN (?) ORDER BY product_name`, ids)
	if err != nil {
		return err
	}
	var rows []orderItemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.OrderID]
		orders[i].Items = append(orders[i].Items, model.OrderItem{
			ID:             row.ID,
			OrderID:        row.OrderID,
			ProductID:      row.ProductID,
			ProductName:    row.ProductName,
			Quantity:       row.Quantity,
			UnitPriceCents: row.UnitPriceCents,
			LineTotalCents: row.LineTotalCents,
		})
	}
	return nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
