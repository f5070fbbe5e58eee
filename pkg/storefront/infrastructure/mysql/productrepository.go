package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

const productColumns = `id, vendor_id, category_id, name, description, price_cents, original_price_cents,
	discount_percent, stock, is_active, version, created_at, updated_at`

type productRow struct {
	ID                 uuid.UUID     `db:"id"`
	VendorID           uuid.NullUUID `db:"vendor_id"`
	CategoryID         uuid.NullUUID `db:"category_id"`
	Name               []byte        `db:"name"`
	Description        []byte        `db:"description"`
	PriceCents         int64         `db:"price_cents"`
	OriginalPriceCents sql.NullInt64 `db:"original_price_cents"`
	DiscountPercent    int           `db:"discount_percent"`
	Stock              int           `db:"stock"`
	IsActive           bool          `db:"is_active"`
	Version            int           `db:"version"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

func (r productRow) toModel() (model.Product, error) {
	p := model.Product{
		ID:                 r.ID,
		VendorID:           fromNullUUID(r.VendorID),
		CategoryID:         fromNullUUID(r.CategoryID),
		PriceCents:         r.PriceCents,
		OriginalPriceCents: fromNullInt64(r.OriginalPriceCents),
		DiscountPercent:    r.DiscountPercent,
		Stock:              r.Stock,
		IsActive:           r.IsActive,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if err := unmarshalJSON(r.Name, &p.Name); err != nil {
		return p, errors.Wrap(err, "corrupt product name")
	}
	if err := unmarshalJSON(r.Description, &p.Description); err != nil {
		return p, errors.Wrap(err, "corrupt product description")
	}
	return p, nil
}

func NewProductRepository(db *sqlx.DB) model.ProductRepository {
	return &productRepository{db: db}
}

type productRepository struct {
	db *sqlx.DB
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	name, err := marshalJSON(p.Name)
	if err != nil {
		return err
	}
	description, err := marshalJSON(p.Description)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, toNullUUID(p.VendorID), toNullUUID(p.CategoryID), name, description, p.PriceCents,
		toNullInt64(p.OriginalPriceCents), p.DiscountPercent, p.Stock, p.IsActive, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "failed to insert product")
}

func (r *productRepository) Update(ctx context.Context, p *model.Product) error {
	name, err := marshalJSON(p.Name)
	if err != nil {
		return err
	}
	description, err := marshalJSON(p.Description)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE products SET category_id = ?, name = ?, description = ?, price_cents = ?,
		original_price_cents = ?, discount_percent = ?, is_active = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		toNullUUID(p.CategoryID), name, description, p.PriceCents, toNullInt64(p.OriginalPriceCents),
		p.DiscountPercent, p.IsActive, p.Version, p.UpdatedAt, p.ID, p.Version-1,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update product")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.Find(ctx, p.ID); err != nil {
			return err
		}
		return model.ErrOptimisticLock
	}
	return nil
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProductNotFound
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

func (r *productRepository) FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	result := make(map[uuid.UUID]model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, nil
}

func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active = 1")
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.VendorID != nil {
		conditions = append(conditions, "vendor_id = ?")
		args = append(args, *filter.VendorID)
	}
	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ? AND stock + ? >= 0`,
		delta, time.Now().UTC(), id, delta,
	)
	if err != nil {
		return errors.Wrap(err, "failed to adjust stock")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.Find(ctx, id); err != nil {
			return err
		}
		return model.ErrInsufficientStock
	}
	return nil
}
