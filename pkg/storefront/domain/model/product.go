package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID   uuid.UUID
	Name LocalizedText
}

type Product struct {
	ID                 uuid.UUID
	VendorID           *uuid.UUID
	CategoryID         *uuid.UUID
	Name               LocalizedText
	Description        LocalizedText
	PriceCents         int64
	OriginalPriceCents *int64
	DiscountPercent    int
	Stock              int
	IsActive           bool
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p *Product) OwnedBy(vendorID uuid.UUID) bool {
	return p.VendorID != nil && *p.VendorID == vendorID
}

type ProductFilter struct {
	CategoryID      *uuid.UUID
	VendorID        *uuid.UUID
	IncludeInactive bool
}

type ProductRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	// Update persists everything except stock, guarded by Version.
	Update(ctx context.Context, product *Product) error
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	// AdjustStock applies delta in a single conditional update and fails with
	// ErrInsufficientStock when the result would be negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}
