package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CartItem struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	AddedAt   time.Time
}

type CartRepository interface {
	Items(ctx context.Context, userID uuid.UUID) ([]CartItem, error)
	// Add inserts the line or increases the quantity of an existing one.
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}
