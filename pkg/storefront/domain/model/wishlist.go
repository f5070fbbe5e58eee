package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type WishlistItem struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	AddedAt   time.Time
}

type WishlistRepository interface {
	// Toggle inserts the pair when absent and deletes it when present,
	// reporting whether the product is in the wishlist afterwards.
	Toggle(ctx context.Context, userID, productID uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]WishlistItem, error)
}
