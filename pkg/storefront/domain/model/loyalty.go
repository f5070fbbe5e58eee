package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type LoyaltyReason string

const (
	LoyaltyOrderDelivered LoyaltyReason = "order_delivered"
	LoyaltyReferral       LoyaltyReason = "referral"
)

type LoyaltyEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Reason    LoyaltyReason
	SourceID  uuid.UUID
	Points    int64
	CreatedAt time.Time
}

type LoyaltyRepository interface {
	NextID() (uuid.UUID, error)
	// Award records the entry and credits the balance once per
	// (UserID, Reason, SourceID); a repeated award reports false.
	Award(ctx context.Context, entry *LoyaltyEntry) (bool, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Entries(ctx context.Context, userID uuid.UUID) ([]LoyaltyEntry, error)
}
