package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

type Referral struct {
	ID           uuid.UUID
	ReferrerID   uuid.UUID
	ReferredID   *uuid.UUID
	Code         string
	Status       ReferralStatus
	RewardPoints int64
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

type ReferralRepository interface {
	NextID() (uuid.UUID, error)
	// CodeFor returns ErrReferralNotFound while the user has no code.
	CodeFor(ctx context.Context, userID uuid.UUID) (string, error)
	// CreateCode fails with ErrDuplicateReferralCode when the code is taken.
	// If the user already owns a code the stored one is returned instead.
	CreateCode(ctx context.Context, userID uuid.UUID, code string) (string, error)
	CodeOwner(ctx context.Context, code string) (uuid.UUID, error)
	// Create fails with ErrReferralAlreadyClaimed when the referred user
	// already has a referral.
	Create(ctx context.Context, referral *Referral) error
	FindPendingByReferred(ctx context.Context, referredID uuid.UUID) (*Referral, error)
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]Referral, error)
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
