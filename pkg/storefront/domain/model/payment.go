package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	UserID        uuid.UUID
	AmountCents   int64
	Method        string
	Status        PaymentStatus
	TransactionID string
	Metadata      map[string]string
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PaymentConfirmation struct {
	PaymentID     uuid.UUID
	UserID        uuid.UUID
	TransactionID string
	Status        PaymentStatus
	At            time.Time
}

type PaymentRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, payment *Payment) error
	Find(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*Payment, error)
	ListByOrder(ctx context.Context, orderID, userID uuid.UUID) ([]Payment, error)
	// Confirm settles a pending payment owned by c.UserID. It reports false
	// when no pending row matched, and ErrOrderAlreadyPaid when another
	// payment of the same order is already completed.
	Confirm(ctx context.Context, c PaymentConfirmation) (bool, error)
}
