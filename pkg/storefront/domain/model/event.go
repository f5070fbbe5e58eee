package model

import "github.com/google/uuid"

type OrderPlacedEvent struct {
	OrderID    uuid.UUID
	UserID     uuid.UUID
	TotalCents int64
}

func (e OrderPlacedEvent) Type() string { return "OrderPlaced" }

type OrderConfirmedEvent struct {
	OrderID   uuid.UUID
	PaymentID uuid.UUID
}

func (e OrderConfirmedEvent) Type() string { return "OrderConfirmed" }

type OrderShippedEvent struct {
	OrderID        uuid.UUID
	DeliveryUserID uuid.UUID
}

func (e OrderShippedEvent) Type() string { return "OrderShipped" }

type OrderDeliveredEvent struct {
	OrderID        uuid.UUID
	DeliveryUserID uuid.UUID
}

func (e OrderDeliveredEvent) Type() string { return "OrderDelivered" }

type OrderCancelledEvent struct {
	OrderID uuid.UUID
	Reason  string
}

func (e OrderCancelledEvent) Type() string { return "OrderCancelled" }

type PaymentInitiatedEvent struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
}

func (e PaymentInitiatedEvent) Type() string { return "PaymentInitiated" }

type PaymentCompletedEvent struct {
	PaymentID     uuid.UUID
	OrderID       uuid.UUID
	TransactionID string
}

func (e PaymentCompletedEvent) Type() string { return "PaymentCompleted" }

type PaymentFailedEvent struct {
	PaymentID uuid.UUID
	OrderID   uuid.UUID
	Status    PaymentStatus
}

func (e PaymentFailedEvent) Type() string { return "PaymentFailed" }

type ReferralCompletedEvent struct {
	ReferralID   uuid.UUID
	ReferrerID   uuid.UUID
	RewardPoints int64
}

func (e ReferralCompletedEvent) Type() string { return "ReferralCompleted" }
