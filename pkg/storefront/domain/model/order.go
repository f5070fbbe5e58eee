package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
}

type DeliveryEvidence struct {
	PhotoURL     string   `json:"photoUrl,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	SignatureRef string   `json:"signatureRef,omitempty"`
}

type Order struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Status              OrderStatus
	TotalCents          int64
	DiscountCents       int64
	ShippingAddress     ShippingAddress
	DeliveryUserID      *uuid.UUID
	Items               []OrderItem
	ShippedEvidence     *DeliveryEvidence
	DeliveredEvidence   *DeliveryEvidence
	CancelReason        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ConfirmedAt         *time.Time
	ShippedAt           *time.Time
	DeliveredAt         *time.Time
	CancelledAt         *time.Time
	CustomerConfirmedAt *time.Time
}

// OrderItem is captured at checkout and never changes afterwards.
type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	LineTotalCents int64
}

type OrderFilter struct {
	Status   *OrderStatus
	VendorID *uuid.UUID
	Limit    int
}

// StatusChange describes a conditional transition: it only applies while the
// order is in one of From.
type StatusChange struct {
	From           []OrderStatus
	To             OrderStatus
	At             time.Time
	DeliveryUserID *uuid.UUID
	Evidence       *DeliveryEvidence
	Reason         string
	RestoreStock   bool
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	// Place decrements stock for every item and stores the order with its
	// items atomically. A line that cannot be reserved fails the whole
	// placement with *InsufficientStockError.
	Place(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListByDeliveryUser(ctx context.Context, deliveryUserID uuid.UUID) ([]Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	CountByUserAndStatus(ctx context.Context, userID uuid.UUID, statuses []OrderStatus) (int, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, change StatusChange) (bool, error)
	AssignDelivery(ctx context.Context, id, deliveryUserID uuid.UUID, from []OrderStatus) (bool, error)
	ConfirmReceipt(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
}
