package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationOrderConfirmed   NotificationType = "order_confirmed"
	NotificationNewPaidOrder     NotificationType = "new_paid_order"
	NotificationPaymentFailed    NotificationType = "payment_failed"
	NotificationPaymentCancelled NotificationType = "payment_cancelled"
	NotificationOrderShipped     NotificationType = "order_shipped"
	NotificationOrderDelivered   NotificationType = "order_delivered"
	NotificationOrderCancelled   NotificationType = "order_cancelled"
	NotificationOrderAssigned    NotificationType = "order_assigned"
	NotificationReferralReward   NotificationType = "referral_reward"
)

type EmailStatus int

const (
	EmailPending EmailStatus = iota
	EmailSent
	EmailFailed
	EmailSkipped
)

type Notification struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Type          NotificationType
	Title         string
	Message       string
	Data          map[string]string
	IsRead        bool
	EmailStatus   EmailStatus
	FailureReason string
	CreatedAt     time.Time
}

type NotificationRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, notification *Notification) error
	UpdateEmailStatus(ctx context.Context, id uuid.UUID, status EmailStatus, reason string) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type NotificationSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
