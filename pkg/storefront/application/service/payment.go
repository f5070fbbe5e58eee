package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/domain/model"
	domainservice "storefront/pkg/storefront/domain/service"
)

type InitiatePaymentRequest struct {
	OrderID     uuid.UUID
	Method      string
	AmountCents int64
	Metadata    map[string]string
}

type ConfirmationRequest struct {
	PaymentID     uuid.UUID
	TransactionID string
	Status        model.PaymentStatus
}

type ConfirmationResult struct {
	Payment *model.Payment
	// Applied is false when the call repeated an earlier confirmation.
	Applied bool
}

// ReferralQualifier is told when a user's order gets paid.
type ReferralQualifier interface {
	QualifyReferral(ctx context.Context, userID uuid.UUID) error
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, caller model.Identity, req InitiatePaymentRequest) (*model.Payment, error)
	// ConfirmPayment lets the owner report a failed or cancelled payment.
	// Completion is only accepted from the gateway.
	ConfirmPayment(ctx context.Context, caller model.Identity, req ConfirmationRequest) (*ConfirmationResult, error)
	// ConfirmPaymentFromGateway settles a payment on behalf of a verified
	// gateway callback; the owner is taken from the stored payment.
	ConfirmPaymentFromGateway(ctx context.Context, req ConfirmationRequest) (*ConfirmationResult, error)
	ListOrderPayments(ctx context.Context, caller model.Identity, orderID uuid.UUID) ([]model.Payment, error)
}

func NewPaymentService(
	payments model.PaymentRepository,
	orders model.OrderRepository,
	users model.UserDirectory,
	notifications NotificationService,
	referrals ReferralQualifier,
	dispatcher domain.EventDispatcher,
) PaymentService {
	return &paymentService{
		payments:      payments,
		orders:        orders,
		users:         users,
		notifications: notifications,
		referrals:     referrals,
		dispatcher:    dispatcher,
	}
}

type paymentService struct {
	payments      model.PaymentRepository
	orders        model.OrderRepository
	users         model.UserDirectory
	notifications NotificationService
	referrals     ReferralQualifier
	dispatcher    domain.EventDispatcher
}

func (s *paymentService) InitiatePayment(ctx context.Context, caller model.Identity, req InitiatePaymentRequest) (*model.Payment, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, errors.Wrap(model.ErrInvalidInput, "payment method is required")
	}
	if req.AmountCents < 0 {
		return nil, errors.Wrap(model.ErrInvalidInput, "amount cannot be negative")
	}

	order, err := s.orders.FindForUser(ctx, req.OrderID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPending {
		return nil, model.ErrOrderNotPayable
	}
	if order.TotalCents <= 0 {
		return nil, errors.Wrap(model.ErrInvalidInput, "order has no amount to pay")
	}
	if req.AmountCents != 0 && req.AmountCents != order.TotalCents {
		return nil, errors.Wrap(model.ErrInvalidInput, "amount does not match order total")
	}

	paymentID, err := s.payments.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	payment := &model.Payment{
		ID:          paymentID,
		OrderID:     order.ID,
		UserID:      caller.UserID,
		AmountCents: order.TotalCents,
		Method:      method,
		Status:      model.PaymentPending,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	dispatchEvents(s.dispatcher, model.PaymentInitiatedEvent{PaymentID: payment.ID, OrderID: order.ID, AmountCents: payment.AmountCents})
	return payment, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, caller model.Identity, req ConfirmationRequest) (*ConfirmationResult, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if err := validateConfirmation(req); err != nil {
		return nil, err
	}
	if req.Status == model.PaymentCompleted {
		return nil, errors.Wrap(model.ErrInvalidInput, "payment completion must come from the payment gateway")
	}
	payment, err := s.payments.FindForUser(ctx, req.PaymentID, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, payment, req)
}

func (s *paymentService) ConfirmPaymentFromGateway(ctx context.Context, req ConfirmationRequest) (*ConfirmationResult, error) {
	if err := validateConfirmation(req); err != nil {
		return nil, err
	}
	payment, err := s.payments.Find(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, payment, req)
}

func (s *paymentService) ListOrderPayments(ctx context.Context, caller model.Identity, orderID uuid.UUID) ([]model.Payment, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if _, err := s.orders.FindForUser(ctx, orderID, caller.UserID); err != nil {
		return nil, err
	}
	return s.payments.ListByOrder(ctx, orderID, caller.UserID)
}

// settle moves a pending payment to its terminal status. Side effects are
// tied to writes that actually applied, so repeated calls never notify twice.
func (s *paymentService) settle(ctx context.Context, payment *model.Payment, req ConfirmationRequest) (*ConfirmationResult, error) {
	applied := false
	if payment.Status == model.PaymentPending {
		now := time.Now().UTC()
		var err error
		applied, err = s.payments.Confirm(ctx, model.PaymentConfirmation{
			PaymentID:     payment.ID,
			UserID:        payment.UserID,
			TransactionID: req.TransactionID,
			Status:        req.Status,
			At:            now,
		})
		if err != nil {
			return nil, err
		}
		if applied {
			payment.Status = req.Status
			payment.TransactionID = req.TransactionID
			payment.UpdatedAt = now
			if req.Status == model.PaymentCompleted {
				payment.CompletedAt = &now
			}
		} else {
			payment, err = s.payments.FindForUser(ctx, payment.ID, payment.UserID)
			if err != nil {
				return nil, err
			}
		}
	}

	if !applied {
		if err := domainservice.ResolveMissedConfirmation(payment.Status, req.Status); err != nil {
			return nil, err
		}
	}

	switch {
	case req.Status == model.PaymentCompleted:
		if applied {
			dispatchEvents(s.dispatcher, model.PaymentCompletedEvent{PaymentID: payment.ID, OrderID: payment.OrderID, TransactionID: payment.TransactionID})
		}
		if err := s.confirmOrder(ctx, payment); err != nil {
			return nil, err
		}
	case applied:
		dispatchEvents(s.dispatcher, model.PaymentFailedEvent{PaymentID: payment.ID, OrderID: payment.OrderID, Status: payment.Status})
		s.notifyPaymentNotCompleted(ctx, payment)
	}

	return &ConfirmationResult{Payment: payment, Applied: applied}, nil
}

// confirmOrder flips the paid order to confirmed. It also runs on repeated
// completions so that a crash between the payment and order writes heals;
// notifications go out only from the call whose transition applied.
func (s *paymentService) confirmOrder(ctx context.Context, payment *model.Payment) error {
	confirmed, err := s.orders.ChangeStatus(ctx, payment.OrderID, model.StatusChange{
		From: domainservice.AllowedSources(model.OrderConfirmed),
		To:   model.OrderConfirmed,
		At:   time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "payment completed but order confirmation failed")
	}
	if !confirmed {
		order, err := s.orders.Find(ctx, payment.OrderID)
		if err == nil && order.Status == model.OrderCancelled {
			log.WithFields(log.Fields{"order": order.ID, "payment": payment.ID}).Warn("payment completed for a cancelled order")
		}
		return nil
	}

	dispatchEvents(s.dispatcher, model.OrderConfirmedEvent{OrderID: payment.OrderID, PaymentID: payment.ID})

	data := map[string]string{"orderId": payment.OrderID.String(), "paymentId": payment.ID.String()}
	if err := s.notifications.Notify(ctx, []uuid.UUID{payment.UserID}, Message{
		Type:  model.NotificationOrderConfirmed,
		Title: "Order confirmed",
		Body:  fmt.Sprintf("Your payment was received and order %s is confirmed.", shortID(payment.OrderID)),
		Data:  data,
	}); err != nil {
		log.WithError(err).WithField("order", payment.OrderID).Error("failed to notify customer of confirmed order")
	}

	admins, err := s.users.UsersWithRole(ctx, model.RoleAdmin)
	if err != nil {
		log.WithError(err).Error("failed to load admin recipients")
	} else if len(admins) > 0 {
		if err := s.notifications.Notify(ctx, admins, Message{
			Type:  model.NotificationNewPaidOrder,
			Title: "New paid order",
			Body:  fmt.Sprintf("Order %s has been paid (%d).", shortID(payment.OrderID), payment.AmountCents),
			Data:  data,
		}); err != nil {
			log.WithError(err).WithField("order", payment.OrderID).Error("failed to notify admins of paid order")
		}
	}

	if s.referrals != nil {
		if err := s.referrals.QualifyReferral(ctx, payment.UserID); err != nil {
			log.WithError(err).WithField("user", payment.UserID).Error("failed to qualify referral")
		}
	}
	return nil
}

func (s *paymentService) notifyPaymentNotCompleted(ctx context.Context, payment *model.Payment) {
	msg := Message{
		Type:  model.NotificationPaymentFailed,
		Title: "Payment failed",
		Body:  fmt.Sprintf("The payment for order %s did not go through. You can try again.", shortID(payment.OrderID)),
		Data:  map[string]string{"orderId": payment.OrderID.String(), "paymentId": payment.ID.String()},
	}
	if payment.Status == model.PaymentCancelled {
		msg.Type = model.NotificationPaymentCancelled
		msg.Title = "Payment cancelled"
		msg.Body = fmt.Sprintf("The payment for order %s was cancelled. You can try again.", shortID(payment.OrderID))
	}
	if err := s.notifications.Notify(ctx, []uuid.UUID{payment.UserID}, msg); err != nil {
		log.WithError(err).WithField("payment", payment.ID).Error("failed to notify customer of unsuccessful payment")
	}
}

func validateConfirmation(req ConfirmationRequest) error {
	if err := domainservice.ValidateConfirmationTarget(req.Status); err != nil {
		return err
	}
	if req.Status == model.PaymentCompleted && strings.TrimSpace(req.TransactionID) == "" {
		return errors.Wrap(model.ErrInvalidInput, "transaction id is required for a completed payment")
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
