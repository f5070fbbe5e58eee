package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/domain/model"
	domainservice "storefront/pkg/storefront/domain/service"
)

type FulfillmentService interface {
	ListMyOrders(ctx context.Context, caller model.Identity) ([]model.Order, error)
	GetMyOrder(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*model.Order, error)
	Timeline(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*domainservice.Timeline, error)

	ListOrders(ctx context.Context, caller model.Identity, filter model.OrderFilter) ([]model.Order, error)
	ListAssigned(ctx context.Context, caller model.Identity) ([]model.Order, error)

	AssignDelivery(ctx context.Context, caller model.Identity, orderID, deliveryUserID uuid.UUID) (*model.Order, error)
	MarkShipped(ctx context.Context, caller model.Identity, orderID uuid.UUID, evidence *model.DeliveryEvidence) (*model.Order, error)
	MarkDelivered(ctx context.Context, caller model.Identity, orderID uuid.UUID, evidence *model.DeliveryEvidence) (*model.Order, error)
	CancelOrder(ctx context.Context, caller model.Identity, orderID uuid.UUID, reason string) (*model.Order, error)
	ConfirmReceipt(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*model.Order, error)
}

// LoyaltyAwarder credits loyalty points for a qualifying event.
type LoyaltyAwarder interface {
	Award(ctx context.Context, userID uuid.UUID, reason model.LoyaltyReason, sourceID uuid.UUID, points int64) (bool, error)
}

func NewFulfillmentService(
	orders model.OrderRepository,
	users model.UserDirectory,
	notifications NotificationService,
	loyalty LoyaltyAwarder,
	dispatcher domain.EventDispatcher,
) FulfillmentService {
	return &fulfillmentService{
		orders:        orders,
		users:         users,
		notifications: notifications,
		loyalty:       loyalty,
		dispatcher:    dispatcher,
	}
}

type fulfillmentService struct {
	orders        model.OrderRepository
	users         model.UserDirectory
	notifications NotificationService
	loyalty       LoyaltyAwarder
	dispatcher    domain.EventDispatcher
}

func (s *fulfillmentService) ListMyOrders(ctx context.Context, caller model.Identity) ([]model.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, caller.UserID)
}

func (s *fulfillmentService) GetMyOrder(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*model.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	return s.orders.FindForUser(ctx, orderID, caller.UserID)
}

func (s *fulfillmentService) Timeline(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*domainservice.Timeline, error) {
	order, err := s.visibleOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	timeline := domainservice.BuildTimeline(order.Status, order.CreatedAt, domainservice.MilestonesOf(order))
	return &timeline, nil
}

func (s *fulfillmentService) ListOrders(ctx context.Context, caller model.Identity, filter model.OrderFilter) ([]model.Order, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleAdmin, model.RoleModerator, model.RoleVendor); err != nil {
		return nil, err
	}
	staff, err := hasAnyRole(ctx, s.users, caller.UserID, model.RoleAdmin, model.RoleModerator)
	if err != nil {
		return nil, err
	}
	if !staff {
		vendorID := caller.UserID
		filter.VendorID = &vendorID
	}
	return s.orders.List(ctx, filter)
}

func (s *fulfillmentService) ListAssigned(ctx context.Context, caller model.Identity) ([]model.Order, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleDelivery); err != nil {
		return nil, err
	}
	return s.orders.ListByDeliveryUser(ctx, caller.UserID)
}

func (s *fulfillmentService) AssignDelivery(ctx context.Context, caller model.Identity, orderID, deliveryUserID uuid.UUID) (*model.Order, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleAdmin, model.RoleModerator); err != nil {
		return nil, err
	}
	isCourier, err := s.users.HasRole(ctx, deliveryUserID, model.RoleDelivery)
	if err != nil {
		return nil, err
	}
	if !isCourier {
		return nil, errors.Wrap(model.ErrInvalidInput, "assignee does not hold the delivery role")
	}

	assigned, err := s.orders.AssignDelivery(ctx, orderID, deliveryUserID, []model.OrderStatus{model.OrderConfirmed, model.OrderShipped})
	if err != nil {
		return nil, err
	}
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		if order.DeliveryUserID != nil && *order.DeliveryUserID == deliveryUserID {
			return order, nil
		}
		return nil, model.ErrOrderStatusTransition
	}

	s.notify(ctx, deliveryUserID, order, Message{
		Type:  model.NotificationOrderAssigned,
		Title: "New delivery assigned",
		Body:  fmt.Sprintf("Order %s has been assigned to you.", shortID(order.ID)),
	})
	return order, nil
}

func (s *fulfillmentService) MarkShipped(ctx context.Context, caller model.Identity, orderID uuid.UUID, evidence *model.DeliveryEvidence) (*model.Order, error) {
	order, applied, err := s.advanceDelivery(ctx, caller, orderID, model.OrderShipped, evidence)
	if err != nil || !applied {
		return order, err
	}
	dispatchEvents(s.dispatcher, model.OrderShippedEvent{OrderID: order.ID, DeliveryUserID: caller.UserID})
	s.notify(ctx, order.UserID, order, Message{
		Type:  model.NotificationOrderShipped,
		Title: "Order shipped",
		Body:  fmt.Sprintf("Order %s is on its way.", shortID(order.ID)),
	})
	return order, nil
}

func (s *fulfillmentService) MarkDelivered(ctx context.Context, caller model.Identity, orderID uuid.UUID, evidence *model.DeliveryEvidence) (*model.Order, error) {
	order, applied, err := s.advanceDelivery(ctx, caller, orderID, model.OrderDelivered, evidence)
	if err != nil || !applied {
		return order, err
	}
	dispatchEvents(s.dispatcher, model.OrderDeliveredEvent{OrderID: order.ID, DeliveryUserID: caller.UserID})
	s.notify(ctx, order.UserID, order, Message{
		Type:  model.NotificationOrderDelivered,
		Title: "Order delivered",
		Body:  fmt.Sprintf("Order %s has been delivered. Please confirm receipt.", shortID(order.ID)),
	})

	if s.loyalty != nil {
		points := domainservice.LoyaltyPointsFor(order.TotalCents)
		if points > 0 {
			if _, err := s.loyalty.Award(ctx, order.UserID, model.LoyaltyOrderDelivered, order.ID, points); err != nil {
				log.WithError(err).WithField("order", order.ID).Error("failed to award loyalty points")
			}
		}
	}
	return order, nil
}

func (s *fulfillmentService) CancelOrder(ctx context.Context, caller model.Identity, orderID uuid.UUID, reason string) (*model.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	staff, err := hasAnyRole(ctx, s.users, caller.UserID, model.RoleAdmin, model.RoleModerator)
	if err != nil {
		return nil, err
	}

	from := domainservice.AllowedSources(model.OrderCancelled)
	if !staff {
		// customers may only withdraw an order that is still unpaid
		if _, err := s.orders.FindForUser(ctx, orderID, caller.UserID); err != nil {
			return nil, err
		}
		from = []model.OrderStatus{model.OrderPending}
	}

	now := time.Now().UTC()
	cancelled, err := s.orders.ChangeStatus(ctx, orderID, model.StatusChange{
		From:         from,
		To:           model.OrderCancelled,
		At:           now,
		Reason:       reason,
		RestoreStock: true,
	})
	if err != nil {
		return nil, err
	}
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		if err := domainservice.ResolveMissedTransition(order.Status, model.OrderCancelled); err != nil {
			return nil, err
		}
		return order, nil
	}

	dispatchEvents(s.dispatcher, model.OrderCancelledEvent{OrderID: order.ID, Reason: reason})
	s.notify(ctx, order.UserID, order, Message{
		Type:  model.NotificationOrderCancelled,
		Title: "Order cancelled",
		Body:  fmt.Sprintf("Order %s has been cancelled.", shortID(order.ID)),
	})
	return order, nil
}

func (s *fulfillmentService) ConfirmReceipt(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*model.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	order, err := s.orders.FindForUser(ctx, orderID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderDelivered {
		return nil, model.ErrOrderStatusTransition
	}
	if order.CustomerConfirmedAt != nil {
		return order, nil
	}
	if _, err := s.orders.ConfirmReceipt(ctx, orderID, caller.UserID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.orders.FindForUser(ctx, orderID, caller.UserID)
}

// advanceDelivery moves an order assigned to the calling courier one step.
// applied is false when the step had already been recorded.
func (s *fulfillmentService) advanceDelivery(ctx context.Context, caller model.Identity, orderID uuid.UUID, to model.OrderStatus, evidence *model.DeliveryEvidence) (*model.Order, bool, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleDelivery); err != nil {
		return nil, false, err
	}
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if order.DeliveryUserID == nil || *order.DeliveryUserID != caller.UserID {
		return nil, false, model.ErrOrderNotFound
	}

	courier := caller.UserID
	applied, err := s.orders.ChangeStatus(ctx, orderID, model.StatusChange{
		From:           domainservice.AllowedSources(to),
		To:             to,
		At:             time.Now().UTC(),
		DeliveryUserID: &courier,
		Evidence:       evidence,
	})
	if err != nil {
		return nil, false, err
	}
	fresh, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		if err := domainservice.ResolveMissedTransition(fresh.Status, to); err != nil {
			return nil, false, err
		}
	}
	return fresh, applied, nil
}

// visibleOrder returns the order to its owner, to staff and to the assigned
// courier. Everyone else gets ErrOrderNotFound.
func (s *fulfillmentService) visibleOrder(ctx context.Context, caller model.Identity, orderID uuid.UUID) (*model.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == caller.UserID {
		return order, nil
	}
	if order.DeliveryUserID != nil && *order.DeliveryUserID == caller.UserID {
		return order, nil
	}
	staff, err := hasAnyRole(ctx, s.users, caller.UserID, model.RoleAdmin, model.RoleModerator)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *fulfillmentService) notify(ctx context.Context, recipient uuid.UUID, order *model.Order, msg Message) {
	msg.Data = map[string]string{"orderId": order.ID.String(), "status": string(order.Status)}
	if err := s.notifications.Notify(ctx, []uuid.UUID{recipient}, msg); err != nil {
		log.WithError(err).WithFields(log.Fields{"order": order.ID, "type": msg.Type}).Error("failed to send order notification")
	}
}
