package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/domain/model"
	domainservice "storefront/pkg/storefront/domain/service"
)

var ErrCheckoutInProgress = errors.Wrap(model.ErrConflict, "checkout with this idempotency key is in progress")

// IdempotencyStore remembers which order a checkout idempotency key produced.
type IdempotencyStore interface {
	// Reserve claims key. When the key was already used it reports the
	// order it produced, or uuid.Nil while that checkout is still running.
	Reserve(ctx context.Context, key string) (existing uuid.UUID, reserved bool, err error)
	Complete(ctx context.Context, key string, orderID uuid.UUID) error
	Release(ctx context.Context, key string) error
}

type CheckoutRequest struct {
	Address        model.ShippingAddress
	IdempotencyKey string
}

type CheckoutService interface {
	Checkout(ctx context.Context, caller model.Identity, req CheckoutRequest) (*model.Order, error)
}

func NewCheckoutService(
	carts model.CartRepository,
	products model.ProductRepository,
	orders model.OrderRepository,
	idempotency IdempotencyStore,
	dispatcher domain.EventDispatcher,
) CheckoutService {
	return &checkoutService{
		carts:       carts,
		products:    products,
		orders:      orders,
		idempotency: idempotency,
		dispatcher:  dispatcher,
	}
}

type checkoutService struct {
	carts       model.CartRepository
	products    model.ProductRepository
	orders      model.OrderRepository
	idempotency IdempotencyStore
	dispatcher  domain.EventDispatcher
}

func (s *checkoutService) Checkout(ctx context.Context, caller model.Identity, req CheckoutRequest) (order *model.Order, err error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if err := validateAddress(req.Address); err != nil {
		return nil, err
	}

	if s.idempotency != nil && req.IdempotencyKey != "" {
		key := caller.UserID.String() + ":" + req.IdempotencyKey
		var (
			existing uuid.UUID
			reserved bool
		)
		existing, reserved, err = s.idempotency.Reserve(ctx, key)
		if err != nil {
			return nil, err
		}
		if !reserved {
			if existing == uuid.Nil {
				return nil, ErrCheckoutInProgress
			}
			return s.orders.FindForUser(ctx, existing, caller.UserID)
		}
		defer func() {
			if err != nil {
				if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
					log.WithError(releaseErr).WithField("key", key).Warn("failed to release idempotency key")
				}
				return
			}
			if completeErr := s.idempotency.Complete(ctx, key, order.ID); completeErr != nil {
				log.WithError(completeErr).WithField("key", key).Warn("failed to store idempotency result")
			}
		}()
	}

	order, err = s.placeOrder(ctx, caller.UserID, req.Address)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, caller.UserID); err != nil {
		log.WithError(err).WithField("order", order.ID).Error("order placed but cart was not cleared")
	}

	dispatchEvents(s.dispatcher, model.OrderPlacedEvent{OrderID: order.ID, UserID: order.UserID, TotalCents: order.TotalCents})
	return order, nil
}

// placeOrder snapshots the cart at current catalog prices. The order and the
// stock reservation are written together; the cart is untouched here.
func (s *checkoutService) placeOrder(ctx context.Context, userID uuid.UUID, address model.ShippingAddress) (*model.Order, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.Wrap(model.ErrInvalidInput, "cart is empty")
	}

	products, err := s.products.FindMany(ctx, productIDs(items))
	if err != nil {
		return nil, err
	}
	if shortages := findShortages(items, products); len(shortages) > 0 {
		return nil, &model.InsufficientStockError{Lines: shortages}
	}

	orderID, err := s.orders.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	order := &model.Order{
		ID:              orderID,
		UserID:          userID,
		Status:          model.OrderPending,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range items {
		product := products[item.ProductID]
		itemID, err := s.orders.NextID()
		if err != nil {
			return nil, err
		}
		lineTotal := domainservice.LineTotal(product.PriceCents, item.Quantity)
		order.Items = append(order.Items, model.OrderItem{
			ID:             itemID,
			OrderID:        orderID,
			ProductID:      product.ID,
			ProductName:    product.Name.In(model.DefaultLanguage),
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			LineTotalCents: lineTotal,
		})
		order.TotalCents += lineTotal
		if product.OriginalPriceCents != nil && *product.OriginalPriceCents > product.PriceCents {
			order.DiscountCents += domainservice.LineTotal(*product.OriginalPriceCents-product.PriceCents, item.Quantity)
		}
	}

	if err := s.orders.Place(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func findShortages(items []model.CartItem, products map[uuid.UUID]model.Product) []model.StockShortage {
	var shortages []model.StockShortage
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			name := item.ProductID.String()
			if ok {
				name = product.Name.In(model.DefaultLanguage)
			}
			shortages = append(shortages, model.StockShortage{
				ProductID:   item.ProductID,
				ProductName: name,
				Requested:   item.Quantity,
				Inactive:    true,
			})
			continue
		}
		if product.Stock < item.Quantity {
			shortages = append(shortages, model.StockShortage{
				ProductID:   item.ProductID,
				ProductName: product.Name.In(model.DefaultLanguage),
				Requested:   item.Quantity,
				Available:   product.Stock,
			})
		}
	}
	return shortages
}

func validateAddress(a model.ShippingAddress) error {
	required := []struct {
		field string
		value string
	}{
		{"fullName", a.FullName},
		{"phone", a.Phone},
		{"line1", a.Line1},
		{"city", a.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.Wrapf(model.ErrInvalidInput, "shipping address %s is required", r.field)
		}
	}
	return nil
}
