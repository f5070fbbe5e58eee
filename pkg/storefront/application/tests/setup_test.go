package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storefront/pkg/storefront/application/service"
	"storefront/pkg/storefront/domain/model"
)

type harness struct {
	db         *memDB
	dispatcher *mockEventDispatcher
	sender     *mockSender
	gateway    *mockContentGateway
	idem       *mockIdempotencyStore
	referrals  *mockReferralRepository

	catalog       service.CatalogService
	cart          service.CartService
	checkout      service.CheckoutService
	payments      service.PaymentService
	fulfillment   service.FulfillmentService
	notifications service.NotificationService
	wishlist      service.WishlistService
	referral      service.ReferralService
	loyalty       service.LoyaltyService
	content       service.ContentService
}

func setup(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:         newMemDB(),
		dispatcher: &mockEventDispatcher{},
		sender:     &mockSender{},
		gateway:    &mockContentGateway{},
		idem:       &mockIdempotencyStore{keys: make(map[string]uuid.UUID)},
	}
	h.referrals = &mockReferralRepository{db: h.db, taken: make(map[string]bool)}

	products := &mockProductRepository{db: h.db}
	orders := &mockOrderRepository{db: h.db}
	users := &mockUserDirectory{db: h.db}

	h.notifications = service.NewNotificationService(&mockNotificationRepository{db: h.db}, users, h.sender)
	h.loyalty = service.NewLoyaltyService(&mockLoyaltyRepository{db: h.db})
	h.referral = service.NewReferralService(h.referrals, orders, h.loyalty, h.notifications, h.dispatcher)
	h.catalog = service.NewCatalogService(products, users)
	h.cart = service.NewCartService(&mockCartRepository{db: h.db}, products)
	h.checkout = service.NewCheckoutService(&mockCartRepository{db: h.db}, products, orders, h.idem, h.dispatcher)
	h.payments = service.NewPaymentService(&mockPaymentRepository{db: h.db}, orders, users, h.notifications, h.referral, h.dispatcher)
	h.fulfillment = service.NewFulfillmentService(orders, users, h.notifications, h.loyalty, h.dispatcher)
	h.wishlist = service.NewWishlistService(&mockWishlistRepository{db: h.db}, products)
	h.content = service.NewContentService(h.gateway, &mockContentRepository{db: h.db}, h.catalog, users)
	return h
}

var testAddress = model.ShippingAddress{
	FullName: "Amina Benali",
	Phone:    "+213555000111",
	Line1:    "12 rue Didouche Mourad",
	City:     "Alger",
}

// placeOrder fills the customer's cart and checks it out.
func (h *harness) placeOrder(t *testing.T, customer model.Identity, lines map[uuid.UUID]int) *model.Order {
	t.Helper()
	ctx := context.Background()
	for productID, qty := range lines {
		require.NoError(t, h.cart.AddItem(ctx, customer, productID, qty))
	}
	order, err := h.checkout.Checkout(ctx, customer, service.CheckoutRequest{Address: testAddress})
	require.NoError(t, err)
	return order
}

// payOrder initiates and completes a payment for the order.
func (h *harness) payOrder(t *testing.T, customer model.Identity, orderID uuid.UUID) *model.Payment {
	t.Helper()
	ctx := context.Background()
	payment, err := h.payments.InitiatePayment(ctx, customer, service.InitiatePaymentRequest{OrderID: orderID, Method: "card"})
	require.NoError(t, err)
	result, err := h.payments.ConfirmPaymentFromGateway(ctx, service.ConfirmationRequest{
		PaymentID:     payment.ID,
		TransactionID: "tx-" + payment.ID.String()[:8],
		Status:        model.PaymentCompleted,
	})
	require.NoError(t, err)
	return result.Payment
}
