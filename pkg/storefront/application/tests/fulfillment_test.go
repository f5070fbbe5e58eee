package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/storefront/domain/model"
)

func TestDeliveryLifecycle(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	moderator := h.db.newUser("mod@example.com", model.RoleModerator)
	courier := h.db.newUser("courier@example.com", model.RoleDelivery)
	otherCourier := h.db.newUser("other@example.com", model.RoleDelivery)
	customer := h.db.newUser("customer@example.com")
	product := h.db.seedProduct("Tapis", 25000, 2)

	order := h.placeOrder(t, customer, map[uuid.UUID]int{product.ID: 1})

	t.Run("Unpaid order cannot be assigned", func(t *testing.T) {
		_, err := h.fulfillment.AssignDelivery(ctx, moderator, order.ID, courier.UserID)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	h.payOrder(t, customer, order.ID)

	t.Run("Assignee must hold the delivery role", func(t *testing.T) {
		_, err := h.fulfillment.AssignDelivery(ctx, moderator, order.ID, customer.UserID)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("Customers cannot assign", func(t *testing.T) {
		_, err := h.fulfillment.AssignDelivery(ctx, customer, order.ID, courier.UserID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	assigned, err := h.fulfillment.AssignDelivery(ctx, moderator, order.ID, courier.UserID)
	require.NoError(t, err)
	require.NotNil(t, assigned.DeliveryUserID)
	assert.Equal(t, courier.UserID, *assigned.DeliveryUserID)
	assert.Len(t, h.db.notificationsFor(courier.UserID, model.NotificationOrderAssigned), 1)

	mine, err := h.fulfillment.ListAssigned(ctx, courier)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	t.Run("Other courier cannot ship", func(t *testing.T) {
		_, err := h.fulfillment.MarkShipped(ctx, otherCourier, order.ID, nil)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Cannot deliver before shipping", func(t *testing.T) {
		_, err := h.fulfillment.MarkDelivered(ctx, courier, order.ID, nil)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	shipped, err := h.fulfillment.MarkShipped(ctx, courier, order.ID, &model.DeliveryEvidence{PhotoURL: "https://cdn.example.com/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, shipped.Status)
	assert.Len(t, h.db.notificationsFor(customer.UserID, model.NotificationOrderShipped), 1)

	t.Run("Repeated ship is a no-op", func(t *testing.T) {
		again, err := h.fulfillment.MarkShipped(ctx, courier, order.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, model.OrderShipped, again.Status)
		assert.Len(t, h.db.notificationsFor(customer.UserID, model.NotificationOrderShipped), 1)
	})

	t.Run("Timeline while shipped", func(t *testing.T) {
		timeline, err := h.fulfillment.Timeline(ctx, customer, order.ID)
		require.NoError(t, err)
		assert.False(t, timeline.Cancelled)
		require.Len(t, timeline.Steps, 4)
		assert.True(t, timeline.Steps[2].Current)
		assert.NotNil(t, timeline.Steps[2].At)
		assert.False(t, timeline.Steps[3].Done)
	})

	t.Run("Owner cannot cancel once paid", func(t *testing.T) {
		_, err := h.fulfillment.CancelOrder(ctx, customer, order.ID, "changed my mind")
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	delivered, err := h.fulfillment.MarkDelivered(ctx, courier, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.Len(t, h.db.notificationsFor(customer.UserID, model.NotificationOrderDelivered), 1)

	summary, err := h.loyalty.Balance(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(250), summary.Points)

	t.Run("Delivered order cannot be cancelled", func(t *testing.T) {
		_, err := h.fulfillment.CancelOrder(ctx, moderator, order.ID, "too late")
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("Receipt confirmation is idempotent", func(t *testing.T) {
		first, err := h.fulfillment.ConfirmReceipt(ctx, customer, order.ID)
		require.NoError(t, err)
		require.NotNil(t, first.CustomerConfirmedAt)

		second, err := h.fulfillment.ConfirmReceipt(ctx, customer, order.ID)
		require.NoError(t, err)
		assert.Equal(t, first.CustomerConfirmedAt, second.CustomerConfirmedAt)
	})

	t.Run("Stranger cannot see the order", func(t *testing.T) {
		_, err := h.fulfillment.Timeline(ctx, otherCourier, order.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Owner cancels a pending order and stock returns", func(t *testing.T) {
		h := setup(t)
		customer := h.db.newUser("customer@example.com")
		product := h.db.seedProduct("Lampe", 1000, 5)
		order := h.placeOrder(t, customer, map[uuid.UUID]int{product.ID: 3})
		require.Equal(t, 2, h.db.stockOf(product.ID))

		cancelled, err := h.fulfillment.CancelOrder(ctx, customer, order.ID, "wrong size")
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, cancelled.Status)
		assert.Equal(t, "wrong size", cancelled.CancelReason)
		assert.Equal(t, 5, h.db.stockOf(product.ID))
		assert.Len(t, h.db.notificationsFor(customer.UserID, model.NotificationOrderCancelled), 1)

		again, err := h.fulfillment.CancelOrder(ctx, customer, order.ID, "wrong size")
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, again.Status)
		assert.Equal(t, 5, h.db.stockOf(product.ID))

		timeline, err := h.fulfillment.Timeline(ctx, customer, order.ID)
		require.NoError(t, err)
		assert.True(t, timeline.Cancelled)
		assert.Len(t, timeline.Steps, 1)
	})

	t.Run("Stranger cannot cancel", func(t *testing.T) {
		h := setup(t)
		customer := h.db.newUser("customer@example.com")
		stranger := h.db.newUser("stranger@example.com")
		product := h.db.seedProduct("Lampe", 1000, 5)
		order := h.placeOrder(t, customer, map[uuid.UUID]int{product.ID: 1})

		_, err := h.fulfillment.CancelOrder(ctx, stranger, order.ID, "")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Admin cancels a confirmed order", func(t *testing.T) {
		h := setup(t)
		admin := h.db.newUser("admin@example.com", model.RoleAdmin)
		customer := h.db.newUser("customer@example.com")
		product := h.db.seedProduct("Lampe", 1000, 5)
		order := h.placeOrder(t, customer, map[uuid.UUID]int{product.ID: 2})
		h.payOrder(t, customer, order.ID)

		cancelled, err := h.fulfillment.CancelOrder(ctx, admin, order.ID, "fraud check")
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, cancelled.Status)
		assert.Equal(t, 5, h.db.stockOf(product.ID))
	})
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	admin := h.db.newUser("admin@example.com", model.RoleAdmin)
	vendor := h.db.newUser("vendor@example.com", model.RoleVendor)
	customer := h.db.newUser("customer@example.com")

	own := h.db.seedProduct("Foreign", 1000, 5)
	vendorProduct, err := h.catalog.CreateProduct(ctx, vendor, productInput("Poterie", 1500, 5))
	require.NoError(t, err)

	h.placeOrder(t, customer, map[uuid.UUID]int{own.ID: 1})
	h.placeOrder(t, customer, map[uuid.UUID]int{vendorProduct.ID: 1})

	all, err := h.fulfillment.ListOrders(ctx, admin, model.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	vendorOrders, err := h.fulfillment.ListOrders(ctx, vendor, model.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, vendorOrders, 1)
	assert.Equal(t, vendorProduct.ID, vendorOrders[0].Items[0].ProductID)

	_, err = h.fulfillment.ListOrders(ctx, customer, model.OrderFilter{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	mine, err := h.fulfillment.ListMyOrders(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
