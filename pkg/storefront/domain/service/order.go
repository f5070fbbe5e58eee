package service

import (
	"storefront/pkg/storefront/domain/model"
)

var orderSequence = []model.OrderStatus{
	model.OrderPending,
	model.OrderConfirmed,
	model.OrderShipped,
	model.OrderDelivered,
}

func orderRank(status model.OrderStatus) int {
	for i, s := range orderSequence {
		if s == status {
			return i
		}
	}
	return -1
}

// AllowedSources lists the statuses an order may leave to reach target.
// Progress is forward-only along the sequence; cancellation is possible from
// any non-terminal status.
func AllowedSources(target model.OrderStatus) []model.OrderStatus {
	switch target {
	case model.OrderConfirmed:
		return []model.OrderStatus{model.OrderPending}
	case model.OrderShipped:
		return []model.OrderStatus{model.OrderConfirmed}
	case model.OrderDelivered:
		return []model.OrderStatus{model.OrderShipped}
	case model.OrderCancelled:
		return []model.OrderStatus{model.OrderPending, model.OrderConfirmed, model.OrderShipped}
	}
	return nil
}

func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range AllowedSources(to) {
		if s == from {
			return true
		}
	}
	return false
}

// ResolveMissedTransition explains a conditional update that matched no row
// while the order exists with status current. Repeating a transition that
// already happened is a no-op; anything else is a conflict.
func ResolveMissedTransition(current, target model.OrderStatus) error {
	if current == target {
		return nil
	}
	return model.ErrOrderStatusTransition
}
