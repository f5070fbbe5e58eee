package service

import (
	"time"

	"storefront/pkg/storefront/domain/model"
)

type Milestones struct {
	ConfirmedAt         *time.Time
	DeliveryReceivedAt  *time.Time
	DeliveryDeliveredAt *time.Time
	CancelledAt         *time.Time
}

func MilestonesOf(order *model.Order) Milestones {
	return Milestones{
		ConfirmedAt:         order.ConfirmedAt,
		DeliveryReceivedAt:  order.ShippedAt,
		DeliveryDeliveredAt: order.DeliveredAt,
		CancelledAt:         order.CancelledAt,
	}
}

type TimelineStep struct {
	Status  model.OrderStatus `json:"status"`
	Done    bool              `json:"done"`
	Current bool              `json:"current"`
	At      *time.Time        `json:"at,omitempty"`
}

type Timeline struct {
	Cancelled bool           `json:"cancelled"`
	Steps     []TimelineStep `json:"steps"`
}

// BuildTimeline marks a step done when the current status has reached it.
// Timestamps are informative only: a step skipped quickly may have none.
func BuildTimeline(status model.OrderStatus, createdAt time.Time, m Milestones) Timeline {
	if status == model.OrderCancelled {
		return Timeline{
			Cancelled: true,
			Steps: []TimelineStep{
				{Status: model.OrderCancelled, Done: true, Current: true, At: m.CancelledAt},
			},
		}
	}

	created := createdAt
	at := []*time.Time{&created, m.ConfirmedAt, m.DeliveryReceivedAt, m.DeliveryDeliveredAt}
	rank := orderRank(status)

	steps := make([]TimelineStep, len(orderSequence))
	for i, s := range orderSequence {
		steps[i] = TimelineStep{
			Status:  s,
			Done:    rank >= i,
			Current: rank == i,
			At:      at[i],
		}
	}
	return Timeline{Steps: steps}
}
