package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error kinds surfaced to callers. Concrete errors below wrap one of them so
// that transport can map every failure with errors.Is.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrQuotaExceeded       = errors.New("quota exceeded")
)

var (
	ErrProductNotFound      = fmt.Errorf("product %w", ErrNotFound)
	ErrCartItemNotFound     = fmt.Errorf("cart item %w", ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("payment %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrReferralNotFound     = fmt.Errorf("referral %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	// ErrForbidden is reported like a missing resource so that callers
	// cannot discover records they do not own.
	ErrForbidden = fmt.Errorf("resource %w", ErrNotFound)

	ErrOptimisticLock         = fmt.Errorf("%w: record has been modified by another transaction", ErrConflict)
	ErrOrderStatusTransition  = fmt.Errorf("%w: order status cannot change from its current state", ErrConflict)
	ErrPaymentAlreadySettled  = fmt.Errorf("%w: payment is already settled with another status", ErrConflict)
	ErrOrderAlreadyPaid       = fmt.Errorf("%w: order already has a completed payment", ErrConflict)
	ErrOrderNotPayable        = fmt.Errorf("%w: order is not awaiting payment", ErrConflict)
	ErrDuplicateReferralCode  = fmt.Errorf("%w: referral code already taken", ErrConflict)
	ErrReferralAlreadyClaimed = fmt.Errorf("%w: user has already redeemed a referral", ErrConflict)
)

type StockShortage struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
	Inactive    bool      `json:"inactive,omitempty"`
}

// InsufficientStockError reports every cart line that cannot be fulfilled.
type InsufficientStockError struct {
	Lines []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if l.Inactive {
			parts = append(parts, fmt.Sprintf("%s is no longer available", l.ProductName))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", l.ProductName, l.Requested, l.Available))
	}
	return "insufficient stock for " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
