package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

type LoyaltySummary struct {
	Points  int64
	Entries []model.LoyaltyEntry
}

type LoyaltyService interface {
	LoyaltyAwarder
	Balance(ctx context.Context, caller model.Identity) (*LoyaltySummary, error)
}

func NewLoyaltyService(repo model.LoyaltyRepository) LoyaltyService {
	return &loyaltyService{repo: repo}
}

type loyaltyService struct {
	repo model.LoyaltyRepository
}

// Award credits points once per (user, reason, source). A repeated award is
// reported as false and leaves the balance unchanged.
func (s *loyaltyService) Award(ctx context.Context, userID uuid.UUID, reason model.LoyaltyReason, sourceID uuid.UUID, points int64) (bool, error) {
	if points <= 0 {
		return false, errors.Wrap(model.ErrInvalidInput, "loyalty points must be positive")
	}
	id, err := s.repo.NextID()
	if err != nil {
		return false, err
	}
	return s.repo.Award(ctx, &model.LoyaltyEntry{
		ID:        id,
		UserID:    userID,
		Reason:    reason,
		SourceID:  sourceID,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *loyaltyService) Balance(ctx context.Context, caller model.Identity) (*LoyaltySummary, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	points, err := s.repo.Balance(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Entries(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return &LoyaltySummary{Points: points, Entries: entries}, nil
}
