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
)

const (
	ReferralRewardPoints = 500

	referralCodeLength   = 8
	referralCodeAttempts = 5
)

type ReferralService interface {
	ReferralQualifier
	MyCode(ctx context.Context, caller model.Identity) (string, error)
	Redeem(ctx context.Context, caller model.Identity, code string) (*model.Referral, error)
	MyReferrals(ctx context.Context, caller model.Identity) ([]model.Referral, error)
}

func NewReferralService(
	referrals model.ReferralRepository,
	orders model.OrderRepository,
	loyalty LoyaltyAwarder,
	notifications NotificationService,
	dispatcher domain.EventDispatcher,
) ReferralService {
	return &referralService{
		referrals:     referrals,
		orders:        orders,
		loyalty:       loyalty,
		notifications: notifications,
		dispatcher:    dispatcher,
	}
}

type referralService struct {
	referrals     model.ReferralRepository
	orders        model.OrderRepository
	loyalty       LoyaltyAwarder
	notifications NotificationService
	dispatcher    domain.EventDispatcher
}

func (s *referralService) MyCode(ctx context.Context, caller model.Identity) (string, error) {
	if err := requireIdentity(caller); err != nil {
		return "", err
	}
	code, err := s.referrals.CodeFor(ctx, caller.UserID)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, model.ErrReferralNotFound) {
		return "", err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err = s.referrals.CreateCode(ctx, caller.UserID, newReferralCode())
		if errors.Is(err, model.ErrDuplicateReferralCode) {
			continue
		}
		return code, err
	}
	return "", errors.Wrap(err, "failed to allocate a unique referral code")
}

func (s *referralService) Redeem(ctx context.Context, caller model.Identity, code string) (*model.Referral, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.Wrap(model.ErrInvalidInput, "referral code is required")
	}

	referrerID, err := s.referrals.CodeOwner(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrerID == caller.UserID {
		return nil, errors.Wrap(model.ErrInvalidInput, "cannot redeem your own referral code")
	}

	paid, err := s.orders.CountByUserAndStatus(ctx, caller.UserID, []model.OrderStatus{
		model.OrderConfirmed, model.OrderShipped, model.OrderDelivered,
	})
	if err != nil {
		return nil, err
	}
	if paid > 0 {
		return nil, errors.Wrap(model.ErrConflict, "referral codes can only be redeemed before the first order")
	}

	id, err := s.referrals.NextID()
	if err != nil {
		return nil, err
	}
	referred := caller.UserID
	referral := &model.Referral{
		ID:           id,
		ReferrerID:   referrerID,
		ReferredID:   &referred,
		Code:         code,
		Status:       model.ReferralPending,
		RewardPoints: ReferralRewardPoints,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.referrals.Create(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

func (s *referralService) MyReferrals(ctx context.Context, caller model.Identity) ([]model.Referral, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	return s.referrals.ListByReferrer(ctx, caller.UserID)
}

// QualifyReferral completes the pending referral of a user whose order just
// got paid. The referrer's reward is keyed by the referral id, so it is
// credited at most once even if completion is retried.
func (s *referralService) QualifyReferral(ctx context.Context, userID uuid.UUID) error {
	referral, err := s.referrals.FindPendingByReferred(ctx, userID)
	if errors.Is(err, model.ErrReferralNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.loyalty.Award(ctx, referral.ReferrerID, model.LoyaltyReferral, referral.ID, referral.RewardPoints); err != nil {
		return errors.Wrap(err, "failed to credit referral reward")
	}
	completed, err := s.referrals.Complete(ctx, referral.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !completed {
		return nil
	}

	dispatchEvents(s.dispatcher, model.ReferralCompletedEvent{
		ReferralID:   referral.ID,
		ReferrerID:   referral.ReferrerID,
		RewardPoints: referral.RewardPoints,
	})
	if err := s.notifications.Notify(ctx, []uuid.UUID{referral.ReferrerID}, Message{
		Type:  model.NotificationReferralReward,
		Title: "Referral reward",
		Body:  fmt.Sprintf("A friend you referred placed their first order. You earned %d points.", referral.RewardPoints),
		Data:  map[string]string{"referralId": referral.ID.String()},
	}); err != nil {
		log.WithError(err).WithField("referral", referral.ID).Error("failed to notify referrer")
	}
	return nil
}

func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:referralCodeLength])
}
