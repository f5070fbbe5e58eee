package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storefront/pkg/storefront/domain/model"
)

const notifyConcurrency = 4

type Message struct {
	Type  model.NotificationType
	Title string
	Body  string
	Data  map[string]string
}

type NotificationService interface {
	// Notify stores one in-app notification per recipient and attempts an
	// email for each. Email failures are recorded on the notification and
	// never returned.
	Notify(ctx context.Context, recipients []uuid.UUID, msg Message) error
	List(ctx context.Context, caller model.Identity, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, caller model.Identity, id uuid.UUID) error
}

func NewNotificationService(repo model.NotificationRepository, users model.UserDirectory, sender model.NotificationSender) NotificationService {
	return &notificationService{repo: repo, users: users, sender: sender}
}

type notificationService struct {
	repo   model.NotificationRepository
	users  model.UserDirectory
	sender model.NotificationSender
}

func (s *notificationService) Notify(ctx context.Context, recipients []uuid.UUID, msg Message) error {
	var g errgroup.Group
	g.SetLimit(notifyConcurrency)

	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, userID := range recipients {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		userID := userID
		g.Go(func() error {
			return s.orchestrateSend(ctx, userID, msg)
		})
	}
	return g.Wait()
}

func (s *notificationService) List(ctx context.Context, caller model.Identity, unreadOnly bool) ([]model.Notification, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	return s.repo.ListForUser(ctx, caller.UserID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, caller model.Identity, id uuid.UUID) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	updated, err := s.repo.MarkRead(ctx, id, caller.UserID)
	if err != nil {
		return err
	}
	if !updated {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) orchestrateSend(ctx context.Context, userID uuid.UUID, msg Message) error {
	notifID, err := s.repo.NextID()
	if err != nil {
		return err
	}
	notification := &model.Notification{
		ID:          notifID,
		UserID:      userID,
		Type:        msg.Type,
		Title:       msg.Title,
		Message:     msg.Body,
		Data:        msg.Data,
		EmailStatus: model.EmailPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	status, reason := s.sendEmail(ctx, userID, msg)
	if err := s.repo.UpdateEmailStatus(ctx, notifID, status, reason); err != nil {
		log.WithError(err).WithField("notification", notifID).Warn("failed to record email status")
	}
	return nil
}

func (s *notificationService) sendEmail(ctx context.Context, userID uuid.UUID, msg Message) (model.EmailStatus, string) {
	if s.sender == nil {
		return model.EmailSkipped, ""
	}
	email, err := s.users.Email(ctx, userID)
	if err != nil || email == "" {
		return model.EmailSkipped, "no email address"
	}
	if err := s.sender.Send(ctx, email, msg.Title, msg.Body); err != nil {
		log.WithError(err).WithFields(log.Fields{"user": userID, "type": msg.Type}).Warn("email notification failed")
		return model.EmailFailed, err.Error()
	}
	return model.EmailSent, ""
}
