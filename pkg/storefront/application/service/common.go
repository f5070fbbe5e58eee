package service

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/domain/model"
)

func requireIdentity(caller model.Identity) error {
	if !caller.Valid() {
		return model.ErrUnauthorized
	}
	return nil
}

func hasAnyRole(ctx context.Context, users model.UserDirectory, userID uuid.UUID, roles ...model.Role) (bool, error) {
	held, err := users.Roles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, h := range held {
		for _, r := range roles {
			if h == r {
				return true, nil
			}
		}
	}
	return false, nil
}

func requireRole(ctx context.Context, users model.UserDirectory, caller model.Identity, roles ...model.Role) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	ok, err := hasAnyRole(ctx, users, caller.UserID, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrForbidden
	}
	return nil
}

func dispatchEvents(dispatcher domain.EventDispatcher, events ...domain.Event) {
	for _, event := range events {
		if err := dispatcher.Dispatch(event); err != nil {
			log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}
