package model

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVendor    Role = "vendor"
	RoleModerator Role = "moderator"
	RoleDelivery  Role = "delivery"
)

// Identity is the caller as established from a verified credential.
type Identity struct {
	UserID uuid.UUID
}

func (i Identity) Valid() bool {
	return i.UserID != uuid.Nil
}

type UserDirectory interface {
	HasRole(ctx context.Context, userID uuid.UUID, role Role) (bool, error)
	Roles(ctx context.Context, userID uuid.UUID) ([]Role, error)
	UsersWithRole(ctx context.Context, role Role) ([]uuid.UUID, error)
	Email(ctx context.Context, userID uuid.UUID) (string, error)
}
