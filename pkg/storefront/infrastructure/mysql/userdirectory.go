package mysql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

func NewUserDirectory(db *sqlx.DB) model.UserDirectory {
	return &userDirectory{db: db}
}

type userDirectory struct {
	db *sqlx.DB
}

func (d *userDirectory) HasRole(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error) {
	var count int
	err := d.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *userDirectory) Roles(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	var roles []model.Role
	err := d.db.SelectContext(ctx, &roles, `SELECT role FROM user_roles WHERE user_id = ?`, userID)
	return roles, err
}

func (d *userDirectory) UsersWithRole(ctx context.Context, role model.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.SelectContext(ctx, &ids, `SELECT user_id FROM user_roles WHERE role = ?`, role)
	return ids, err
}

func (d *userDirectory) Email(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := d.db.GetContext(ctx, &email, `SELECT email FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrUserNotFound
	}
	return email, err
}

// GrantRole is used by operators to set up staff accounts.
func GrantRole(ctx context.Context, db *sqlx.DB, userID uuid.UUID, email string, role model.Role) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, email) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE email = VALUES(email)`, userID, email); err != nil {
		return errors.Wrap(err, "failed to upsert user")
	}
	if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, userID, role); err != nil {
		return errors.Wrap(err, "failed to grant role")
	}
	return tx.Commit()
}
