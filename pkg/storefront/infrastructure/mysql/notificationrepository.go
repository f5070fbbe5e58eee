package mysql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

type notificationRow struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	Type          string    `db:"type"`
	Title         string    `db:"title"`
	Message       string    `db:"message"`
	Data          []byte    `db:"data"`
	IsRead        bool      `db:"is_read"`
	EmailStatus   int       `db:"email_status"`
	FailureReason string    `db:"failure_reason"`
	CreatedAt     time.Time `db:"created_at"`
}

func NewNotificationRepository(db *sqlx.DB) model.NotificationRepository {
	return &notificationRepository{db: db}
}

type notificationRepository struct {
	db *sqlx.DB
}

func (r *notificationRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	var data []byte
	if len(n.Data) > 0 {
		var err error
		if data, err = marshalJSON(n.Data); err != nil {
			return err
		}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO notifications (id, user_id, type, title, message, data, is_read,
		email_status, failure_reason, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, data, n.IsRead, int(n.EmailStatus), n.FailureReason, n.CreatedAt,
	)
	return errors.Wrap(err, "failed to insert notification")
}

func (r *notificationRepository) UpdateEmailStatus(ctx context.Context, id uuid.UUID, status model.EmailStatus, reason string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET email_status = ?, failure_reason = ? WHERE id = ?`,
		int(status), reason, id)
	return errors.Wrap(err, "failed to update email status")
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, type, title, message, data, is_read, email_status, failure_reason, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	result := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		n := model.Notification{
			ID:            row.ID,
			UserID:        row.UserID,
			Type:          model.NotificationType(row.Type),
			Title:         row.Title,
			Message:       row.Message,
			IsRead:        row.IsRead,
			EmailStatus:   model.EmailStatus(row.EmailStatus),
			FailureReason: row.FailureReason,
			CreatedAt:     row.CreatedAt.UTC(),
		}
		if err := unmarshalJSON(row.Data, &n.Data); err != nil {
			return nil, errors.Wrap(err, "corrupt notification data")
		}
		result = append(result, n)
	}
	return result, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark notification read")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
