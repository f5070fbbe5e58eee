package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

type referralRow struct {
	ID           uuid.UUID     `db:"id"`
	ReferrerID   uuid.UUID     `db:"referrer_id"`
	ReferredID   uuid.NullUUID `db:"referred_id"`
	Code         string        `db:"code"`
	Status       string        `db:"status"`
	RewardPoints int64         `db:"reward_points"`
	CreatedAt    time.Time     `db:"created_at"`
	CompletedAt  sql.NullTime  `db:"completed_at"`
}

func (r referralRow) toModel() model.Referral {
	return model.Referral{
		ID:           r.ID,
		ReferrerID:   r.ReferrerID,
		ReferredID:   fromNullUUID(r.ReferredID),
		Code:         r.Code,
		Status:       model.ReferralStatus(r.Status),
		RewardPoints: r.RewardPoints,
		CreatedAt:    r.CreatedAt.UTC(),
		CompletedAt:  fromNullTime(r.CompletedAt),
	}
}

const referralColumns = `id, referrer_id, referred_id, code, status, reward_points, created_at, completed_at`

func NewReferralRepository(db *sqlx.DB) model.ReferralRepository {
	return &referralRepository{db: db}
}

type referralRepository struct {
	db *sqlx.DB
}

func (r *referralRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *referralRepository) CodeFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code, `SELECT code FROM referral_codes WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrReferralNotFound
	}
	return code, err
}

func (r *referralRepository) CreateCode(ctx context.Context, userID uuid.UUID, code string) (string, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO referral_codes (user_id, code) VALUES (?, ?)`, userID, code)
	if isDuplicate(err) {
		// either the user raced us to a code or the code belongs to someone else
		existing, findErr := r.CodeFor(ctx, userID)
		if findErr == nil {
			return existing, nil
		}
		return "", model.ErrDuplicateReferralCode
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to store referral code")
	}
	return code, nil
}

func (r *referralRepository) CodeOwner(ctx context.Context, code string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM referral_codes WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, model.ErrReferralNotFound
	}
	return userID, err
}

func (r *referralRepository) Create(ctx context.Context, referral *model.Referral) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO referrals (`+referralColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		referral.ID, referral.ReferrerID, toNullUUID(referral.ReferredID), referral.Code, referral.Status,
		referral.RewardPoints, referral.CreatedAt, referral.CompletedAt,
	)
	if isDuplicate(err) {
		return model.ErrReferralAlreadyClaimed
	}
	return errors.Wrap(err, "failed to insert referral")
}

func (r *referralRepository) FindPendingByReferred(ctx context.Context, referredID uuid.UUID) (*model.Referral, error) {
	var row referralRow
	err := r.db.GetContext(ctx, &row, `SELECT `+referralColumns+` FROM referrals WHERE referred_id = ? AND status = ?`,
		referredID, model.ReferralPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrReferralNotFound
	}
	if err != nil {
		return nil, err
	}
	referral := row.toModel()
	return &referral, nil
}

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]model.Referral, error) {
	var rows []referralRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+referralColumns+` FROM referrals WHERE referrer_id = ? ORDER BY created_at DESC`, referrerID)
	if err != nil {
		return nil, err
	}
	result := make([]model.Referral, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (r *referralRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE referrals SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		model.ReferralCompleted, at, id, model.ReferralPending)
	if err != nil {
		return false, errors.Wrap(err, "failed to complete referral")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
