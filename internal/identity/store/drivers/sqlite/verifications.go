package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nemunivers/identity/internal/identity/domain"
)

type verificationsRepo struct {
	db sqlx.ExtContext
}

func (r *verificationsRepo) CreateVerification(ctx context.Context, v domain.Verification) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO verifications (id, user_id, type, token, meta, expires_at, created_at, verified_at)
		VALUES (:id, :user_id, :type, :token, :meta, :expires_at, :created_at, :verified_at)`, v)
	return mapConflict(err)
}

func (r *verificationsRepo) GetPendingVerification(ctx context.Context, token string) (domain.Verification, error) {
	var v domain.Verification
	err := sqlx.GetContext(ctx, r.db, &v, `
		SELECT id, user_id, type, token, meta, expires_at, created_at, verified_at
		FROM verifications WHERE token = ? AND verified_at IS NULL`, token)
	if err != nil {
		return domain.Verification{}, mapNotFound(err)
	}
	return v, nil
}

// ConsumeVerification is guarded on verified_at IS NULL so that of two
// concurrent consumers exactly one wins; the loser sees ErrNotFound.
func (r *verificationsRepo) ConsumeVerification(ctx context.Context, token string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verifications SET verified_at = ?
		WHERE token = ? AND verified_at IS NULL`, at, token)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *verificationsRepo) DeleteExpiredVerifications(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE expires_at < ?`, time.Now().UTC())
	return err
}
