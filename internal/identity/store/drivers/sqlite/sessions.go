package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nemunivers/identity/internal/identity/domain"
)

type sessionsRepo struct {
	db sqlx.ExtContext
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO sessions (id, token, user_id, platform, ip_address, user_agent, expires_at, created_at, updated_at)
		VALUES (:id, :token, :user_id, :platform, :ip_address, :user_agent, :expires_at, :created_at, :updated_at)`, s)
	return mapConflict(err)
}

func (r *sessionsRepo) GetSessionByToken(ctx context.Context, token string) (domain.Session, error) {
	var s domain.Session
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT id, token, user_id, platform, ip_address, user_agent, expires_at, created_at, updated_at
		FROM sessions WHERE token = ?`, token)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) ExtendSession(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET expires_at = ?, updated_at = ? WHERE id = ?`,
		expiresAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeleteSessionByToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	return err
}
