package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nemunivers/identity/internal/identity/domain"
)

type invitationsRepo struct {
	db sqlx.ExtContext
}

const invitationColumns = `id, tenant_id, token, email, role, status, expires_at, inviter_id, created_at, accepted_at, user_id`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO invitations (id, tenant_id, token, email, role, status, expires_at, inviter_id, created_at, accepted_at, user_id)
		VALUES (:id, :tenant_id, :token, :email, :role, :status, :expires_at, :inviter_id, :created_at, :accepted_at, :user_id)`, inv)
	return mapConflict(err)
}

func (r *invitationsRepo) GetPendingInvitation(ctx context.Context, token string) (domain.Invitation, error) {
	var inv domain.Invitation
	err := sqlx.GetContext(ctx, r.db, &inv, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE token = ? AND accepted_at IS NULL AND status = ?`,
		token, domain.InvitationPending)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id, tenantID string) (domain.Invitation, error) {
	var inv domain.Invitation
	err := sqlx.GetContext(ctx, r.db, &inv, `
		SELECT `+invitationColumns+`
		FROM invitations WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

// MarkInvitationAccepted is guarded on accepted_at IS NULL; a concurrent
// duplicate acceptance loses the race and sees ErrNotFound.
func (r *invitationsRepo) MarkInvitationAccepted(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET status = ?, accepted_at = ?, user_id = ?
		WHERE id = ? AND accepted_at IS NULL AND status = ?`,
		domain.InvitationAccepted, at, userID, id, domain.InvitationPending)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitationsRepo) UpdateInvitationStatus(ctx context.Context, id string, status domain.InvitationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET status = ?
		WHERE id = ? AND status = ?`, status, id, domain.InvitationPending)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitationsRepo) DeleteExpiredInvitations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM invitations WHERE expires_at < ? AND status = ?`,
		time.Now().UTC(), domain.InvitationPending)
	return err
}
