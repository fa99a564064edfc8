package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/cryptox"
	"github.com/nemunivers/identity/pkg/idx"
	"github.com/nemunivers/identity/pkg/mailx"
	"github.com/nemunivers/identity/pkg/slogx"
)

// Invitation expiry bounds (whole days). Callers pick how long the token
// stays acceptable; nil selects the default.
const (
	// MaxInvitationBatch bounds one create call.
	MaxInvitationBatch = 10

	MinInvitationDays     = 1
	MaxInvitationDays     = 30
	DefaultInvitationDays = 7
)

type InvitationService struct {
	Store      store.Store
	Mail       *mailx.Dispatcher
	Composer   *MailComposer
	BcryptCost int
}

// InviteInput is one entry of a batch.
type InviteInput struct {
	Email string
	Role  domain.Role
}

// InviteResult reports the outcome per entry; entries fail individually
// (an address already in use doesn't sink the batch).
type InviteResult struct {
	Email      string
	Invitation *domain.Invitation
	Err        error
}

// CreateInvitations validates and persists up to MaxInvitationBatch
// invitations for a tenant, then dispatches the mails asynchronously. Rows
// are created first; a mail that never arrives can be retried by cancelling
// and re-inviting. expiresInDays must be within
// [MinInvitationDays, MaxInvitationDays]; nil selects the default.
func (s *InvitationService) CreateInvitations(ctx context.Context, tenantID, inviterID string, expiresInDays *int, inputs []InviteInput) ([]InviteResult, error) {
	l := slogx.FromContext(ctx)

	if len(inputs) == 0 {
		return nil, validationErr("no invitations given")
	}
	if len(inputs) > MaxInvitationBatch {
		return nil, ErrBatchTooLarge
	}

	days := DefaultInvitationDays
	if expiresInDays != nil {
		days = *expiresInDays
	}
	if days < MinInvitationDays || days > MaxInvitationDays {
		return nil, validationErr("expiry must be between %d and %d days", MinInvitationDays, MaxInvitationDays)
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.Store.Users().GetUserByID(ctx, inviterID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	results := make([]InviteResult, 0, len(inputs))

	for _, in := range inputs {
		email := NormalizeEmail(in.Email)
		res := InviteResult{Email: email}

		if err := validateEmail(email); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		if !in.Role.Valid() {
			res.Err = validationErr("unknown role %q", in.Role)
			results = append(results, res)
			continue
		}
		if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
			res.Err = ErrEmailTaken
			results = append(results, res)
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}
		inv := domain.Invitation{
			ID:        idx.New().String(),
			TenantID:  tenantID,
			Token:     token,
			Email:     email,
			Role:      in.Role,
			Status:    domain.InvitationPending,
			ExpiresAt: now.Add(time.Duration(days) * 24 * time.Hour),
			InviterID: &inviterID,
			CreatedAt: now,
		}
		if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		msg := s.Composer.Invitation(email, tenant.Name, inviter.Name, token, days)
		if _, err := s.Mail.Dispatch(ctx, msg); err != nil {
			// The row stays; the mail can be re-sent by re-inviting.
			l.Warn("invitation mail dispatch failed",
				slog.String("invitation_id", inv.ID),
				slog.Any("err", err),
			)
		}

		res.Invitation = &inv
		results = append(results, res)
	}

	l.Info("invitations created",
		slog.String("tenant_id", tenantID),
		slog.Int("requested", len(inputs)),
	)
	return results, nil
}

// Resolve returns a pending, unexpired invitation together with its tenant,
// for rendering the accept page. Anything else reads as not found.
func (s *InvitationService) Resolve(ctx context.Context, token string) (domain.Invitation, domain.Tenant, error) {
	inv, err := s.pending(ctx, s.Store.Invitations(), token)
	if err != nil {
		return domain.Invitation{}, domain.Tenant{}, err
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, inv.TenantID)
	if err != nil {
		return domain.Invitation{}, domain.Tenant{}, err
	}
	return inv, tenant, nil
}

func (s *InvitationService) pending(ctx context.Context, repo store.Invitations, token string) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrTokenNotFound
	}
	inv, err := repo.GetPendingInvitation(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrTokenNotFound
		}
		return domain.Invitation{}, err
	}
	if inv.Expired(time.Now().UTC()) {
		return domain.Invitation{}, ErrTokenNotFound
	}
	return inv, nil
}

// AcceptInput carries the accept form. Email must equal the invited address
// exactly; the check is deliberately case-sensitive.
type AcceptInput struct {
	Token    string
	Name     string
	Email    string
	Password string
}

// Accept turns a pending invitation into a live user: the user is created
// active with a verified email (the invitation mail already proved address
// ownership) and the invited role, a credential account is bound, and the
// invitation is marked accepted. All of it happens in one transaction.
func (s *InvitationService) Accept(ctx context.Context, in AcceptInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if err := validateName(in.Name); err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return domain.User{}, err
	}

	secretHash, err := cryptox.HashSecret(in.Password, s.BcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	var user domain.User

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := s.pending(ctx, tx.Invitations(), in.Token)
		if err != nil {
			return err
		}
		if in.Email != inv.Email {
			return ErrEmailMismatch
		}

		user = domain.User{
			ID:            idx.New().String(),
			TenantID:      inv.TenantID,
			Name:          in.Name,
			Email:         inv.Email,
			EmailVerified: true,
			Active:        true,
			Role:          inv.Role,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		if err := tx.Accounts().CreateAccount(ctx, domain.Account{
			ID:         idx.New().String(),
			UserID:     user.ID,
			Provider:   domain.ProviderCredential,
			SecretHash: secretHash,
		}); err != nil {
			return err
		}
		if err := tx.Invitations().MarkInvitationAccepted(ctx, inv.ID, user.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Lost a race with a concurrent accept.
				return ErrTokenNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	l.Info("invitation accepted",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", user.TenantID),
	)
	return user, nil
}

// Reject lets the invitee decline; pending is the only state it applies to.
func (s *InvitationService) Reject(ctx context.Context, token string) error {
	inv, err := s.pending(ctx, s.Store.Invitations(), token)
	if err != nil {
		return err
	}
	if err := s.Store.Invitations().UpdateInvitationStatus(ctx, inv.ID, domain.InvitationRejected); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("invitation rejected", slog.String("invitation_id", inv.ID))
	return nil
}

// Cancel is the administrative withdrawal of a pending invitation. It is
// tenant-scoped by id, not token.
func (s *InvitationService) Cancel(ctx context.Context, tenantID, id string) error {
	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	if inv.Status != domain.InvitationPending {
		return ErrTokenNotFound
	}
	if err := s.Store.Invitations().UpdateInvitationStatus(ctx, inv.ID, domain.InvitationCancelled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("invitation cancelled", slog.String("invitation_id", inv.ID))
	return nil
}
