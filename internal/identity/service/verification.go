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

// Short-lived token TTLs. Registration email verification uses the longer
// EmailVerificationTTL defined alongside RegisterTenant.
const (
	ResetTokenTTL  = time.Hour
	EmailChangeTTL = time.Hour
)

type VerificationService struct {
	Store      store.Store
	Mail       *mailx.Dispatcher // async with retries; delivery is not fatal here
	Composer   *MailComposer
	BcryptCost int
}

// resolvePending returns the verification behind a token if it is pending and
// unexpired. Consumed, expired and unknown tokens are indistinguishable.
func (s *VerificationService) resolvePending(ctx context.Context, repo store.Verifications, token string) (domain.Verification, error) {
	if token == "" {
		return domain.Verification{}, ErrTokenNotFound
	}
	v, err := repo.GetPendingVerification(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Verification{}, ErrTokenNotFound
		}
		return domain.Verification{}, err
	}
	if v.Expired(time.Now().UTC()) {
		return domain.Verification{}, ErrTokenNotFound
	}
	return v, nil
}

// ConsumeEmailVerification consumes an email or new-email token. For the
// registration flow it marks the user verified and active in the same
// transaction; for an email change it rewrites the address. Returns the
// updated user.
func (s *VerificationService) ConsumeEmailVerification(ctx context.Context, token string) (domain.User, error) {
	now := time.Now().UTC()

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		v, err := s.resolvePending(ctx, tx.Verifications(), token)
		if err != nil {
			return err
		}

		switch v.Type {
		case domain.VerificationEmail:
			if err := tx.Verifications().ConsumeVerification(ctx, token, now); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrTokenNotFound
				}
				return err
			}
			if err := tx.Users().MarkEmailVerified(ctx, v.UserID); err != nil {
				return err
			}

		case domain.VerificationNewEmail:
			if v.Meta == nil || *v.Meta == "" {
				return ErrTokenNotFound
			}
			if err := tx.Verifications().ConsumeVerification(ctx, token, now); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrTokenNotFound
				}
				return err
			}
			if err := tx.Users().UpdateUserEmail(ctx, v.UserID, NormalizeEmail(*v.Meta)); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					// The address was claimed between request and confirm.
					return ErrEmailTaken
				}
				return err
			}

		default:
			// Reset tokens are consumed by ConfirmSecretReset, never here.
			return ErrTokenNotFound
		}

		user, err = tx.Users().GetUserByID(ctx, v.UserID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("email verification consumed", slog.String("user_id", user.ID))
	return user, nil
}

// RequestSecretReset issues a reset token for a password or PIN and mails it.
// The response never reveals whether the address exists; only users with a
// verified email can use the email-based reset path.
func (s *VerificationService) RequestSecretReset(ctx context.Context, email string, provider domain.Provider) error {
	l := slogx.FromContext(ctx)

	if !provider.Valid() {
		return validationErr("unknown provider %q", provider)
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.EmailVerified {
		l.Info("reset requested for unverified email", slog.String("user_id", user.ID))
		return nil
	}

	verifType := domain.VerificationPasswordReset
	if provider == domain.ProviderPIN {
		verifType = domain.VerificationPINReset
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.Store.Verifications().CreateVerification(ctx, domain.Verification{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Type:      verifType,
		Token:     token,
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	msg := s.Composer.SecretReset(user.Email, user.Name, token, provider == domain.ProviderPIN)
	if _, err := s.Mail.Dispatch(ctx, msg); err != nil {
		return err
	}

	l.Info("secret reset issued", slog.String("user_id", user.ID), slog.String("type", string(verifType)))
	return nil
}

// ConfirmSecretReset consumes a reset token and stores the new secret. If the
// user never had an account for that provider one is created, so a PIN reset
// can double as first-time PIN setup.
func (s *VerificationService) ConfirmSecretReset(ctx context.Context, token, secret string) error {
	now := time.Now().UTC()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		v, err := s.resolvePending(ctx, tx.Verifications(), token)
		if err != nil {
			return err
		}

		var provider domain.Provider
		switch v.Type {
		case domain.VerificationPasswordReset:
			provider = domain.ProviderCredential
		case domain.VerificationPINReset:
			provider = domain.ProviderPIN
		default:
			return ErrTokenNotFound
		}

		if err := validateSecret(provider, secret); err != nil {
			return err
		}

		hash, err := cryptox.HashSecret(secret, s.BcryptCost)
		if err != nil {
			return err
		}

		if err := tx.Verifications().ConsumeVerification(ctx, token, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		err = tx.Accounts().UpdateAccountSecret(ctx, v.UserID, provider, hash)
		if errors.Is(err, store.ErrNotFound) {
			return tx.Accounts().CreateAccount(ctx, domain.Account{
				ID:         idx.New().String(),
				UserID:     v.UserID,
				Provider:   provider,
				SecretHash: hash,
			})
		}
		return err
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("secret reset confirmed")
	return nil
}

// RequestEmailChange issues a new-email token and mails it to the candidate
// address. The current address keeps working until the token is consumed.
func (s *VerificationService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = NormalizeEmail(newEmail)
	if err := validateEmail(newEmail); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if NormalizeEmail(user.Email) == newEmail {
		return validationErr("new email matches the current address")
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, newEmail); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.Store.Verifications().CreateVerification(ctx, domain.Verification{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Type:      domain.VerificationNewEmail,
		Token:     token,
		Meta:      &newEmail,
		ExpiresAt: now.Add(EmailChangeTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	msg := s.Composer.EmailChange(newEmail, user.Name, token)
	if _, err := s.Mail.Dispatch(ctx, msg); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("email change requested", slog.String("user_id", user.ID))
	return nil
}
