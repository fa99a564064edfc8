package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/cryptox"
	"github.com/nemunivers/identity/pkg/idx"
	"github.com/nemunivers/identity/pkg/slogx"
)

type CredentialService struct {
	Store store.Store

	// BcryptCost applies to newly stored secrets; existing hashes carry
	// their own cost and remain verifiable.
	BcryptCost int
}

// validateSecret applies the per-provider secret policy.
func validateSecret(provider domain.Provider, secret string) error {
	switch provider {
	case domain.ProviderCredential:
		return validatePassword(secret)
	case domain.ProviderPIN:
		return validatePIN(secret)
	default:
		return validationErr("unknown provider %q", provider)
	}
}

// Authorize checks an email/secret pair against the stored account for the
// given provider. Every failure on the lookup path reads as
// ErrInvalidCredentials so callers can't probe which emails exist; only a
// deactivated user is distinguished (handlers map it to Forbidden).
func (s *CredentialService) Authorize(ctx context.Context, email, secret string, provider domain.Provider) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if !provider.Valid() {
		return domain.User{}, ErrInvalidCredentials
	}
	email = NormalizeEmail(email)
	if email == "" || secret == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so unknown emails cost the same as
			// wrong secrets.
			_ = cryptox.VerifySecret(secret, dummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	account, err := s.Store.Accounts().GetAccount(ctx, user.ID, provider)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifySecret(secret, dummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifySecret(secret, account.SecretHash); err != nil {
		if errors.Is(err, cryptox.ErrSecretMismatch) {
			l.Info("sign-in rejected", slog.String("user_id", user.ID), slog.String("provider", string(provider)))
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if !user.Active {
		l.Info("sign-in rejected: deactivated", slog.String("user_id", user.ID))
		return domain.User{}, ErrUserDeactivated
	}

	return user, nil
}

// dummyHash is a valid bcrypt hash of an unguessable value, used to equalize
// timing when no real hash exists for a sign-in attempt.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// ProviderUsage reports which providers a user has an account for.
func (s *CredentialService) ProviderUsage(ctx context.Context, userID string) (map[domain.Provider]bool, error) {
	accounts, err := s.Store.Accounts().ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	usage := make(map[domain.Provider]bool, len(domain.Providers))
	for _, p := range domain.Providers {
		usage[p] = false
	}
	for _, a := range accounts {
		usage[a.Provider] = true
	}
	return usage, nil
}

// CreateSecret sets up a first-time account for a provider the user doesn't
// have yet (e.g. adding a PIN alongside an existing password).
func (s *CredentialService) CreateSecret(ctx context.Context, userID string, provider domain.Provider, secret string) error {
	if err := validateSecret(provider, secret); err != nil {
		return err
	}

	if _, err := s.Store.Accounts().GetAccount(ctx, userID, provider); err == nil {
		return ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := cryptox.HashSecret(secret, s.BcryptCost)
	if err != nil {
		return err
	}

	account := domain.Account{
		ID:         idx.New().String(),
		UserID:     userID,
		Provider:   provider,
		SecretHash: hash,
	}
	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAccountExists
		}
		return err
	}

	slogx.FromContext(ctx).Info("account secret created",
		slog.String("user_id", userID),
		slog.String("provider", string(provider)),
	)
	return nil
}

// ChangeSecret rotates an existing secret. The caller must re-authenticate
// with the current secret; the new secret must differ from the current one
// and match its confirmation. Both checks run before anything is stored.
func (s *CredentialService) ChangeSecret(ctx context.Context, userID string, provider domain.Provider, current, next, confirm string) error {
	if err := validateSecret(provider, next); err != nil {
		return err
	}
	if next != confirm {
		return ErrSecretConfirmation
	}
	if next == current {
		return ErrSecretUnchanged
	}

	account, err := s.Store.Accounts().GetAccount(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if err := cryptox.VerifySecret(current, account.SecretHash); err != nil {
		if errors.Is(err, cryptox.ErrSecretMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	hash, err := cryptox.HashSecret(next, s.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Store.Accounts().UpdateAccountSecret(ctx, userID, provider, hash); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("account secret rotated",
		slog.String("user_id", userID),
		slog.String("provider", string(provider)),
	)
	return nil
}
