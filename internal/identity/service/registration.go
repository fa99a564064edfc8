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

// EmailVerificationTTL is how long the post-registration verification token
// stays valid.
const EmailVerificationTTL = 24 * time.Hour

type RegistrationService struct {
	Store      store.Store
	Mail       mailx.Sender // synchronous: a failed welcome mail aborts registration
	Composer   *MailComposer
	BcryptCost int
}

// RegisterTenantInput carries the sign-up form.
type RegisterTenantInput struct {
	TenantName string
	UserName   string
	Email      string
	Password   string
}

// RegisterTenantResult reports what was created.
type RegisterTenantResult struct {
	Tenant domain.Tenant
	User   domain.User
}

// RegisterTenant creates a tenant with its founding administrator in one
// transaction: tenant, user (inactive and unverified until the email token is
// consumed), credential account, and the verification token. The verification
// mail is sent inside the transaction; if delivery fails nothing is kept, so
// a user can never end up stranded without a way to activate.
func (s *RegistrationService) RegisterTenant(ctx context.Context, in RegisterTenantInput) (RegisterTenantResult, error) {
	l := slogx.FromContext(ctx)

	in.Email = NormalizeEmail(in.Email)
	if err := validateName(in.TenantName); err != nil {
		return RegisterTenantResult{}, err
	}
	if err := validateName(in.UserName); err != nil {
		return RegisterTenantResult{}, err
	}
	if err := validateEmail(in.Email); err != nil {
		return RegisterTenantResult{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return RegisterTenantResult{}, err
	}

	slug := Slugify(in.TenantName)
	if slug == "" {
		return RegisterTenantResult{}, validationErr("tenant name produces an empty slug")
	}

	// Pre-flight conflict checks for friendly errors; the unique indexes
	// remain the source of truth under concurrency.
	if _, err := s.Store.Tenants().GetTenantBySlug(ctx, slug); err == nil {
		return RegisterTenantResult{}, ErrSlugTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return RegisterTenantResult{}, err
	}
	if _, err := s.Store.Users().GetUserByEmail(ctx, in.Email); err == nil {
		return RegisterTenantResult{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return RegisterTenantResult{}, err
	}

	secretHash, err := cryptox.HashSecret(in.Password, s.BcryptCost)
	if err != nil {
		return RegisterTenantResult{}, err
	}
	verifyToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return RegisterTenantResult{}, err
	}

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        idx.New().String(),
		Name:      in.TenantName,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := domain.User{
		ID:            idx.New().String(),
		TenantID:      tenant.ID,
		Name:          in.UserName,
		Email:         in.Email,
		EmailVerified: false,
		Active:        false,
		Role:          domain.RoleAdministrator,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrSlugTaken
			}
			return err
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
		if err := tx.Verifications().CreateVerification(ctx, domain.Verification{
			ID:        idx.New().String(),
			UserID:    user.ID,
			Type:      domain.VerificationEmail,
			Token:     verifyToken,
			ExpiresAt: now.Add(EmailVerificationTTL),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		// Deliberately inside the transaction.
		msg := s.Composer.EmailVerification(user.Email, user.Name, verifyToken)
		if err := s.Mail.Send(ctx, msg); err != nil {
			l.Error("registration verification mail failed, rolling back",
				slog.String("email", user.Email),
				slog.Any("err", err),
			)
			return err
		}
		return nil
	})
	if err != nil {
		return RegisterTenantResult{}, err
	}

	l.Info("tenant registered",
		slog.String("tenant_id", tenant.ID),
		slog.String("slug", tenant.Slug),
		slog.String("user_id", user.ID),
	)
	return RegisterTenantResult{Tenant: tenant, User: user}, nil
}
