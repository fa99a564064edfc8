package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/slogx"
)

// Listing page bounds.
const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

type UserService struct {
	Store store.Store
}

// UserPage is one page of a tenant's user listing.
type UserPage struct {
	Users   []domain.User
	Total   int
	Page    int
	PerPage int
}

// List returns a filtered, paged, sorted view of one tenant's users.
func (s *UserService) List(ctx context.Context, tenantID string, f store.UserFilters) (UserPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	for _, r := range f.Roles {
		if !r.Valid() {
			return UserPage{}, validationErr("unknown role %q", r)
		}
	}

	users, total, err := s.Store.Users().ListUsers(ctx, tenantID, f)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Users: users, Total: total, Page: f.Page, PerPage: f.PerPage}, nil
}

// UpdateProfile changes a user's own display name and image.
func (s *UserService) UpdateProfile(ctx context.Context, userID, tenantID, name string, image *string) (domain.User, error) {
	if err := validateName(name); err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().UpdateUserProfile(ctx, userID, tenantID, name, image); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// BulkOutcome reports per-id results of a bulk mutation. Skipped holds ids
// that were left untouched (the actor themself); Missing holds ids that did
// not resolve within the tenant.
type BulkOutcome struct {
	Updated []string
	Skipped []string
	Missing []string
}

// UpdateRoles sets the role for each given user in the actor's tenant. The
// actor's own id is skipped so administrators cannot demote themselves in a
// sweep.
func (s *UserService) UpdateRoles(ctx context.Context, tenantID, actorID string, userIDs []string, role domain.Role) (BulkOutcome, error) {
	if !role.Valid() {
		return BulkOutcome{}, validationErr("unknown role %q", role)
	}
	return s.bulk(ctx, tenantID, actorID, userIDs, func(tx store.Tx, id string) error {
		return tx.Users().UpdateUserRole(ctx, id, tenantID, role)
	})
}

// UpdateStatus activates or deactivates each given user in the actor's
// tenant, skipping the actor.
func (s *UserService) UpdateStatus(ctx context.Context, tenantID, actorID string, userIDs []string, active bool) (BulkOutcome, error) {
	return s.bulk(ctx, tenantID, actorID, userIDs, func(tx store.Tx, id string) error {
		return tx.Users().UpdateUserStatus(ctx, id, tenantID, active)
	})
}

// Delete removes each given user in the actor's tenant, skipping the actor.
// Cascades take sessions, accounts and verifications with the row.
func (s *UserService) Delete(ctx context.Context, tenantID, actorID string, userIDs []string) (BulkOutcome, error) {
	return s.bulk(ctx, tenantID, actorID, userIDs, func(tx store.Tx, id string) error {
		return tx.Users().DeleteUser(ctx, id, tenantID)
	})
}

// DeleteSelf removes the calling user's own row.
func (s *UserService) DeleteSelf(ctx context.Context, tenantID, userID string) error {
	if err := s.Store.Users().DeleteUser(ctx, userID, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("user self-deleted", slog.String("user_id", userID))
	return nil
}

func (s *UserService) bulk(ctx context.Context, tenantID, actorID string, userIDs []string, op func(tx store.Tx, id string) error) (BulkOutcome, error) {
	if len(userIDs) == 0 {
		return BulkOutcome{}, validationErr("no user ids given")
	}

	var out BulkOutcome
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		seen := make(map[string]bool, len(userIDs))
		for _, id := range userIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			if id == actorID {
				out.Skipped = append(out.Skipped, id)
				continue
			}
			if err := op(tx, id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					out.Missing = append(out.Missing, id)
					continue
				}
				return err
			}
			out.Updated = append(out.Updated, id)
		}
		return nil
	})
	if err != nil {
		return BulkOutcome{}, err
	}

	slogx.FromContext(ctx).Info("bulk user mutation",
		slog.String("tenant_id", tenantID),
		slog.Int("updated", len(out.Updated)),
		slog.Int("skipped", len(out.Skipped)),
		slog.Int("missing", len(out.Missing)),
	)
	return out, nil
}
