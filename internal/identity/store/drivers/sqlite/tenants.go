package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nemunivers/identity/internal/identity/domain"
)

type tenantsRepo struct {
	db sqlx.ExtContext
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO tenants (id, name, slug, logo, created_at, updated_at)
		VALUES (:id, :name, :slug, :logo, :created_at, :updated_at)`, t)
	return mapConflict(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := sqlx.GetContext(ctx, r.db, &t, `
		SELECT id, name, slug, logo, created_at, updated_at
		FROM tenants WHERE id = ?`, id)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) GetTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	var t domain.Tenant
	err := sqlx.GetContext(ctx, r.db, &t, `
		SELECT id, name, slug, logo, created_at, updated_at
		FROM tenants WHERE slug = ?`, slug)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}
