package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
)

type usersRepo struct {
	db sqlx.ExtContext
}

const userColumns = `id, tenant_id, name, email, email_verified, active, role, image, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO users (id, tenant_id, name, email, email_verified, active, role, image, created_at, updated_at)
		VALUES (:id, :tenant_id, :name, :email, :email_verified, :active, :role, :image, :created_at, :updated_at)`, u)
	return mapConflict(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`, email)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

// listSortColumns whitelists sortable columns so filter input can never reach
// the query as raw SQL.
var listSortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

func (r *usersRepo) ListUsers(ctx context.Context, tenantID string, f store.UserFilters) ([]domain.User, int, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}

	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(lower(name) LIKE ? OR lower(email) LIKE ?)")
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}
	if n := strings.TrimSpace(f.Name); n != "" {
		where = append(where, "lower(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(n)+"%")
	}
	if e := strings.TrimSpace(f.Email); e != "" {
		where = append(where, "lower(email) LIKE ?")
		args = append(args, "%"+strings.ToLower(e)+"%")
	}
	if len(f.Roles) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Roles)), ",")
		where = append(where, "role IN ("+placeholders+")")
		for _, role := range f.Roles {
			args = append(args, role)
		}
	}
	if f.EmailVerified != nil {
		where = append(where, "email_verified = ?")
		args = append(args, *f.EmailVerified)
	}
	if f.Active != nil {
		where = append(where, "active = ?")
		args = append(args, *f.Active)
	}
	if f.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *f.CreatedTo)
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total,
		`SELECT COUNT(*) FROM users WHERE `+clause, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + clause

	sortBy, ok := listSortColumns[f.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if f.PerPage > 0 {
		query += " LIMIT ?"
		args = append(args, f.PerPage)
		if f.Page > 1 {
			query += " OFFSET ?"
			args = append(args, (f.Page-1)*f.PerPage)
		}
	}

	var users []domain.User
	if err := sqlx.SelectContext(ctx, r.db, &users, query, args...); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *usersRepo) UpdateUserProfile(ctx context.Context, id, tenantID string, name string, image *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = ?, image = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`, name, image, time.Now().UTC(), id, tenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateUserEmail(ctx context.Context, id string, email string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), id)
	if err != nil {
		return mapConflict(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateUserRole(ctx context.Context, id, tenantID string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`, role, time.Now().UTC(), id, tenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateUserStatus(ctx context.Context, id, tenantID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET active = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`, active, time.Now().UTC(), id, tenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email_verified = 1, active = 1, updated_at = ?
		WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id, tenantID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
