package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nemunivers/identity/internal/identity/domain"
)

type accountsRepo struct {
	db sqlx.ExtContext
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO accounts (id, user_id, provider, secret_hash)
		VALUES (:id, :user_id, :provider, :secret_hash)`, a)
	return mapConflict(err)
}

func (r *accountsRepo) GetAccount(ctx context.Context, userID string, provider domain.Provider) (domain.Account, error) {
	var a domain.Account
	err := sqlx.GetContext(ctx, r.db, &a, `
		SELECT id, user_id, provider, secret_hash
		FROM accounts WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	var accounts []domain.Account
	err := sqlx.SelectContext(ctx, r.db, &accounts, `
		SELECT id, user_id, provider, secret_hash
		FROM accounts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountsRepo) UpdateAccountSecret(ctx context.Context, userID string, provider domain.Provider, secretHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET secret_hash = ?
		WHERE user_id = ? AND provider = ?`, secretHash, userID, provider)
	if err != nil {
		return err
	}
	return requireRow(res)
}
