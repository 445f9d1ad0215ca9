package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/coffee-desk/internal/domain/account"
)

const listAccountsSQL = `SELECT email, password FROM accounts ORDER BY position`

var _ account.RecordSet = (*AccountRecords)(nil)

// AccountRecords implements account.RecordSet backed by PostgreSQL.
type AccountRecords struct {
	pool *pgxpool.Pool
}

func NewAccountRecords(pool *pgxpool.Pool) *AccountRecords {
	return &AccountRecords{pool: pool}
}

func (r *AccountRecords) Load(ctx context.Context) ([]account.Account, error) {
	rows, err := r.pool.Query(ctx, listAccountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query accounts")
	}
	accounts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[account.Account])
	if err != nil {
		return nil, errors.Wrap(err, "scan accounts")
	}
	return accounts, nil
}

func (r *AccountRecords) Replace(ctx context.Context, accounts []account.Account) error {
	return replaceAll(ctx, r.pool, "accounts", []string{"position", "email", "password"}, len(accounts), func(i int) []any {
		return []any{i, accounts[i].Email, accounts[i].Password}
	})
}

func (r *AccountRecords) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
