// source: entities.sql

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const adjustAccountBalance = `-- name: AdjustAccountBalance :execrows
UPDATE accounts SET balance_minor = balance_minor + $3
WHERE id = $1 AND owner_id = $2
`

type AdjustAccountBalanceParams struct {
	ID      pgtype.UUID
	OwnerID string
	Delta   int64
}

func (q *Queries) AdjustAccountBalance(ctx context.Context, arg AdjustAccountBalanceParams) (int64, error) {
	result, err := q.db.Exec(ctx, adjustAccountBalance, arg.ID, arg.OwnerID, arg.Delta)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, owner_id, name, display_name, type, currency, balance_minor, credit_limit_minor, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, owner_id, name, display_name, type, currency, balance_minor, credit_limit_minor, created_at
`

type CreateAccountParams struct {
	ID               pgtype.UUID
	OwnerID          string
	Name             string
	DisplayName      string
	Type             string
	Currency         string
	BalanceMinor     int64
	CreditLimitMinor int64
	CreatedAt        pgtype.Timestamptz
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, createAccount,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.DisplayName,
		arg.Type,
		arg.Currency,
		arg.BalanceMinor,
		arg.CreditLimitMinor,
		arg.CreatedAt,
	)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.DisplayName,
		&i.Type,
		&i.Currency,
		&i.BalanceMinor,
		&i.CreditLimitMinor,
		&i.CreatedAt,
	)
	return i, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (id, owner_id, name, display_name, type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, owner_id, name, display_name, type, created_at
`

type CreateCategoryParams struct {
	ID          pgtype.UUID
	OwnerID     string
	Name        string
	DisplayName string
	Type        string
	CreatedAt   pgtype.Timestamptz
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.DisplayName,
		arg.Type,
		arg.CreatedAt,
	)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.DisplayName,
		&i.Type,
		&i.CreatedAt,
	)
	return i, err
}

const createPayee = `-- name: CreatePayee :one
INSERT INTO payees (id, owner_id, name, display_name, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, owner_id, name, display_name, created_at
`

type CreatePayeeParams struct {
	ID          pgtype.UUID
	OwnerID     string
	Name        string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

func (q *Queries) CreatePayee(ctx context.Context, arg CreatePayeeParams) (Payee, error) {
	row := q.db.QueryRow(ctx, createPayee,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.DisplayName,
		arg.CreatedAt,
	)
	var i Payee
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.DisplayName,
		&i.CreatedAt,
	)
	return i, err
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (id, owner_id, import_id, account_id, category_id, payee_id, date, amount_minor, kind, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, owner_id, import_id, account_id, category_id, payee_id, date, amount_minor, kind, notes, created_at
`

type CreateTransactionParams struct {
	ID          pgtype.UUID
	OwnerID     string
	ImportID    pgtype.UUID
	AccountID   pgtype.UUID
	CategoryID  pgtype.UUID
	PayeeID     pgtype.UUID
	Date        pgtype.Date
	AmountMinor int64
	Kind        string
	Notes       string
	CreatedAt   pgtype.Timestamptz
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.ID,
		arg.OwnerID,
		arg.ImportID,
		arg.AccountID,
		arg.CategoryID,
		arg.PayeeID,
		arg.Date,
		arg.AmountMinor,
		arg.Kind,
		arg.Notes,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.ImportID,
		&i.AccountID,
		&i.CategoryID,
		&i.PayeeID,
		&i.Date,
		&i.AmountMinor,
		&i.Kind,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, owner_id, name, display_name, type, currency, balance_minor, credit_limit_minor, created_at
FROM accounts
WHERE owner_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Name,
			&i.DisplayName,
			&i.Type,
			&i.Currency,
			&i.BalanceMinor,
			&i.CreditLimitMinor,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `-- name: ListCategories :many
SELECT id, owner_id, name, display_name, type, created_at
FROM categories
WHERE owner_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Name,
			&i.DisplayName,
			&i.Type,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPayees = `-- name: ListPayees :many
SELECT id, owner_id, name, display_name, created_at
FROM payees
WHERE owner_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListPayees(ctx context.Context, ownerID string) ([]Payee, error) {
	rows, err := q.db.Query(ctx, listPayees, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payee
	for rows.Next() {
		var i Payee
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Name,
			&i.DisplayName,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
