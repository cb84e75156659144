package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/finimport/internal/core"
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements core.SessionStore and core.EntityStore on PostgreSQL.
type Store struct {
	pool Pool
	q    *Queries
	now  func() time.Time
}

var (
	_ core.SessionStore = (*Store)(nil)
	_ core.EntityStore  = (*Store)(nil)
)

// NewStore creates a store over pool. Run Migrate first.
func NewStore(pool Pool) *Store {
	return &Store{
		pool: pool,
		q:    New(pool),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession implements core.SessionStore.
func (s *Store) CreateSession(ctx context.Context, session *core.ImportSession) error {
	params, err := createSessionParams(session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := s.q.CreateImportSession(ctx, params); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession implements core.SessionStore. Malformed ids are reported as
// not found.
func (s *Store) GetSession(ctx context.Context, ownerID, id string) (*core.ImportSession, error) {
	uid, ok := toUUID(id)
	if !ok {
		return nil, core.ErrNotFound
	}
	row, err := s.q.GetImportSession(ctx, GetImportSessionParams{ID: uid, OwnerID: ownerID})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sessionFromRow(row)
}

// UpdateSession implements core.SessionStore. Upload-time columns are
// immutable and not rewritten.
func (s *Store) UpdateSession(ctx context.Context, session *core.ImportSession) error {
	params, err := updateSessionParams(session)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := s.q.UpdateImportSession(ctx, params)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// TransitionStatus implements core.SessionStore.
func (s *Store) TransitionStatus(ctx context.Context, ownerID, id string, from, to core.Status) error {
	uid, ok := toUUID(id)
	if !ok {
		return core.ErrNotFound
	}
	n, err := s.q.TransitionImportStatus(ctx, TransitionImportStatusParams{
		ID:        uid,
		OwnerID:   ownerID,
		Status:    string(from),
		Status_2:  string(to),
		UpdatedAt: toTimestamptz(s.now()),
	})
	if err != nil {
		return fmt.Errorf("transition session: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetSession(ctx, ownerID, id); err != nil {
		return err
	}
	return core.ErrStatusConflict
}

// ListSessions implements core.SessionStore. Returned sessions carry no
// RawRows.
func (s *Store) ListSessions(ctx context.Context, filter core.SessionFilter) ([]*core.ImportSession, int, error) {
	total, err := s.q.CountImportSessions(ctx, CountImportSessionsParams{
		OwnerID: filter.OwnerID,
		Status:  string(filter.Status),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = int(total)
	}
	rows, err := s.q.ListImportSessions(ctx, ListImportSessionsParams{
		OwnerID: filter.OwnerID,
		Status:  string(filter.Status),
		Limit:   int32(limit),
		Offset:  int32(max(filter.Offset, 0)),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*core.ImportSession, 0, len(rows))
	for _, r := range rows {
		session, err := sessionFromRow(r.session())
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}
	return sessions, int(total), nil
}

// DeleteSession implements core.SessionStore.
func (s *Store) DeleteSession(ctx context.Context, ownerID, id string) error {
	uid, ok := toUUID(id)
	if !ok {
		return core.ErrNotFound
	}
	n, err := s.q.DeleteImportSession(ctx, DeleteImportSessionParams{ID: uid, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// PurgeSessions implements core.SessionStore.
func (s *Store) PurgeSessions(ctx context.Context, before time.Time) (int, error) {
	n, err := s.q.PurgeImportSessions(ctx, toTimestamptz(before))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return int(n), nil
}

// ListAccounts implements core.EntityStore.
func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := s.q.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, len(rows))
	for i, r := range rows {
		out[i] = accountFromRow(r)
	}
	return out, nil
}

// ListCategories implements core.EntityStore.
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := s.q.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, len(rows))
	for i, r := range rows {
		out[i] = categoryFromRow(r)
	}
	return out, nil
}

// ListPayees implements core.EntityStore.
func (s *Store) ListPayees(ctx context.Context, ownerID string) ([]core.Payee, error) {
	rows, err := s.q.ListPayees(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Payee, len(rows))
	for i, r := range rows {
		out[i] = payeeFromRow(r)
	}
	return out, nil
}

// CreateAccount implements core.EntityStore.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	id, err := requiredUUID(a.ID)
	if err != nil {
		return core.Account{}, err
	}
	row, err := s.q.CreateAccount(ctx, CreateAccountParams{
		ID:               id,
		OwnerID:          a.OwnerID,
		Name:             core.NormalizeName(a.Name),
		DisplayName:      a.DisplayName,
		Type:             string(a.Type),
		Currency:         a.Currency,
		BalanceMinor:     a.BalanceMinor,
		CreditLimitMinor: a.CreditLimitMinor,
		CreatedAt:        toTimestamptz(a.CreatedAt),
	})
	if err != nil {
		return core.Account{}, translateError(err, "account", a.DisplayName)
	}
	return accountFromRow(row), nil
}

// CreateCategory implements core.EntityStore.
func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := requiredUUID(c.ID)
	if err != nil {
		return core.Category{}, err
	}
	row, err := s.q.CreateCategory(ctx, CreateCategoryParams{
		ID:          id,
		OwnerID:     c.OwnerID,
		Name:        core.NormalizeName(c.Name),
		DisplayName: c.DisplayName,
		Type:        string(c.Type),
		CreatedAt:   toTimestamptz(c.CreatedAt),
	})
	if err != nil {
		return core.Category{}, translateError(err, "category", c.DisplayName)
	}
	return categoryFromRow(row), nil
}

// CreatePayee implements core.EntityStore.
func (s *Store) CreatePayee(ctx context.Context, p core.Payee) (core.Payee, error) {
	id, err := requiredUUID(p.ID)
	if err != nil {
		return core.Payee{}, err
	}
	row, err := s.q.CreatePayee(ctx, CreatePayeeParams{
		ID:          id,
		OwnerID:     p.OwnerID,
		Name:        core.NormalizeName(p.Name),
		DisplayName: p.DisplayName,
		CreatedAt:   toTimestamptz(p.CreatedAt),
	})
	if err != nil {
		return core.Payee{}, translateError(err, "payee", p.DisplayName)
	}
	return payeeFromRow(row), nil
}

// CreateTransaction implements core.EntityStore. The insert and the balance
// adjustment commit together.
func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	params, err := transactionParams(t)
	if err != nil {
		return core.Transaction{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	q := s.q.WithTx(tx)
	n, err := q.AdjustAccountBalance(ctx, AdjustAccountBalanceParams{
		ID:      params.AccountID,
		OwnerID: t.OwnerID,
		Delta:   t.SignedMinor(),
	})
	if err != nil {
		return core.Transaction{}, translateError(err, "transaction", t.AccountID)
	}
	if n == 0 {
		return core.Transaction{}, &core.ValidationError{Field: core.FieldAccount, Value: t.AccountID, Message: "account does not exist"}
	}

	row, err := q.CreateTransaction(ctx, params)
	if err != nil {
		return core.Transaction{}, translateError(err, "transaction", t.ID)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

func transactionParams(t core.Transaction) (CreateTransactionParams, error) {
	id, err := requiredUUID(t.ID)
	if err != nil {
		return CreateTransactionParams{}, err
	}
	importID, err := optionalUUID(t.ImportID)
	if err != nil {
		return CreateTransactionParams{}, err
	}
	accountID, err := requiredUUID(t.AccountID)
	if err != nil {
		return CreateTransactionParams{}, &core.ValidationError{Field: core.FieldAccount, Value: t.AccountID, Message: "account does not exist"}
	}
	categoryID, err := optionalUUID(t.CategoryID)
	if err != nil {
		return CreateTransactionParams{}, err
	}
	payeeID, err := requiredUUID(t.PayeeID)
	if err != nil {
		return CreateTransactionParams{}, err
	}
	return CreateTransactionParams{
		ID:          id,
		OwnerID:     t.OwnerID,
		ImportID:    importID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		PayeeID:     payeeID,
		Date:        pgtype.Date{Time: t.Date, Valid: !t.Date.IsZero()},
		AmountMinor: t.AmountMinor,
		Kind:        string(t.Kind),
		Notes:       t.Notes,
		CreatedAt:   toTimestamptz(t.CreatedAt),
	}, nil
}
