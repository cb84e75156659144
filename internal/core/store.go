package core

import (
	"context"
	"time"
)

// SessionStore persists ImportSessions. Implementations return ErrNotFound
// for missing sessions and for sessions owned by someone else.
type SessionStore interface {
	CreateSession(ctx context.Context, s *ImportSession) error
	GetSession(ctx context.Context, ownerID, id string) (*ImportSession, error)
	UpdateSession(ctx context.Context, s *ImportSession) error

	// TransitionStatus is a compare-and-set on the status column. It returns
	// ErrStatusConflict when the stored status is not from.
	TransitionStatus(ctx context.Context, ownerID, id string, from, to Status) error

	ListSessions(ctx context.Context, filter SessionFilter) ([]*ImportSession, int, error)
	DeleteSession(ctx context.Context, ownerID, id string) error

	// PurgeSessions deletes completed and failed sessions last updated
	// before the cutoff and reports how many were removed.
	PurgeSessions(ctx context.Context, before time.Time) (int, error)
}

// SessionFilter selects a page of an owner's sessions, newest first.
type SessionFilter struct {
	OwnerID string
	Status  Status // empty for all
	Limit   int
	Offset  int
}

// EntityStore is the CRUD surface of the finance entities. Create methods
// return *DuplicateError on a normalized-name conflict and *ValidationError
// for rejected values; any other error is treated as systemic.
type EntityStore interface {
	ListAccounts(ctx context.Context, ownerID string) ([]Account, error)
	ListCategories(ctx context.Context, ownerID string) ([]Category, error)
	ListPayees(ctx context.Context, ownerID string) ([]Payee, error)

	CreateAccount(ctx context.Context, a Account) (Account, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	CreatePayee(ctx context.Context, p Payee) (Payee, error)

	// CreateTransaction also applies the signed amount to the account balance.
	CreateTransaction(ctx context.Context, t Transaction) (Transaction, error)
}

// Locker serialises execution of a session across processes. Obtain returns
// ErrImportLocked when another holder exists.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// NopLocker is used when no distributed lock backend is configured.
type NopLocker struct{}

func (NopLocker) Obtain(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// ImportLockKey is the lock key for a session.
func ImportLockKey(importID string) string {
	return "lock:import:" + importID
}
