// Package memstore is an in-memory SessionStore and EntityStore.
// Data is lost on restart; it backs tests and the CLI dry run.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/finimport/internal/core"
)

// Store is safe for concurrent use. Everything it returns is a copy.
type Store struct {
	mu sync.RWMutex

	sessions     map[string]*core.ImportSession
	accounts     map[string][]core.Account
	categories   map[string][]core.Category
	payees       map[string][]core.Payee
	transactions map[string][]core.Transaction

	calls    map[string]int
	failures map[string]injectedFailure
}

type injectedFailure struct {
	after int
	err   error
}

var (
	_ core.SessionStore = (*Store)(nil)
	_ core.EntityStore  = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions:     make(map[string]*core.ImportSession),
		accounts:     make(map[string][]core.Account),
		categories:   make(map[string][]core.Category),
		payees:       make(map[string][]core.Payee),
		transactions: make(map[string][]core.Transaction),
		calls:        make(map[string]int),
		failures:     make(map[string]injectedFailure),
	}
}

// InjectFailure makes the named method return err once it has been called
// more than after times from now on. Method names match the interface, e.g.
// "CreateTransaction".
func (s *Store) InjectFailure(method string, after int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method] = 0
	s.failures[method] = injectedFailure{after: after, err: err}
}

// fail must be called with s.mu held for writing.
func (s *Store) fail(method string) error {
	s.calls[method]++
	if f, ok := s.failures[method]; ok && s.calls[method] > f.after {
		return f.err
	}
	return nil
}

// CreateSession implements core.SessionStore.
func (s *Store) CreateSession(ctx context.Context, session *core.ImportSession) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("CreateSession"); err != nil {
		return err
	}
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// GetSession implements core.SessionStore.
func (s *Store) GetSession(ctx context.Context, ownerID, id string) (*core.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	return session.Clone(), nil
}

// UpdateSession implements core.SessionStore.
func (s *Store) UpdateSession(ctx context.Context, session *core.ImportSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("UpdateSession"); err != nil {
		return err
	}
	existing, ok := s.sessions[session.ID]
	if !ok || existing.OwnerID != session.OwnerID {
		return core.ErrNotFound
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// TransitionStatus implements core.SessionStore.
func (s *Store) TransitionStatus(ctx context.Context, ownerID, id string, from, to core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return core.ErrNotFound
	}
	if session.Status != from {
		return core.ErrStatusConflict
	}
	session.Status = to
	return nil
}

// ListSessions implements core.SessionStore. Newest sessions come first.
func (s *Store) ListSessions(ctx context.Context, filter core.SessionFilter) ([]*core.ImportSession, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*core.ImportSession
	for _, session := range s.sessions {
		if session.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		matched = append(matched, session)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]*core.ImportSession, 0, end-start)
	for _, session := range matched[start:end] {
		page = append(page, session.Clone())
	}
	return page, total, nil
}

// DeleteSession implements core.SessionStore.
func (s *Store) DeleteSession(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// PurgeSessions implements core.SessionStore.
func (s *Store) PurgeSessions(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("PurgeSessions"); err != nil {
		return 0, err
	}
	purged := 0
	for id, session := range s.sessions {
		if session.Status.Terminal() && session.UpdatedAt.Before(before) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}
