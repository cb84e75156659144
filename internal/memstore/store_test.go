package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/finimport/internal/core"
)

func newSession(owner string, created time.Time) *core.ImportSession {
	return core.NewImportSession(owner, "f.csv", 10, []string{"A"}, []core.Row{{"A": "1"}}, created)
}

func TestStore_SessionsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	session := newSession("o1", time.Now())
	require.NoError(t, s.CreateSession(ctx, session))

	session.FileName = "mutated.csv"
	got, err := s.GetSession(ctx, "o1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, "f.csv", got.FileName)

	got.RawRows[0]["A"] = "changed"
	again, err := s.GetSession(ctx, "o1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", again.RawRows[0]["A"])

	assert.Error(t, s.CreateSession(ctx, session), "duplicate id")
}

func TestStore_OwnerIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	session := newSession("o1", time.Now())
	require.NoError(t, s.CreateSession(ctx, session))

	_, err := s.GetSession(ctx, "o2", session.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	other := session.Clone()
	other.OwnerID = "o2"
	assert.ErrorIs(t, s.UpdateSession(ctx, other), core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, "o2", session.ID), core.ErrNotFound)
	assert.ErrorIs(t, s.TransitionStatus(ctx, "o2", session.ID, core.StatusPending, core.StatusAnalyzing), core.ErrNotFound)
}

func TestStore_TransitionStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	session := newSession("o1", time.Now())
	require.NoError(t, s.CreateSession(ctx, session))

	require.NoError(t, s.TransitionStatus(ctx, "o1", session.ID, core.StatusPending, core.StatusAnalyzing))
	assert.ErrorIs(t, s.TransitionStatus(ctx, "o1", session.ID, core.StatusPending, core.StatusAnalyzing), core.ErrStatusConflict)

	got, err := s.GetSession(ctx, "o1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusAnalyzing, got.Status)
}

func TestStore_ListSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		session := newSession("o1", base.Add(time.Duration(i)*time.Hour))
		if i%2 == 0 {
			session.Status = core.StatusCompleted
		}
		require.NoError(t, s.CreateSession(ctx, session))
		ids = append(ids, session.ID)
	}
	require.NoError(t, s.CreateSession(ctx, newSession("o2", base)))

	page, total, err := s.ListSessions(ctx, core.SessionFilter{OwnerID: "o1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID, "newest first")
	assert.Equal(t, ids[3], page[1].ID)

	page, total, err = s.ListSessions(ctx, core.SessionFilter{OwnerID: "o1", Status: core.StatusCompleted, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	page, _, err = s.ListSessions(ctx, core.SessionFilter{OwnerID: "o1", Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStore_PurgeSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	finished := newSession("o1", old)
	finished.Status = core.StatusFailed
	running := newSession("o1", old)
	running.Status = core.StatusImporting
	recent := newSession("o1", time.Now())
	recent.Status = core.StatusCompleted
	for _, session := range []*core.ImportSession{finished, running, recent} {
		require.NoError(t, s.CreateSession(ctx, session))
	}

	n, err := s.PurgeSessions(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, "o1", finished.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetSession(ctx, "o1", running.ID)
	assert.NoError(t, err)
}

func TestStore_Entities(t *testing.T) {
	s := New()
	ctx := context.Background()

	acc, err := s.CreateAccount(ctx, core.Account{ID: "a1", OwnerID: "o1", Name: " HDFC  Bank ", DisplayName: "HDFC Bank"})
	require.NoError(t, err)
	assert.Equal(t, "hdfc bank", acc.Name)

	_, err = s.CreateAccount(ctx, core.Account{ID: "a2", OwnerID: "o1", Name: "hdfc bank", DisplayName: "hdfc bank"})
	var dup *core.DuplicateError
	require.ErrorAs(t, err, &dup)

	_, err = s.CreateAccount(ctx, core.Account{ID: "a3", OwnerID: "o2", Name: "hdfc bank"})
	assert.NoError(t, err, "names are unique per owner")

	_, err = s.CreateTransaction(ctx, core.Transaction{OwnerID: "o1", AccountID: "a1", AmountMinor: 500, Kind: core.KindWithdrawal})
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, core.Transaction{OwnerID: "o1", AccountID: "a1", AmountMinor: 200, Kind: core.KindDeposit})
	require.NoError(t, err)

	accounts, err := s.ListAccounts(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(-300), accounts[0].BalanceMinor)

	_, err = s.CreateTransaction(ctx, core.Transaction{OwnerID: "o1", AccountID: "missing", AmountMinor: 1})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Len(t, s.Transactions("o1"), 2)
}

func TestStore_InjectFailure(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")
	s.InjectFailure("CreatePayee", 1, boom)

	_, err := s.CreatePayee(ctx, core.Payee{OwnerID: "o1", Name: "a"})
	require.NoError(t, err)
	_, err = s.CreatePayee(ctx, core.Payee{OwnerID: "o1", Name: "b"})
	assert.ErrorIs(t, err, boom)
}
