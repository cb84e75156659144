package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountSet(names ...string) *WorkingSet {
	w := &WorkingSet{}
	for i, n := range names {
		w.AddAccount(Account{ID: string(rune('a' + i)), Name: NormalizeName(n), DisplayName: n})
	}
	return w
}

func TestResolveAccount(t *testing.T) {
	w := accountSet("HDFC Bank", "Chase Sapphire Card", "Cash")

	tests := []struct {
		name   string
		text   string
		wantID string
		found  bool
	}{
		{name: "exact", text: "HDFC Bank", wantID: "a", found: true},
		{name: "case and whitespace", text: "  hdfc   BANK ", wantID: "a", found: true},
		{name: "text contains name", text: "Cash on hand", wantID: "c", found: true},
		{name: "name contains text", text: "sapphire", wantID: "b", found: true},
		{name: "brand token", text: "HDFC Savings", wantID: "a", found: true},
		{name: "no overlap", text: "Brokerage", found: false},
		{name: "empty", text: "   ", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.ResolveAccount(tt.text)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestResolveAccount_TieStaysUnresolved(t *testing.T) {
	w := accountSet("joint checking", "joint savings")

	_, ok := w.ResolveAccount("joint brokerage")
	assert.False(t, ok)
}

func TestResolveAccount_BrandBeatsGenericToken(t *testing.T) {
	w := accountSet("icici salary account", "hdfc account")

	got, ok := w.ResolveAccount("hdfc salary card")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
}

func TestResolveCategory_NoTokenStage(t *testing.T) {
	w := &WorkingSet{}
	w.AddCategory(Category{ID: "food", Name: "food & dining"})
	w.AddCategory(Category{ID: "rent", Name: "rent"})

	got, ok := w.ResolveCategory("FOOD")
	require.True(t, ok)
	assert.Equal(t, "food", got.ID)

	_, ok = w.ResolveCategory("dining out")
	assert.False(t, ok, "categories match by containment only")
}

func TestResolvePayee(t *testing.T) {
	w := &WorkingSet{}
	w.AddPayee(Payee{ID: "p1", Name: "starbucks"})

	got, ok := w.ResolvePayee("Starbucks #1234")
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
}

func TestWorkingSet_Has(t *testing.T) {
	w := accountSet("HDFC Bank")
	w.AddCategory(Category{Name: "groceries"})

	assert.True(t, w.HasAccount(" hdfc bank "))
	assert.False(t, w.HasAccount("HDFC"), "has checks exact names only")
	assert.True(t, w.HasCategory("Groceries"))
	assert.False(t, w.HasCategory("Grocery"))
}

type listErrStore struct {
	EntityStore
}

func (listErrStore) ListAccounts(context.Context, string) ([]Account, error) {
	return nil, errors.New("connection refused")
}

func TestLoadWorkingSet_WrapsStoreErrors(t *testing.T) {
	_, err := LoadWorkingSet(context.Background(), listErrStore{}, "owner")

	var sysErr *SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, "list accounts", sysErr.Op)
}
