package memstore

import (
	"context"

	"github.com/JonMunkholm/finimport/internal/core"
)

// ListAccounts implements core.EntityStore in creation order.
func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ListAccounts"); err != nil {
		return nil, err
	}
	return append([]core.Account(nil), s.accounts[ownerID]...), nil
}

// ListCategories implements core.EntityStore in creation order.
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ListCategories"); err != nil {
		return nil, err
	}
	return append([]core.Category(nil), s.categories[ownerID]...), nil
}

// ListPayees implements core.EntityStore in creation order.
func (s *Store) ListPayees(ctx context.Context, ownerID string) ([]core.Payee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ListPayees"); err != nil {
		return nil, err
	}
	return append([]core.Payee(nil), s.payees[ownerID]...), nil
}

// CreateAccount implements core.EntityStore.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("CreateAccount"); err != nil {
		return core.Account{}, err
	}
	a.Name = core.NormalizeName(a.Name)
	for _, existing := range s.accounts[a.OwnerID] {
		if existing.Name == a.Name {
			return core.Account{}, &core.DuplicateError{Kind: "account", Name: a.DisplayName}
		}
	}
	s.accounts[a.OwnerID] = append(s.accounts[a.OwnerID], a)
	return a, nil
}

// CreateCategory implements core.EntityStore.
func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("CreateCategory"); err != nil {
		return core.Category{}, err
	}
	c.Name = core.NormalizeName(c.Name)
	for _, existing := range s.categories[c.OwnerID] {
		if existing.Name == c.Name {
			return core.Category{}, &core.DuplicateError{Kind: "category", Name: c.DisplayName}
		}
	}
	s.categories[c.OwnerID] = append(s.categories[c.OwnerID], c)
	return c, nil
}

// CreatePayee implements core.EntityStore.
func (s *Store) CreatePayee(ctx context.Context, p core.Payee) (core.Payee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("CreatePayee"); err != nil {
		return core.Payee{}, err
	}
	p.Name = core.NormalizeName(p.Name)
	for _, existing := range s.payees[p.OwnerID] {
		if existing.Name == p.Name {
			return core.Payee{}, &core.DuplicateError{Kind: "payee", Name: p.DisplayName}
		}
	}
	s.payees[p.OwnerID] = append(s.payees[p.OwnerID], p)
	return p, nil
}

// CreateTransaction implements core.EntityStore and adjusts the account
// balance by the signed amount.
func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("CreateTransaction"); err != nil {
		return core.Transaction{}, err
	}

	accounts := s.accounts[t.OwnerID]
	idx := -1
	for i, a := range accounts {
		if a.ID == t.AccountID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Transaction{}, &core.ValidationError{Field: core.FieldAccount, Value: t.AccountID, Message: "account does not exist"}
	}

	accounts[idx].BalanceMinor += t.SignedMinor()
	s.transactions[t.OwnerID] = append(s.transactions[t.OwnerID], t)
	return t, nil
}

// Transactions returns the owner's transactions in creation order.
func (s *Store) Transactions(ownerID string) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.transactions[ownerID]...)
}

// Seed adds entities directly, bypassing failure injection.
func (s *Store) Seed(ownerID string, accounts []core.Account, categories []core.Category, payees []core.Payee) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range accounts {
		a.OwnerID = ownerID
		a.Name = core.NormalizeName(a.Name)
		s.accounts[ownerID] = append(s.accounts[ownerID], a)
	}
	for _, c := range categories {
		c.OwnerID = ownerID
		c.Name = core.NormalizeName(c.Name)
		s.categories[ownerID] = append(s.categories[ownerID], c)
	}
	for _, p := range payees {
		p.OwnerID = ownerID
		p.Name = core.NormalizeName(p.Name)
		s.payees[ownerID] = append(s.payees[ownerID], p)
	}
}
