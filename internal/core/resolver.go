package core

// resolver.go resolves free-text references ("HDFC Bank", "Food & Dining")
// to entities. Matching runs against a WorkingSet loaded once per execution
// and extended as rows create entities, so row N+1 sees what row N created.
//
// Resolution order:
//  1. Exact match on the normalized name
//  2. Containment in either direction, first entity in working-set order wins
//  3. Weighted token match (accounts only), highest positive score wins and
//     ties stay unresolved

import (
	"context"
	"strings"
)

// bankBrands are fragments of major bank names. Sharing one is strong
// evidence two account names refer to the same institution.
var bankBrands = []string{
	"hdfc", "icici", "sbi", "axis", "kotak", "pnb", "idfc", "indusind",
	"chase", "citi", "wells", "amex", "boa", "barclays", "hsbc", "santander",
	"capital", "discover", "schwab", "fidelity", "ally", "revolut", "monzo",
	"paypal", "venmo", "rbc", "scotia", "lloyds", "natwest",
}

const (
	tokenExactScore   = 2
	tokenPartialScore = 1
	brandTokenBonus   = 20
	brandPartBonus    = 10
)

// WorkingSet is the per-execution view of an owner's entities.
type WorkingSet struct {
	accounts   []Account
	categories []Category
	payees     []Payee
}

// LoadWorkingSet reads every account, category and payee of the owner.
func LoadWorkingSet(ctx context.Context, store EntityStore, ownerID string) (*WorkingSet, error) {
	accounts, err := store.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, &SystemError{Op: "list accounts", Err: err}
	}
	categories, err := store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, &SystemError{Op: "list categories", Err: err}
	}
	payees, err := store.ListPayees(ctx, ownerID)
	if err != nil {
		return nil, &SystemError{Op: "list payees", Err: err}
	}
	return &WorkingSet{accounts: accounts, categories: categories, payees: payees}, nil
}

func (w *WorkingSet) AddAccount(a Account)   { w.accounts = append(w.accounts, a) }
func (w *WorkingSet) AddCategory(c Category) { w.categories = append(w.categories, c) }
func (w *WorkingSet) AddPayee(p Payee)       { w.payees = append(w.payees, p) }

// ResolveAccount runs all three matching stages.
func (w *WorkingSet) ResolveAccount(text string) (Account, bool) {
	names := make([]string, len(w.accounts))
	for i, a := range w.accounts {
		names[i] = a.Name
	}
	if i := resolveName(names, text, true); i >= 0 {
		return w.accounts[i], true
	}
	return Account{}, false
}

// ResolveCategory runs exact and containment matching.
func (w *WorkingSet) ResolveCategory(text string) (Category, bool) {
	names := make([]string, len(w.categories))
	for i, c := range w.categories {
		names[i] = c.Name
	}
	if i := resolveName(names, text, false); i >= 0 {
		return w.categories[i], true
	}
	return Category{}, false
}

// ResolvePayee runs exact and containment matching.
func (w *WorkingSet) ResolvePayee(text string) (Payee, bool) {
	names := make([]string, len(w.payees))
	for i, p := range w.payees {
		names[i] = p.Name
	}
	if i := resolveName(names, text, false); i >= 0 {
		return w.payees[i], true
	}
	return Payee{}, false
}

// HasAccount reports an exact normalized-name match only.
func (w *WorkingSet) HasAccount(name string) bool {
	norm := NormalizeName(name)
	for _, a := range w.accounts {
		if a.Name == norm {
			return true
		}
	}
	return false
}

// HasCategory reports an exact normalized-name match only.
func (w *WorkingSet) HasCategory(name string) bool {
	norm := NormalizeName(name)
	for _, c := range w.categories {
		if c.Name == norm {
			return true
		}
	}
	return false
}

// resolveName returns the index of the matching name or -1.
func resolveName(names []string, text string, tokens bool) int {
	candidate := NormalizeName(text)
	if candidate == "" {
		return -1
	}

	for i, n := range names {
		if n == candidate {
			return i
		}
	}

	for i, n := range names {
		if n == "" {
			continue
		}
		if strings.Contains(candidate, n) || strings.Contains(n, candidate) {
			return i
		}
	}

	if !tokens {
		return -1
	}

	best, bestScore, tied := -1, 0, false
	for i, n := range names {
		score := tokenScore(candidate, n)
		switch {
		case score <= 0:
		case score > bestScore:
			best, bestScore, tied = i, score, false
		case score == bestScore:
			tied = true
		}
	}
	if tied {
		return -1
	}
	return best
}

// tokenScore compares two normalized names token by token.
func tokenScore(a, b string) int {
	at, bt := strings.Fields(a), strings.Fields(b)

	score := 0
	for _, x := range at {
		for _, y := range bt {
			switch {
			case x == y:
				score += tokenExactScore
			case strings.Contains(x, y) || strings.Contains(y, x):
				score += tokenPartialScore
			}
		}
	}
	if score == 0 {
		return 0
	}

	for _, brand := range bankBrands {
		aTok, bTok := hasToken(at, brand), hasToken(bt, brand)
		switch {
		case aTok && bTok:
			score += brandTokenBonus
		case (aTok || strings.Contains(a, brand)) && (bTok || strings.Contains(b, brand)):
			score += brandPartBonus
		}
	}
	return score
}

func hasToken(tokens []string, s string) bool {
	for _, t := range tokens {
		if t == s {
			return true
		}
	}
	return false
}
