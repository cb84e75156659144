package core

import "time"

// AccountType is the fixed account type enumeration.
type AccountType string

const (
	AccountChecking   AccountType = "Checking"
	AccountSavings    AccountType = "Savings"
	AccountCreditCard AccountType = "Credit Card"
	AccountCash       AccountType = "Cash"
	AccountInvestment AccountType = "Investment"
	AccountLoan       AccountType = "Loan"
	AccountOther      AccountType = "Other"
)

// AccountTypes lists every legal account type.
var AccountTypes = []AccountType{
	AccountChecking, AccountSavings, AccountCreditCard, AccountCash,
	AccountInvestment, AccountLoan, AccountOther,
}

// CategoryType is Income or Expense.
type CategoryType string

const (
	CategoryIncome  CategoryType = "Income"
	CategoryExpense CategoryType = "Expense"
)

// TransactionKind is the direction of a transaction.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// Account is an owner-scoped account. Name holds the normalized form.
type Account struct {
	ID               string      `json:"id"`
	OwnerID          string      `json:"ownerId"`
	Name             string      `json:"name"`
	DisplayName      string      `json:"displayName"`
	Type             AccountType `json:"type"`
	Currency         string      `json:"currency"`
	BalanceMinor     int64       `json:"balanceMinor"`
	CreditLimitMinor int64       `json:"creditLimitMinor"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Category is an owner-scoped income or expense category.
type Category struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	Type        CategoryType `json:"type"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Payee is an owner-scoped counterparty.
type Payee struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Transaction references its account, category and payee by id only.
// AmountMinor is always non-negative; Kind carries the sign.
type Transaction struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	ImportID    string          `json:"importId"`
	AccountID   string          `json:"accountId"`
	CategoryID  string          `json:"categoryId,omitempty"`
	PayeeID     string          `json:"payeeId"`
	Date        time.Time       `json:"date"`
	AmountMinor int64           `json:"amountMinor"`
	Kind        TransactionKind `json:"kind"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// SignedMinor returns the amount with the direction applied.
func (t Transaction) SignedMinor() int64 {
	if t.Kind == KindWithdrawal {
		return -t.AmountMinor
	}
	return t.AmountMinor
}
