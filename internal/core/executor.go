package core

// executor.go runs a ready session row by row.
//
// Rows are processed strictly in order: entities created on demand by one
// row must be visible to the next, so there is no parallelism within a
// session. Row-scoped failures (ValidationError, ResolutionError,
// DuplicateError) are recorded as "Row {n}: {message}" and processing
// continues. Any other store failure aborts the run with a SystemError.
// Rows already written stay written.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionResult holds the per-row outcome totals of one execution.
// SuccessCount + ErrorCount + DuplicateCount equals the number of rows
// processed.
type ExecutionResult struct {
	SuccessCount   int      `json:"successCount"`
	ErrorCount     int      `json:"errorCount"`
	DuplicateCount int      `json:"duplicateCount"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
}

type rowOutcome int

const (
	rowImported rowOutcome = iota
	rowDuplicate
)

// Executor is the reconciliation executor.
type Executor struct {
	store  EntityStore
	logger *slog.Logger
	now    func() time.Time
}

// NewExecutor creates an executor writing to store.
func NewExecutor(store EntityStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// rowContext carries the state shared by one row's import.
type rowContext struct {
	ctx     context.Context
	session *ImportSession
	set     *WorkingSet
	opts    ImportOptions
	values  map[Field]string
	row     int
	result  *ExecutionResult
}

func (rc *rowContext) warn(format string, args ...any) {
	rc.result.Warnings = append(rc.result.Warnings,
		fmt.Sprintf("Row %d: ", rc.row)+fmt.Sprintf(format, args...))
}

type rowImporter func(rc *rowContext) (rowOutcome, error)

// Execute imports every raw row of the session using its effective mapping.
// The returned error is non-nil only for systemic failures; the partial
// result is returned alongside it.
func (e *Executor) Execute(ctx context.Context, s *ImportSession, opts ImportOptions) (ExecutionResult, error) {
	result := ExecutionResult{Errors: []string{}, Warnings: []string{}}

	var importRow rowImporter
	switch s.DataType() {
	case DataTransactions:
		importRow = e.importTransaction
	case DataAccounts:
		importRow = e.importAccount
	case DataCategories:
		importRow = e.importCategory
	default:
		return result, &ValidationError{Message: fmt.Sprintf("invalid mapping: unknown data type %q", s.DataType())}
	}

	set, err := LoadWorkingSet(ctx, e.store, s.OwnerID)
	if err != nil {
		return result, err
	}

	mapping := s.EffectiveMapping()
	logger := e.logger.With("import_id", s.ID, "data_type", s.DataType())
	start := time.Now()

	for i, raw := range s.RawRows {
		if i > 0 && opts.RowDelay > 0 {
			pause(ctx, opts.RowDelay)
		}

		rc := &rowContext{
			ctx:     ctx,
			session: s,
			set:     set,
			opts:    opts,
			values:  mapping.Apply(raw),
			row:     i + 1,
			result:  &result,
		}

		outcome, err := importRow(rc)
		switch {
		case err == nil && outcome == rowDuplicate:
			result.DuplicateCount++
		case err == nil:
			result.SuccessCount++
		case IsRowError(err):
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rc.row, err))
			logger.Debug("row failed", "row", rc.row, "error", err)
		default:
			var sysErr *SystemError
			if !errors.As(err, &sysErr) {
				err = &SystemError{Op: fmt.Sprintf("import row %d", rc.row), Err: err}
			}
			logger.Error("execution aborted", "row", rc.row, "error", err)
			return result, err
		}
	}

	logger.Info("execution finished",
		"rows", len(s.RawRows),
		"imported", result.SuccessCount,
		"failed", result.ErrorCount,
		"duplicates", result.DuplicateCount,
		"duration", time.Since(start),
	)
	return result, nil
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// storeErr keeps row-scoped store errors and wraps the rest as systemic.
func storeErr(op string, err error) error {
	if IsRowError(err) {
		return err
	}
	return &SystemError{Op: op, Err: err}
}

func requireFields(values map[Field]string, fields ...Field) error {
	for _, f := range fields {
		if values[f] == "" {
			return requiredError(f)
		}
	}
	return nil
}

// directionFromType reads an explicit type cell.
func directionFromType(s string) (TransactionKind, bool) {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "income"), strings.Contains(lower, "credit"), strings.Contains(lower, "deposit"):
		return KindDeposit, true
	case strings.Contains(lower, "expense"), strings.Contains(lower, "debit"), strings.Contains(lower, "withdraw"):
		return KindWithdrawal, true
	}
	return "", false
}

// polarity prefers the explicit type and falls back to the amount's sign.
func polarity(typeCell string, amount decimal.Decimal) TransactionKind {
	if kind, ok := directionFromType(typeCell); ok {
		return kind
	}
	if amount.Sign() < 0 {
		return KindWithdrawal
	}
	return KindDeposit
}

func (e *Executor) importTransaction(rc *rowContext) (rowOutcome, error) {
	v := rc.values
	if err := requireFields(v, FieldDate, FieldAmount, FieldPayee, FieldAccount); err != nil {
		return 0, err
	}

	amount, err := ParseAmount(v[FieldAmount])
	if err != nil {
		return 0, &ValidationError{Field: FieldAmount, Value: v[FieldAmount], Message: "invalid number"}
	}
	date, ok := ParseDate(v[FieldDate])
	if !ok {
		return 0, &ValidationError{Field: FieldDate, Value: v[FieldDate], Message: "invalid date"}
	}
	kind := polarity(v[FieldType], amount)

	account, err := e.resolveAccount(rc, v[FieldAccount])
	if err != nil {
		return 0, err
	}
	payee, err := e.resolvePayee(rc, v[FieldPayee])
	if err != nil {
		return 0, err
	}

	var categoryID string
	if name := v[FieldCategory]; name != "" {
		category, found, err := e.resolveCategory(rc, name, kind)
		if err != nil {
			return 0, err
		}
		if found {
			categoryID = category.ID
		} else {
			rc.warn("category %q not found, transaction left uncategorized", name)
		}
	}

	tx := Transaction{
		ID:          uuid.NewString(),
		OwnerID:     rc.session.OwnerID,
		ImportID:    rc.session.ID,
		AccountID:   account.ID,
		CategoryID:  categoryID,
		PayeeID:     payee.ID,
		Date:        date,
		AmountMinor: ToMinorUnits(amount.Abs()),
		Kind:        kind,
		Notes:       v[FieldNotes],
		CreatedAt:   e.now(),
	}
	if _, err := e.store.CreateTransaction(rc.ctx, tx); err != nil {
		return 0, storeErr("create transaction", err)
	}
	return rowImported, nil
}

func (e *Executor) resolveAccount(rc *rowContext, text string) (Account, error) {
	if a, ok := rc.set.ResolveAccount(text); ok {
		return a, nil
	}
	if !rc.opts.CreateMissingAccounts {
		return Account{}, &ResolutionError{Kind: "account", Name: text}
	}

	created, err := e.store.CreateAccount(rc.ctx, Account{
		ID:          uuid.NewString(),
		OwnerID:     rc.session.OwnerID,
		Name:        NormalizeName(text),
		DisplayName: DisplayName(text),
		Type:        InferAccountType(text),
		Currency:    rc.opts.DefaultCurrency,
		CreatedAt:   e.now(),
	})
	if err != nil {
		return Account{}, storeErr("create account", err)
	}
	rc.set.AddAccount(created)
	return created, nil
}

func (e *Executor) resolvePayee(rc *rowContext, text string) (Payee, error) {
	if p, ok := rc.set.ResolvePayee(text); ok {
		return p, nil
	}
	if !rc.opts.CreateMissingPayees {
		return Payee{}, &ResolutionError{Kind: "payee", Name: text}
	}

	created, err := e.store.CreatePayee(rc.ctx, Payee{
		ID:          uuid.NewString(),
		OwnerID:     rc.session.OwnerID,
		Name:        NormalizeName(text),
		DisplayName: DisplayName(text),
		CreatedAt:   e.now(),
	})
	if err != nil {
		return Payee{}, storeErr("create payee", err)
	}
	rc.set.AddPayee(created)
	return created, nil
}

// resolveCategory never fails the row for a missing category; found is
// false when creation is disabled.
func (e *Executor) resolveCategory(rc *rowContext, text string, kind TransactionKind) (Category, bool, error) {
	if c, ok := rc.set.ResolveCategory(text); ok {
		return c, true, nil
	}
	if !rc.opts.CreateMissingCategories {
		return Category{}, false, nil
	}

	typ := CategoryExpense
	if kind == KindDeposit {
		typ = CategoryIncome
	}
	created, err := e.store.CreateCategory(rc.ctx, Category{
		ID:          uuid.NewString(),
		OwnerID:     rc.session.OwnerID,
		Name:        NormalizeName(text),
		DisplayName: DisplayName(text),
		Type:        typ,
		CreatedAt:   e.now(),
	})
	if err != nil {
		return Category{}, false, storeErr("create category", err)
	}
	rc.set.AddCategory(created)
	return created, true, nil
}

func (e *Executor) importAccount(rc *rowContext) (rowOutcome, error) {
	v := rc.values
	if err := requireFields(v, FieldName, FieldType, FieldCurrency); err != nil {
		return 0, err
	}

	accountType, ok := NormalizeAccountType(v[FieldType])
	if !ok {
		return 0, &ValidationError{Field: FieldType, Value: v[FieldType], Message: "invalid account type"}
	}
	currency, ok := NormalizeCurrency(v[FieldCurrency])
	if !ok {
		return 0, &ValidationError{Field: FieldCurrency, Value: v[FieldCurrency], Message: "invalid currency"}
	}

	var balance, limit int64
	if raw := v[FieldBalance]; raw != "" {
		d, err := ParseAmount(raw)
		if err != nil {
			return 0, &ValidationError{Field: FieldBalance, Value: raw, Message: "invalid number"}
		}
		balance = ToMinorUnits(d)
	}
	if raw := v[FieldCreditLimit]; raw != "" {
		d, err := ParseAmount(raw)
		if err != nil {
			return 0, &ValidationError{Field: FieldCreditLimit, Value: raw, Message: "invalid number"}
		}
		limit = ToMinorUnits(d.Abs())
	}

	name := v[FieldName]
	if rc.set.HasAccount(name) {
		return e.duplicate(rc, rc.opts.AccountDuplicates, "account", name)
	}

	created, err := e.store.CreateAccount(rc.ctx, Account{
		ID:               uuid.NewString(),
		OwnerID:          rc.session.OwnerID,
		Name:             NormalizeName(name),
		DisplayName:      DisplayName(name),
		Type:             accountType,
		Currency:         currency,
		BalanceMinor:     balance,
		CreditLimitMinor: limit,
		CreatedAt:        e.now(),
	})
	if err != nil {
		var dup *DuplicateError
		if errors.As(err, &dup) {
			return e.duplicate(rc, rc.opts.AccountDuplicates, "account", name)
		}
		return 0, storeErr("create account", err)
	}
	rc.set.AddAccount(created)
	return rowImported, nil
}

func (e *Executor) importCategory(rc *rowContext) (rowOutcome, error) {
	v := rc.values
	if err := requireFields(v, FieldName, FieldType); err != nil {
		return 0, err
	}

	categoryType, ok := NormalizeCategoryType(v[FieldType])
	if !ok {
		return 0, &ValidationError{Field: FieldType, Value: v[FieldType], Message: "invalid category type"}
	}

	name := v[FieldName]
	if rc.set.HasCategory(name) {
		return e.duplicate(rc, rc.opts.CategoryDuplicates, "category", name)
	}

	created, err := e.store.CreateCategory(rc.ctx, Category{
		ID:          uuid.NewString(),
		OwnerID:     rc.session.OwnerID,
		Name:        NormalizeName(name),
		DisplayName: DisplayName(name),
		Type:        categoryType,
		CreatedAt:   e.now(),
	})
	if err != nil {
		var dup *DuplicateError
		if errors.As(err, &dup) {
			return e.duplicate(rc, rc.opts.CategoryDuplicates, "category", name)
		}
		return 0, storeErr("create category", err)
	}
	rc.set.AddCategory(created)
	return rowImported, nil
}

// duplicate applies the configured policy to an existing name.
func (e *Executor) duplicate(rc *rowContext, policy DuplicatePolicy, kind, name string) (rowOutcome, error) {
	if policy == DuplicateSkip {
		rc.warn("%s %q already exists, skipped", kind, name)
		return rowDuplicate, nil
	}
	return 0, &DuplicateError{Kind: kind, Name: name}
}
