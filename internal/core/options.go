package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DuplicatePolicy decides what happens when an imported account or category
// name already exists.
type DuplicatePolicy string

const (
	DuplicateFail DuplicatePolicy = "fail"
	DuplicateSkip DuplicatePolicy = "skip"
)

// ImportOptions controls a single execution.
type ImportOptions struct {
	CreateMissingAccounts   bool            `json:"createMissingAccounts"`
	CreateMissingCategories bool            `json:"createMissingCategories"`
	CreateMissingPayees     bool            `json:"createMissingPayees"`
	AccountDuplicates       DuplicatePolicy `json:"accountDuplicates" validate:"required,oneof=fail skip"`
	CategoryDuplicates      DuplicatePolicy `json:"categoryDuplicates" validate:"required,oneof=fail skip"`
	DefaultCurrency         string          `json:"defaultCurrency" validate:"required,len=3,uppercase"`
	RowDelay                time.Duration   `json:"rowDelay" validate:"gte=0,lte=10s"`
}

// DefaultImportOptions creates everything on demand and fails on duplicates.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		CreateMissingAccounts:   true,
		CreateMissingCategories: true,
		CreateMissingPayees:     true,
		AccountDuplicates:       DuplicateFail,
		CategoryDuplicates:      DuplicateFail,
		DefaultCurrency:         "USD",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid option as a single ValidationError.
func (o ImportOptions) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate options: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Message: "invalid options: " + strings.Join(problems, "; ")}
}

// OptionsOverride carries the fields a caller may override per execution.
// Nil fields keep the configured default.
type OptionsOverride struct {
	CreateMissingAccounts   *bool            `json:"createMissingAccounts,omitempty"`
	CreateMissingCategories *bool            `json:"createMissingCategories,omitempty"`
	CreateMissingPayees     *bool            `json:"createMissingPayees,omitempty"`
	AccountDuplicates       *DuplicatePolicy `json:"accountDuplicates,omitempty"`
	CategoryDuplicates      *DuplicatePolicy `json:"categoryDuplicates,omitempty"`
	DefaultCurrency         *string          `json:"defaultCurrency,omitempty"`
}

// Merge applies the override on top of base.
func (o *OptionsOverride) Merge(base ImportOptions) ImportOptions {
	if o == nil {
		return base
	}
	if o.CreateMissingAccounts != nil {
		base.CreateMissingAccounts = *o.CreateMissingAccounts
	}
	if o.CreateMissingCategories != nil {
		base.CreateMissingCategories = *o.CreateMissingCategories
	}
	if o.CreateMissingPayees != nil {
		base.CreateMissingPayees = *o.CreateMissingPayees
	}
	if o.AccountDuplicates != nil {
		base.AccountDuplicates = *o.AccountDuplicates
	}
	if o.CategoryDuplicates != nil {
		base.CategoryDuplicates = *o.CategoryDuplicates
	}
	if o.DefaultCurrency != nil {
		base.DefaultCurrency = strings.ToUpper(strings.TrimSpace(*o.DefaultCurrency))
	}
	return base
}
