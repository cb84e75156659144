package core

// validator.go checks a mapping and the rows it selects before execution.
//
// Validation happens at two levels:
//  1. Mapping level (row 0): illegal or repeated fields, headers missing from
//     the file, unmapped required fields
//  2. Row level (1-based): each mapped value against its schema's rules
//
// Warnings never affect IsValid. Issue lists are capped at MaxIssues while
// the counts in Stats stay exact.

import (
	"fmt"
	"strings"
)

// DefaultMaxIssues caps the errors and warnings kept in a ValidationResult.
const DefaultMaxIssues = 200

// ValidationIssue is one error or warning. Row 0 refers to the mapping.
type ValidationIssue struct {
	Row     int    `json:"row"`
	Field   Field  `json:"field,omitempty"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationStats summarises a validation run.
type ValidationStats struct {
	TotalRows    int `json:"totalRows"`
	ValidRows    int `json:"validRows"`
	ErrorCount   int `json:"errorCount"`
	WarningCount int `json:"warningCount"`
}

// ValidationResult is the outcome of MappingValidator.Validate.
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
	Stats    ValidationStats   `json:"stats"`
}

func (r *ValidationResult) addError(issue ValidationIssue, limit int) {
	r.Stats.ErrorCount++
	if len(r.Errors) < limit {
		r.Errors = append(r.Errors, issue)
	}
}

func (r *ValidationResult) addWarning(issue ValidationIssue, limit int) {
	r.Stats.WarningCount++
	if len(r.Warnings) < limit {
		r.Warnings = append(r.Warnings, issue)
	}
}

// MappingValidator validates mappings and rows against the schema registry.
type MappingValidator struct {
	MaxIssues int
}

// NewMappingValidator creates a validator keeping at most maxIssues of each
// kind. Non-positive values use DefaultMaxIssues.
func NewMappingValidator(maxIssues int) MappingValidator {
	if maxIssues <= 0 {
		maxIssues = DefaultMaxIssues
	}
	return MappingValidator{MaxIssues: maxIssues}
}

func (v MappingValidator) limit() int {
	if v.MaxIssues <= 0 {
		return DefaultMaxIssues
	}
	return v.MaxIssues
}

// CheckMapping returns the mapping-level errors and warnings for headers.
func (v MappingValidator) CheckMapping(headers []string, mapping ColumnMapping, dt DataType) (errs, warns []ValidationIssue) {
	schema, ok := SchemaFor(dt)
	if !ok {
		return []ValidationIssue{{Message: fmt.Sprintf("invalid mapping: unknown data type %q", dt)}}, nil
	}

	inFile := make(map[string]bool, len(headers))
	for _, h := range headers {
		inFile[h] = true
	}

	seen := make(map[Field]string, len(mapping))
	for _, h := range mapping.Headers() {
		f := mapping[h]
		if f == "" {
			continue
		}
		if !inFile[h] {
			errs = append(errs, ValidationIssue{Column: h, Field: f,
				Message: fmt.Sprintf("column not found: %q is not in the file", h)})
			continue
		}
		if _, legal := schema.Spec(f); !legal {
			errs = append(errs, ValidationIssue{Column: h, Field: f,
				Message: fmt.Sprintf("invalid mapping: %q is not a %s field", f, dt)})
			continue
		}
		if prev, dup := seen[f]; dup {
			errs = append(errs, ValidationIssue{Column: h, Field: f,
				Message: fmt.Sprintf("invalid mapping: %q is mapped from both %q and %q", f, prev, h)})
			continue
		}
		seen[f] = h
	}

	for _, f := range schema.Required() {
		if _, ok := seen[f]; !ok {
			errs = append(errs, ValidationIssue{Field: f,
				Message: fmt.Sprintf("required field %s is not mapped", f)})
		}
	}
	for _, f := range schema.Optional() {
		if _, ok := seen[f]; !ok {
			warns = append(warns, ValidationIssue{Field: f,
				Message: fmt.Sprintf("optional field %s is not mapped", f)})
		}
	}
	for _, h := range headers {
		if mapping[h] == "" {
			warns = append(warns, ValidationIssue{Column: h,
				Message: fmt.Sprintf("column %q is not mapped and will be ignored", h)})
		}
	}

	return errs, warns
}

// Validate checks the mapping and every row it selects.
func (v MappingValidator) Validate(headers []string, rows []Row, mapping ColumnMapping, dt DataType) ValidationResult {
	limit := v.limit()
	result := ValidationResult{
		Errors:   []ValidationIssue{},
		Warnings: []ValidationIssue{},
		Stats:    ValidationStats{TotalRows: len(rows)},
	}

	errs, warns := v.CheckMapping(headers, mapping, dt)
	for _, e := range errs {
		result.addError(e, limit)
	}
	for _, w := range warns {
		result.addWarning(w, limit)
	}

	if _, ok := SchemaFor(dt); ok {
		for i, row := range rows {
			rowErrs, rowWarns := validateRow(dt, mapping, row)
			for _, e := range rowErrs {
				e.Row = i + 1
				result.addError(e, limit)
			}
			for _, w := range rowWarns {
				w.Row = i + 1
				result.addWarning(w, limit)
			}
			if len(rowErrs) == 0 {
				result.Stats.ValidRows++
			}
		}
	}

	result.IsValid = result.Stats.ErrorCount == 0
	return result
}

// validateRow applies the per-schema rules to the fields that are mapped.
// Unmapped fields are reported once at the mapping level.
func validateRow(dt DataType, mapping ColumnMapping, row Row) (errs, warns []ValidationIssue) {
	values := mapping.Apply(row)
	columns := make(map[Field]string, len(mapping))
	for _, h := range mapping.Headers() {
		if f := mapping[h]; f != "" {
			if _, exists := columns[f]; !exists {
				columns[f] = h
			}
		}
	}

	check := func(f Field, fn func(string) *ValidationError) {
		col, mapped := columns[f]
		if !mapped {
			return
		}
		if verr := fn(values[f]); verr != nil {
			errs = append(errs, ValidationIssue{Field: f, Column: col, Value: verr.Value, Message: verr.Message})
		}
	}

	switch dt {
	case DataTransactions:
		check(FieldDate, checkDate)
		check(FieldAmount, checkAmount(FieldAmount, true))
		check(FieldPayee, checkRequired(FieldPayee))
		check(FieldAccount, checkRequired(FieldAccount))
		if col, mapped := columns[FieldCategory]; mapped && values[FieldCategory] == "" {
			warns = append(warns, ValidationIssue{Field: FieldCategory, Column: col,
				Message: "category is empty; the transaction will be uncategorized"})
		}
	case DataAccounts:
		check(FieldName, checkRequired(FieldName))
		check(FieldType, checkAccountType)
		check(FieldCurrency, checkCurrency)
		check(FieldBalance, checkAmount(FieldBalance, false))
		check(FieldCreditLimit, checkAmount(FieldCreditLimit, false))
	case DataCategories:
		check(FieldName, checkRequired(FieldName))
		check(FieldType, checkCategoryType)
	}
	return errs, warns
}

func requiredError(f Field) *ValidationError {
	return &ValidationError{Field: f, Message: fmt.Sprintf("required field %s is empty", f)}
}

func checkRequired(f Field) func(string) *ValidationError {
	return func(s string) *ValidationError {
		if strings.TrimSpace(s) == "" {
			return requiredError(f)
		}
		return nil
	}
}

func checkDate(s string) *ValidationError {
	if s == "" {
		return requiredError(FieldDate)
	}
	if _, ok := ParseDate(s); !ok {
		return &ValidationError{Field: FieldDate, Value: s, Message: "invalid date"}
	}
	return nil
}

func checkAmount(f Field, required bool) func(string) *ValidationError {
	return func(s string) *ValidationError {
		if s == "" {
			if required {
				return requiredError(f)
			}
			return nil
		}
		if _, err := ParseAmount(s); err != nil {
			return &ValidationError{Field: f, Value: s, Message: "invalid number"}
		}
		return nil
	}
}

func checkAccountType(s string) *ValidationError {
	if s == "" {
		return requiredError(FieldType)
	}
	if _, ok := NormalizeAccountType(s); !ok {
		return &ValidationError{Field: FieldType, Value: s, Message: "invalid account type"}
	}
	return nil
}

func checkCategoryType(s string) *ValidationError {
	if s == "" {
		return requiredError(FieldType)
	}
	if _, ok := NormalizeCategoryType(s); !ok {
		return &ValidationError{Field: FieldType, Value: s, Message: "invalid category type"}
	}
	return nil
}

func checkCurrency(s string) *ValidationError {
	if s == "" {
		return requiredError(FieldCurrency)
	}
	if _, ok := NormalizeCurrency(s); !ok {
		return &ValidationError{Field: FieldCurrency, Value: s, Message: "invalid currency"}
	}
	return nil
}
