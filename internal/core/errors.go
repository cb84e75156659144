package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an import session does not exist or
	// belongs to another owner.
	ErrNotFound = errors.New("import not found")

	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when an upload carries no data.
	ErrNoFile = errors.New("no file provided")

	// ErrImportLocked is returned when another process holds the execution
	// lock for a session.
	ErrImportLocked = errors.New("import is already running")

	// ErrStatusConflict is returned by SessionStore.TransitionStatus when the
	// stored status no longer matches the expected one.
	ErrStatusConflict = errors.New("session status changed concurrently")
)

// ParseError reports a file that could not be read as tabular data.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid csv: %s: %v", e.Reason, e.Err)
	}
	return "invalid csv: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyDataError reports a file that parsed but holds no data rows.
type EmptyDataError struct {
	Reason string
}

func (e *EmptyDataError) Error() string {
	return "empty file: " + e.Reason
}

// ValidationError is a row-level, field-specific problem.
type ValidationError struct {
	Field   Field  // Canonical field, empty for mapping-level problems
	Value   string // The offending raw value
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %q", e.Message, e.Value)
	}
	return e.Message
}

// ResolutionError reports a referenced entity that does not exist while
// creation is disabled.
type ResolutionError struct {
	Kind string // account, category, payee
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q does not exist and creation is disabled", e.Kind, e.Name)
}

// DuplicateError reports an entity that already exists for the owner.
type DuplicateError struct {
	Kind string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// InvalidStateError reports an operation attempted from the wrong status.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s import in %s status", e.Op, e.Status)
}

// SystemError reports an Entity Store or Session Store failure that is not
// scoped to a single row.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("entity store unavailable: %s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsRowError reports whether err is scoped to a single row and should be
// recorded without aborting the batch.
func IsRowError(err error) bool {
	var (
		ve *ValidationError
		re *ResolutionError
		de *DuplicateError
	)
	return errors.As(err, &ve) || errors.As(err, &re) || errors.As(err, &de)
}

// IsFileError reports whether err is a file-level parse failure.
func IsFileError(err error) bool {
	var (
		pe *ParseError
		ee *EmptyDataError
	)
	return errors.As(err, &pe) || errors.As(err, &ee) || errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrNoFile)
}
