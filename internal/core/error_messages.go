package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Codes by category:
//
//	FILE001-FILE007  upload and parsing (size, csv syntax, encoding, empty)
//	VAL001-VAL009    mapping and row validation
//	IMP001-IMP006    import lifecycle (state, busy, missing, resolution)
//	DB001-DB008      entity store and database failures
//	REQ001-REQ002    request cancellation and deadlines
//	RATE001          request throttling
//	ERR000           fallback, check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

func rule(pattern, code, message, action string) errorPattern {
	return errorPattern{pattern: pattern, msg: UserMessage{Message: message, Action: action, Code: code}}
}

var errorPatterns = []errorPattern{
	// File errors
	rule("file too large", "FILE001", "File exceeds the maximum upload size", "Split the file into smaller files"),
	rule("unsupported file type", "FILE006", "This file type is not supported", "Upload a .csv or .xlsx file"),
	rule("invalid spreadsheet", "FILE007", "The spreadsheet could not be read", "Re-save the workbook as .xlsx or export it to CSV"),
	rule("invalid csv", "FILE002", "File is not a valid CSV", "Check for unbalanced quotes and make sure the first row holds the column headers"),
	rule("encoding error", "FILE003", "File contains invalid characters", "Save the file as UTF-8"),
	rule("no file provided", "FILE004", "No file was selected", "Select a CSV or XLSX file to upload"),
	rule("empty file", "FILE005", "The file has a header but no data rows", "Add at least one data row"),

	// Validation errors
	rule("invalid date", "VAL001", "Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024"),
	rule("invalid number", "VAL002", "Invalid number format detected", "Use a plain decimal amount such as -42.50"),
	rule("is not mapped", "VAL004", "A required field has no column mapped to it", "Map a column to every required field"),
	rule("required field", "VAL003", "Required field is empty", "Ensure all required columns have values"),
	rule("column not found", "VAL005", "Mapped column not found in the file", "Map only columns that appear in the file header"),
	rule("invalid account type", "VAL006", "Account type is not recognized", "Use Checking, Savings, Credit Card, Cash, Investment, Loan or Other"),
	rule("invalid category type", "VAL007", "Category type is not recognized", "Use Income or Expense"),
	rule("invalid currency", "VAL008", "Currency is not recognized", "Use a three-letter ISO code such as USD or INR"),
	rule("invalid mapping", "VAL009", "The column mapping is not valid for this data type", "Map each column to at most one field of the detected data type"),
	rule("invalid options", "VAL010", "The import options are not valid", "Check the duplicate policies and default currency"),

	// Import lifecycle
	rule("invalid state", "IMP001", "This import cannot do that in its current status", "Check the import status and try again"),
	rule("too many imports", "IMP002", "System is busy processing other imports", "Please wait a moment and try again"),
	rule("import not found", "IMP003", "Import not found", "The import may have been deleted. Upload the file again"),
	rule("already running", "IMP004", "This import is already running", "Wait for it to finish"),
	rule("creation is disabled", "IMP005", "A referenced account or payee does not exist", "Create it first or enable creation of missing entities"),
	rule("status changed concurrently", "IMP006", "The import was changed by another request", "Reload the import and try again"),

	// Entity store and database
	rule("already exists", "DB001", "A record with this name already exists", "Rename the entry or choose the skip duplicate policy"),
	rule("unique constraint", "DB002", "This value must be unique but already exists", "Check for duplicate entries in your file"),
	rule("violates unique", "DB002", "A duplicate value was found", "Review your data for duplicate names"),
	rule("foreign key", "DB003", "Referenced record does not exist", "Import accounts and categories before transactions"),
	rule("connection refused", "DB004", "Unable to connect to the database", "Please try again in a few moments"),
	rule("connection reset", "DB005", "Database connection was interrupted", "Please try again"),
	rule("timeout", "DB006", "Operation timed out", "Try a smaller file or try again later"),
	rule("deadlock", "DB007", "Database was busy with conflicting operations", "Please try again"),
	rule("entity store unavailable", "DB008", "Storage is temporarily unavailable", "The rows before the failure were imported. Please try again later"),

	// Request lifecycle
	rule("context canceled", "REQ001", "Request was cancelled", "Please try again"),
	rule("context deadline exceeded", "REQ002", "Request timed out", "Try a smaller file or check your connection"),
	rule("invalid request", "REQ003", "The request could not be understood", "Check the request body and parameters"),

	// Throttling
	rule("rate limit", "RATE001", "Too many requests", "Please wait a moment before trying again"),
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
