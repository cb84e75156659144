package core

import (
	"fmt"
	"time"
)

// DefaultErrorLimit is how many error strings, and separately how many
// warning strings, an ExecutionSummary carries.
const DefaultErrorLimit = 10

// ExecutionSummary is what the caller of execute sees. The full error list
// stays on the session. Errors and Warnings are capped at the aggregator's
// limit; TotalErrors and TotalWarnings give the uncapped counts.
type ExecutionSummary struct {
	ImportID       string   `json:"importId"`
	DataType       DataType `json:"dataType"`
	Status         Status   `json:"status"`
	TotalRows      int      `json:"totalRows"`
	ImportedCount  int      `json:"importedCount"`
	FailedCount    int      `json:"failedCount"`
	DuplicateCount int      `json:"duplicateCount"`
	Errors         []string `json:"errors"`
	TotalErrors    int      `json:"totalErrors"`
	Warnings       []string `json:"warnings"`
	TotalWarnings  int      `json:"totalWarnings"`
	Message        string   `json:"message"`
}

// Aggregator folds an ExecutionResult into the session.
type Aggregator struct {
	ErrorLimit int
	now        func() time.Time
}

// NewAggregator creates an aggregator returning at most errorLimit errors.
func NewAggregator(errorLimit int) Aggregator {
	if errorLimit <= 0 {
		errorLimit = DefaultErrorLimit
	}
	return Aggregator{
		ErrorLimit: errorLimit,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Complete records the result and moves the session to completed.
func (a Aggregator) Complete(s *ImportSession, r ExecutionResult) (ExecutionSummary, error) {
	a.record(s, r)
	if err := s.advance("complete", StatusCompleted, a.clock()); err != nil {
		return ExecutionSummary{}, err
	}
	a.stamp(s)

	summary := a.summary(s, r)
	summary.Message = fmt.Sprintf("Successfully imported %d %s", r.SuccessCount, s.DataType())
	return summary, nil
}

// Fail records the partial result and moves the session to failed with the
// systemic cause as its reason.
func (a Aggregator) Fail(s *ImportSession, r ExecutionResult, cause error) (ExecutionSummary, error) {
	a.record(s, r)
	if err := s.advance("fail", StatusFailed, a.clock()); err != nil {
		return ExecutionSummary{}, err
	}
	s.FailureReason = cause.Error()
	a.stamp(s)

	summary := a.summary(s, r)
	summary.Message = fmt.Sprintf("Import failed after %d of %d rows: %s",
		r.SuccessCount+r.ErrorCount+r.DuplicateCount, s.TotalRows, s.FailureReason)
	return summary, nil
}

func (a Aggregator) record(s *ImportSession, r ExecutionResult) {
	s.ImportedRowCount = r.SuccessCount
	s.FailedRowCount = r.ErrorCount
	s.DuplicateRowCount = r.DuplicateCount
	s.ImportErrors = append([]string{}, r.Errors...)
}

func (a Aggregator) stamp(s *ImportSession) {
	t := a.clock()
	s.CompletedAt = &t
}

func (a Aggregator) clock() time.Time {
	if a.now == nil {
		return time.Now().UTC()
	}
	return a.now()
}

func (a Aggregator) summary(s *ImportSession, r ExecutionResult) ExecutionSummary {
	limit := a.ErrorLimit
	if limit <= 0 {
		limit = DefaultErrorLimit
	}
	capped := func(list []string) []string {
		if len(list) > limit {
			list = list[:limit]
		}
		return append([]string{}, list...)
	}
	return ExecutionSummary{
		ImportID:       s.ID,
		DataType:       s.DataType(),
		Status:         s.Status,
		TotalRows:      s.TotalRows,
		ImportedCount:  r.SuccessCount,
		FailedCount:    r.ErrorCount,
		DuplicateCount: r.DuplicateCount,
		Errors:         capped(r.Errors),
		TotalErrors:    len(r.Errors),
		Warnings:       capped(r.Warnings),
		TotalWarnings:  len(r.Warnings),
		Message:        "",
	}
}
