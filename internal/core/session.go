package core

import (
	"time"

	"github.com/google/uuid"
)

// PreviewRowLimit is the number of rows kept in ImportSession.PreviewRows.
const PreviewRowLimit = 10

// transitions lists the statuses reachable from each status. Self-loops on
// analyzing and ready allow re-analysis and re-confirmation.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAnalyzing, StatusFailed},
	StatusAnalyzing: {StatusAnalyzing, StatusReady, StatusFailed},
	StatusReady:     {StatusReady, StatusImporting, StatusFailed},
	StatusImporting: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusReady, StatusImporting, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// NewImportSession builds a pending session for freshly parsed rows.
func NewImportSession(ownerID, fileName string, size int64, headers []string, rows []Row, now time.Time) *ImportSession {
	preview := rows
	if len(preview) > PreviewRowLimit {
		preview = preview[:PreviewRowLimit]
	}

	return &ImportSession{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		FileName:        fileName,
		FileSizeBytes:   size,
		RawRows:         rows,
		PreviewRows:     append([]Row(nil), preview...),
		DetectedColumns: append([]string(nil), headers...),
		Status:          StatusPending,
		TotalRows:       len(rows),
		ImportErrors:    []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// advance moves the session to next or returns InvalidStateError for op.
func (s *ImportSession) advance(op string, next Status, now time.Time) error {
	if !CanTransition(s.Status, next) {
		return &InvalidStateError{Op: op, Status: s.Status}
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}

// Clone returns a deep copy, used by stores that must not share state with
// callers.
func (s *ImportSession) Clone() *ImportSession {
	if s == nil {
		return nil
	}
	out := *s
	out.RawRows = cloneRows(s.RawRows)
	out.PreviewRows = cloneRows(s.PreviewRows)
	out.DetectedColumns = append([]string(nil), s.DetectedColumns...)
	out.UserConfirmedMappings = s.UserConfirmedMappings.Clone()
	out.ImportErrors = append([]string(nil), s.ImportErrors...)
	if s.Classification != nil {
		c := *s.Classification
		c.ColumnMappings = s.Classification.ColumnMappings.Clone()
		c.Suggestions = append([]string(nil), s.Classification.Suggestions...)
		c.Warnings = append([]string(nil), s.Classification.Warnings...)
		out.Classification = &c
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
