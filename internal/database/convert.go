package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/finimport/internal/core"
)

func toUUID(s string) (pgtype.UUID, bool) {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}

// optionalUUID maps "" to NULL.
func optionalUUID(s string) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{}, nil
	}
	u, ok := toUUID(s)
	if !ok {
		return pgtype.UUID{}, fmt.Errorf("invalid id %q", s)
	}
	return u, nil
}

func requiredUUID(s string) (pgtype.UUID, error) {
	u, ok := toUUID(s)
	if !ok {
		return pgtype.UUID{}, fmt.Errorf("invalid id %q", s)
	}
	return u, nil
}

func fromUUID(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func toTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

func optionalTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return toTimestamptz(*t)
}

func fromTimestamptz(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func fromOptionalTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// marshalJSON encodes v for a NOT NULL jsonb column.
func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}

// marshalNullable encodes v, or returns nil (SQL NULL) when absent.
func marshalNullable(v any, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return marshalJSON(v)
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// sessionColumns holds the encoded jsonb columns of a session.
type sessionColumns struct {
	rawRows         []byte
	previewRows     []byte
	detectedColumns []byte
	classification  []byte
	mappings        []byte
	importErrors    []byte
}

func encodeSession(s *core.ImportSession) (sessionColumns, error) {
	var (
		c   sessionColumns
		err error
	)
	if c.rawRows, err = marshalJSON(nonNilRows(s.RawRows)); err != nil {
		return c, err
	}
	if c.previewRows, err = marshalJSON(nonNilRows(s.PreviewRows)); err != nil {
		return c, err
	}
	if c.detectedColumns, err = marshalJSON(nonNilStrings(s.DetectedColumns)); err != nil {
		return c, err
	}
	if c.classification, err = marshalNullable(s.Classification, s.Classification != nil); err != nil {
		return c, err
	}
	if c.mappings, err = marshalNullable(s.UserConfirmedMappings, len(s.UserConfirmedMappings) > 0); err != nil {
		return c, err
	}
	if c.importErrors, err = marshalJSON(nonNilStrings(s.ImportErrors)); err != nil {
		return c, err
	}
	return c, nil
}

func nonNilRows(rows []core.Row) []core.Row {
	if rows == nil {
		return []core.Row{}
	}
	return rows
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func createSessionParams(s *core.ImportSession) (CreateImportSessionParams, error) {
	id, err := requiredUUID(s.ID)
	if err != nil {
		return CreateImportSessionParams{}, err
	}
	cols, err := encodeSession(s)
	if err != nil {
		return CreateImportSessionParams{}, err
	}
	return CreateImportSessionParams{
		ID:                    id,
		OwnerID:               s.OwnerID,
		FileName:              s.FileName,
		FileSizeBytes:         s.FileSizeBytes,
		RawRows:               cols.rawRows,
		PreviewRows:           cols.previewRows,
		DetectedColumns:       cols.detectedColumns,
		Classification:        cols.classification,
		UserConfirmedMappings: cols.mappings,
		Status:                string(s.Status),
		TotalRows:             int32(s.TotalRows),
		ImportedRowCount:      int32(s.ImportedRowCount),
		FailedRowCount:        int32(s.FailedRowCount),
		DuplicateRowCount:     int32(s.DuplicateRowCount),
		ImportErrors:          cols.importErrors,
		FailureReason:         s.FailureReason,
		CreatedAt:             toTimestamptz(s.CreatedAt),
		UpdatedAt:             toTimestamptz(s.UpdatedAt),
		CompletedAt:           optionalTimestamptz(s.CompletedAt),
	}, nil
}

func updateSessionParams(s *core.ImportSession) (UpdateImportSessionParams, error) {
	id, err := requiredUUID(s.ID)
	if err != nil {
		return UpdateImportSessionParams{}, err
	}
	cols, err := encodeSession(s)
	if err != nil {
		return UpdateImportSessionParams{}, err
	}
	return UpdateImportSessionParams{
		ID:                    id,
		OwnerID:               s.OwnerID,
		Classification:        cols.classification,
		UserConfirmedMappings: cols.mappings,
		Status:                string(s.Status),
		ImportedRowCount:      int32(s.ImportedRowCount),
		FailedRowCount:        int32(s.FailedRowCount),
		DuplicateRowCount:     int32(s.DuplicateRowCount),
		ImportErrors:          cols.importErrors,
		FailureReason:         s.FailureReason,
		UpdatedAt:             toTimestamptz(s.UpdatedAt),
		CompletedAt:           optionalTimestamptz(s.CompletedAt),
	}, nil
}

// sessionFromRow decodes a full session row. ListImportSessionsRow is
// converted to ImportSession first with nil RawRows.
func sessionFromRow(r ImportSession) (*core.ImportSession, error) {
	s := &core.ImportSession{
		ID:                fromUUID(r.ID),
		OwnerID:           r.OwnerID,
		FileName:          r.FileName,
		FileSizeBytes:     r.FileSizeBytes,
		Status:            core.Status(r.Status),
		TotalRows:         int(r.TotalRows),
		ImportedRowCount:  int(r.ImportedRowCount),
		FailedRowCount:    int(r.FailedRowCount),
		DuplicateRowCount: int(r.DuplicateRowCount),
		FailureReason:     r.FailureReason,
		CreatedAt:         fromTimestamptz(r.CreatedAt),
		UpdatedAt:         fromTimestamptz(r.UpdatedAt),
		CompletedAt:       fromOptionalTimestamptz(r.CompletedAt),
	}

	decode := []struct {
		data []byte
		dst  any
	}{
		{r.RawRows, &s.RawRows},
		{r.PreviewRows, &s.PreviewRows},
		{r.DetectedColumns, &s.DetectedColumns},
		{r.UserConfirmedMappings, &s.UserConfirmedMappings},
		{r.ImportErrors, &s.ImportErrors},
	}
	for _, d := range decode {
		if err := unmarshalJSON(d.data, d.dst); err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
	}
	if len(r.Classification) > 0 {
		var c core.Classification
		if err := unmarshalJSON(r.Classification, &c); err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		s.Classification = &c
	}
	if s.ImportErrors == nil {
		s.ImportErrors = []string{}
	}
	return s, nil
}

func (r ListImportSessionsRow) session() ImportSession {
	return ImportSession{
		ID:                    r.ID,
		OwnerID:               r.OwnerID,
		FileName:              r.FileName,
		FileSizeBytes:         r.FileSizeBytes,
		PreviewRows:           r.PreviewRows,
		DetectedColumns:       r.DetectedColumns,
		Classification:        r.Classification,
		UserConfirmedMappings: r.UserConfirmedMappings,
		Status:                r.Status,
		TotalRows:             r.TotalRows,
		ImportedRowCount:      r.ImportedRowCount,
		FailedRowCount:        r.FailedRowCount,
		DuplicateRowCount:     r.DuplicateRowCount,
		ImportErrors:          r.ImportErrors,
		FailureReason:         r.FailureReason,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		CompletedAt:           r.CompletedAt,
	}
}

func accountFromRow(r Account) core.Account {
	return core.Account{
		ID:               fromUUID(r.ID),
		OwnerID:          r.OwnerID,
		Name:             r.Name,
		DisplayName:      r.DisplayName,
		Type:             core.AccountType(r.Type),
		Currency:         r.Currency,
		BalanceMinor:     r.BalanceMinor,
		CreditLimitMinor: r.CreditLimitMinor,
		CreatedAt:        fromTimestamptz(r.CreatedAt),
	}
}

func categoryFromRow(r Category) core.Category {
	return core.Category{
		ID:          fromUUID(r.ID),
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Type:        core.CategoryType(r.Type),
		CreatedAt:   fromTimestamptz(r.CreatedAt),
	}
}

func payeeFromRow(r Payee) core.Payee {
	return core.Payee{
		ID:          fromUUID(r.ID),
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		CreatedAt:   fromTimestamptz(r.CreatedAt),
	}
}

func transactionFromRow(r Transaction) core.Transaction {
	return core.Transaction{
		ID:          fromUUID(r.ID),
		OwnerID:     r.OwnerID,
		ImportID:    fromUUID(r.ImportID),
		AccountID:   fromUUID(r.AccountID),
		CategoryID:  fromUUID(r.CategoryID),
		PayeeID:     fromUUID(r.PayeeID),
		Date:        r.Date.Time,
		AmountMinor: r.AmountMinor,
		Kind:        core.TransactionKind(r.Kind),
		Notes:       r.Notes,
		CreatedAt:   fromTimestamptz(r.CreatedAt),
	}
}
