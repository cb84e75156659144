package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/finimport/internal/core"
)

func TestSessionColumns(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	completed := created.Add(time.Minute)

	session := core.NewImportSession("owner", "bank.csv", 42,
		[]string{"Date", "Amount"},
		[]core.Row{{"Date": "2024-01-01", "Amount": "5"}},
		created)
	session.Classification = &core.Classification{
		DataType:       core.DataTransactions,
		ColumnMappings: core.ColumnMapping{"Date": core.FieldDate},
		Confidence:     83,
		Suggestions:    []string{},
		Warnings:       []string{},
		Source:         core.SourceOracle,
	}
	session.Status = core.StatusCompleted
	session.ImportedRowCount = 1
	session.ImportErrors = []string{"Row 1: invalid number"}
	session.CompletedAt = &completed

	params, err := createSessionParams(session)
	require.NoError(t, err)
	assert.Nil(t, params.UserConfirmedMappings, "absent mapping is stored as NULL")
	assert.JSONEq(t, `["Date","Amount"]`, string(params.DetectedColumns))

	got, err := sessionFromRow(ImportSession{
		ID:                    params.ID,
		OwnerID:               params.OwnerID,
		FileName:              params.FileName,
		FileSizeBytes:         params.FileSizeBytes,
		RawRows:               params.RawRows,
		PreviewRows:           params.PreviewRows,
		DetectedColumns:       params.DetectedColumns,
		Classification:        params.Classification,
		UserConfirmedMappings: params.UserConfirmedMappings,
		Status:                params.Status,
		TotalRows:             params.TotalRows,
		ImportedRowCount:      params.ImportedRowCount,
		FailedRowCount:        params.FailedRowCount,
		DuplicateRowCount:     params.DuplicateRowCount,
		FailureReason:         params.FailureReason,
		ImportErrors:          params.ImportErrors,
		CreatedAt:             params.CreatedAt,
		UpdatedAt:             params.UpdatedAt,
		CompletedAt:           params.CompletedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestSessionParams_RejectsNonUUID(t *testing.T) {
	_, err := createSessionParams(&core.ImportSession{ID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestTransactionParams(t *testing.T) {
	accountID := uuid.NewString()
	tx := core.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     "owner",
		AccountID:   accountID,
		PayeeID:     uuid.NewString(),
		Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		AmountMinor: 4250,
		Kind:        core.KindWithdrawal,
	}

	params, err := transactionParams(tx)
	require.NoError(t, err)
	assert.False(t, params.CategoryID.Valid, "uncategorized maps to NULL")
	assert.False(t, params.ImportID.Valid)
	assert.Equal(t, accountID, fromUUID(params.AccountID))
	assert.True(t, params.Date.Valid)

	tx.AccountID = "cash"
	_, err = transactionParams(tx)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}
