// source: import_sessions.sql

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countImportSessions = `-- name: CountImportSessions :one
SELECT count(*) FROM import_sessions
WHERE owner_id = $1 AND ($2::text = '' OR status = $2::text)
`

type CountImportSessionsParams struct {
	OwnerID string
	Status  string
}

func (q *Queries) CountImportSessions(ctx context.Context, arg CountImportSessionsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countImportSessions, arg.OwnerID, arg.Status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createImportSession = `-- name: CreateImportSession :exec
INSERT INTO import_sessions (
    id, owner_id, file_name, file_size_bytes, raw_rows, preview_rows,
    detected_columns, classification, user_confirmed_mappings, status,
    total_rows, imported_row_count, failed_row_count, duplicate_row_count,
    import_errors, failure_reason, created_at, updated_at, completed_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
)
`

type CreateImportSessionParams struct {
	ID                    pgtype.UUID
	OwnerID               string
	FileName              string
	FileSizeBytes         int64
	RawRows               []byte
	PreviewRows           []byte
	DetectedColumns       []byte
	Classification        []byte
	UserConfirmedMappings []byte
	Status                string
	TotalRows             int32
	ImportedRowCount      int32
	FailedRowCount        int32
	DuplicateRowCount     int32
	ImportErrors          []byte
	FailureReason         string
	CreatedAt             pgtype.Timestamptz
	UpdatedAt             pgtype.Timestamptz
	CompletedAt           pgtype.Timestamptz
}

func (q *Queries) CreateImportSession(ctx context.Context, arg CreateImportSessionParams) error {
	_, err := q.db.Exec(ctx, createImportSession,
		arg.ID,
		arg.OwnerID,
		arg.FileName,
		arg.FileSizeBytes,
		arg.RawRows,
		arg.PreviewRows,
		arg.DetectedColumns,
		arg.Classification,
		arg.UserConfirmedMappings,
		arg.Status,
		arg.TotalRows,
		arg.ImportedRowCount,
		arg.FailedRowCount,
		arg.DuplicateRowCount,
		arg.ImportErrors,
		arg.FailureReason,
		arg.CreatedAt,
		arg.UpdatedAt,
		arg.CompletedAt,
	)
	return err
}

const deleteImportSession = `-- name: DeleteImportSession :execrows
DELETE FROM import_sessions WHERE id = $1 AND owner_id = $2
`

type DeleteImportSessionParams struct {
	ID      pgtype.UUID
	OwnerID string
}

func (q *Queries) DeleteImportSession(ctx context.Context, arg DeleteImportSessionParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteImportSession, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getImportSession = `-- name: GetImportSession :one
SELECT id, owner_id, file_name, file_size_bytes, raw_rows, preview_rows,
       detected_columns, classification, user_confirmed_mappings, status,
       total_rows, imported_row_count, failed_row_count, duplicate_row_count,
       import_errors, failure_reason, created_at, updated_at, completed_at
FROM import_sessions
WHERE id = $1 AND owner_id = $2
`

type GetImportSessionParams struct {
	ID      pgtype.UUID
	OwnerID string
}

func (q *Queries) GetImportSession(ctx context.Context, arg GetImportSessionParams) (ImportSession, error) {
	row := q.db.QueryRow(ctx, getImportSession, arg.ID, arg.OwnerID)
	var i ImportSession
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.FileName,
		&i.FileSizeBytes,
		&i.RawRows,
		&i.PreviewRows,
		&i.DetectedColumns,
		&i.Classification,
		&i.UserConfirmedMappings,
		&i.Status,
		&i.TotalRows,
		&i.ImportedRowCount,
		&i.FailedRowCount,
		&i.DuplicateRowCount,
		&i.ImportErrors,
		&i.FailureReason,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CompletedAt,
	)
	return i, err
}

const listImportSessions = `-- name: ListImportSessions :many
SELECT id, owner_id, file_name, file_size_bytes, preview_rows,
       detected_columns, classification, user_confirmed_mappings, status,
       total_rows, imported_row_count, failed_row_count, duplicate_row_count,
       import_errors, failure_reason, created_at, updated_at, completed_at
FROM import_sessions
WHERE owner_id = $1 AND ($2::text = '' OR status = $2::text)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`

type ListImportSessionsParams struct {
	OwnerID string
	Status  string
	Limit   int32
	Offset  int32
}

type ListImportSessionsRow struct {
	ID                    pgtype.UUID
	OwnerID               string
	FileName              string
	FileSizeBytes         int64
	PreviewRows           []byte
	DetectedColumns       []byte
	Classification        []byte
	UserConfirmedMappings []byte
	Status                string
	TotalRows             int32
	ImportedRowCount      int32
	FailedRowCount        int32
	DuplicateRowCount     int32
	ImportErrors          []byte
	FailureReason         string
	CreatedAt             pgtype.Timestamptz
	UpdatedAt             pgtype.Timestamptz
	CompletedAt           pgtype.Timestamptz
}

// ListImportSessions omits raw_rows; history pages never show them.
func (q *Queries) ListImportSessions(ctx context.Context, arg ListImportSessionsParams) ([]ListImportSessionsRow, error) {
	rows, err := q.db.Query(ctx, listImportSessions,
		arg.OwnerID,
		arg.Status,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListImportSessionsRow
	for rows.Next() {
		var i ListImportSessionsRow
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.FileName,
			&i.FileSizeBytes,
			&i.PreviewRows,
			&i.DetectedColumns,
			&i.Classification,
			&i.UserConfirmedMappings,
			&i.Status,
			&i.TotalRows,
			&i.ImportedRowCount,
			&i.FailedRowCount,
			&i.DuplicateRowCount,
			&i.ImportErrors,
			&i.FailureReason,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CompletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const purgeImportSessions = `-- name: PurgeImportSessions :execrows
DELETE FROM import_sessions
WHERE status IN ('completed', 'failed') AND updated_at < $1
`

func (q *Queries) PurgeImportSessions(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, purgeImportSessions, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const transitionImportStatus = `-- name: TransitionImportStatus :execrows
UPDATE import_sessions
SET status = $4, updated_at = $5
WHERE id = $1 AND owner_id = $2 AND status = $3
`

type TransitionImportStatusParams struct {
	ID        pgtype.UUID
	OwnerID   string
	Status    string
	Status_2  string
	UpdatedAt pgtype.Timestamptz
}

func (q *Queries) TransitionImportStatus(ctx context.Context, arg TransitionImportStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, transitionImportStatus,
		arg.ID,
		arg.OwnerID,
		arg.Status,
		arg.Status_2,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateImportSession = `-- name: UpdateImportSession :execrows
UPDATE import_sessions SET
    classification = $3,
    user_confirmed_mappings = $4,
    status = $5,
    imported_row_count = $6,
    failed_row_count = $7,
    duplicate_row_count = $8,
    import_errors = $9,
    failure_reason = $10,
    updated_at = $11,
    completed_at = $12
WHERE id = $1 AND owner_id = $2
`

type UpdateImportSessionParams struct {
	ID                    pgtype.UUID
	OwnerID               string
	Classification        []byte
	UserConfirmedMappings []byte
	Status                string
	ImportedRowCount      int32
	FailedRowCount        int32
	DuplicateRowCount     int32
	ImportErrors          []byte
	FailureReason         string
	UpdatedAt             pgtype.Timestamptz
	CompletedAt           pgtype.Timestamptz
}

func (q *Queries) UpdateImportSession(ctx context.Context, arg UpdateImportSessionParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateImportSession,
		arg.ID,
		arg.OwnerID,
		arg.Classification,
		arg.UserConfirmedMappings,
		arg.Status,
		arg.ImportedRowCount,
		arg.FailedRowCount,
		arg.DuplicateRowCount,
		arg.ImportErrors,
		arg.FailureReason,
		arg.UpdatedAt,
		arg.CompletedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
