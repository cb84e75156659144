package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID               pgtype.UUID
	OwnerID          string
	Name             string
	DisplayName      string
	Type             string
	Currency         string
	BalanceMinor     int64
	CreditLimitMinor int64
	CreatedAt        pgtype.Timestamptz
}

type Category struct {
	ID          pgtype.UUID
	OwnerID     string
	Name        string
	DisplayName string
	Type        string
	CreatedAt   pgtype.Timestamptz
}

type ImportSession struct {
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

type Payee struct {
	ID          pgtype.UUID
	OwnerID     string
	Name        string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type Transaction struct {
	ID          pgtype.UUID
	OwnerID     string
	ImportID    pgtype.UUID
	AccountID   pgtype.UUID
	CategoryID  pgtype.UUID
	PayeeID     pgtype.UUID
	Date        pgtype.Date
	AmountMinor int64
	Kind        string
	Notes       string
	CreatedAt   pgtype.Timestamptz
}
