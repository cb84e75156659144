package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/finimport/internal/core"
)

// PostgreSQL SQLSTATE codes and classes the store distinguishes.
const (
	uniqueViolation    = "23505"
	dataExceptionClass = "22"
	integrityClass     = "23"
)

// translateError converts constraint failures into the row-scoped core
// errors. Anything else is returned unchanged and treated as systemic by
// the executor.
func translateError(err error, kind, name string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == uniqueViolation:
		return &core.DuplicateError{Kind: kind, Name: name}
	case strings.HasPrefix(pgErr.Code, dataExceptionClass), strings.HasPrefix(pgErr.Code, integrityClass):
		return &core.ValidationError{Value: name, Message: pgErr.Message}
	}
	return err
}
