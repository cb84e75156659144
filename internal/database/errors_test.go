package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/finimport/internal/core"
)

func TestTranslateError(t *testing.T) {
	t.Run("unique violation is a duplicate", func(t *testing.T) {
		err := translateError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}, "account", "HDFC Bank")

		var dup *core.DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, `account "HDFC Bank" already exists`, err.Error())
		assert.True(t, core.IsRowError(err))
	})

	t.Run("check and data errors are row scoped", func(t *testing.T) {
		for _, code := range []string{"23514", "23503", "22001", "22P02"} {
			err := translateError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: code, Message: "rejected"}), "category", "Food")

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr, code)
			assert.Equal(t, "rejected", verr.Message)
			assert.True(t, core.IsRowError(err))
		}
	})

	t.Run("other postgres errors pass through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"}
		err := translateError(pgErr, "payee", "Cafe")

		assert.Same(t, pgErr, err)
		assert.False(t, core.IsRowError(err))
	})

	t.Run("non postgres errors pass through", func(t *testing.T) {
		cause := errors.New("connection refused")
		assert.Equal(t, cause, translateError(cause, "payee", "Cafe"))
	})
}
