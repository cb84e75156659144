// Package logging configures log/slog for the service and derives
// request-scoped and import-scoped loggers.
//
// Request loggers carry the chi request id; import loggers add the import
// id and owner so every line of one pipeline run can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/finimport/internal/core"
)

// Setup installs the default logger writing to stdout and returns it.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger without touching the default.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger enriched with the chi request id
// and the owner id, when present.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if owner := core.OwnerIDFromContext(ctx); owner != "" {
		logger = logger.With("owner_id", owner)
	}

	return logger
}

// ForImport returns a request logger scoped to one import session.
//
//	log := logging.ForImport(r.Context(), importID)
//	log.Info("execution finished", "imported", summary.ImportedCount)
func ForImport(ctx context.Context, importID string) *slog.Logger {
	return FromContext(ctx).With("import_id", importID)
}

// Discard is a logger that drops everything. Used by tests and the CLI in
// quiet mode.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
