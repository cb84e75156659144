package core

// retention.go runs the background job that removes finished sessions.
//
// Sessions keep every raw row of the uploaded file so they can be re-run or
// inspected. Once a session is completed or failed that data only matters
// for history, so sessions older than the retention window are purged.
// Individual purge failures are logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention scheduler.
// Zero values use the defaults below.
type RetentionConfig struct {
	MaxAge        time.Duration // Age after which finished sessions are purged (default: 30 days)
	CheckInterval time.Duration // How often to run (default: 1h)
}

const (
	DefaultSessionMaxAge    = 30 * 24 * time.Hour
	DefaultRetentionInterval = time.Hour
)

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultSessionMaxAge
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultRetentionInterval
	}
	return c
}

// StartRetentionScheduler purges old sessions immediately and then every
// CheckInterval until ctx is cancelled. It blocks; run it in a goroutine.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	s.logger.Info("retention scheduler started",
		"max_age", cfg.MaxAge,
		"interval", cfg.CheckInterval,
	)

	s.PurgeExpired(ctx, cfg.MaxAge)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.PurgeExpired(ctx, cfg.MaxAge)
		}
	}
}

// PurgeExpired runs one purge cycle and returns the number of sessions
// removed. Errors are logged, not returned.
func (s *Service) PurgeExpired(ctx context.Context, maxAge time.Duration) int {
	start := time.Now()
	cutoff := s.now().Add(-maxAge)

	purged, err := s.sessions.PurgeSessions(ctx, cutoff)
	if err != nil {
		s.logger.Error("session purge failed", "cutoff", cutoff, "error", err)
		return 0
	}

	level := slog.LevelDebug
	if purged > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "purged finished sessions",
		"sessions_purged", purged,
		"cutoff", cutoff,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
