package core

// scheduler.go runs background maintenance for the service.
//
// Currently this is the session janitor, which periodically drops upload
// sessions that have been idle longer than the configured TTL. The loop is
// context-aware for graceful shutdown and never fails the application.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionJanitor removes expired sessions every interval until ctx is
// cancelled. It sweeps once immediately on start.
func (s *Service) StartSessionJanitor(ctx context.Context, interval time.Duration) {
	slog.Info("session janitor started", "interval", interval.String())

	s.runSweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

// runSweep performs one expiry pass.
func (s *Service) runSweep() {
	start := time.Now()
	removed := s.sessions.Sweep()
	if removed > 0 {
		slog.Info("expired upload sessions removed",
			"removed", removed,
			"remaining", s.sessions.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
