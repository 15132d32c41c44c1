package sync

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs Runner every Interval until the context ends. A zero interval disables it.
type Scheduler struct {
	Runner   Runner
	Interval time.Duration
	Logger   *slog.Logger
	// SkipInitial waits one interval before the first run.
	SkipInitial bool
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Runner == nil || s.Interval <= 0 {
		return
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !s.SkipInitial {
		if err := s.Runner.RunOnce(ctx); err != nil {
			logger.Error("initial refresh failed", "err", err)
		}
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Runner.RunOnce(ctx); err != nil {
				logger.Error("scheduled refresh failed", "err", err)
			}
		}
	}
}
