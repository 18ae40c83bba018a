package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Watch calls run once immediately and then on every tick of interval until
// ctx is cancelled. Each call is independent: a failed run is logged and the
// next tick still fires. Ticks that fall while a run is in progress are
// skipped. Watch returns nil once ctx is done.
func Watch(ctx context.Context, interval time.Duration, logger *slog.Logger, run func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	logger = logger.With("component", "watch")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := 0
	for ctx.Err() == nil {
		tick++
		logger.Info("running scheduled scrape", "tick", tick)
		if err := run(ctx); err != nil {
			logger.Error("scheduled scrape failed", "tick", tick, "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "ticks", tick)
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
