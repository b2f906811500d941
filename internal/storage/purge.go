package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger is implemented by backends that need expired cards cleaned up
// explicitly. Redis expires keys on its own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunPurger calls PurgeExpired every interval until ctx is done. Failures are
// logged and retried on the next tick.
func RunPurger(ctx context.Context, p Purger, interval time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("Failed to purge expired cards", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("Purged expired cards", zap.Int64("count", n))
			}
		}
	}
}
