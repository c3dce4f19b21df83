package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger removes emergency tokens that expired before the cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// StartTokenPurger runs purger every interval until ctx is cancelled, removing
// records whose expiry is older than retention. A non-positive interval disables it.
func StartTokenPurger(ctx context.Context, purger Purger, interval, retention time.Duration, logger *zap.Logger) {
	if purger == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				purgeOnce(ctx, purger, now.Add(-retention), logger)
			}
		}
	}()
}

func purgeOnce(ctx context.Context, purger Purger, cutoff time.Time, logger *zap.Logger) {
	n, err := purger.Purge(ctx, cutoff)
	if err != nil {
		logger.Warn("emergency token purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("purged expired emergency tokens", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
}
