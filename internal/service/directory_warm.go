package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

const defaultWarmInterval = 10 * time.Minute

// ProvinceSource is the cached region directory that gets warmed
type ProvinceSource interface {
	Provinces(ctx context.Context) ([]domain.Region, error)
}

var housekeepingMu sync.Mutex

// RunHousekeepingOnce refreshes the province cache if it expired and evicts
// idle sessions. Failures are only logged.
func RunHousekeepingOnce(ctx context.Context, directory ProvinceSource, sessions *Sessions, maxIdle time.Duration, logger *zap.Logger) {
	if directory != nil {
		provinces, err := directory.Provinces(ctx)
		if err != nil {
			logger.Warn("Directory warm: failed to fetch provinces", zap.Error(err))
		} else {
			logger.Debug("Directory warm: provinces cached", zap.Int("provinces", len(provinces)))
		}
	}
	if sessions != nil && maxIdle > 0 {
		sessions.EvictIdle(maxIdle)
	}
}

// RunHousekeepingLoop runs housekeeping once, then every interval. Call from a goroutine.
func RunHousekeepingLoop(ctx context.Context, interval time.Duration, directory ProvinceSource, sessions *Sessions, maxIdle time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultWarmInterval
	}

	housekeepingMu.Lock()
	RunHousekeepingOnce(ctx, directory, sessions, maxIdle, logger)
	housekeepingMu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			housekeepingMu.Lock()
			RunHousekeepingOnce(ctx, directory, sessions, maxIdle, logger)
			housekeepingMu.Unlock()
		}
	}
}
