package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_INTERVAL = time.Minute

type HealthChecker interface {
	Health(ctx context.Context) bool
}

// BackendHealth tracks the last health check of the posting backend.
type BackendHealth struct {
	checker  HealthChecker
	interval time.Duration
	healthy  atomic.Bool
}

func NewBackendHealth(checker HealthChecker, interval time.Duration) *BackendHealth {
	if interval <= 0 {
		interval = HEALTHCHECK_INTERVAL
	}
	return &BackendHealth{checker: checker, interval: interval}
}

func (b *BackendHealth) Healthy() bool {
	return b.healthy.Load()
}

func (b *BackendHealth) check(ctx context.Context) {
	isHealthy := b.checker.Health(ctx)
	if prev := b.healthy.Swap(isHealthy); prev != isHealthy || !isHealthy {
		if isHealthy {
			slog.Info("[HealthCheck] Backend is healthy")
		} else {
			slog.Warn("[HealthCheck] Backend is unhealthy")
		}
	}
}

// Monitor checks once immediately, then on every tick until ctx is done.
func (b *BackendHealth) Monitor(ctx context.Context) {
	b.check(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.check(ctx)
		}
	}
}
