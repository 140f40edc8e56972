package store

import (
	"context"
	"fmt"
	"time"

	"visionkit/internal/platform/logger"
	"visionkit/internal/platform/store/lite"
	"visionkit/internal/platform/store/pg"
)

func openPG(ctx context.Context, appName string, cfg PGConfig, log logger.Logger) (*pgAdapter, error) {
	pool, err := pg.Open(ctx, pg.Config{URL: cfg.URL, MaxConns: cfg.MaxConns, AppName: appName})
	if err != nil {
		return nil, err
	}
	// the adapter is only published once the pool answers
	if err := waitReady(ctx, pool.Ping, cfg.ConnectRetries, cfg.PingTimeout); err != nil {
		pool.Close()
		return nil, err
	}
	return newPGAdapter(pool, newTrace(log, "pg", cfg.LogSQL, cfg.SlowQueryMs)), nil
}

func openLite(ctx context.Context, cfg LiteConfig, log logger.Logger) (*liteAdapter, error) {
	db, err := lite.Open(ctx, lite.Config{Path: cfg.Path, BusyTimeout: cfg.BusyTimeout})
	if err != nil {
		return nil, err
	}
	return newLiteAdapter(db, newTrace(log, "lite", cfg.LogSQL, cfg.SlowQueryMs)), nil
}

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// waitReady pings with exponential backoff until one succeeds, attempts run
// out or ctx ends
func waitReady(ctx context.Context, ping func(context.Context) error, attempts int, timeout time.Duration) error {
	if attempts <= 0 {
		attempts = 6
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var last error
	backoff := backoffStart
	for i := range attempts {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		last = ping(pctx)
		cancel()
		if last == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}
	return fmt.Errorf("not ready after %d attempts: %w", attempts, last)
}
