package backend

import (
	"log/slog"
	"time"
)

// Default pool parameters applied by PoolOptions.withDefaults.
const (
	DefaultMaxConns       = 10
	DefaultIdleTimeout    = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultCloseDeadline  = 5 * time.Second
)

// PoolOptions govern creation and teardown of a backend's connection pool.
type PoolOptions struct {
	MaxConns       int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	CloseDeadline  time.Duration
}

// withDefaults fills zero-valued fields with the documented defaults.
func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = DefaultMaxConns
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.CloseDeadline <= 0 {
		o.CloseDeadline = DefaultCloseDeadline
	}
	return o
}

// closeWithDeadline races closeFn against the deadline. If the deadline
// fires first the caller gets nil back and the native shutdown keeps
// running in the background; its eventual failure is logged, not surfaced.
// Closing a pool is not on the interactive critical path, so a stalled
// close handshake must never block the caller.
func closeWithDeadline(logger *slog.Logger, engine EngineType, deadline time.Duration, closeFn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- closeFn()
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		logger.Warn("pool close exceeded deadline, continuing in background",
			slog.String("engine", string(engine)),
			slog.Duration("deadline", deadline))
		go func() {
			if err := <-done; err != nil {
				logger.Warn("background pool close failed",
					slog.String("engine", string(engine)),
					slog.String("error", err.Error()))
			}
		}()
		return nil
	}
}
