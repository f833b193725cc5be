package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickerService runs a function periodically until stopped. Errors returned
// by the function are logged and do not stop the service.
type TickerService struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewTickerService creates a TickerService calling fn every interval. An
// interval of 0 never calls fn; Start then simply blocks until Stop.
//
// Precondition: interval >= 0; fn and logger must be non-nil.
func NewTickerService(name string, interval time.Duration, fn func(ctx context.Context) error, logger *zap.Logger) *TickerService {
	return &TickerService{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks, calling fn on every tick, until Stop is called.
func (t *TickerService) Start() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.mu.Unlock()
	defer close(t.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-t.stop
		cancel()
	}()

	if t.interval == 0 {
		<-t.stop
		return nil
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return nil
		case <-ticker.C:
			start := time.Now()
			if err := t.fn(ctx); err != nil {
				t.logger.Warn("tick failed",
					zap.String("ticker", t.name),
					zap.Error(err),
				)
				continue
			}
			t.logger.Debug("tick complete",
				zap.String("ticker", t.name),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	}
}

// Stop ends the loop, cancelling the context of an in-flight call, and waits
// for Start to return. Calling Stop more than once is safe.
func (t *TickerService) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	running := t.running
	close(t.stop)
	t.mu.Unlock()

	if running {
		<-t.done
	}
}
