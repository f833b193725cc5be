package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTickerServiceTicksUntilStopped(t *testing.T) {
	var calls atomic.Int32
	svc := NewTickerService("count", 5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	svc.Stop()
	require.NoError(t, <-done)

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no ticks after Stop returns")
}

func TestTickerServiceSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	svc := NewTickerService("flaky", 5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errors.New("transient")
	}, zaptest.NewLogger(t))

	go func() { _ = svc.Start() }()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	svc.Stop()
}

func TestTickerServiceStopCancelsInFlightCall(t *testing.T) {
	entered := make(chan struct{}, 1)
	var cancelled atomic.Bool
	svc := NewTickerService("slow", time.Millisecond, func(ctx context.Context) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, zaptest.NewLogger(t))

	go func() { _ = svc.Start() }()
	<-entered
	svc.Stop()
	assert.True(t, cancelled.Load())
}

func TestTickerServiceZeroIntervalNeverTicks(t *testing.T) {
	var calls atomic.Int32
	svc := NewTickerService("off", 0, func(context.Context) error {
		calls.Add(1)
		return nil
	}, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	time.Sleep(20 * time.Millisecond)
	svc.Stop()
	svc.Stop()
	require.NoError(t, <-done)
	assert.Zero(t, calls.Load())
}

func TestTickerServiceStopBeforeStart(t *testing.T) {
	svc := NewTickerService("never", time.Millisecond, func(context.Context) error { return nil }, zaptest.NewLogger(t))
	svc.Stop()
	assert.NoError(t, svc.Start())
}
