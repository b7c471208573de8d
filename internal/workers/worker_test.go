package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorker_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())

	w := New("test", time.Hour, func(ctx context.Context) error {
		atomic.AddInt64(&calls, 1)
		cancel()
		return nil
	}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("воркер не остановился после отмены контекста")
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "первый тик до истечения интервала")
}

func TestWorker_TicksOnInterval(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New("test", 10*time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt64(&calls, 1) >= 3 {
			cancel()
		}
		return nil
	}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("воркер не дошел до третьего тика")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt64(&calls), int64(3))
}

func TestWorker_SurvivesPanicAndError(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New("test", 5*time.Millisecond, func(ctx context.Context) error {
		switch atomic.AddInt64(&calls, 1) {
		case 1:
			panic("сбой итерации")
		case 2:
			return errors.New("временная ошибка")
		default:
			cancel()
			return nil
		}
	}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("воркер не пережил панику")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt64(&calls), int64(3))
}
