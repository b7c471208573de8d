package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker периодически вызывает fn до отмены контекста. Паника внутри
// одного тика перехватывается: фоновый процесс переживает любой сбой
// одной итерации.
type Worker struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   *zap.Logger
}

func New(name string, interval time.Duration, fn func(ctx context.Context) error, logger *zap.Logger) *Worker {
	return &Worker{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger,
	}
}

// Run блокируется до отмены контекста. Первый тик выполняется сразу,
// не дожидаясь интервала.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("фоновый процесс запущен",
		zap.String("worker", w.name),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("фоновый процесс остановлен", zap.String("worker", w.name))
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("паника в фоновом процессе",
				zap.String("worker", w.name),
				zap.Any("panic", r))
		}
	}()

	if err := w.fn(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("ошибка итерации фонового процесса",
			zap.String("worker", w.name),
			zap.Error(err))
	}
}
