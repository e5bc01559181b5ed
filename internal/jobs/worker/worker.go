package worker

import (
	"context"
	"time"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

// Replayer is the slice of SyncService the worker drives.
type Replayer interface {
	ReplayNext(ctx context.Context) (bool, error)
}

// Worker drains the offline sync queue one item at a time, oldest first,
// pausing between items.
type Worker struct {
	log      *logger.Logger
	replayer Replayer
	delay    time.Duration
	idle     time.Duration
}

func NewWorker(baseLog *logger.Logger, replayer Replayer, delay, idle time.Duration) *Worker {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	if idle < delay {
		idle = delay
	}
	return &Worker{
		log:      baseLog.With("component", "SyncWorker"),
		replayer: replayer,
		delay:    delay,
		idle:     idle,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting sync worker", "delay", w.delay.String(), "idle", w.idle.String())
	for {
		wait := w.delay
		processed, err := w.step(ctx)
		if err != nil {
			w.log.Warn("Sync replay step failed", "error", err)
		}
		if !processed {
			wait = w.idle
		}
		select {
		case <-ctx.Done():
			w.log.Info("Sync worker stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

func (w *Worker) step(ctx context.Context) (processed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Sync replay panic", "panic", r)
			processed, err = true, &panicError{Val: r}
		}
	}()
	return w.replayer.ReplayNext(ctx)
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return "panic: unexpected error" }
