package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
)

type fakeReplayer struct {
	mu      sync.Mutex
	pending int
	calls   int
	stamps  []time.Time
	failOn  int
	panicOn int
}

func (f *fakeReplayer) ReplayNext(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.stamps = append(f.stamps, time.Now())
	if f.calls == f.panicOn {
		panic("boom")
	}
	if f.calls == f.failOn {
		return false, errors.New("db down")
	}
	if f.pending == 0 {
		return false, nil
	}
	f.pending--
	return true, nil
}

func (f *fakeReplayer) snapshot() (int, int, []time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.calls, append([]time.Time(nil), f.stamps...)
}

func TestWorkerDrainsWithDelay(t *testing.T) {
	f := &fakeReplayer{pending: 3, failOn: 2, panicOn: 3}
	w := NewWorker(testutil.Logger(t), f, 20*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		pending, _, _ := f.snapshot()
		return pending == 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	_, calls, stamps := f.snapshot()
	assert.GreaterOrEqual(t, calls, 5)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 15*time.Millisecond)
	}
}

func TestNewWorkerDefaults(t *testing.T) {
	w := NewWorker(testutil.Logger(t), &fakeReplayer{}, 0, 0)
	assert.Equal(t, 500*time.Millisecond, w.delay)
	assert.Equal(t, w.delay, w.idle)
}
