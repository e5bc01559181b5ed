package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

// localBus delivers in-process, for single-instance deployments and tests.
type localBus struct {
	mu        sync.RWMutex
	listeners []func(realtime.SSEMessage)
	closed    bool
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	for _, fn := range b.listeners {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, onMsg)
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.listeners = nil
	return nil
}

// Pinger is implemented by buses backed by a remote broker.
type Pinger interface {
	Ping(ctx context.Context) error
}
