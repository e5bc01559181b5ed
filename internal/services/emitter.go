package services

import (
	"context"

	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// BusEmitter publishes on the bus; every instance's forwarder feeds its own hub.
type BusEmitter struct{ Bus bus.Bus }

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	_ = e.Bus.Publish(ctx, msg)
}
