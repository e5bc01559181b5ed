package bus

import (
	"context"

	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

// Bus carries notification events between API instances. Every instance,
// including the publisher, hands what it receives to its own SSE hub, so a
// user connected anywhere sees events emitted anywhere.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
