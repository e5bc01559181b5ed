package realtime

import (
	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

// SSEClient is one open notification stream. The hub owns channels; callers
// read Outbound only through ServeHTTP or tests.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan SSEMessage

	channels map[string]bool
	done     chan struct{}
	log      *logger.Logger
}

func newSSEClient(userID uuid.UUID, log *logger.Logger) *SSEClient {
	id := uuid.New()
	return &SSEClient{
		ID:       id,
		UserID:   userID,
		Outbound: make(chan SSEMessage, outboundBuffer),
		channels: make(map[string]bool),
		done:     make(chan struct{}),
		log:      log.With("client_id", id, "user_id", userID),
	}
}
