package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventNotificationCreated SSEEvent = "NotificationCreated"
	SSEEventNotificationRead    SSEEvent = "NotificationRead"
	SSEEventProgramStatus       SSEEvent = "ProgramStatusChanged"
	SSEEventSyncItemProcessed   SSEEvent = "SyncItemProcessed"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user channel every stream is subscribed to.
func UserChannel(userID uuid.UUID) string { return "user:" + userID.String() }
