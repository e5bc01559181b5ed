package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	userID := uuid.New()
	channel := UserChannel(userID)

	clientA := hub.NewSSEClient(userID)
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventNotificationCreated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventProgramStatus, Data: map[string]any{"seq": 2}})

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventNotificationCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventNotificationCreated, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventProgramStatus {
		t.Fatalf("second event: want=%s got=%s", SSEEventProgramStatus, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}

	clientB := hub.NewSSEClient(userID)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSyncItemProcessed})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventSyncItemProcessed {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventSyncItemProcessed, got.Event)
	}
}

func TestSSEHubOtherChannelsAreIsolated(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	me := hub.NewSSEClient(uuid.New())
	other := hub.NewSSEClient(uuid.New())
	hub.AddChannel(me, UserChannel(me.UserID))
	hub.AddChannel(other, UserChannel(other.UserID))

	hub.Broadcast(SSEMessage{Channel: UserChannel(me.UserID), Event: SSEEventNotificationCreated})
	recvMessage(t, me.Outbound, time.Second)
	select {
	case msg := <-other.Outbound:
		t.Fatalf("unexpected delivery to another user: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, UserChannel(client.UserID))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	hub.Broadcast(SSEMessage{Channel: UserChannel(client.UserID), Event: SSEEventNotificationCreated, Data: map[string]any{"title": "x"}})
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: NotificationCreated") {
		t.Fatalf("expected event line in stream, got %q", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}
