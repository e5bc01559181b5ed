package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

func TestLocalBusForwardsToEveryListener(t *testing.T) {
	b := NewLocalBus()
	var a, c []realtime.SSEMessage
	require.NoError(t, b.StartForwarder(context.Background(), func(m realtime.SSEMessage) { a = append(a, m) }))
	require.NoError(t, b.StartForwarder(context.Background(), func(m realtime.SSEMessage) { c = append(c, m) }))

	msg := realtime.SSEMessage{Channel: "user:1", Event: realtime.SSEEventNotificationCreated}
	require.NoError(t, b.Publish(context.Background(), msg))
	assert.Equal(t, []realtime.SSEMessage{msg}, a)
	assert.Equal(t, []realtime.SSEMessage{msg}, c)

	require.NoError(t, b.Close())
	assert.Error(t, b.Publish(context.Background(), msg))
	assert.Error(t, b.StartForwarder(context.Background(), nil))
}
