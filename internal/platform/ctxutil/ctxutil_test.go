package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

func TestRequestDataRoundTrip(t *testing.T) {
	assert.Nil(t, GetRequestData(context.Background()))

	id := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{
		UserID: id,
		Role:   "adp",
		Scope:  rbac.UserScope{Level: rbac.ScopeLocal, UserID: id},
	})
	rd := GetRequestData(ctx)
	require.NotNil(t, rd)
	assert.Equal(t, id, rd.UserID)
	assert.Equal(t, rbac.ScopeLocal, rd.Scope.Level)
}

func TestCorrelationAndLogFields(t *testing.T) {
	_, ok := GetCorrelation(context.Background())
	assert.False(t, ok)
	assert.Empty(t, LogFields(context.Background()))

	ctx := WithCorrelation(context.Background(), Correlation{TraceID: "t1", RequestID: "r1"})
	c, ok := GetCorrelation(ctx)
	require.True(t, ok)
	assert.Equal(t, "t1", c.TraceID)
	assert.Equal(t, []any{"trace_id", "t1", "request_id", "r1"}, LogFields(ctx))

	id := uuid.New()
	ctx = WithRequestData(ctx, &RequestData{UserID: id, Scope: rbac.UserScope{Level: rbac.ScopeProvincial}})
	assert.Equal(t, []any{
		"trace_id", "t1",
		"request_id", "r1",
		"user_id", id.String(),
		"scope_level", "PROVINCIAL",
	}, LogFields(ctx))
}

func TestDefault(t *testing.T) {
	assert.NotNil(t, Default(nil))
}
