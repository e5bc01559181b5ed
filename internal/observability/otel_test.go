package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRatio(t *testing.T) {
	cases := map[string]float64{
		"":     defaultSampleRatio,
		"abc":  defaultSampleRatio,
		"0.25": 0.25,
		" 1 ":  1,
		"-3":   0,
		"4.5":  1,
		"0":    0,
	}
	for raw, want := range cases {
		assert.Equal(t, want, parseRatio(raw), "raw=%q", raw)
	}
}

func TestParseHeaders(t *testing.T) {
	assert.Nil(t, parseHeaders(nil))
	assert.Nil(t, parseHeaders([]string{"novalue", "=x", "k="}))
	assert.Equal(t,
		map[string]string{"authorization": "Bearer abc", "x-tenant": "anef"},
		parseHeaders([]string{"authorization=Bearer abc", " x-tenant = anef ", "junk"}),
	)
}

func TestSpansAreSafeWithoutProvider(t *testing.T) {
	_, span := StartSpan(context.Background(), "test.noop")
	EndSpan(span, errors.New("boom"))
	assert.False(t, span.SpanContext().IsSampled())
}
