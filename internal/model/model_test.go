package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(250 * time.Millisecond)
)

func TestSpanValid(t *testing.T) {
	valid := Span{SpanID: "a", Op: "db", Start: t0, End: t1}
	assert.True(t, valid.Valid())

	// Zero-duration spans are valid; only inverted timestamps are not.
	instant := valid
	instant.End = instant.Start
	assert.True(t, instant.Valid())

	for name, mutate := range map[string]func(*Span){
		"missing span id":  func(s *Span) { s.SpanID = "" },
		"missing op":       func(s *Span) { s.Op = "" },
		"zero start":       func(s *Span) { s.Start = time.Time{} },
		"zero end":         func(s *Span) { s.End = time.Time{} },
		"end before start": func(s *Span) { s.Start, s.End = s.End, s.Start },
	} {
		s := valid
		mutate(&s)
		assert.False(t, s.Valid(), name)
	}
}

func TestSpanDuration(t *testing.T) {
	s := Span{Start: t0, End: t1}
	assert.Equal(t, 250*time.Millisecond, s.Duration())
}

func TestOriginFromSDK(t *testing.T) {
	assert.Equal(t, OriginBrowser, OriginFromSDK("sentry.javascript.browser"))
	assert.Equal(t, OriginBrowser, OriginFromSDK("sentry.javascript.react"))
	assert.Equal(t, OriginBackend, OriginFromSDK("sentry.python"))
	// Allowlist, not substring: unknown javascript SDKs are not browser.
	assert.Equal(t, OriginBackend, OriginFromSDK("sentry.javascript.node"))
	assert.Equal(t, OriginUnknown, OriginFromSDK(""))
}

func TestEventLCP(t *testing.T) {
	ev := Event{}
	_, ok := ev.LCP()
	assert.False(t, ok)

	ev.Measurements = map[string]Measurement{
		MeasurementLCP: {Value: 2500, Unit: "millisecond"},
	}
	lcp, ok := ev.LCP()
	require.True(t, ok)
	assert.Equal(t, 2500*time.Millisecond, lcp)

	// Negative measurements are treated as absent.
	ev.Measurements[MeasurementLCP] = Measurement{Value: -1}
	_, ok = ev.LCP()
	assert.False(t, ok)
}

func TestDecodeEvent(t *testing.T) {
	data := []byte(`{
		"id": "6f38ef3f-4a71-4a07-9a9c-4b2a60d8f1aa",
		"transaction": "GET /app",
		"sdk_name": "sentry.javascript.browser",
		"start_timestamp": "2025-03-01T12:00:00Z",
		"measurements": {"lcp": {"value": 1200, "unit": "millisecond"}},
		"spans": [
			{
				"span_id": "aaaa000000000001",
				"op": "http.client",
				"description": "GET /api/a",
				"start_timestamp": "2025-03-01T12:00:00Z",
				"end_timestamp": "2025-03-01T12:00:01Z",
				"hash": "hash1"
			}
		]
	}`)

	ev, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "GET /app", ev.Transaction)
	assert.Equal(t, OriginBrowser, ev.Origin, "origin derived from sdk name")
	require.Len(t, ev.Spans, 1)
	assert.Equal(t, time.Second, ev.Spans[0].Duration())
	lcp, ok := ev.LCP()
	require.True(t, ok)
	assert.Equal(t, 1200*time.Millisecond, lcp)
}

func TestDecodeEvent_StartFallsBackToFirstSpan(t *testing.T) {
	data := []byte(`{
		"transaction": "/api/orders",
		"spans": [
			{
				"span_id": "dddd000000000001",
				"op": "db",
				"description": "SELECT 1",
				"start_timestamp": "2025-03-01T12:00:05Z",
				"end_timestamp": "2025-03-01T12:00:06Z",
				"hash": "qhash1"
			}
		]
	}`)

	ev, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev.Spans[0].Start, ev.Start)
	assert.Equal(t, OriginUnknown, ev.Origin)
}

func TestDecodeEvent_InvalidJSON(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"transaction":`))
	require.Error(t, err)
}

func TestProblemTypes(t *testing.T) {
	assert.Equal(t, "slow_db_query", TypeSlowDBQuery.String())
	assert.Equal(t, "consecutive_db_queries", TypeConsecutiveDBQueries.String())
	assert.Equal(t, "consecutive_http_spans", TypeConsecutiveHTTPSpans.String())
	assert.Equal(t, "unknown", ProblemType(0).String())

	for _, typ := range AllProblemTypes {
		assert.True(t, typ.Valid())
	}
	assert.False(t, ProblemType(0).Valid())
	assert.False(t, ProblemType(1002).Valid())
}
