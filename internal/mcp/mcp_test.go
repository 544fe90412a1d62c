package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanwatch/spanwatch"
	"github.com/spanwatch/spanwatch/internal/settings"
	"github.com/spanwatch/spanwatch/internal/testutil"
)

func newTestServer(t *testing.T, opts ...spanwatch.Option) *Server {
	t.Helper()
	opts = append([]spanwatch.Option{spanwatch.WithLogger(testutil.TestLogger())}, opts...)
	analyzer, err := spanwatch.New(opts...)
	require.NoError(t, err)
	return New(analyzer, testutil.TestLogger(), "test")
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// toolText extracts the first text content block from a tool result.
func toolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

const issueEventJSON = `{
	"transaction": "GET /api/dashboard",
	"sdk_name": "sentry.python",
	"start_timestamp": "2025-03-01T12:00:00Z",
	"spans": [
		{
			"span_id": "aaaa000000000001",
			"op": "http.client",
			"description": "GET /api/0/organizations/endpoint1",
			"start_timestamp": "2025-03-01T12:00:00Z",
			"end_timestamp": "2025-03-01T12:00:02Z",
			"hash": "hash1"
		},
		{
			"span_id": "aaaa000000000002",
			"op": "http.client",
			"description": "GET /api/0/organizations/endpoint2",
			"start_timestamp": "2025-03-01T12:00:02Z",
			"end_timestamp": "2025-03-01T12:00:04Z",
			"hash": "hash2"
		},
		{
			"span_id": "aaaa000000000003",
			"op": "http.client",
			"description": "GET /api/0/organizations/endpoint3",
			"start_timestamp": "2025-03-01T12:00:04Z",
			"end_timestamp": "2025-03-01T12:00:06Z",
			"hash": "hash3"
		}
	]
}`

func TestHandleAnalyze(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAnalyze(context.Background(),
		callRequest("spanwatch_analyze", map[string]any{"event_json": issueEventJSON}))
	require.NoError(t, err)
	require.False(t, result.IsError, "tool error: %s", toolText(t, result))

	var resp struct {
		Transaction string              `json:"transaction"`
		SpanCount   int                 `json:"span_count"`
		Problems    []spanwatch.Problem `json:"problems"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))
	assert.Equal(t, "GET /api/dashboard", resp.Transaction)
	assert.Equal(t, 3, resp.SpanCount)
	require.Len(t, resp.Problems, 1)
	assert.Equal(t, spanwatch.TypeConsecutiveHTTPSpans, resp.Problems[0].Type)
	assert.Equal(t,
		[]string{"aaaa000000000001", "aaaa000000000002", "aaaa000000000003"},
		resp.Problems[0].OffenderSpanIDs)
}

func TestHandleAnalyze_MissingArgument(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAnalyze(context.Background(),
		callRequest("spanwatch_analyze", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "event_json is required")
}

func TestHandleAnalyze_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAnalyze(context.Background(),
		callRequest("spanwatch_analyze", map[string]any{"event_json": "{not json"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "invalid event")
}

func TestHandleAnalyze_CleanEvent(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAnalyze(context.Background(),
		callRequest("spanwatch_analyze", map[string]any{
			"event_json": `{"transaction": "GET /healthz", "spans": []}`,
		}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp struct {
		Problems []spanwatch.Problem `json:"problems"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))
	assert.Empty(t, resp.Problems)
}

func TestHandleDetectors(t *testing.T) {
	global := settings.StaticOptions{
		"performance.issues.slow_db_query.enabled": false,
	}
	s := newTestServer(t, spanwatch.WithGlobalOptions(global))

	result, err := s.handleDetectors(context.Background(),
		callRequest("spanwatch_detectors", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out []struct {
		Type      int    `json:"type"`
		Name      string `json:"name"`
		Enabled   bool   `json:"enabled"`
		SpanCount int    `json:"span_count"`
		MaxGapMs  int64  `json:"max_gap_ms"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &out))
	require.Len(t, out, 3)

	// Registration order follows the stable type-tag order.
	assert.Equal(t, 1001, out[0].Type)
	assert.Equal(t, "slow_db_query", out[0].Name)
	assert.False(t, out[0].Enabled, "global kill switch reflected")
	assert.Equal(t, 1007, out[1].Type)
	assert.Equal(t, 1009, out[2].Type)
	assert.Equal(t, "consecutive_http_spans", out[2].Name)
	assert.True(t, out[2].Enabled)
	assert.Equal(t, 3, out[2].SpanCount)
	assert.Equal(t, int64(1000), out[2].MaxGapMs)
}
