// Package mcp implements the Model Context Protocol server for spanwatch.
//
// It exposes the analyzer to MCP-compatible AI tooling: paste a trace event
// as JSON, get the detected performance problems back. The server is
// transport-agnostic; the CLI serves it on stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
)

// Analyzer is the detection surface the tools call. The root package's
// Analyzer satisfies it; the indirection keeps the import graph's no-cycle
// rule (internal/* never imports the root package).
type Analyzer interface {
	Analyze(ctx context.Context, event *model.Event) ([]model.Problem, error)
	ResolvedSettings(ctx context.Context) (map[model.ProblemType]settings.Detection, error)
}

// Server wraps the MCP server around one Analyzer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	analyzer  Analyzer
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all tools registered.
func New(analyzer Analyzer, logger *slog.Logger, version string) *Server {
	s := &Server{
		analyzer: analyzer,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"spanwatch",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// spanwatch_analyze — run detection over one trace event.
	s.mcpServer.AddTool(
		mcplib.NewTool("spanwatch_analyze",
			mcplib.WithDescription(`Scan a trace event's spans for performance anti-patterns.

Detects consecutive sequential HTTP calls that should be parallelized or
batched, consecutive DB queries, and individual slow queries. Returns a list
of problem records, each with a stable content-derived fingerprint and the
offending span ids.

INPUT: the full event as JSON — transaction name, sdk_name, start_timestamp,
measurements (e.g. lcp), and the ordered spans array. Each span needs
span_id, op, description, start_timestamp, end_timestamp, and hash.

An empty problems list is a normal result, not an error.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("event_json",
				mcplib.Description("The trace event as a JSON object"),
				mcplib.Required(),
			),
		),
		s.handleAnalyze,
	)

	// spanwatch_detectors — list detector types and active thresholds.
	s.mcpServer.AddTool(
		mcplib.NewTool("spanwatch_detectors",
			mcplib.WithDescription(`List the registered detectors with their resolved threshold settings
(after global and project overrides): minimum span counts, duration floors,
maximum gaps, LCP ratio, and enabled state.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleDetectors,
	)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	eventJSON := request.GetString("event_json", "")
	if eventJSON == "" {
		return errorResult("event_json is required"), nil
	}

	event, err := model.DecodeEvent([]byte(eventJSON))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid event: %v", err)), nil
	}

	problems, err := s.analyzer.Analyze(ctx, event)
	if err != nil {
		return errorResult(fmt.Sprintf("analyze failed: %v", err)), nil
	}

	s.logger.Debug("mcp: analyzed event",
		"transaction", event.Transaction, "spans", len(event.Spans), "problems", len(problems))

	resp := struct {
		Transaction string          `json:"transaction"`
		SpanCount   int             `json:"span_count"`
		Problems    []model.Problem `json:"problems"`
	}{
		Transaction: event.Transaction,
		SpanCount:   len(event.Spans),
		Problems:    problems,
	}
	return jsonResult(resp), nil
}

func (s *Server) handleDetectors(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	resolved, err := s.analyzer.ResolvedSettings(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("resolve settings failed: %v", err)), nil
	}

	type detectorInfo struct {
		Type               int     `json:"type"`
		Name               string  `json:"name"`
		Enabled            bool    `json:"enabled"`
		SpanCount          int     `json:"span_count"`
		MinSpanDurationMs  int64   `json:"min_span_duration_ms"`
		MinTotalDurationMs int64   `json:"min_total_duration_ms"`
		MaxGapMs           int64   `json:"max_gap_ms"`
		LCPRatio           float64 `json:"lcp_ratio,omitempty"`
	}
	out := make([]detectorInfo, 0, len(resolved))
	for _, typ := range model.AllProblemTypes {
		cfg, ok := resolved[typ]
		if !ok {
			continue
		}
		out = append(out, detectorInfo{
			Type:               int(typ),
			Name:               typ.String(),
			Enabled:            cfg.Enabled,
			SpanCount:          cfg.SpanCount,
			MinSpanDurationMs:  cfg.MinSpanDuration.Milliseconds(),
			MinTotalDurationMs: cfg.MinTotalDuration.Milliseconds(),
			MaxGapMs:           cfg.MaxGap.Milliseconds(),
			LCPRatio:           cfg.LCPRatio,
		})
	}
	return jsonResult(out), nil
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
