package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/spanwatch/spanwatch"
	"github.com/spanwatch/spanwatch/internal/config"
	"github.com/spanwatch/spanwatch/internal/mcp"
	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
	"github.com/spanwatch/spanwatch/internal/storage"
	"github.com/spanwatch/spanwatch/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

const usage = `spanwatch — performance-issue detection over trace span trees

Usage:
  spanwatch analyze <event.json> [<event.json>...]   detect problems in event files
  spanwatch mcp                                       serve the MCP server on stdio

Configuration is read from the environment (and .env if present):
  SPANWATCH_STORE_DSN     option store: postgres:// URL or SQLite path
  SPANWATCH_PROJECT_ID    project whose overrides apply
  SPANWATCH_LOG_LEVEL     debug | info (default info)
  OTEL_EXPORTER_OTLP_ENDPOINT   enables OTEL export when set
`

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("SPANWATCH_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	global, project, closeStore, err := newOptionStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("option store: %w", err)
	}
	defer closeStore()

	opts := []spanwatch.Option{
		spanwatch.WithLogger(logger),
		spanwatch.WithGlobalOptions(global),
		spanwatch.WithProjectOptions(project),
	}
	if cfg.ProjectID > 0 {
		opts = append(opts, spanwatch.WithProject(cfg.ProjectID))
	}
	analyzer, err := spanwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}

	switch args[0] {
	case "analyze":
		if len(args) < 2 {
			return fmt.Errorf("analyze: at least one event file required")
		}
		return analyzeFiles(ctx, analyzer, args[1:], cfg.AnalyzeLimit, logger)
	case "mcp":
		logger.Info("spanwatch mcp serving on stdio", "version", version)
		srv := mcp.New(analyzer, logger, version)
		return mcpserver.ServeStdio(srv.MCPServer())
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// newOptionStores wires the configured option-store backend. An empty DSN
// means built-in defaults only; a postgres:// URL selects the pgx store,
// anything else is a SQLite path. The returned stores may be nil.
func newOptionStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (settings.OptionStore, settings.ProjectOptionStore, func(), error) {
	switch {
	case cfg.StoreDSN == "":
		return nil, nil, func() {}, nil

	case strings.HasPrefix(cfg.StoreDSN, "postgres://") || strings.HasPrefix(cfg.StoreDSN, "postgresql://"):
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		store, err := storage.NewPostgres(connectCtx, cfg.StoreDSN, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.Migrate(connectCtx); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		logger.Info("option store: postgres")
		return store, store, store.Close, nil

	default:
		store, err := storage.NewSQLite(ctx, cfg.StoreDSN, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("option store: sqlite", "path", cfg.StoreDSN)
		return store, store, func() { _ = store.Close() }, nil
	}
}

// fileReport is one file's detection outcome in the JSON report.
type fileReport struct {
	File        string              `json:"file"`
	Transaction string              `json:"transaction,omitempty"`
	SpanCount   int                 `json:"span_count,omitempty"`
	Problems    []spanwatch.Problem `json:"problems,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// analyzeFiles runs detection over each event file. Files are independent
// detection passes, so they are processed concurrently; a file that fails
// to parse is reported in place, not fatal.
func analyzeFiles(ctx context.Context, analyzer *spanwatch.Analyzer, files []string, limit int, logger *slog.Logger) error {
	reports := make([]fileReport, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			reports[i] = analyzeFile(gctx, analyzer, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	problems := 0
	for _, r := range reports {
		problems += len(r.Problems)
	}
	logger.Info("analysis complete", "files", len(files), "problems", problems)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func analyzeFile(ctx context.Context, analyzer *spanwatch.Analyzer, file string) fileReport {
	report := fileReport{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	event, err := model.DecodeEvent(data)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	problems, err := analyzer.Analyze(ctx, event)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Transaction = event.Transaction
	report.SpanCount = len(event.Spans)
	report.Problems = problems
	return report
}
