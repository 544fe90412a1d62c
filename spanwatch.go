// Package spanwatch is the public API for embedding the performance-issue
// detection engine.
//
// The engine scans one event's span tree for recurring anti-patterns —
// consecutive sequential HTTP calls, consecutive DB queries, slow queries —
// and emits deduplicated, fingerprinted problem records:
//
//	analyzer, err := spanwatch.New(
//	    spanwatch.WithLogger(logger),
//	    spanwatch.WithProjectOptions(store),
//	    spanwatch.WithProject(projectID),
//	)
//	if err != nil { ... }
//	problems, err := analyzer.Analyze(ctx, event)
//
// Analyze is a pure library call: synchronous, single-threaded per event,
// no suspension points, linear in span count. An Analyzer is safe for
// concurrent use — settings are re-resolved per call and detector instances
// are never shared across events.
package spanwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanwatch/spanwatch/internal/detect"
	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
	"github.com/spanwatch/spanwatch/internal/telemetry"
)

// Re-exported domain types. The root package is the only import an
// embedding application needs.
type (
	Span         = model.Span
	Event        = model.Event
	Measurement  = model.Measurement
	Origin       = model.Origin
	Problem      = model.Problem
	ProblemType  = model.ProblemType
	EvidenceData = model.EvidenceData

	Detection          = settings.Detection
	OptionStore        = settings.OptionStore
	ProjectOptionStore = settings.ProjectOptionStore
)

const (
	OriginBrowser = model.OriginBrowser
	OriginBackend = model.OriginBackend
	OriginUnknown = model.OriginUnknown

	TypeSlowDBQuery          = model.TypeSlowDBQuery
	TypeConsecutiveDBQueries = model.TypeConsecutiveDBQueries
	TypeConsecutiveHTTPSpans = model.TypeConsecutiveHTTPSpans
)

// OriginFromSDK maps an SDK name to an Origin via the browser allowlist.
// Event producers call this once at construction.
func OriginFromSDK(name string) Origin { return model.OriginFromSDK(name) }

// Analyzer runs the registered detectors over events.
type Analyzer struct {
	resolver  *settings.Resolver
	types     []model.ProblemType
	projectID *int64
	logger    *slog.Logger
	tracer    trace.Tracer

	eventsAnalyzed   metric.Int64Counter
	spansScanned     metric.Int64Counter
	problemsDetected metric.Int64Counter
}

// New creates an Analyzer. With no options it runs every registered
// detector with built-in default thresholds and no project context.
func New(opts ...Option) (*Analyzer, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	types := o.types
	if len(types) == 0 {
		types = model.AllProblemTypes
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("spanwatch: unknown detector type %d", int(t))
		}
	}

	meter := telemetry.Meter("spanwatch")
	eventsAnalyzed, err := meter.Int64Counter("spanwatch.events.analyzed",
		metric.WithDescription("Events run through detection"))
	if err != nil {
		return nil, fmt.Errorf("spanwatch: create counter: %w", err)
	}
	spansScanned, err := meter.Int64Counter("spanwatch.spans.scanned",
		metric.WithDescription("Spans consumed by detectors"))
	if err != nil {
		return nil, fmt.Errorf("spanwatch: create counter: %w", err)
	}
	problemsDetected, err := meter.Int64Counter("spanwatch.problems.detected",
		metric.WithDescription("Problems emitted, by detector type"))
	if err != nil {
		return nil, fmt.Errorf("spanwatch: create counter: %w", err)
	}

	return &Analyzer{
		resolver:         settings.NewResolver(o.global, o.project, logger),
		types:            types,
		projectID:        o.projectID,
		logger:           logger,
		tracer:           telemetry.Tracer("spanwatch"),
		eventsAnalyzed:   eventsAnalyzed,
		spansScanned:     spansScanned,
		problemsDetected: problemsDetected,
	}, nil
}

// Analyze runs every configured detector over one event and returns the
// emitted problems in detector-declaration order, run order preserved
// within a detector.
//
// An empty result is a valid, common outcome. Errors indicate contract
// violations (nil event, settings resolution failure), never data quality:
// malformed spans are skipped, malformed configuration falls back to
// defaults.
//
// Detectors for project-disabled types still run — matching and emission
// are decoupled — but their problems are suppressed from the result.
func (a *Analyzer) Analyze(ctx context.Context, event *Event) ([]Problem, error) {
	if event == nil {
		return nil, errors.New("spanwatch: nil event")
	}

	ctx, span := a.tracer.Start(ctx, "spanwatch.analyze",
		trace.WithAttributes(attribute.String("transaction", event.Transaction)))
	defer span.End()

	resolved := make(map[model.ProblemType]settings.Detection, len(a.types))
	detectors := make([]detect.Detector, 0, len(a.types))
	for _, t := range a.types {
		cfg, err := a.resolver.Resolve(ctx, t, a.projectID)
		if err != nil {
			return nil, fmt.Errorf("spanwatch: resolve settings: %w", err)
		}
		resolved[t] = cfg
		d, err := detect.New(t, cfg, event)
		if err != nil {
			return nil, fmt.Errorf("spanwatch: build detector: %w", err)
		}
		detectors = append(detectors, d)
	}

	all := detect.Run(event, detectors, a.logger)

	problems := make([]Problem, 0, len(all))
	for _, p := range all {
		if !resolved[p.Type].Enabled {
			a.logger.Debug("spanwatch: problem suppressed (detector disabled)",
				"detector", p.Type.String(), "fingerprint", p.Fingerprint)
			continue
		}
		problems = append(problems, p)
		a.problemsDetected.Add(ctx, 1,
			metric.WithAttributes(attribute.String("detector", p.Type.String())))
	}

	a.eventsAnalyzed.Add(ctx, 1)
	a.spansScanned.Add(ctx, int64(len(event.Spans))*int64(len(detectors)))

	return problems, nil
}

// ResolvedSettings returns the active threshold configuration per detector
// type, after global and project overrides.
func (a *Analyzer) ResolvedSettings(ctx context.Context) (map[ProblemType]Detection, error) {
	out := make(map[ProblemType]Detection, len(a.types))
	for _, t := range a.types {
		cfg, err := a.resolver.Resolve(ctx, t, a.projectID)
		if err != nil {
			return nil, fmt.Errorf("spanwatch: resolve settings: %w", err)
		}
		out[t] = cfg
	}
	return out, nil
}
