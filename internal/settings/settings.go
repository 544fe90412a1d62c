// Package settings resolves per-detector detection thresholds.
//
// Resolution merges three layers, most specific last: the built-in default
// table (one row per detector type), the dynamic global option store, and a
// per-project override read from the project option store under a single
// namespaced key. The resolver performs no hidden global reads — both stores
// are explicit inputs — and never fails on malformed data: configuration
// errors fall back to defaults per the error taxonomy.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spanwatch/spanwatch/internal/model"
)

// ProjectOptionKey is the single namespaced key under which a project's
// detector overrides are stored. Its value is a mapping from
// "<detector>_detection_enabled" to a bool; unrecognized keys are ignored.
const ProjectOptionKey = "spanwatch:performance_issue_settings"

// OptionStore reads dynamic global options by fixed name.
// Implementations must be safe for concurrent use.
type OptionStore interface {
	// Lookup returns the option value and whether it is set.
	Lookup(ctx context.Context, name string) (any, bool)
}

// ProjectOptionStore reads the per-project override value.
type ProjectOptionStore interface {
	// ProjectOptions returns the raw value stored for one project under key,
	// or nil when the project has no override.
	ProjectOptions(ctx context.Context, projectID int64, key string) (map[string]any, error)
}

// Detection is the resolved threshold configuration for one detector type.
// Created once per detection run and never mutated afterward; safe to share
// across goroutines.
type Detection struct {
	Type    model.ProblemType
	Enabled bool

	// SpanCount is the minimum number of member spans per run.
	SpanCount int
	// MinSpanDuration is the floor each member span must individually meet.
	MinSpanDuration time.Duration
	// MinTotalDuration is the floor for the sum of member durations.
	MinTotalDuration time.Duration
	// MaxGap is the largest allowed idle time between one member's end and
	// the next member's start. The boundary is inclusive: a gap equal to
	// MaxGap keeps the run open.
	MaxGap time.Duration
	// LCPRatio gates browser-origin events: a run is only reported when its
	// total duration is at least LCP × LCPRatio. Zero disables the ratio
	// check (the before-paint check still applies).
	LCPRatio float64
}

// defaultTable returns the built-in defaults, one row per detector type.
func defaultTable() map[model.ProblemType]Detection {
	return map[model.ProblemType]Detection{
		model.TypeConsecutiveHTTPSpans: {
			Type:             model.TypeConsecutiveHTTPSpans,
			Enabled:          true,
			SpanCount:        3,
			MinSpanDuration:  500 * time.Millisecond,
			MinTotalDuration: 2000 * time.Millisecond,
			MaxGap:           1000 * time.Millisecond,
			LCPRatio:         0.25,
		},
		model.TypeConsecutiveDBQueries: {
			Type:             model.TypeConsecutiveDBQueries,
			Enabled:          true,
			SpanCount:        3,
			MinSpanDuration:  100 * time.Millisecond,
			MinTotalDuration: 500 * time.Millisecond,
			MaxGap:           500 * time.Millisecond,
		},
		model.TypeSlowDBQuery: {
			Type:            model.TypeSlowDBQuery,
			Enabled:         true,
			SpanCount:       1,
			MinSpanDuration: 1000 * time.Millisecond,
		},
	}
}

// Resolver merges defaults with global and project-level overrides.
// Pure aside from reading the two stores; safe to call once per run.
type Resolver struct {
	global  OptionStore
	project ProjectOptionStore
	logger  *slog.Logger
}

// NewResolver creates a resolver. Either store may be nil, in which case
// that layer is skipped and defaults apply.
func NewResolver(global OptionStore, project ProjectOptionStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{global: global, project: project, logger: logger}
}

// Resolve produces the settings for one detector type. projectID is
// optional; when nil, project overrides are skipped. The only error is an
// unknown detector type, which is a caller contract violation.
func (r *Resolver) Resolve(ctx context.Context, typ model.ProblemType, projectID *int64) (Detection, error) {
	if !typ.Valid() {
		return Detection{}, fmt.Errorf("settings: unknown detector type %d", int(typ))
	}
	d := defaultTable()[typ]
	r.applyGlobal(ctx, &d)
	if projectID != nil {
		r.applyProject(ctx, &d, *projectID)
	}
	return d, nil
}

// ResolveAll produces settings for every registered detector type.
func (r *Resolver) ResolveAll(ctx context.Context, projectID *int64) (map[model.ProblemType]Detection, error) {
	out := make(map[model.ProblemType]Detection, len(model.AllProblemTypes))
	for _, typ := range model.AllProblemTypes {
		d, err := r.Resolve(ctx, typ, projectID)
		if err != nil {
			return nil, err
		}
		out[typ] = d
	}
	return out, nil
}

// Global option names are "performance.issues.<detector>.<knob>".
// Durations are plain millisecond numbers.
func optionName(typ model.ProblemType, knob string) string {
	return "performance.issues." + typ.String() + "." + knob
}

func (r *Resolver) applyGlobal(ctx context.Context, d *Detection) {
	if r.global == nil {
		return
	}
	if v, ok := r.lookupBool(ctx, optionName(d.Type, "enabled")); ok {
		d.Enabled = v
	}
	if v, ok := r.lookupInt(ctx, optionName(d.Type, "span_count")); ok && v > 0 {
		d.SpanCount = v
	}
	if v, ok := r.lookupMillis(ctx, optionName(d.Type, "min_span_duration")); ok {
		d.MinSpanDuration = v
	}
	if v, ok := r.lookupMillis(ctx, optionName(d.Type, "min_total_duration")); ok {
		d.MinTotalDuration = v
	}
	if v, ok := r.lookupMillis(ctx, optionName(d.Type, "max_gap")); ok {
		d.MaxGap = v
	}
	if v, ok := r.lookupFloat(ctx, optionName(d.Type, "lcp_ratio_threshold")); ok && v >= 0 {
		d.LCPRatio = v
	}
}

// applyProject applies the project's partial override object. Only the
// "<detector>_detection_enabled" key is recognized; per-detector enabled
// state is global-enabled AND NOT explicitly disabled by the project.
func (r *Resolver) applyProject(ctx context.Context, d *Detection, projectID int64) {
	if r.project == nil {
		return
	}
	raw, err := r.project.ProjectOptions(ctx, projectID, ProjectOptionKey)
	if err != nil {
		r.logger.Debug("settings: project option lookup failed, using defaults",
			"project_id", projectID, "detector", d.Type.String(), "error", err)
		return
	}
	if raw == nil {
		return
	}
	if v, ok := asBool(raw[d.Type.String()+"_detection_enabled"]); ok && !v {
		d.Enabled = false
	}
}

func (r *Resolver) lookupBool(ctx context.Context, name string) (bool, bool) {
	v, ok := r.global.Lookup(ctx, name)
	if !ok {
		return false, false
	}
	b, ok := asBool(v)
	if !ok {
		r.logger.Debug("settings: non-bool global option ignored", "option", name)
	}
	return b, ok
}

func (r *Resolver) lookupInt(ctx context.Context, name string) (int, bool) {
	f, ok := r.lookupFloat(ctx, name)
	return int(f), ok
}

func (r *Resolver) lookupMillis(ctx context.Context, name string) (time.Duration, bool) {
	f, ok := r.lookupFloat(ctx, name)
	if !ok || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Millisecond)), true
}

func (r *Resolver) lookupFloat(ctx context.Context, name string) (float64, bool) {
	v, ok := r.global.Lookup(ctx, name)
	if !ok {
		return 0, false
	}
	f, ok := asFloat(v)
	if !ok {
		r.logger.Debug("settings: non-numeric global option ignored", "option", name)
	}
	return f, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
