package detect

import (
	"strings"
	"time"

	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
)

// consecutiveRule parameterizes the shared consecutive-run machine for one
// operation family.
type consecutiveRule struct {
	problemType model.ProblemType
	// problemOp is the category tag reported on emitted problems
	// (e.g. "http" for "http.client" spans).
	problemOp string
	// eligible reports whether a span may start or extend a run. Spans that
	// fail this never touch run state — they are excluded entirely, not
	// merely skipped, so a denylisted span cannot count toward a run.
	eligible func(span model.Span) bool
	// lcpGated applies the before-paint cutoff on browser-origin events.
	lcpGated bool
}

// consecutiveDetector finds ordered runs of eligible spans executed
// back-to-back: each member starts only after the previous one ended, with
// at most cfg.MaxGap of idle time between them. Non-eligible spans between
// members (interleaved unrelated work) do not break a run.
//
// One run is in flight at a time; a gap beyond the threshold or an
// overlapping span finalizes the current run and opens a new one.
type consecutiveDetector struct {
	cfg   settings.Detection
	event *model.Event
	rule  consecutiveRule

	run      []model.Span
	lastEnd  time.Time
	problems []model.Problem
}

func newConsecutive(cfg settings.Detection, event *model.Event, rule consecutiveRule) *consecutiveDetector {
	return &consecutiveDetector{cfg: cfg, event: event, rule: rule}
}

func (d *consecutiveDetector) Type() model.ProblemType { return d.rule.problemType }

func (d *consecutiveDetector) VisitSpan(span model.Span) {
	if !d.rule.eligible(span) {
		return
	}
	if len(d.run) == 0 {
		d.open(span)
		return
	}
	gap := span.Start.Sub(d.lastEnd)
	// Inclusive boundary: a gap exactly at MaxGap is still consecutive.
	// A negative gap means overlap, i.e. beneficial parallelism — that
	// closes the run just like an oversized gap.
	if gap < 0 || gap > d.cfg.MaxGap {
		d.finalizeRun()
		d.open(span)
		return
	}
	d.run = append(d.run, span)
	if span.End.After(d.lastEnd) {
		d.lastEnd = span.End
	}
}

// Finalize flushes the run left open at end of input through the same
// completion predicate as mid-stream finalization.
func (d *consecutiveDetector) Finalize() {
	d.finalizeRun()
}

func (d *consecutiveDetector) Problems() []model.Problem {
	return d.problems
}

func (d *consecutiveDetector) open(span model.Span) {
	d.run = []model.Span{span}
	d.lastEnd = span.End
}

// finalizeRun applies the completion predicate and promotes the run to a
// problem when it qualifies. Exactly one problem per qualifying run.
func (d *consecutiveDetector) finalizeRun() {
	members := d.run
	d.run = nil
	if len(members) < d.cfg.SpanCount {
		return
	}
	var total time.Duration
	for _, m := range members {
		if m.Duration() < d.cfg.MinSpanDuration {
			return
		}
		total += m.Duration()
	}
	if total < d.cfg.MinTotalDuration {
		return
	}
	if d.rule.lcpGated && !d.withinPaintWindow(members, total) {
		return
	}
	d.problems = append(d.problems, problemFor(d.rule.problemType, d.rule.problemOp, d.event, members))
}

// withinPaintWindow suppresses runs that are not user-impacting on frontend
// events: every member must end at or before the Largest Contentful Paint
// mark, and the run must occupy at least LCPRatio of the LCP window.
// Consecutiveness perceived after the page has painted is not reported.
// Events without browser origin or without an LCP measurement pass.
func (d *consecutiveDetector) withinPaintWindow(members []model.Span, total time.Duration) bool {
	if d.event.Origin != model.OriginBrowser {
		return true
	}
	lcp, ok := d.event.LCP()
	if !ok {
		return true
	}
	paint := d.event.Start.Add(lcp)
	for _, m := range members {
		if m.End.After(paint) {
			return false
		}
	}
	return float64(total) >= float64(lcp)*d.cfg.LCPRatio
}

// staticAssetPaths excludes same-origin navigation/prefetch requests that
// load the page's own framework assets. An href matching any of these never
// starts, extends, or counts toward a run.
var staticAssetPaths = []string{
	"/_next/static/",
	"/_next/data/",
}

func newConsecutiveHTTP(cfg settings.Detection, event *model.Event) Detector {
	return newConsecutive(cfg, event, consecutiveRule{
		problemType: model.TypeConsecutiveHTTPSpans,
		problemOp:   "http",
		eligible:    httpEligible,
		lcpGated:    true,
	})
}

func httpEligible(span model.Span) bool {
	if span.Op != "http.client" {
		return false
	}
	if span.Description == "" {
		return false
	}
	for _, p := range staticAssetPaths {
		if strings.Contains(span.Description, p) {
			return false
		}
	}
	return true
}

// transactionControl lists statement prefixes that mark transaction
// bookkeeping rather than real queries.
var transactionControl = []string{
	"BEGIN",
	"COMMIT",
	"ROLLBACK",
	"SAVEPOINT",
	"RELEASE SAVEPOINT",
}

func newConsecutiveDB(cfg settings.Detection, event *model.Event) Detector {
	return newConsecutive(cfg, event, consecutiveRule{
		problemType: model.TypeConsecutiveDBQueries,
		problemOp:   "db",
		eligible:    dbEligible,
	})
}

func dbEligible(span model.Span) bool {
	if span.Op != "db" && !strings.HasPrefix(span.Op, "db.sql") {
		return false
	}
	if span.Description == "" {
		return false
	}
	stmt := strings.ToUpper(strings.TrimSpace(span.Description))
	for _, prefix := range transactionControl {
		if strings.HasPrefix(stmt, prefix) {
			return false
		}
	}
	return true
}
