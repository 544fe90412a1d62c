package detect

import (
	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
)

// slowQueryDetector reports individual database queries whose duration meets
// the configured floor. Unlike the consecutive machine it holds no run
// state: every qualifying span is its own problem.
type slowQueryDetector struct {
	cfg      settings.Detection
	event    *model.Event
	problems []model.Problem
}

func newSlowDBQuery(cfg settings.Detection, event *model.Event) Detector {
	return &slowQueryDetector{cfg: cfg, event: event}
}

func (d *slowQueryDetector) Type() model.ProblemType { return model.TypeSlowDBQuery }

func (d *slowQueryDetector) VisitSpan(span model.Span) {
	if !dbEligible(span) {
		return
	}
	if span.Duration() < d.cfg.MinSpanDuration {
		return
	}
	d.problems = append(d.problems, problemFor(model.TypeSlowDBQuery, "db", d.event, []model.Span{span}))
}

func (d *slowQueryDetector) Finalize() {}

func (d *slowQueryDetector) Problems() []model.Problem {
	return d.problems
}
