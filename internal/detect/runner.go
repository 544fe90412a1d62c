package detect

import (
	"log/slog"

	"github.com/spanwatch/spanwatch/internal/model"
)

// Run drives a set of detectors over one event in a single pass and collects
// their finalized problems: detector order preserved, run order within a
// detector preserved.
//
// Malformed spans (missing required fields) are skipped, not fatal — the
// remaining spans still flow to every detector. Detectors share no mutable
// state, so the same event may be processed concurrently by independent
// Run calls with fresh detector instances.
func Run(event *model.Event, detectors []Detector, logger *slog.Logger) []model.Problem {
	if logger == nil {
		logger = slog.Default()
	}

	skipped := 0
	for _, span := range event.Spans {
		if !span.Valid() {
			skipped++
			continue
		}
		for _, d := range detectors {
			d.VisitSpan(span)
		}
	}
	for _, d := range detectors {
		d.Finalize()
	}
	if skipped > 0 {
		logger.Debug("detect: skipped malformed spans", "count", skipped, "event_id", event.ID)
	}

	var problems []model.Problem
	for _, d := range detectors {
		problems = append(problems, d.Problems()...)
	}
	return problems
}
