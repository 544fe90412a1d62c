// Package detect implements the performance-issue detectors.
//
// A Detector consumes one event's spans in emission order, accumulates
// candidate state, and emits zero or more Problems when runs finalize.
// Detection is pure in-memory computation: no span is mutated, no I/O
// happens, and cost is linear in span count per detector. Whether a detected
// problem may actually be emitted for a project (settings.Detection.Enabled)
// is decided by the caller, not here — matching and emission are decoupled
// so the state machine stays independently testable.
package detect

import (
	"fmt"

	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
)

// Detector is the per-event unit of detection. Implementations are
// single-use: construct, feed every span, finalize, collect problems.
type Detector interface {
	// Type identifies the detector.
	Type() model.ProblemType
	// VisitSpan consumes one span in emission order.
	VisitSpan(span model.Span)
	// Finalize flushes whatever run remains open at end of input.
	Finalize()
	// Problems returns finalized problems in detection order. Call after
	// Finalize.
	Problems() []model.Problem
}

// Builder constructs a detector bound to one event and its resolved settings.
type Builder func(cfg settings.Detection, event *model.Event) Detector

var builders = map[model.ProblemType]Builder{
	model.TypeSlowDBQuery:          newSlowDBQuery,
	model.TypeConsecutiveDBQueries: newConsecutiveDB,
	model.TypeConsecutiveHTTPSpans: newConsecutiveHTTP,
}

// New constructs the detector for typ. Unknown types are a caller contract
// violation.
func New(typ model.ProblemType, cfg settings.Detection, event *model.Event) (Detector, error) {
	b, ok := builders[typ]
	if !ok {
		return nil, fmt.Errorf("detect: no detector registered for type %d", int(typ))
	}
	return b(cfg, event), nil
}

func spanIDs(spans []model.Span) []string {
	ids := make([]string, len(spans))
	for i, s := range spans {
		ids[i] = s.SpanID
	}
	return ids
}

func spanHashes(spans []model.Span) []string {
	hashes := make([]string, len(spans))
	for i, s := range spans {
		hashes[i] = s.Hash
	}
	return hashes
}

// problemFor assembles the output record shared by all detectors: offenders
// in run order, no distinguished cause span, representative description from
// the first member.
func problemFor(typ model.ProblemType, op string, event *model.Event, members []model.Span) model.Problem {
	ids := spanIDs(members)
	return model.Problem{
		Fingerprint:     Fingerprint(typ, event.Transaction, spanHashes(members)),
		Op:              op,
		Desc:            members[0].Description,
		Type:            typ,
		CauseSpanIDs:    []string{},
		OffenderSpanIDs: ids,
		EvidenceData: model.EvidenceData{
			Op:              op,
			ParentSpanIDs:   []string{},
			CauseSpanIDs:    []string{},
			OffenderSpanIDs: ids,
		},
		EvidenceDisplay: []string{},
	}
}
