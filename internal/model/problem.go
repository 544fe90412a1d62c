package model

// ProblemType identifies one detector. The numeric values are the stable
// type tags embedded in fingerprints; they must never be renumbered.
type ProblemType int

const (
	TypeSlowDBQuery          ProblemType = 1001
	TypeConsecutiveDBQueries ProblemType = 1007
	TypeConsecutiveHTTPSpans ProblemType = 1009
)

// AllProblemTypes lists every registered detector type in declaration order.
var AllProblemTypes = []ProblemType{
	TypeSlowDBQuery,
	TypeConsecutiveDBQueries,
	TypeConsecutiveHTTPSpans,
}

// String returns the detector slug used in option keys and logs.
func (t ProblemType) String() string {
	switch t {
	case TypeSlowDBQuery:
		return "slow_db_query"
	case TypeConsecutiveDBQueries:
		return "consecutive_db_queries"
	case TypeConsecutiveHTTPSpans:
		return "consecutive_http_spans"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a registered detector type.
func (t ProblemType) Valid() bool {
	switch t {
	case TypeSlowDBQuery, TypeConsecutiveDBQueries, TypeConsecutiveHTTPSpans:
		return true
	}
	return false
}

// EvidenceData is the structured copy of a problem's span groupings handed
// to downstream rendering.
type EvidenceData struct {
	Op              string   `json:"op"`
	ParentSpanIDs   []string `json:"parent_span_ids"`
	CauseSpanIDs    []string `json:"cause_span_ids"`
	OffenderSpanIDs []string `json:"offender_span_ids"`
}

// Problem is one detected performance issue. Created once per qualifying
// pattern occurrence; immutable; equality is structural.
//
// Fingerprint is content-derived (detector type, transaction hash, member
// span hashes) so duplicate detections across re-ingestion collapse into one
// issue regardless of span ids.
type Problem struct {
	Fingerprint     string       `json:"fingerprint"`
	Op              string       `json:"op"`
	Desc            string       `json:"desc"`
	Type            ProblemType  `json:"type"`
	ParentSpanIDs   []string     `json:"parent_span_ids,omitempty"`
	CauseSpanIDs    []string     `json:"cause_span_ids"`
	OffenderSpanIDs []string     `json:"offender_span_ids"`
	EvidenceData    EvidenceData `json:"evidence_data"`
	EvidenceDisplay []string     `json:"evidence_display"`
}
