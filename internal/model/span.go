// Package model defines the core domain types for spanwatch.
//
// All types are plain values with strong typing (time.Time, enums) and no
// behavior beyond derived accessors. Detection treats every value in this
// package as read-only: an Event and its Spans are never mutated once
// constructed by their producer.
package model

import "time"

// Span is one timed operation within a trace. Immutable.
//
// Spans arrive in emission order, which is not necessarily timestamp order;
// anything that cares about chronology must compare timestamps explicitly.
type Span struct {
	SpanID       string         `json:"span_id"`
	ParentSpanID *string        `json:"parent_span_id,omitempty"`
	Op           string         `json:"op"`
	Description  string         `json:"description"`
	Start        time.Time      `json:"start_timestamp"`
	End          time.Time      `json:"end_timestamp"`
	Hash         string         `json:"hash"`
	Data         map[string]any `json:"data,omitempty"`
}

// Duration returns the span's elapsed time.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Valid reports whether the span carries every field detection requires.
// Malformed spans are skipped by the runner, never attributed to a problem.
func (s Span) Valid() bool {
	if s.SpanID == "" || s.Op == "" {
		return false
	}
	if s.Start.IsZero() || s.End.IsZero() {
		return false
	}
	return !s.End.Before(s.Start)
}
