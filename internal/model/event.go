package model

import (
	"time"

	"github.com/google/uuid"
)

// Origin classifies where an event's SDK runs. Producers compute it once at
// event construction via OriginFromSDK; detectors never inspect SDK name
// strings themselves.
type Origin string

const (
	OriginBrowser Origin = "browser"
	OriginBackend Origin = "backend"
	OriginUnknown Origin = "unknown"
)

// browserSDKs is the explicit allowlist of SDK names treated as browser
// origin. Deliberately an allowlist, not a substring match: whether further
// SDKs qualify for frontend-only gating (LCP) is a product decision.
var browserSDKs = map[string]bool{
	"sentry.javascript.browser": true,
	"sentry.javascript.react":   true,
	"sentry.javascript.vue":     true,
	"sentry.javascript.angular": true,
	"sentry.javascript.ember":   true,
	"sentry.javascript.svelte":  true,
	"sentry.javascript.nextjs":  true,
	"sentry.javascript.remix":   true,
	"sentry.javascript.gatsby":  true,
	"sentry.javascript.astro":   true,
}

// OriginFromSDK maps an SDK name to an Origin.
func OriginFromSDK(name string) Origin {
	switch {
	case name == "":
		return OriginUnknown
	case browserSDKs[name]:
		return OriginBrowser
	default:
		return OriginBackend
	}
}

// MeasurementLCP is the measurement key for Largest Contentful Paint.
const MeasurementLCP = "lcp"

// Measurement is a named numeric observation attached to an event.
// Values are milliseconds unless Unit says otherwise.
type Measurement struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Event is one trace: the complete ordered span sequence for one
// transaction, plus the metadata detection needs. Immutable; its lifetime is
// a single detection pass.
type Event struct {
	ID           uuid.UUID              `json:"id"`
	Transaction  string                 `json:"transaction"`
	SDKName      string                 `json:"sdk_name,omitempty"`
	Origin       Origin                 `json:"origin"`
	Start        time.Time              `json:"start_timestamp"`
	Measurements map[string]Measurement `json:"measurements,omitempty"`
	Spans        []Span                 `json:"spans"`
}

// LCP returns the event's Largest Contentful Paint as a duration from event
// start, and whether the measurement is present.
func (e *Event) LCP() (time.Duration, bool) {
	m, ok := e.Measurements[MeasurementLCP]
	if !ok || m.Value < 0 {
		return 0, false
	}
	return time.Duration(m.Value * float64(time.Millisecond)), true
}
