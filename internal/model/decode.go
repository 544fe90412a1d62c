package model

import (
	"encoding/json"
	"fmt"
)

// DecodeEvent parses an event from its JSON form. When the producer did not
// set an explicit origin, it is derived from the SDK name so detectors never
// have to inspect SDK strings.
func DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("model: decode event: %w", err)
	}
	if ev.Origin == "" {
		ev.Origin = OriginFromSDK(ev.SDKName)
	}
	if ev.Start.IsZero() && len(ev.Spans) > 0 {
		ev.Start = ev.Spans[0].Start
	}
	return &ev, nil
}
