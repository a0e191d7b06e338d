package model

import "fmt"

// BaselineKey identifies an operation: the service it runs in and the span name.
type BaselineKey struct {
	ServiceName string `json:"service_name"`
	SpanName    string `json:"span_name"`
}

func (k BaselineKey) String() string {
	return fmt.Sprintf("%s/%s", k.ServiceName, k.SpanName)
}

// Baseline maps an operation to its historical average exclusive duration.
type Baseline map[BaselineKey]float64

// Get returns the average for key, or 0 when the key was never observed.
func (b Baseline) Get(key BaselineKey) float64 {
	if b == nil {
		return 0
	}
	return b[key]
}

// SpanDuration is one exclusive-duration sample for a span.
type SpanDuration struct {
	SpanID   string       `json:"span_id"`
	TraceID  string       `json:"trace_id"`
	Duration int64        `json:"duration"`
	Identity *BaselineKey `json:"identity,omitempty"`
}

type TraceExclusiveDurations struct {
	TraceID string
	Spans   []SpanDuration
}

// FlattenDurations keys every sample by span id. A span id seen twice keeps the
// last sample.
func FlattenDurations(traces []TraceExclusiveDurations) map[string]SpanDuration {
	flattened := make(map[string]SpanDuration)
	for _, trace := range traces {
		for _, sample := range trace.Spans {
			if sample.TraceID == "" {
				sample.TraceID = trace.TraceID
			}
			flattened[sample.SpanID] = sample
		}
	}
	return flattened
}
