package model

import "sort"

type Trace struct {
	TraceID string
	Spans   []Span
}

// GroupByTrace partitions spans by trace id. Traces are ordered by id and the
// spans within each trace keep their first-seen order.
func GroupByTrace(spans []Span) []Trace {
	index := make(map[string]int)
	var traces []Trace
	for _, span := range spans {
		i, ok := index[span.TraceID]
		if !ok {
			i = len(traces)
			index[span.TraceID] = i
			traces = append(traces, Trace{TraceID: span.TraceID})
		}
		traces[i].Spans = append(traces[i].Spans, span)
	}
	sort.SliceStable(traces, func(a, b int) bool {
		return traces[a].TraceID < traces[b].TraceID
	})
	return traces
}
