package service

import (
	"time"

	"github.com/Avi18971911/Culprit/internal/trace/model"
)

const tracesAggregation = "traces"
const maxDurationAggregation = "max_duration"

func windowClauses(window model.TimeWindow) []map[string]interface{} {
	if window.IsZero() {
		return []map[string]interface{}{}
	}
	startRange := map[string]interface{}{}
	if !window.Start.IsZero() {
		startRange["gte"] = window.Start.UTC().Format(time.RFC3339Nano)
	}
	if !window.End.IsZero() {
		startRange["lte"] = window.End.UTC().Format(time.RFC3339Nano)
	}
	return []map[string]interface{}{
		{
			"range": map[string]interface{}{
				"start_time": startRange,
			},
		},
	}
}

func getErrorSpansQuery(window model.TimeWindow) map[string]interface{} {
	filterClauses := append(windowClauses(window), map[string]interface{}{
		"range": map[string]interface{}{
			"status_code": map[string]interface{}{
				"gt": model.ErrorStatusThreshold,
			},
		},
	})
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"sort": []map[string]interface{}{
			{"start_time": map[string]interface{}{"order": "asc"}},
			{"span_id": map[string]interface{}{"order": "asc"}},
		},
	}
}

// getSlowTracesQuery finds the traces holding a span at least minDuration long,
// slowest first.
func getSlowTracesQuery(window model.TimeWindow, minDuration int64, traceLimit int) map[string]interface{} {
	filterClauses := append(windowClauses(window), map[string]interface{}{
		"range": map[string]interface{}{
			"duration": map[string]interface{}{
				"gte": minDuration,
			},
		},
	})
	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"aggs": map[string]interface{}{
			tracesAggregation: map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "trace_id",
					"size":  traceLimit,
					"order": map[string]interface{}{
						maxDurationAggregation: "desc",
					},
				},
				"aggs": map[string]interface{}{
					maxDurationAggregation: map[string]interface{}{
						"max": map[string]interface{}{
							"field": "duration",
						},
					},
				},
			},
		},
	}
}

func exclusiveDurationsFilter(traceIDs []string) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": []map[string]interface{}{
				{
					"terms": map[string]interface{}{
						"trace_id": traceIDs,
					},
				},
				{
					"exists": map[string]interface{}{
						"field": "exclusive_duration",
					},
				},
				{
					"exists": map[string]interface{}{
						"field": "span_id",
					},
				},
			},
		},
	}
}

func getExclusiveDurationsCountQuery(traceIDs []string) map[string]interface{} {
	return map[string]interface{}{
		"query": exclusiveDurationsFilter(traceIDs),
	}
}

// getExclusiveDurationsPageQuery sorts on (trace_id, span_id), which is unique per span
// document, so searchAfter taken from the last hit of a page resumes right after it.
func getExclusiveDurationsPageQuery(traceIDs []string, searchAfter []interface{}) map[string]interface{} {
	query := map[string]interface{}{
		"_source": []string{"span_id", "trace_id", "exclusive_duration", "service_name", "span_name"},
		"query":   exclusiveDurationsFilter(traceIDs),
		"sort": []map[string]interface{}{
			{"trace_id": "asc"},
			{"span_id": "asc"},
		},
	}
	if len(searchAfter) > 0 {
		query["search_after"] = searchAfter
	}
	return query
}

func getIdentitiesQuery(window model.TimeWindow, spanIDs []string) map[string]interface{} {
	filterClauses := append(windowClauses(window), map[string]interface{}{
		"terms": map[string]interface{}{
			"span_id": spanIDs,
		},
	})
	return map[string]interface{}{
		"_source": []string{"span_id", "service_name", "span_name"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
	}
}
