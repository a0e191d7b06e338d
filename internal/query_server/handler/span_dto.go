package handler

// RootCauseSpanDTO is a raw span record. The status code may be a number or a numeric string
// @swagger:model RootCauseSpanDTO
type RootCauseSpanDTO struct {
	SpanID       string      `json:"span_id"`
	ParentSpanID string      `json:"parent_span_id"`
	TraceID      string      `json:"trace_id"`
	StatusCode   interface{} `json:"status_code"`
}

// RootCauseSpansRequestDTO holds the spans to search for error root causes
// @swagger:model RootCauseSpansRequestDTO
type RootCauseSpansRequestDTO struct {
	Spans []RootCauseSpanDTO `json:"spans"`
}

// SpanDurationDTO is one exclusive duration sample
// @swagger:model SpanDurationDTO
type SpanDurationDTO struct {
	SpanID   string `json:"span_id"`
	TraceID  string `json:"trace_id"`
	Duration int64  `json:"duration"`
	// Optional, needed to normalize the span
	ServiceName string `json:"service_name,omitempty"`
	// Optional, needed to normalize the span
	SpanName string `json:"span_name,omitempty"`
}

// BaselineEntryDTO is the average exclusive duration of one operation
// @swagger:model BaselineEntryDTO
type BaselineEntryDTO struct {
	ServiceName string  `json:"service_name"`
	SpanName    string  `json:"span_name"`
	Average     float64 `json:"average"`
}

// TopContributorsRequestDTO holds the samples to select top contributors from
// @swagger:model TopContributorsRequestDTO
type TopContributorsRequestDTO struct {
	Durations       []SpanDurationDTO  `json:"durations"`
	OnlyTopPerTrace bool               `json:"only_top_per_trace"`
	Normalize       bool               `json:"normalize"`
	Baseline        []BaselineEntryDTO `json:"baseline,omitempty"`
	// Defaults to 0.95
	Percentile *float64 `json:"percentile,omitempty"`
	// Defaults to 5000000
	MaxDuration *int64 `json:"max_duration,omitempty"`
}

// SpanIdsResponseDTO lists the selected spans
// @swagger:model SpanIdsResponseDTO
type SpanIdsResponseDTO struct {
	SpanIDs []string `json:"span_ids"`
	// The number of input records that could not be used
	Skipped int `json:"skipped"`
	// The number of spans kept as not errored because their status code was unreadable
	InvalidStatus int `json:"invalid_status,omitempty"`
}
