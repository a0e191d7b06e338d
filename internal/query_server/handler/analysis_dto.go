package handler

import "time"

// AnalysisRequestDTO asks for the root cause of an anomaly window
// @swagger:model AnalysisRequestDTO
type AnalysisRequestDTO struct {
	// Start of the anomaly window: "2006-01-02 15:04:05" (UTC), RFC3339 or unix seconds
	Start string `json:"start"`
	// End of the anomaly window, same formats as Start
	End string `json:"end"`
	// Candidate root causes of the form "<service>.<kind>", e.g. "cart.Failure"
	Candidates []string `json:"candidates"`
	// Optional start of the reference window, latency only; defaults to one hour before Start
	ReferenceStart string `json:"reference_start,omitempty"`
	// Optional end of the reference window, latency only
	ReferenceEnd string `json:"reference_end,omitempty"`
	// Overrides whether baselines are subtracted, latency only
	Normalize *bool `json:"normalize,omitempty"`
	// Overrides whether only the top span of each trace is kept, latency only
	OnlyTopPerTrace *bool `json:"only_top_per_trace,omitempty"`
}

// ServiceEvidenceDTO is the pattern count attributed to a service
// @swagger:model ServiceEvidenceDTO
type ServiceEvidenceDTO struct {
	Service string `json:"service"`
	Count   int64  `json:"count"`
}

// AnalysisResponseDTO is the outcome of an analysis
// @swagger:model AnalysisResponseDTO
type AnalysisResponseDTO struct {
	// The identifier of the analysis
	Id string `json:"id"`
	// Either "error" or "latency"
	Kind string `json:"kind"`
	// The root causes found, at most one
	RootCauses []string `json:"root_causes"`
	// The spans the root cause was derived from
	SpanIDs []string `json:"span_ids"`
	// The services implicated by the mined patterns
	Services []ServiceEvidenceDTO `json:"services"`
	// Either "high" or "low"
	Confidence string `json:"confidence"`
	// Whether pattern evidence supported the root cause
	Evidence bool `json:"evidence"`
	// Why no root cause was found, empty otherwise
	ErrorMessage string    `json:"error_message,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}
