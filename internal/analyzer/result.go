package analyzer

import (
	"time"

	"github.com/Avi18971911/Culprit/internal/patterns"
	"github.com/google/uuid"
)

type Kind string

const (
	KindError   Kind = "error"
	KindLatency Kind = "latency"
)

const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Messages reported when an analysis ends without a root cause.
const (
	MessageNoRootCauseSpans = "no root cause spans found"
	MessageNoLatencySpans   = "no high latency spans found"
	MessageNoPatternResult  = "no pattern analysis result found"
)

// AnalysisResult is the outcome of one analysis. A result without root causes carries
// low confidence and the reason in ErrorMessage.
type AnalysisResult struct {
	ID         uuid.UUID                  `json:"id"`
	Kind       Kind                       `json:"kind"`
	RootCauses []string                   `json:"root_causes"`
	SpanIDs    []string                   `json:"span_ids"`
	Services   []patterns.ServiceEvidence `json:"services"`
	Confidence string                     `json:"confidence"`
	Evidence   bool                       `json:"evidence"`
	// ErrorMessage is empty when a root cause was found.
	ErrorMessage string    `json:"error_message,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

func (r AnalysisResult) Found() bool {
	return len(r.RootCauses) > 0
}

func newResult(kind Kind) AnalysisResult {
	return AnalysisResult{
		ID:         uuid.New(),
		Kind:       kind,
		RootCauses: []string{},
		SpanIDs:    []string{},
		Services:   []patterns.ServiceEvidence{},
		Confidence: ConfidenceLow,
		AnalyzedAt: time.Now().UTC(),
	}
}

func (r AnalysisResult) withRootCause(rootCause string) AnalysisResult {
	r.RootCauses = []string{rootCause}
	r.Confidence = ConfidenceHigh
	r.Evidence = true
	r.ErrorMessage = ""
	return r
}

func (r AnalysisResult) withMessage(message string) AnalysisResult {
	r.RootCauses = []string{}
	r.Confidence = ConfidenceLow
	r.Evidence = false
	r.ErrorMessage = message
	return r
}
