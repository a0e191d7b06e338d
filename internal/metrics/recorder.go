// Package metrics counts the recoverable problems the analysis kernel tolerates,
// so reduced completeness is visible without failing a call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "culprit"

// Skip reasons.
const (
	ReasonMalformedDocument = "malformed_document"
	ReasonInvalidStatus     = "invalid_status"
	ReasonNonPositive       = "non_positive_duration"
	ReasonMissingIdentity   = "missing_identity"
	ReasonIncompleteFetch   = "incomplete_fetch"
)

type Recorder struct {
	skippedRecords  *prometheus.CounterVec
	failedBatches   prometheus.Counter
	strategyChoices *prometheus.CounterVec
	analyses        *prometheus.CounterVec
}

// NewRecorder registers the counters on reg. A nil registerer leaves them
// unregistered, which is what tests want.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		skippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Span records skipped during analysis, by reason.",
		}, []string{"reason"}),
		failedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_batch_failures_total",
			Help:      "Identity lookup batches that failed and were skipped.",
		}),
		strategyChoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_strategy_total",
			Help:      "Identity resolution strategy selections.",
		}, []string{"strategy"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Root cause analyses run, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(r.skippedRecords, r.failedBatches, r.strategyChoices, r.analyses)
	}
	return r
}

// NewNopRecorder returns a recorder whose counters are not exported anywhere.
func NewNopRecorder() *Recorder {
	return NewRecorder(nil)
}

func (r *Recorder) Skipped(reason string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.skippedRecords.WithLabelValues(reason).Add(float64(count))
}

func (r *Recorder) BatchFailed() {
	if r == nil {
		return
	}
	r.failedBatches.Inc()
}

func (r *Recorder) StrategyChosen(strategy string) {
	if r == nil {
		return
	}
	r.strategyChoices.WithLabelValues(strategy).Inc()
}

func (r *Recorder) AnalysisFinished(kind string, found bool) {
	if r == nil {
		return
	}
	outcome := "no_result"
	if found {
		outcome = "found"
	}
	r.analyses.WithLabelValues(kind, outcome).Inc()
}
