package latency

import (
	"math"
	"sort"

	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

// Contribution is a span's adjusted exclusive duration after clamping and, when
// requested, baseline removal.
type Contribution struct {
	SpanID   string  `json:"span_id"`
	TraceID  string  `json:"trace_id"`
	Adjusted float64 `json:"adjusted"`
	// Normalized is false when the span had no identity and kept its clamped raw duration.
	Normalized bool `json:"normalized"`
}

// Report counts what a ranking pass dropped or could not normalize.
type Report struct {
	NonPositive  int
	Unidentified int
}

type Selector struct {
	logger   *zap.Logger
	recorder *metrics.Recorder
}

func NewSelector(logger *zap.Logger, recorder *metrics.Recorder) *Selector {
	return &Selector{logger: logger, recorder: recorder}
}

// SelectTopContributors returns the shortest prefix of the ranked spans whose
// adjusted durations reach the configured share of the total.
func (s *Selector) SelectTopContributors(
	durations map[string]model.SpanDuration,
	opts Options,
) ([]string, error) {
	ranked, err := s.Rank(durations, opts)
	if err != nil {
		return nil, err
	}
	selected := cutAtPercentile(ranked, opts.Percentile)
	s.logger.Info(
		"Selected top contributing spans",
		zap.Int("candidate_count", len(ranked)),
		zap.Int("selected_count", len(selected)),
		zap.Float64("percentile", opts.Percentile),
		zap.Bool("normalize", opts.Normalize),
		zap.Bool("only_top_per_trace", opts.OnlyTopPerTrace),
	)
	return selected, nil
}

// Rank validates opts and returns contributions sorted by adjusted duration
// descending, ties broken by span id ascending.
func (s *Selector) Rank(
	durations map[string]model.SpanDuration,
	opts Options,
) ([]Contribution, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	contributions, report := adjust(durations, opts)
	if report.NonPositive > 0 {
		s.logger.Warn("Skipped spans without exclusive time", zap.Int("count", report.NonPositive))
		s.recorder.Skipped(metrics.ReasonNonPositive, report.NonPositive)
	}
	if opts.Normalize && report.Unidentified > 0 {
		s.logger.Warn(
			"Spans without identity were ranked on raw duration",
			zap.Int("count", report.Unidentified),
			zap.Int("total", len(contributions)),
		)
		s.recorder.Skipped(metrics.ReasonMissingIdentity, report.Unidentified)
	}

	if opts.OnlyTopPerTrace {
		contributions = topPerTrace(contributions)
	}
	sortContributions(contributions)
	return contributions, nil
}

func adjust(durations map[string]model.SpanDuration, opts Options) ([]Contribution, Report) {
	var report Report
	contributions := make([]Contribution, 0, len(durations))
	for spanID, sample := range durations {
		if sample.Duration <= 0 {
			report.NonPositive++
			continue
		}
		clamped := float64(model.ClampDuration(sample.Duration, opts.MaxDuration))
		contribution := Contribution{SpanID: spanID, TraceID: sample.TraceID, Adjusted: clamped}
		if opts.Normalize {
			if sample.Identity == nil {
				report.Unidentified++
			} else {
				contribution.Adjusted = normalize(clamped, opts.Baseline.Get(*sample.Identity), opts.MaxDuration)
				contribution.Normalized = true
			}
		}
		contributions = append(contributions, contribution)
	}
	return contributions, report
}

func normalize(clamped, baseline float64, maxDuration int64) float64 {
	return math.Min(math.Max(0, clamped-baseline), float64(maxDuration))
}

func topPerTrace(contributions []Contribution) []Contribution {
	best := make(map[string]Contribution)
	for _, c := range contributions {
		current, ok := best[c.TraceID]
		if !ok || c.Adjusted > current.Adjusted || (c.Adjusted == current.Adjusted && c.SpanID < current.SpanID) {
			best[c.TraceID] = c
		}
	}
	top := make([]Contribution, 0, len(best))
	for _, c := range best {
		top = append(top, c)
	}
	return top
}

func sortContributions(contributions []Contribution) {
	sort.Slice(contributions, func(i, j int) bool {
		if contributions[i].Adjusted != contributions[j].Adjusted {
			return contributions[i].Adjusted > contributions[j].Adjusted
		}
		return contributions[i].SpanID < contributions[j].SpanID
	})
}

// cutAtPercentile stops at, and includes, the first span whose running sum reaches
// total * percentile. A zero total selects nothing.
func cutAtPercentile(ranked []Contribution, percentile float64) []string {
	total := 0.0
	for _, c := range ranked {
		total += c.Adjusted
	}
	selected := make([]string, 0)
	if total == 0 {
		return selected
	}

	target := total * percentile
	running := 0.0
	for _, c := range ranked {
		selected = append(selected, c.SpanID)
		running += c.Adjusted
		if running >= target {
			break
		}
	}
	return selected
}
