package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Avi18971911/Culprit/internal/analysis/baseline"
	"github.com/Avi18971911/Culprit/internal/analysis/identity"
	"github.com/Avi18971911/Culprit/internal/analysis/latency"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/patterns"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

const (
	DefaultReferenceLookback = time.Hour
	DefaultDurationThreshold = int64(1_000_000)
	DefaultTraceLimit        = 2000
	DefaultReferenceLimit    = 3000
)

var ErrInvalidRequest = errors.New("invalid latency analysis request")

// DurationSource returns per-trace exclusive durations of a window.
type DurationSource interface {
	GetExclusiveDurations(
		ctx context.Context,
		window model.TimeWindow,
		minDuration int64,
		traceLimit int,
	) ([]model.TraceExclusiveDurations, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, window model.TimeWindow, samples []model.SpanDuration) identity.Resolution
}

type BaselineComputer interface {
	ComputeBaselines(ctx context.Context, window model.TimeWindow, samples []model.SpanDuration) model.Baseline
}

type LatencyConfig struct {
	// DurationThreshold selects the traces of the anomaly window that hold a span at least this long.
	DurationThreshold int64
	TraceLimit        int
	ReferenceLimit    int
	ReferenceLookback time.Duration
	Selector          latency.Options
}

func DefaultLatencyConfig() LatencyConfig {
	selector := latency.DefaultOptions()
	selector.Normalize = true
	return LatencyConfig{
		DurationThreshold: DefaultDurationThreshold,
		TraceLimit:        DefaultTraceLimit,
		ReferenceLimit:    DefaultReferenceLimit,
		ReferenceLookback: DefaultReferenceLookback,
		Selector:          selector,
	}
}

type LatencyRequest struct {
	Window model.TimeWindow
	// ReferenceWindow defaults to the lookback period right before Window.
	ReferenceWindow model.TimeWindow
	Candidates      []string
	// Normalize and OnlyTopPerTrace override the configured selector options when set.
	Normalize       *bool
	OnlyTopPerTrace *bool
}

type LatencyAnalyzer struct {
	durations DurationSource
	resolver  IdentityResolver
	averager  BaselineComputer
	cache     *baseline.Cache
	selector  *latency.Selector
	miner     patterns.Miner
	catalog   patterns.Catalog
	config    LatencyConfig
	recorder  *metrics.Recorder
	logger    *zap.Logger
}

// NewLatencyAnalyzer wires the latency pipeline. cache may be nil, in which case every
// normalized analysis recomputes its baseline.
func NewLatencyAnalyzer(
	durations DurationSource,
	resolver IdentityResolver,
	averager BaselineComputer,
	cache *baseline.Cache,
	miner patterns.Miner,
	catalog patterns.Catalog,
	config LatencyConfig,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *LatencyAnalyzer {
	if config.ReferenceLookback <= 0 {
		config.ReferenceLookback = DefaultReferenceLookback
	}
	return &LatencyAnalyzer{
		durations: durations,
		resolver:  resolver,
		averager:  averager,
		cache:     cache,
		selector:  latency.NewSelector(logger, recorder),
		miner:     miner,
		catalog:   catalog,
		config:    config,
		recorder:  recorder,
		logger:    logger,
	}
}

// Analyze attributes the latency of req.Window to one service. Only an invalid request or
// selector configuration is returned as an error; collaborator failures end up in the
// result's ErrorMessage.
func (la *LatencyAnalyzer) Analyze(ctx context.Context, req LatencyRequest) (AnalysisResult, error) {
	opts, err := la.options(req)
	if err != nil {
		return AnalysisResult{}, err
	}
	if req.Window.IsZero() {
		return AnalysisResult{}, fmt.Errorf("%w: missing anomaly window", ErrInvalidRequest)
	}
	if req.ReferenceWindow.IsZero() {
		req.ReferenceWindow = model.TimeWindow{
			Start: req.Window.Start.Add(-la.config.ReferenceLookback),
			End:   req.Window.Start,
		}
	}

	result, err := la.analyze(ctx, req, opts)
	if err != nil {
		return AnalysisResult{}, err
	}
	la.recorder.AnalysisFinished(string(KindLatency), result.Found())
	la.logger.Info(
		"Finished latency analysis",
		zap.String("id", result.ID.String()),
		zap.Strings("root_causes", result.RootCauses),
		zap.Int("span_count", len(result.SpanIDs)),
		zap.String("message", result.ErrorMessage),
	)
	return result, nil
}

func (la *LatencyAnalyzer) options(req LatencyRequest) (latency.Options, error) {
	opts := la.config.Selector
	if req.Normalize != nil {
		opts.Normalize = *req.Normalize
	}
	if req.OnlyTopPerTrace != nil {
		opts.OnlyTopPerTrace = *req.OnlyTopPerTrace
	}
	// the baseline is only known once computed, so validate against a placeholder
	probe := opts
	if probe.Normalize {
		probe.Baseline = model.Baseline{}
	}
	if err := probe.Validate(); err != nil {
		return latency.Options{}, err
	}
	return opts, nil
}

func (la *LatencyAnalyzer) analyze(
	ctx context.Context,
	req LatencyRequest,
	opts latency.Options,
) (AnalysisResult, error) {
	result := newResult(KindLatency)

	if opts.Normalize {
		averages, err := la.baseline(ctx, req.ReferenceWindow)
		if err != nil {
			return result.withMessage(fmt.Sprintf("client error: %v", err)), nil
		}
		opts.Baseline = averages
	}

	traces, err := la.durations.GetExclusiveDurations(
		ctx,
		req.Window,
		la.config.DurationThreshold,
		la.config.TraceLimit,
	)
	if err != nil {
		return result.withMessage(fmt.Sprintf("client error: %v", err)), nil
	}
	durations := model.FlattenDurations(traces)
	if opts.Normalize && len(durations) > 0 {
		resolution := la.resolver.Resolve(ctx, req.Window, sortedSamples(durations))
		durations = resolution.ApplyToMap(durations)
	}

	spanIDs, err := la.selector.SelectTopContributors(durations, opts)
	if err != nil {
		return AnalysisResult{}, err
	}
	if len(spanIDs) == 0 {
		return result.withMessage(MessageNoLatencySpans), nil
	}
	result.SpanIDs = spanIDs

	mined, err := la.miner.GetPatterns(ctx, req.Window, spanIDs)
	if err != nil {
		return result.withMessage(fmt.Sprintf("client error: %v", err)), nil
	}
	ranking := patterns.RankServices(mined, la.catalog, nil)
	logRanking(la.logger, ranking)
	result.Services = ranking.Services

	top, ok := ranking.Top()
	if !ok {
		return result.withMessage(MessageNoPatternResult), nil
	}
	if rootCause, ok := patterns.MatchCandidate(top.Service, req.Candidates, patterns.LatencyKinds); ok {
		return result.withRootCause(rootCause), nil
	}
	return result.withRootCause(patterns.Candidate{Service: top.Service, Kind: patterns.KindLatency}.String()), nil
}

func (la *LatencyAnalyzer) baseline(ctx context.Context, window model.TimeWindow) (model.Baseline, error) {
	compute := func(ctx context.Context) (model.Baseline, error) {
		traces, err := la.durations.GetExclusiveDurations(ctx, window, 0, la.config.ReferenceLimit)
		if err != nil {
			return nil, err
		}
		return la.averager.ComputeBaselines(ctx, window, sortedSamples(model.FlattenDurations(traces))), nil
	}
	if la.cache == nil {
		return compute(ctx)
	}
	return la.cache.GetOrCompute(ctx, window, compute)
}

func sortedSamples(durations map[string]model.SpanDuration) []model.SpanDuration {
	samples := make([]model.SpanDuration, 0, len(durations))
	for _, sample := range durations {
		samples = append(samples, sample)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].SpanID < samples[j].SpanID
	})
	return samples
}
