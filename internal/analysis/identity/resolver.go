package identity

import (
	"context"
	"sort"
	"time"

	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/pipeline/worker"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

const (
	DefaultMaxSampled = 2000
	DefaultBatchSize  = 500
	DefaultWorkers    = 1
)

// Lookup fetches (service, span name) identities for a bounded set of span ids.
type Lookup interface {
	LookupIdentities(
		ctx context.Context,
		window model.TimeWindow,
		spanIDs []string,
	) (map[string]model.BaselineKey, error)
}

type Config struct {
	MaxSampled   int
	BatchSize    int
	Workers      int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxSampled:   DefaultMaxSampled,
		BatchSize:    DefaultBatchSize,
		Workers:      DefaultWorkers,
		BatchTimeout: worker.DefaultTimeout,
	}
}

type Resolution struct {
	Identities    map[string]model.BaselineKey
	Strategy      Strategy
	Coverage      float64
	Batches       int
	FailedBatches int
}

// Apply returns a copy of samples with resolved identities attached. Samples that
// were not resolved keep whatever identity they already had.
func (r Resolution) Apply(samples []model.SpanDuration) []model.SpanDuration {
	applied := make([]model.SpanDuration, len(samples))
	for i, sample := range samples {
		if key, ok := r.Identities[sample.SpanID]; ok {
			key := key
			sample.Identity = &key
		}
		applied[i] = sample
	}
	return applied
}

// ApplyToMap is Apply for span id keyed samples.
func (r Resolution) ApplyToMap(samples map[string]model.SpanDuration) map[string]model.SpanDuration {
	applied := make(map[string]model.SpanDuration, len(samples))
	for spanID, sample := range samples {
		if key, ok := r.Identities[spanID]; ok {
			key := key
			sample.Identity = &key
		}
		applied[spanID] = sample
	}
	return applied
}

type Resolver struct {
	lookup   Lookup
	config   Config
	recorder *metrics.Recorder
	logger   *zap.Logger
}

func NewResolver(lookup Lookup, config Config, recorder *metrics.Recorder, logger *zap.Logger) *Resolver {
	if config.MaxSampled <= 0 {
		config.MaxSampled = DefaultMaxSampled
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	return &Resolver{lookup: lookup, config: config, recorder: recorder, logger: logger}
}

// Resolve attaches identities to the working set, either directly from the samples
// or through batched lookups against window. Failed batches are skipped.
func (r *Resolver) Resolve(
	ctx context.Context,
	window model.TimeWindow,
	samples []model.SpanDuration,
) Resolution {
	identities := attachedIdentities(samples)
	strategy := ChooseStrategy(CoverageRatio(len(identities), len(samples)))
	r.recorder.StrategyChosen(string(strategy))

	resolution := Resolution{Identities: identities, Strategy: strategy}
	if strategy == Resample {
		r.resample(ctx, window, samples, &resolution)
	}
	resolution.Coverage = CoverageRatio(resolvedCount(samples, resolution.Identities), len(samples))

	r.logger.Info(
		"Resolved span identities",
		zap.String("strategy", string(resolution.Strategy)),
		zap.Int("sample_count", len(samples)),
		zap.Float64("coverage", resolution.Coverage),
		zap.Int("batches", resolution.Batches),
		zap.Int("failed_batches", resolution.FailedBatches),
	)
	return resolution
}

func (r *Resolver) resample(
	ctx context.Context,
	window model.TimeWindow,
	samples []model.SpanDuration,
	resolution *Resolution,
) {
	spanIDs := prioritisedUnresolved(samples, resolution.Identities, r.config.MaxSampled)
	batches := chunk(spanIDs, r.config.BatchSize)
	resolution.Batches = len(batches)
	if len(batches) == 0 {
		return
	}

	lookupBatch := func(ctx context.Context, batch []string) (map[string]model.BaselineKey, string, error) {
		found, err := r.lookup.LookupIdentities(ctx, window, batch)
		if err != nil {
			return nil, "Failed to look up identity batch, skipping", err
		}
		return found, "", nil
	}

	// each batch returns its own map; merging happens here once all batches are done
	partials := make([]map[string]model.BaselineKey, len(batches))
	outcomes := worker.GetResultsWithWorkers(
		ctx,
		batches,
		lookupBatch,
		r.config.Workers,
		r.config.BatchTimeout,
		r.logger,
	)
	for outcome := range outcomes {
		if outcome.Err != nil {
			resolution.FailedBatches++
			r.recorder.BatchFailed()
			continue
		}
		partials[outcome.Index] = outcome.Value
	}

	for _, partial := range partials {
		for spanID, key := range partial {
			if key.ServiceName == "" || key.SpanName == "" {
				continue
			}
			resolution.Identities[spanID] = key
		}
	}
}

func attachedIdentities(samples []model.SpanDuration) map[string]model.BaselineKey {
	identities := make(map[string]model.BaselineKey)
	for _, sample := range samples {
		if sample.Identity != nil {
			identities[sample.SpanID] = *sample.Identity
		}
	}
	return identities
}

func resolvedCount(samples []model.SpanDuration, identities map[string]model.BaselineKey) int {
	count := 0
	for _, sample := range samples {
		if _, ok := identities[sample.SpanID]; ok {
			count++
		}
	}
	return count
}

// prioritisedUnresolved returns up to limit unresolved span ids, largest durations first.
func prioritisedUnresolved(
	samples []model.SpanDuration,
	identities map[string]model.BaselineKey,
	limit int,
) []string {
	seen := make(map[string]struct{}, len(samples))
	pending := make([]model.SpanDuration, 0, len(samples))
	for _, sample := range samples {
		if _, ok := identities[sample.SpanID]; ok {
			continue
		}
		if _, ok := seen[sample.SpanID]; ok {
			continue
		}
		seen[sample.SpanID] = struct{}{}
		pending = append(pending, sample)
	}
	SortLargestFirst(pending)
	if len(pending) > limit {
		pending = pending[:limit]
	}
	spanIDs := make([]string, len(pending))
	for i, sample := range pending {
		spanIDs[i] = sample.SpanID
	}
	return spanIDs
}

// SortLargestFirst orders samples by duration descending, ties by span id.
func SortLargestFirst(samples []model.SpanDuration) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Duration != samples[j].Duration {
			return samples[i].Duration > samples[j].Duration
		}
		return samples[i].SpanID < samples[j].SpanID
	})
}

func chunk(spanIDs []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(spanIDs); start += size {
		end := start + size
		if end > len(spanIDs) {
			end = len(spanIDs)
		}
		batches = append(batches, spanIDs[start:end])
	}
	return batches
}
