package baseline

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Avi18971911/Culprit/internal/analysis/identity"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

const DefaultSampleCap = 3000

// SamplingStrategy decides which samples survive when a reference window holds more
// than the sampling cap.
type SamplingStrategy string

const (
	// Largest keeps the samples with the largest durations. This skews averages
	// upward for operations with high variance.
	Largest SamplingStrategy = "largest"
	// Uniform keeps a seeded random subset.
	Uniform SamplingStrategy = "uniform"
)

func ParseSamplingStrategy(value string) (SamplingStrategy, error) {
	switch SamplingStrategy(value) {
	case "", Largest:
		return Largest, nil
	case Uniform:
		return Uniform, nil
	default:
		return "", fmt.Errorf("unknown baseline sampling strategy %q", value)
	}
}

// IdentityResolver attaches (service, span name) identities to samples.
type IdentityResolver interface {
	Resolve(ctx context.Context, window model.TimeWindow, samples []model.SpanDuration) identity.Resolution
}

type Config struct {
	SampleCap int
	Sampling  SamplingStrategy
	// Seed drives Uniform sampling so a given window always yields the same baseline.
	Seed int64
}

func DefaultConfig() Config {
	return Config{SampleCap: DefaultSampleCap, Sampling: Largest}
}

type Averager struct {
	resolver IdentityResolver
	config   Config
	recorder *metrics.Recorder
	logger   *zap.Logger
}

func NewAverager(
	resolver IdentityResolver,
	config Config,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *Averager {
	if config.SampleCap <= 0 {
		config.SampleCap = DefaultSampleCap
	}
	if config.Sampling == "" {
		config.Sampling = Largest
	}
	return &Averager{resolver: resolver, config: config, recorder: recorder, logger: logger}
}

// ComputeBaselines averages the positive exclusive durations of the reference window
// per (service, span name). Samples whose identity cannot be resolved are left out.
func (a *Averager) ComputeBaselines(
	ctx context.Context,
	window model.TimeWindow,
	samples []model.SpanDuration,
) model.Baseline {
	positive := make([]model.SpanDuration, 0, len(samples))
	for _, sample := range samples {
		if sample.Duration > 0 {
			positive = append(positive, sample)
		}
	}
	if skipped := len(samples) - len(positive); skipped > 0 {
		a.logger.Warn("Skipped reference samples without exclusive time", zap.Int("count", skipped))
		a.recorder.Skipped(metrics.ReasonNonPositive, skipped)
	}
	if len(positive) == 0 {
		return model.Baseline{}
	}

	retained := a.sample(positive)
	resolution := a.resolver.Resolve(ctx, window, retained)
	resolved := resolution.Apply(retained)

	sums := make(map[model.BaselineKey]float64)
	counts := make(map[model.BaselineKey]int)
	unresolved := 0
	for _, sample := range resolved {
		if sample.Identity == nil {
			unresolved++
			continue
		}
		sums[*sample.Identity] += float64(sample.Duration)
		counts[*sample.Identity]++
	}
	if unresolved > 0 {
		a.logger.Warn("Reference samples without identity were left out of the baseline", zap.Int("count", unresolved))
		a.recorder.Skipped(metrics.ReasonMissingIdentity, unresolved)
	}

	baseline := make(model.Baseline, len(sums))
	for key, sum := range sums {
		baseline[key] = sum / float64(counts[key])
	}

	a.logger.Info(
		"Computed baselines",
		zap.String("window", window.Key()),
		zap.Int("sample_count", len(samples)),
		zap.Int("retained_count", len(retained)),
		zap.String("sampling", string(a.config.Sampling)),
		zap.Int("key_count", len(baseline)),
	)
	return baseline
}

func (a *Averager) sample(samples []model.SpanDuration) []model.SpanDuration {
	retained := append([]model.SpanDuration(nil), samples...)
	if len(retained) <= a.config.SampleCap {
		return retained
	}
	switch a.config.Sampling {
	case Uniform:
		rng := rand.New(rand.NewSource(a.config.Seed))
		rng.Shuffle(len(retained), func(i, j int) {
			retained[i], retained[j] = retained[j], retained[i]
		})
	default:
		identity.SortLargestFirst(retained)
	}
	return retained[:a.config.SampleCap]
}
