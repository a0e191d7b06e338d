package baseline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Avi18971911/Culprit/internal/analysis/identity"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubResolver resolves every span id in known and records what it was asked for.
type stubResolver struct {
	known map[string]model.BaselineKey
	seen  []model.SpanDuration
}

func (s *stubResolver) Resolve(
	ctx context.Context,
	window model.TimeWindow,
	samples []model.SpanDuration,
) identity.Resolution {
	s.seen = append([]model.SpanDuration(nil), samples...)
	identities := make(map[string]model.BaselineKey)
	for _, sample := range samples {
		if key, ok := s.known[sample.SpanID]; ok {
			identities[sample.SpanID] = key
		}
	}
	return identity.Resolution{Identities: identities, Strategy: identity.Resample}
}

var (
	cartGet = model.BaselineKey{ServiceName: "cart", SpanName: "GetCart"}
	cartAdd = model.BaselineKey{ServiceName: "cart", SpanName: "AddItem"}
)

func newAverager(resolver IdentityResolver, cfg Config) *Averager {
	return NewAverager(resolver, cfg, metrics.NewNopRecorder(), zap.NewNop())
}

func TestComputeBaselines(t *testing.T) {
	window := model.TimeWindow{Start: time.Unix(0, 0), End: time.Unix(60, 0)}

	t.Run("should average positive durations per key", func(t *testing.T) {
		resolver := &stubResolver{known: map[string]model.BaselineKey{
			"a": cartGet, "b": cartGet, "c": cartAdd, "d": cartAdd,
		}}
		baseline := newAverager(resolver, DefaultConfig()).ComputeBaselines(context.Background(), window, []model.SpanDuration{
			{SpanID: "a", Duration: 100},
			{SpanID: "b", Duration: 300},
			{SpanID: "c", Duration: 50},
			{SpanID: "d", Duration: 0},
			{SpanID: "unknown", Duration: 999},
		})
		assert.Equal(t, model.Baseline{cartGet: 200, cartAdd: 50}, baseline)
		for _, s := range resolver.seen {
			assert.Greater(t, s.Duration, int64(0))
		}
	})

	t.Run("should return an empty baseline without positive samples", func(t *testing.T) {
		resolver := &stubResolver{}
		baseline := newAverager(resolver, DefaultConfig()).ComputeBaselines(context.Background(), window, []model.SpanDuration{
			{SpanID: "a", Duration: 0},
			{SpanID: "b", Duration: -3},
		})
		assert.NotNil(t, baseline)
		assert.Empty(t, baseline)
		assert.Nil(t, resolver.seen)
		assert.Equal(t, 0.0, baseline.Get(cartGet))
	})

	t.Run("should keep the largest samples past the cap", func(t *testing.T) {
		resolver := &stubResolver{known: map[string]model.BaselineKey{
			"a": cartGet, "b": cartGet, "c": cartGet, "d": cartGet,
		}}
		baseline := newAverager(resolver, Config{SampleCap: 2, Sampling: Largest}).ComputeBaselines(
			context.Background(), window, []model.SpanDuration{
				{SpanID: "a", Duration: 10},
				{SpanID: "b", Duration: 40},
				{SpanID: "c", Duration: 20},
				{SpanID: "d", Duration: 30},
			})
		require.Len(t, resolver.seen, 2)
		assert.Equal(t, "b", resolver.seen[0].SpanID)
		assert.Equal(t, "d", resolver.seen[1].SpanID)
		assert.Equal(t, 35.0, baseline.Get(cartGet))
	})

	t.Run("should sample uniformly and reproducibly when configured", func(t *testing.T) {
		samples := make([]model.SpanDuration, 0, 50)
		known := make(map[string]model.BaselineKey)
		for i := 0; i < 50; i++ {
			id := string(rune('A' + i))
			known[id] = cartGet
			samples = append(samples, model.SpanDuration{SpanID: id, Duration: int64(i + 1)})
		}
		cfg := Config{SampleCap: 10, Sampling: Uniform, Seed: 7}

		first := &stubResolver{known: known}
		second := &stubResolver{known: known}
		a := newAverager(first, cfg).ComputeBaselines(context.Background(), window, samples)
		b := newAverager(second, cfg).ComputeBaselines(context.Background(), window, samples)
		require.Len(t, first.seen, 10)
		assert.Equal(t, first.seen, second.seen)
		assert.Equal(t, a, b)
		// the input order is left untouched
		assert.Equal(t, "A", samples[0].SpanID)
	})
}

func TestParseSamplingStrategy(t *testing.T) {
	s, err := ParseSamplingStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Largest, s)

	s, err = ParseSamplingStrategy("uniform")
	require.NoError(t, err)
	assert.Equal(t, Uniform, s)

	_, err = ParseSamplingStrategy("median")
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	window := model.TimeWindow{Start: time.Unix(100, 0), End: time.Unix(200, 0)}
	other := model.TimeWindow{Start: time.Unix(100, 0), End: time.Unix(300, 0)}

	t.Run("should report a miss for an unknown window", func(t *testing.T) {
		c, err := NewCache(100, zap.NewNop())
		require.NoError(t, err)
		defer c.Close()
		_, err = c.Get(window)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("should compute once per window", func(t *testing.T) {
		c, err := NewCache(100, zap.NewNop())
		require.NoError(t, err)
		defer c.Close()

		calls := 0
		compute := func(ctx context.Context) (model.Baseline, error) {
			calls++
			return model.Baseline{cartGet: 12}, nil
		}
		first, err := c.GetOrCompute(context.Background(), window, compute)
		require.NoError(t, err)
		second, err := c.GetOrCompute(context.Background(), window, compute)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)

		_, err = c.GetOrCompute(context.Background(), other, compute)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("should not let callers mutate a stored baseline", func(t *testing.T) {
		c, err := NewCache(100, zap.NewNop())
		require.NoError(t, err)
		defer c.Close()

		original := model.Baseline{cartGet: 5}
		require.NoError(t, c.Put(window, original))
		original[cartGet] = 500

		got, err := c.Get(window)
		require.NoError(t, err)
		got[cartAdd] = 1

		again, err := c.Get(window)
		require.NoError(t, err)
		assert.Equal(t, model.Baseline{cartGet: 5}, again)
	})

	t.Run("should surface compute failures", func(t *testing.T) {
		c, err := NewCache(100, zap.NewNop())
		require.NoError(t, err)
		defer c.Close()
		boom := errors.New("boom")
		_, err = c.GetOrCompute(context.Background(), window, func(ctx context.Context) (model.Baseline, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("should reject a non positive size", func(t *testing.T) {
		_, err := NewCache(0, zap.NewNop())
		assert.Error(t, err)
	})
}
