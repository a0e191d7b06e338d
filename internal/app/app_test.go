package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Avi18971911/Culprit/internal/analysis/baseline"
	"github.com/Avi18971911/Culprit/internal/config"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/patterns"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("should honour the configured level", func(t *testing.T) {
		logger, err := NewLogger("warn")
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("should reject unknown levels", func(t *testing.T) {
		_, err := NewLogger("loud")
		assert.Error(t, err)
	})
}

func TestBuild(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	es, err := NewElasticsearchClient(cfg.Elasticsearch)
	require.NoError(t, err)

	t.Run("should wire every component", func(t *testing.T) {
		components, err := Build(es, cfg, patterns.StaticMiner{}, zap.NewNop())
		require.NoError(t, err)
		defer components.Close()
		assert.NotNil(t, components.ErrorAnalyzer)
		assert.NotNil(t, components.LatencyAnalyzer)
		assert.NotNil(t, components.Finder)
		assert.NotNil(t, components.Selector)
		assert.NotNil(t, components.Spans)
		assert.NotNil(t, components.Registry)
	})

	t.Run("should reject an unknown sampling strategy", func(t *testing.T) {
		broken := *cfg
		broken.Analysis.BaselineSampling = "newest"
		_, err := Build(es, &broken, nil, zap.NewNop())
		assert.Error(t, err)
	})
}

type countingLookup struct {
	key    model.BaselineKey
	looked int
}

func (c *countingLookup) LookupIdentities(
	ctx context.Context,
	window model.TimeWindow,
	spanIDs []string,
) (map[string]model.BaselineKey, error) {
	c.looked += len(spanIDs)
	identities := make(map[string]model.BaselineKey, len(spanIDs))
	for _, spanID := range spanIDs {
		identities[spanID] = c.key
	}
	return identities, nil
}

func TestNewAverager(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	t.Run("should look up every retained reference sample", func(t *testing.T) {
		key := model.BaselineKey{ServiceName: "cart", SpanName: "GetCart"}
		lookup := &countingLookup{key: key}
		averager := newAverager(lookup, cfg, baseline.Largest, metrics.NewNopRecorder(), zap.NewNop())

		samples := make([]model.SpanDuration, cfg.Analysis.TracesForAvgRt)
		for i := range samples {
			samples[i] = model.SpanDuration{SpanID: fmt.Sprintf("s%d", i), TraceID: "t", Duration: int64(i + 1)}
		}
		window := model.TimeWindow{Start: time.Unix(0, 0), End: time.Unix(3600, 0)}
		result := averager.ComputeBaselines(context.Background(), window, samples)

		assert.Equal(t, 3000, lookup.looked)
		assert.Equal(t, 1500.5, result.Get(key))
	})

	t.Run("should size the resolver caps from config", func(t *testing.T) {
		rc := resolverConfig(cfg, cfg.Analysis.TracesForAvgRt)
		assert.Equal(t, cfg.Analysis.TracesForAvgRt, rc.MaxSampled)
		assert.Equal(t, cfg.Analysis.IdentityBatchSize, rc.BatchSize)
		assert.Equal(t, cfg.Elasticsearch.GetTimeoutDuration(), rc.BatchTimeout)
	})
}
