// Package app wires the analysis components of the Culprit binaries from configuration.
package app

import (
	"fmt"

	"github.com/Avi18971911/Culprit/internal/analysis/baseline"
	"github.com/Avi18971911/Culprit/internal/analysis/identity"
	"github.com/Avi18971911/Culprit/internal/analysis/latency"
	"github.com/Avi18971911/Culprit/internal/analysis/rootcause"
	"github.com/Avi18971911/Culprit/internal/analyzer"
	"github.com/Avi18971911/Culprit/internal/config"
	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/patterns"
	"github.com/Avi18971911/Culprit/internal/trace/service"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Components struct {
	Client          client.CulpritClient
	Spans           service.SpanQueryService
	Finder          *rootcause.Finder
	Selector        *latency.Selector
	ErrorAnalyzer   *analyzer.ErrorAnalyzer
	LatencyAnalyzer *analyzer.LatencyAnalyzer
	BaselineCache   *baseline.Cache
	Recorder        *metrics.Recorder
	Registry        *prometheus.Registry
}

// Close releases the baseline cache.
func (c *Components) Close() {
	c.BaselineCache.Close()
}

// NewLogger builds a production logger at level.
func NewLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

func resolverConfig(cfg *config.Config, maxSampled int) identity.Config {
	rc := identity.DefaultConfig()
	rc.MaxSampled = maxSampled
	rc.BatchSize = cfg.Analysis.IdentityBatchSize
	rc.Workers = cfg.Analysis.IdentityWorkers
	rc.BatchTimeout = cfg.Elasticsearch.GetTimeoutDuration()
	return rc
}

// newAverager gives the averager its own resolver so that every retained reference
// sample can be looked up, not only as many as the anomaly window resamples.
func newAverager(
	lookup identity.Lookup,
	cfg *config.Config,
	sampling baseline.SamplingStrategy,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *baseline.Averager {
	resolver := identity.NewResolver(lookup, resolverConfig(cfg, cfg.Analysis.TracesForAvgRt), recorder, logger)
	return baseline.NewAverager(
		resolver,
		baseline.Config{SampleCap: cfg.Analysis.TracesForAvgRt, Sampling: sampling},
		recorder,
		logger,
	)
}

// Build wires every analysis component against the span index. A nil miner mines
// patterns from the span index itself.
func Build(
	es *elasticsearch.Client,
	cfg *config.Config,
	miner patterns.Miner,
	logger *zap.Logger,
) (*Components, error) {
	sampling, err := baseline.ParseSamplingStrategy(cfg.Analysis.BaselineSampling)
	if err != nil {
		return nil, err
	}
	cache, err := baseline.NewCache(cfg.Analysis.BaselineCacheSize, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	ac := client.NewCulpritClientImpl(es, client.Wait)
	spans := service.NewSpanQueryService(
		ac,
		cfg.Elasticsearch.SpanIndex,
		cfg.Elasticsearch.GetTimeoutDuration(),
		recorder,
		logger,
	)
	if miner == nil {
		miner = patterns.NewElasticsearchMiner(ac, cfg.Elasticsearch.SpanIndex, logger)
	}
	catalog := patterns.NewTableCatalog(cfg.Catalog.SpanAliases)

	resolver := identity.NewResolver(spans, resolverConfig(cfg, identity.DefaultMaxSampled), recorder, logger)
	averager := newAverager(spans, cfg, sampling, recorder, logger)

	latencyConfig := analyzer.DefaultLatencyConfig()
	latencyConfig.DurationThreshold = cfg.Analysis.DurationThreshold
	latencyConfig.TraceLimit = cfg.Analysis.HighRtTracesLimit
	latencyConfig.ReferenceLimit = cfg.Analysis.TracesForAvgRt
	latencyConfig.ReferenceLookback = cfg.Analysis.GetReferenceLookbackDuration()
	latencyConfig.Selector.Percentile = cfg.Analysis.Percentile
	latencyConfig.Selector.MaxDuration = cfg.Analysis.MaxDuration
	latencyConfig.Selector.Normalize = cfg.Analysis.Normalize
	latencyConfig.Selector.OnlyTopPerTrace = cfg.Analysis.OnlyTopPerTrace

	return &Components{
		Client:   ac,
		Spans:    spans,
		Finder:   rootcause.NewFinder(logger),
		Selector: latency.NewSelector(logger, recorder),
		ErrorAnalyzer: analyzer.NewErrorAnalyzer(
			spans,
			miner,
			catalog,
			cfg.Analysis.ErrorTracesLimit,
			recorder,
			logger,
		),
		LatencyAnalyzer: analyzer.NewLatencyAnalyzer(
			spans,
			resolver,
			averager,
			cache,
			miner,
			catalog,
			latencyConfig,
			recorder,
			logger,
		),
		BaselineCache: cache,
		Recorder:      recorder,
		Registry:      registry,
	}, nil
}
