// Package config loads the settings of the Culprit binaries from an optional YAML file,
// CULPRIT_ prefixed environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Avi18971911/Culprit/internal/analysis/baseline"
	"github.com/spf13/viper"
)

const envPrefix = "CULPRIT"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration structure.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
}

type AppConfig struct {
	LogLevel        string `mapstructure:"log_level"`
	QueryServerAddr string `mapstructure:"query_server_addr"`
	OtlpAddr        string `mapstructure:"otlp_addr"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	SpanIndex string   `mapstructure:"span_index"`
	Timeout   string   `mapstructure:"timeout"`
}

// AnalysisConfig holds the limits and selector options of both analyses.
type AnalysisConfig struct {
	ErrorTracesLimit  int     `mapstructure:"error_traces_limit"`
	HighRtTracesLimit int     `mapstructure:"high_rt_traces_limit"`
	TracesForAvgRt    int     `mapstructure:"traces_for_avg_rt"`
	Percentile        float64 `mapstructure:"percentile"`
	MaxDuration       int64   `mapstructure:"max_duration"`
	DurationThreshold int64   `mapstructure:"duration_threshold"`
	IdentityBatchSize int     `mapstructure:"identity_batch_size"`
	IdentityWorkers   int     `mapstructure:"identity_workers"`
	BaselineSampling  string  `mapstructure:"baseline_sampling"`
	BaselineCacheSize int64   `mapstructure:"baseline_cache_size"`
	OnlyTopPerTrace   bool    `mapstructure:"only_top_per_trace"`
	Normalize         bool    `mapstructure:"normalize"`
	ReferenceLookback string  `mapstructure:"reference_lookback"`
}

// CatalogConfig maps span name fragments to the service that owns them.
type CatalogConfig struct {
	SpanAliases map[string]string `mapstructure:"span_aliases"`
}

// DefaultSpanAliases covers span names of the OpenTelemetry demo whose service name is
// not recorded on the pattern.
var DefaultSpanAliases = map[string]string{
	"RecommendationService":     "recommendation",
	"get_product_list":          "recommendation",
	"CheckoutService":           "checkout",
	"Currency/":                 "currency",
	"CurrencyService":           "currency",
	"CartService":               "cart",
	"router flagservice egress": "ad",
}

// GetTimeoutDuration parses the configured query timeout.
func (c *ElasticsearchConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (c *AnalysisConfig) GetReferenceLookbackDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReferenceLookback)
	if d <= 0 {
		return time.Hour
	}
	return d
}

// Load reads path when it is non-empty, otherwise looks for config.yaml in the usual places.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/culprit")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Catalog.SpanAliases) == 0 {
		cfg.Catalog.SpanAliases = copyAliases(DefaultSpanAliases)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.query_server_addr", ":8081")
	v.SetDefault("app.otlp_addr", ":4317")
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.span_index", "span_index")
	v.SetDefault("elasticsearch.timeout", "10s")
	v.SetDefault("analysis.error_traces_limit", 2000)
	v.SetDefault("analysis.high_rt_traces_limit", 2000)
	v.SetDefault("analysis.traces_for_avg_rt", 3000)
	v.SetDefault("analysis.percentile", 0.95)
	v.SetDefault("analysis.max_duration", 5_000_000)
	v.SetDefault("analysis.duration_threshold", 1_000_000)
	v.SetDefault("analysis.identity_batch_size", 500)
	v.SetDefault("analysis.identity_workers", 1)
	v.SetDefault("analysis.baseline_sampling", string(baseline.Largest))
	v.SetDefault("analysis.baseline_cache_size", 100_000)
	v.SetDefault("analysis.only_top_per_trace", false)
	v.SetDefault("analysis.normalize", true)
	v.SetDefault("analysis.reference_lookback", "1h")
}

// Validate rejects settings no analysis can run with.
func (c *Config) Validate() error {
	a := c.Analysis
	if !(a.Percentile > 0 && a.Percentile <= 1) {
		return fmt.Errorf("%w: percentile must be in (0, 1], got %v", ErrInvalidConfig, a.Percentile)
	}
	if a.MaxDuration <= 0 {
		return fmt.Errorf("%w: max_duration must be positive, got %d", ErrInvalidConfig, a.MaxDuration)
	}
	caps := map[string]int{
		"error_traces_limit":   a.ErrorTracesLimit,
		"high_rt_traces_limit": a.HighRtTracesLimit,
		"traces_for_avg_rt":    a.TracesForAvgRt,
		"identity_batch_size":  a.IdentityBatchSize,
		"identity_workers":     a.IdentityWorkers,
	}
	for name, value := range caps {
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, value)
		}
	}
	if a.BaselineCacheSize <= 0 {
		return fmt.Errorf("%w: baseline_cache_size must be positive, got %d", ErrInvalidConfig, a.BaselineCacheSize)
	}
	if _, err := baseline.ParseSamplingStrategy(a.BaselineSampling); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Elasticsearch.SpanIndex == "" {
		return fmt.Errorf("%w: elasticsearch.span_index is empty", ErrInvalidConfig)
	}
	durations := map[string]string{
		"elasticsearch.timeout":       c.Elasticsearch.Timeout,
		"analysis.reference_lookback": a.ReferenceLookback,
	}
	for name, value := range durations {
		if err := validateDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

func validateDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", value)
	}
	return nil
}

func copyAliases(aliases map[string]string) map[string]string {
	copied := make(map[string]string, len(aliases))
	for fragment, service := range aliases {
		copied[fragment] = service
	}
	return copied
}
