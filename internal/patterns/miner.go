package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	esModel "github.com/Avi18971911/Culprit/internal/db/elasticsearch/model"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

const (
	MaxMinedSpans        = 2000
	servicesAggregation  = "services"
	spanNamesAggregation = "span_names"
	bucketLimit          = 100
	minerTimeout         = 10 * time.Second
)

// Miner returns mined patterns for a set of spans of a window.
type Miner interface {
	GetPatterns(ctx context.Context, window model.TimeWindow, spanIDs []string) (Result, error)
}

// StaticMiner serves a result mined elsewhere, whatever spans are asked about.
type StaticMiner struct {
	Result Result
}

func (m StaticMiner) GetPatterns(ctx context.Context, window model.TimeWindow, spanIDs []string) (Result, error) {
	return m.Result, nil
}

// ElasticsearchMiner groups the given spans by service and span name and reports each
// group as a serviceName/spanName pattern.
type ElasticsearchMiner struct {
	ac     client.CulpritClient
	index  string
	logger *zap.Logger
}

func NewElasticsearchMiner(ac client.CulpritClient, index string, logger *zap.Logger) *ElasticsearchMiner {
	return &ElasticsearchMiner{ac: ac, index: index, logger: logger}
}

func (m *ElasticsearchMiner) GetPatterns(
	ctx context.Context,
	window model.TimeWindow,
	spanIDs []string,
) (Result, error) {
	result := Result{Version: CurrentVersion, Patterns: []Pattern{}}
	if len(spanIDs) == 0 {
		return result, nil
	}
	if len(spanIDs) > MaxMinedSpans {
		spanIDs = spanIDs[:MaxMinedSpans]
	}

	queryJson, err := json.Marshal(getPatternsQuery(window, spanIDs))
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal patterns query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, minerTimeout)
	defer cancel()
	aggregations, err := m.ac.Aggregate(queryCtx, string(queryJson), []string{m.index})
	if err != nil {
		m.logger.Error("Failed to mine span patterns", zap.Error(err))
		return Result{}, fmt.Errorf("failed to mine span patterns: %w", err)
	}

	services, err := esModel.DecodeTerms(aggregations, servicesAggregation)
	if err != nil {
		return Result{}, err
	}
	for _, serviceBucket := range services.Buckets {
		spanNames, err := esModel.DecodeTerms(serviceBucket.Aggregations, spanNamesAggregation)
		if err != nil {
			return Result{}, err
		}
		for _, spanBucket := range spanNames.Buckets {
			result.Patterns = append(result.Patterns, Pattern{
				Expression: FormatExpression(
					Term{Field: FieldServiceName, Value: serviceBucket.Key},
					Term{Field: FieldSpanName, Value: spanBucket.Key},
				),
				Count: int64(spanBucket.DocCount),
			})
		}
	}
	sort.SliceStable(result.Patterns, func(i, j int) bool {
		return result.Patterns[i].Count > result.Patterns[j].Count
	})
	return result, nil
}

// FormatExpression renders terms in the form ParseExpression reads.
func FormatExpression(terms ...Term) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		value := strings.ReplaceAll(term.Value, `\`, `\\`)
		value = strings.ReplaceAll(value, `'`, `\'`)
		parts[i] = fmt.Sprintf(`"%s"='%s'`, term.Field, value)
	}
	return strings.Join(parts, " AND ")
}

func getPatternsQuery(window model.TimeWindow, spanIDs []string) map[string]interface{} {
	filterClauses := []map[string]interface{}{
		{
			"terms": map[string]interface{}{
				"span_id": spanIDs,
			},
		},
	}
	if !window.IsZero() {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"start_time": map[string]interface{}{
					"gte": window.Start.UTC().Format(time.RFC3339Nano),
					"lte": window.End.UTC().Format(time.RFC3339Nano),
				},
			},
		})
	}
	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"aggs": map[string]interface{}{
			servicesAggregation: map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "service_name",
					"size":  bucketLimit,
				},
				"aggs": map[string]interface{}{
					spanNamesAggregation: map[string]interface{}{
						"terms": map[string]interface{}{
							"field": "span_name",
							"size":  bucketLimit,
						},
					},
				},
			},
		},
	}
}
