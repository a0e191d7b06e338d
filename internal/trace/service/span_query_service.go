package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	esModel "github.com/Avi18971911/Culprit/internal/db/elasticsearch/model"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/trace/helper"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

const timeout = 10 * time.Second
const maxQuerySize = 10000

// maxDurationPages bounds the span fetch of GetExclusiveDurations at
// maxDurationPages * maxQuerySize documents.
const maxDurationPages = 100

// SpanQueryService is the query side of the span store.
type SpanQueryService interface {
	// GetErrorSpans returns up to limit spans in window with an error status.
	GetErrorSpans(ctx context.Context, window model.TimeWindow, limit int) ([]model.Span, error)
	// GetExclusiveDurations returns the exclusive durations of every span in the traceLimit
	// slowest traces of window that hold a span of at least minDuration.
	GetExclusiveDurations(
		ctx context.Context,
		window model.TimeWindow,
		minDuration int64,
		traceLimit int,
	) ([]model.TraceExclusiveDurations, error)
	// LookupIdentities resolves span ids to (service, span name) pairs.
	LookupIdentities(
		ctx context.Context,
		window model.TimeWindow,
		spanIDs []string,
	) (map[string]model.BaselineKey, error)
}

type SpanQueryServiceImpl struct {
	ac       client.CulpritClient
	index    string
	timeout  time.Duration
	recorder *metrics.Recorder
	logger   *zap.Logger
}

func NewSpanQueryService(
	ac client.CulpritClient,
	index string,
	queryTimeout time.Duration,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *SpanQueryServiceImpl {
	if queryTimeout <= 0 {
		queryTimeout = timeout
	}
	return &SpanQueryServiceImpl{
		ac:       ac,
		index:    index,
		timeout:  queryTimeout,
		recorder: recorder,
		logger:   logger,
	}
}

func (sqs *SpanQueryServiceImpl) GetErrorSpans(
	ctx context.Context,
	window model.TimeWindow,
	limit int,
) ([]model.Span, error) {
	res, err := sqs.search(ctx, getErrorSpansQuery(window), clampSize(limit))
	if err != nil {
		sqs.logger.Error("Failed to search for error spans", zap.Error(err))
		return nil, fmt.Errorf("failed to search for error spans: %w", err)
	}

	conversion := helper.ConvertFromDocuments(res)
	if conversion.Malformed > 0 || conversion.InvalidStatus > 0 {
		sqs.logger.Warn("Skipped unreadable span documents", zap.String("summary", helper.DescribeConversion(conversion)))
		sqs.recorder.Skipped(metrics.ReasonMalformedDocument, conversion.Malformed)
		sqs.recorder.Skipped(metrics.ReasonInvalidStatus, conversion.InvalidStatus)
	}
	return conversion.Spans, nil
}

func (sqs *SpanQueryServiceImpl) GetExclusiveDurations(
	ctx context.Context,
	window model.TimeWindow,
	minDuration int64,
	traceLimit int,
) ([]model.TraceExclusiveDurations, error) {
	traceIDs, err := sqs.getSlowTraceIDs(ctx, window, minDuration, clampSize(traceLimit))
	if err != nil {
		sqs.logger.Error("Failed to find slow traces", zap.Error(err))
		return nil, fmt.Errorf("failed to find slow traces: %w", err)
	}
	if len(traceIDs) == 0 {
		return []model.TraceExclusiveDurations{}, nil
	}

	res, err := sqs.getDurationDocuments(ctx, traceIDs)
	if err != nil {
		sqs.logger.Error("Failed to search for exclusive durations", zap.Error(err))
		return nil, fmt.Errorf("failed to search for exclusive durations: %w", err)
	}

	samples, malformed := helper.ConvertDurationDocuments(res)
	if malformed > 0 {
		sqs.logger.Warn("Skipped unreadable exclusive duration documents", zap.Int("count", malformed))
		sqs.recorder.Skipped(metrics.ReasonMalformedDocument, malformed)
	}
	return groupDurationsByTrace(traceIDs, samples), nil
}

// getDurationDocuments pages through the span documents of traceIDs and reports any
// shortfall against the number of documents the index holds for them.
func (sqs *SpanQueryServiceImpl) getDurationDocuments(
	ctx context.Context,
	traceIDs []string,
) ([]map[string]interface{}, error) {
	expected, err := sqs.count(ctx, getExclusiveDurationsCountQuery(traceIDs))
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, min(expected, maxQuerySize))
	var searchAfter []interface{}
	for page := 0; page < maxDurationPages; page++ {
		res, err := sqs.search(ctx, getExclusiveDurationsPageQuery(traceIDs, searchAfter), maxQuerySize)
		if err != nil {
			return nil, err
		}
		docs = append(docs, res...)
		if len(res) < maxQuerySize {
			break
		}
		last := res[len(res)-1]
		searchAfter = []interface{}{last["trace_id"], last["span_id"]}
	}

	if missing := expected - int64(len(docs)); missing > 0 {
		sqs.logger.Warn(
			"Exclusive duration fetch is incomplete",
			zap.Int("trace_count", len(traceIDs)),
			zap.Int64("expected", expected),
			zap.Int("fetched", len(docs)),
		)
		sqs.recorder.Skipped(metrics.ReasonIncompleteFetch, int(missing))
	}
	return docs, nil
}

func (sqs *SpanQueryServiceImpl) LookupIdentities(
	ctx context.Context,
	window model.TimeWindow,
	spanIDs []string,
) (map[string]model.BaselineKey, error) {
	if len(spanIDs) == 0 {
		return map[string]model.BaselineKey{}, nil
	}
	res, err := sqs.search(ctx, getIdentitiesQuery(window, spanIDs), clampSize(len(spanIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to look up span identities: %w", err)
	}
	identities, malformed := helper.ConvertIdentityDocuments(res)
	if malformed > 0 {
		sqs.logger.Warn("Span documents without identity", zap.Int("count", malformed))
		sqs.recorder.Skipped(metrics.ReasonMissingIdentity, malformed)
	}
	return identities, nil
}

func (sqs *SpanQueryServiceImpl) getSlowTraceIDs(
	ctx context.Context,
	window model.TimeWindow,
	minDuration int64,
	traceLimit int,
) ([]string, error) {
	queryJson, err := json.Marshal(getSlowTracesQuery(window, minDuration, traceLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slow traces query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, sqs.timeout)
	defer cancel()
	aggregations, err := sqs.ac.Aggregate(queryCtx, string(queryJson), []string{sqs.index})
	if err != nil {
		return nil, err
	}
	terms, err := esModel.DecodeTerms(aggregations, tracesAggregation)
	if err != nil {
		return nil, err
	}
	traceIDs := make([]string, 0, len(terms.Buckets))
	for _, bucket := range terms.Buckets {
		traceIDs = append(traceIDs, bucket.Key)
	}
	return traceIDs, nil
}

func (sqs *SpanQueryServiceImpl) count(ctx context.Context, query map[string]interface{}) (int64, error) {
	queryJson, err := json.Marshal(query)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal count query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, sqs.timeout)
	defer cancel()
	return sqs.ac.Count(queryCtx, string(queryJson), []string{sqs.index})
}

func (sqs *SpanQueryServiceImpl) search(
	ctx context.Context,
	query map[string]interface{},
	size int,
) ([]map[string]interface{}, error) {
	queryJson, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	queryCtx, cancel := context.WithTimeout(ctx, sqs.timeout)
	defer cancel()
	return sqs.ac.Search(queryCtx, string(queryJson), []string{sqs.index}, &size)
}

// groupDurationsByTrace keeps the order of traceIDs and sorts samples within a trace by span id.
func groupDurationsByTrace(traceIDs []string, samples []model.SpanDuration) []model.TraceExclusiveDurations {
	byTrace := make(map[string][]model.SpanDuration, len(traceIDs))
	for _, sample := range samples {
		byTrace[sample.TraceID] = append(byTrace[sample.TraceID], sample)
	}
	grouped := make([]model.TraceExclusiveDurations, 0, len(traceIDs))
	for _, traceID := range traceIDs {
		traceSamples, ok := byTrace[traceID]
		if !ok {
			continue
		}
		sort.Slice(traceSamples, func(i, j int) bool {
			return traceSamples[i].SpanID < traceSamples[j].SpanID
		})
		grouped = append(grouped, model.TraceExclusiveDurations{TraceID: traceID, Spans: traceSamples})
	}
	return grouped
}

func clampSize(size int) int {
	if size <= 0 || size > maxQuerySize {
		return maxQuerySize
	}
	return size
}
