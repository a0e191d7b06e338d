package analyzer

import (
	"context"
	"fmt"

	"github.com/Avi18971911/Culprit/internal/analysis/rootcause"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/patterns"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

const DefaultErrorSpanLimit = 2000

// ErrorSpanSource returns error spans of a window.
type ErrorSpanSource interface {
	GetErrorSpans(ctx context.Context, window model.TimeWindow, limit int) ([]model.Span, error)
}

type ErrorAnalyzer struct {
	spans     ErrorSpanSource
	finder    *rootcause.Finder
	miner     patterns.Miner
	catalog   patterns.Catalog
	spanLimit int
	recorder  *metrics.Recorder
	logger    *zap.Logger
}

func NewErrorAnalyzer(
	spans ErrorSpanSource,
	miner patterns.Miner,
	catalog patterns.Catalog,
	spanLimit int,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *ErrorAnalyzer {
	if spanLimit <= 0 {
		spanLimit = DefaultErrorSpanLimit
	}
	return &ErrorAnalyzer{
		spans:     spans,
		finder:    rootcause.NewFinder(logger),
		miner:     miner,
		catalog:   catalog,
		spanLimit: spanLimit,
		recorder:  recorder,
		logger:    logger,
	}
}

// Analyze attributes the errors of window to one service, reported as "<service>.Failure".
// When candidates are given only their Failure services are considered.
func (ea *ErrorAnalyzer) Analyze(
	ctx context.Context,
	window model.TimeWindow,
	candidates []string,
) AnalysisResult {
	result := ea.analyze(ctx, window, candidates)
	ea.recorder.AnalysisFinished(string(KindError), result.Found())
	ea.logger.Info(
		"Finished error analysis",
		zap.String("id", result.ID.String()),
		zap.Strings("root_causes", result.RootCauses),
		zap.Int("span_count", len(result.SpanIDs)),
		zap.String("message", result.ErrorMessage),
	)
	return result
}

func (ea *ErrorAnalyzer) analyze(
	ctx context.Context,
	window model.TimeWindow,
	candidates []string,
) AnalysisResult {
	result := newResult(KindError)

	spans, err := ea.spans.GetErrorSpans(ctx, window, ea.spanLimit)
	if err != nil {
		return result.withMessage(fmt.Sprintf("client error: %v", err))
	}
	rootCauseSpans := ea.finder.FindRootCauseSpans(spans)
	if len(rootCauseSpans) == 0 {
		return result.withMessage(MessageNoRootCauseSpans)
	}
	result.SpanIDs = rootCauseSpans

	restrictTo := []string(nil)
	if len(candidates) > 0 {
		restrictTo = patterns.ServicesOfKind(candidates, patterns.KindFailure)
		if len(restrictTo) == 0 {
			ea.logger.Warn("No Failure candidates to attribute errors to", zap.Strings("candidates", candidates))
			return result.withMessage(MessageNoPatternResult)
		}
	}

	mined, err := ea.miner.GetPatterns(ctx, window, rootCauseSpans)
	if err != nil {
		return result.withMessage(fmt.Sprintf("client error: %v", err))
	}
	ranking := patterns.RankServices(mined, ea.catalog, restrictTo)
	logRanking(ea.logger, ranking)
	result.Services = ranking.Services

	top, ok := ranking.Top()
	if !ok {
		return result.withMessage(MessageNoPatternResult)
	}
	return result.withRootCause(patterns.Candidate{Service: top.Service, Kind: patterns.KindFailure}.String())
}

func logRanking(logger *zap.Logger, ranking patterns.Ranking) {
	if ranking.Unparsed > 0 || ranking.Unmapped > 0 {
		logger.Warn(
			"Some patterns named no service",
			zap.Int("unparsed", ranking.Unparsed),
			zap.Int("unmapped", ranking.Unmapped),
		)
	}
	logger.Debug("Ranked services", zap.Any("services", ranking.Services))
}
