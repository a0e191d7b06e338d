package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Avi18971911/Culprit/internal/analysis/latency"
	"github.com/Avi18971911/Culprit/internal/analysis/rootcause"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

// RootCauseSpansHandler creates a handler for finding the error root cause spans among raw spans.
// @Summary Find the spans where error chains originate.
// @Tags spans
// @Accept json
// @Produce json
// @Param request body RootCauseSpansRequestDTO true "The spans to search"
// @Success 200 {object} SpanIdsResponseDTO "Root cause span ids"
// @Failure 400 {object} ErrorMessage "Invalid request"
// @Router /spans/root_cause [post]
func RootCauseSpansHandler(
	finder *rootcause.Finder,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeBody(r.Body, logger)
		var req RootCauseSpansRequestDTO
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			logger.Error("Error encountered when decoding request body", zap.Error(err))
			HttpError(w, "Invalid request payload", http.StatusBadRequest, logger)
			return
		}

		spans, skipped, invalidStatus := mapRootCauseSpanDTOs(req.Spans)
		if skipped > 0 {
			logger.Warn("Skipped spans without span or trace id", zap.Int("count", skipped))
			recorder.Skipped(metrics.ReasonMalformedDocument, skipped)
		}
		if invalidStatus > 0 {
			logger.Warn("Kept spans with unreadable status codes as not errored", zap.Int("count", invalidStatus))
			recorder.Skipped(metrics.ReasonInvalidStatus, invalidStatus)
		}
		writeJson(w, SpanIdsResponseDTO{
			SpanIDs:       finder.FindRootCauseSpans(spans),
			Skipped:       skipped,
			InvalidStatus: invalidStatus,
		}, logger)
	}
}

// TopContributorsHandler creates a handler for selecting the spans that account for most latency.
// @Summary Select the spans whose exclusive durations reach the percentile of the total.
// @Tags spans
// @Accept json
// @Produce json
// @Param request body TopContributorsRequestDTO true "The samples and selector options"
// @Success 200 {object} SpanIdsResponseDTO "Selected span ids, largest contribution first"
// @Failure 400 {object} ErrorMessage "Invalid request"
// @Router /spans/top_contributors [post]
func TopContributorsHandler(
	selector *latency.Selector,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeBody(r.Body, logger)
		var req TopContributorsRequestDTO
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			logger.Error("Error encountered when decoding request body", zap.Error(err))
			HttpError(w, "Invalid request payload", http.StatusBadRequest, logger)
			return
		}

		durations, skipped := mapSpanDurationDTOs(req.Durations)
		spanIDs, err := selector.SelectTopContributors(durations, mapSelectorOptions(req))
		if err != nil {
			logger.Error("Error encountered when selecting top contributors", zap.Error(err))
			HttpError(w, err.Error(), http.StatusBadRequest, logger)
			return
		}
		writeJson(w, SpanIdsResponseDTO{SpanIDs: spanIDs, Skipped: skipped}, logger)
	}
}

// mapRootCauseSpanDTOs skips spans without a span or trace id and reads an unreadable
// status code as 0, the same way span documents are read from the index.
func mapRootCauseSpanDTOs(dtos []RootCauseSpanDTO) ([]model.Span, int, int) {
	spans := make([]model.Span, 0, len(dtos))
	skipped := 0
	invalidStatus := 0
	for _, dto := range dtos {
		if dto.SpanID == "" || dto.TraceID == "" {
			skipped++
			continue
		}
		statusCode, err := model.ParseStatusCode(dto.StatusCode)
		if err != nil {
			invalidStatus++
			statusCode = 0
		}
		spans = append(spans, model.Span{
			SpanID:       dto.SpanID,
			ParentSpanID: dto.ParentSpanID,
			TraceID:      dto.TraceID,
			StatusCode:   statusCode,
		})
	}
	return spans, skipped, invalidStatus
}

// mapSpanDurationDTOs keys samples by span id. Samples without a span id are skipped.
func mapSpanDurationDTOs(dtos []SpanDurationDTO) (map[string]model.SpanDuration, int) {
	durations := make(map[string]model.SpanDuration, len(dtos))
	skipped := 0
	for _, dto := range dtos {
		if dto.SpanID == "" {
			skipped++
			continue
		}
		sample := model.SpanDuration{SpanID: dto.SpanID, TraceID: dto.TraceID, Duration: dto.Duration}
		if dto.ServiceName != "" && dto.SpanName != "" {
			sample.Identity = &model.BaselineKey{ServiceName: dto.ServiceName, SpanName: dto.SpanName}
		}
		durations[dto.SpanID] = sample
	}
	return durations, skipped
}

func mapSelectorOptions(req TopContributorsRequestDTO) latency.Options {
	opts := latency.DefaultOptions()
	opts.OnlyTopPerTrace = req.OnlyTopPerTrace
	opts.Normalize = req.Normalize
	if req.Percentile != nil {
		opts.Percentile = *req.Percentile
	}
	if req.MaxDuration != nil {
		opts.MaxDuration = *req.MaxDuration
	}
	if req.Baseline != nil {
		opts.Baseline = make(model.Baseline, len(req.Baseline))
		for _, entry := range req.Baseline {
			opts.Baseline[model.BaselineKey{ServiceName: entry.ServiceName, SpanName: entry.SpanName}] = entry.Average
		}
	}
	return opts
}
