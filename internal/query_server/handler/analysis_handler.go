package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Avi18971911/Culprit/internal/analysis/latency"
	"github.com/Avi18971911/Culprit/internal/analyzer"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

type ErrorAnalyzer interface {
	Analyze(ctx context.Context, window model.TimeWindow, candidates []string) analyzer.AnalysisResult
}

type LatencyAnalyzer interface {
	Analyze(ctx context.Context, req analyzer.LatencyRequest) (analyzer.AnalysisResult, error)
}

// ErrorRootCauseHandler creates a handler for attributing an error burst to a service.
// @Summary Find the service an error burst originates from.
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body AnalysisRequestDTO true "The anomaly window and candidate root causes"
// @Success 200 {object} AnalysisResponseDTO "The analysis result"
// @Failure 400 {object} ErrorMessage "Invalid request"
// @Router /root_cause/error [post]
func ErrorRootCauseHandler(
	ea ErrorAnalyzer,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeBody(r.Body, logger)
		req, window, ok := decodeAnalysisRequest(w, r, logger)
		if !ok {
			return
		}
		result := ea.Analyze(r.Context(), window, req.Candidates)
		writeJson(w, mapAnalysisResultToDTO(result), logger)
	}
}

// LatencyRootCauseHandler creates a handler for attributing a latency spike to a service.
// @Summary Find the service a latency spike originates from.
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body AnalysisRequestDTO true "The anomaly window, candidate root causes and selector overrides"
// @Success 200 {object} AnalysisResponseDTO "The analysis result"
// @Failure 400 {object} ErrorMessage "Invalid request"
// @Failure 500 {object} ErrorMessage "Internal server error"
// @Router /root_cause/latency [post]
func LatencyRootCauseHandler(
	la LatencyAnalyzer,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeBody(r.Body, logger)
		req, window, ok := decodeAnalysisRequest(w, r, logger)
		if !ok {
			return
		}
		var reference model.TimeWindow
		if req.ReferenceStart != "" || req.ReferenceEnd != "" {
			var err error
			reference, err = model.ParseTimeWindow(req.ReferenceStart, req.ReferenceEnd)
			if err != nil {
				logger.Error("Error encountered when parsing reference window", zap.Error(err))
				HttpError(w, err.Error(), http.StatusBadRequest, logger)
				return
			}
		}

		result, err := la.Analyze(r.Context(), analyzer.LatencyRequest{
			Window:          window,
			ReferenceWindow: reference,
			Candidates:      req.Candidates,
			Normalize:       req.Normalize,
			OnlyTopPerTrace: req.OnlyTopPerTrace,
		})
		if err != nil {
			logger.Error("Error encountered when analyzing latency", zap.Error(err))
			if errors.Is(err, latency.ErrConfiguration) || errors.Is(err, analyzer.ErrInvalidRequest) {
				HttpError(w, err.Error(), http.StatusBadRequest, logger)
				return
			}
			HttpError(w, "Internal server error", http.StatusInternalServerError, logger)
			return
		}
		writeJson(w, mapAnalysisResultToDTO(result), logger)
	}
}

func decodeAnalysisRequest(
	w http.ResponseWriter,
	r *http.Request,
	logger *zap.Logger,
) (AnalysisRequestDTO, model.TimeWindow, bool) {
	var req AnalysisRequestDTO
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("Error encountered when decoding request body", zap.Error(err))
		HttpError(w, "Invalid request payload", http.StatusBadRequest, logger)
		return req, model.TimeWindow{}, false
	}
	window, err := model.ParseTimeWindow(req.Start, req.End)
	if err != nil {
		logger.Error("Error encountered when validating request", zap.Error(err))
		HttpError(w, err.Error(), http.StatusBadRequest, logger)
		return req, model.TimeWindow{}, false
	}
	return req, window, true
}

func mapAnalysisResultToDTO(result analyzer.AnalysisResult) AnalysisResponseDTO {
	services := make([]ServiceEvidenceDTO, len(result.Services))
	for i, evidence := range result.Services {
		services[i] = ServiceEvidenceDTO{Service: evidence.Service, Count: evidence.Count}
	}
	return AnalysisResponseDTO{
		Id:           result.ID.String(),
		Kind:         string(result.Kind),
		RootCauses:   result.RootCauses,
		SpanIDs:      result.SpanIDs,
		Services:     services,
		Confidence:   result.Confidence,
		Evidence:     result.Evidence,
		ErrorMessage: result.ErrorMessage,
		AnalyzedAt:   result.AnalyzedAt,
	}
}
