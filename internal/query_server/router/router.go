package router

import (
	"net/http"

	"github.com/Avi18971911/Culprit/internal/analysis/latency"
	"github.com/Avi18971911/Culprit/internal/analysis/rootcause"
	"github.com/Avi18971911/Culprit/internal/metrics"
	"github.com/Avi18971911/Culprit/internal/query_server/handler"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func CreateRouter(
	errorAnalyzer handler.ErrorAnalyzer,
	latencyAnalyzer handler.LatencyAnalyzer,
	finder *rootcause.Finder,
	selector *latency.Selector,
	recorder *metrics.Recorder,
	metricsHandler http.Handler,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.Handle(
		"/root_cause/error", handler.ErrorRootCauseHandler(
			errorAnalyzer,
			logger,
		),
	).Methods("POST")

	r.Handle(
		"/root_cause/latency", handler.LatencyRootCauseHandler(
			latencyAnalyzer,
			logger,
		),
	).Methods("POST")

	r.Handle(
		"/spans/root_cause", handler.RootCauseSpansHandler(
			finder,
			recorder,
			logger,
		),
	).Methods("POST")

	r.Handle(
		"/spans/top_contributors", handler.TopContributorsHandler(
			selector,
			logger,
		),
	).Methods("POST")

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	r.Use(loggingMiddleware(logger))
	return r
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info(
				"Received request",
				zap.String("URL Path", r.URL.Path),
				zap.String("Method", r.Method),
			)
			next.ServeHTTP(w, r)
		})
	}
}
