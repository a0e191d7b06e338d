package main

import (
	"log"
	"net/http"
	"os"

	"github.com/Avi18971911/Culprit/internal/app"
	"github.com/Avi18971911/Culprit/internal/config"
	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Culprit/internal/query_server/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// @title Culprit API
// @version 1.0
// @description Root cause attribution of error bursts and latency spikes in distributed traces.

func main() {
	cfg, err := config.Load(os.Getenv("CULPRIT_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := app.NewLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	es, err := app.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
	}

	bs := bootstrapper.NewBootstrapper(es, logger)
	err = bs.BootstrapElasticsearch(cfg.Elasticsearch.SpanIndex)
	if err != nil {
		logger.Error("Failed to bootstrap elasticsearch", zap.Error(err))
	}

	components, err := app.Build(es, cfg, nil, logger)
	if err != nil {
		logger.Fatal("Failed to build analysis components", zap.Error(err))
	}
	defer components.Close()

	r := router.CreateRouter(
		components.ErrorAnalyzer,
		components.LatencyAnalyzer,
		components.Finder,
		components.Selector,
		components.Recorder,
		promhttp.HandlerFor(components.Registry, promhttp.HandlerOpts{}),
		logger,
	)
	logger.Info("Starting query server", zap.String("addr", cfg.App.QueryServerAddr))
	if err := http.ListenAndServe(cfg.App.QueryServerAddr, r); err != nil {
		logger.Fatal("Failed to serve", zap.Error(err))
	}
}
