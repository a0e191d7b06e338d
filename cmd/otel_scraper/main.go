package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Avi18971911/Culprit/internal/app"
	"github.com/Avi18971911/Culprit/internal/config"
	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	traceServer "github.com/Avi18971911/Culprit/internal/otel_server/trace/server"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/Avi18971911/Culprit/internal/write_buffer"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
)

const shutdownTimeout = 30 * time.Second

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

	listener, err := net.Listen("tcp", cfg.App.OtlpAddr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.Error(err))
	}

	ac := client.NewCulpritClientImpl(es, client.Async)
	traceDBBuffer := write_buffer.NewDatabaseWriteBufferImpl[model.Span](
		ac,
		cfg.Elasticsearch.SpanIndex,
		write_buffer.WriteQueueSize,
		logger,
	)

	srv := grpc.NewServer()
	traceServiceServer := traceServer.NewTraceServiceServerImpl(
		logger,
		traceDBBuffer,
	)
	protoTrace.RegisterTraceServiceServer(srv, traceServiceServer)

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
		logger.Info("Shutting down gRPC service")
		srv.GracefulStop()
	}()

	logger.Info("gRPC service started, listening for OpenTelemetry traces...", zap.String("addr", cfg.App.OtlpAddr))
	if err := srv.Serve(listener); err != nil {
		logger.Error("Failed to serve", zap.Error(err))
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := traceDBBuffer.Flush(flushCtx); err != nil {
		logger.Error("Failed to flush buffered spans", zap.Error(err))
	}
}
