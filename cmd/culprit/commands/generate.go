package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/Avi18971911/Culprit/internal/app"
	"github.com/Avi18971911/Culprit/internal/config"
	"github.com/Avi18971911/Culprit/internal/fake_traffic"
	"github.com/spf13/cobra"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type generateFlags struct {
	target       string
	fault        string
	faultService string
	batches      int
	traces       int
	interval     time.Duration
	seed         int64
}

func newGenerateCmd() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send synthetic traces with an injected fault to the OTLP scraper",
		RunE: func(cmd *cobra.Command, args []string) error {
			fault, err := fake_traffic.ParseFault(flags.fault)
			if err != nil {
				return err
			}
			generator, err := fake_traffic.NewGenerator(flags.seed, flags.faultService, fault)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			level := cfg.App.LogLevel
			if logLevel != "" {
				level = logLevel
			}
			logger, err := app.NewLogger(level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			target := flags.target
			if target == "" {
				target = cfg.App.OtlpAddr
			}
			conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", target, err)
			}
			defer conn.Close()

			return sendBatches(cmd.Context(), protoTrace.NewTraceServiceClient(conn), generator, flags, logger)
		},
	}
	cmd.Flags().StringVar(&flags.target, "target", "", "OTLP gRPC address, defaults to app.otlp_addr")
	cmd.Flags().StringVar(&flags.fault, "fault", string(fake_traffic.FailureFault), "Fault to inject: none, failure or latency")
	cmd.Flags().StringVar(&flags.faultService, "fault-service", "payment", "Service the fault is injected into")
	cmd.Flags().IntVar(&flags.batches, "batches", 10, "Number of exports to send")
	cmd.Flags().IntVar(&flags.traces, "traces", 20, "Traces per export")
	cmd.Flags().DurationVar(&flags.interval, "interval", time.Second, "Pause between exports")
	cmd.Flags().Int64Var(&flags.seed, "seed", time.Now().UnixNano(), "Random seed")
	return cmd
}

func sendBatches(
	ctx context.Context,
	exporter protoTrace.TraceServiceClient,
	generator *fake_traffic.Generator,
	flags *generateFlags,
	logger *zap.Logger,
) error {
	for i := 0; i < flags.batches; i++ {
		start := time.Now().UTC()
		if _, err := exporter.Export(ctx, generator.Request(start, flags.traces)); err != nil {
			return fmt.Errorf("failed to export batch %d: %w", i, err)
		}
		logger.Info("Exported synthetic traces",
			zap.Int("batch", i),
			zap.Int("traces", flags.traces),
			zap.String("fault", flags.fault),
			zap.String("fault_service", flags.faultService),
		)
		if i == flags.batches-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(flags.interval):
		}
	}
	return nil
}
