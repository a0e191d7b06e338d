package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Avi18971911/Culprit/internal/analyzer"
	"github.com/Avi18971911/Culprit/internal/app"
	"github.com/Avi18971911/Culprit/internal/config"
	"github.com/Avi18971911/Culprit/internal/patterns"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type windowFlags struct {
	start        string
	end          string
	candidates   []string
	patternsFile string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "Start of the anomaly window (required)")
	cmd.Flags().StringVar(&f.end, "end", "", "End of the anomaly window (required)")
	cmd.Flags().StringSliceVar(&f.candidates, "candidates", nil, "Candidate root causes, e.g. cart.Failure,ad.cpu")
	cmd.Flags().StringVar(&f.patternsFile, "patterns", "", "Use a pattern mining result from this JSON file instead of mining the span index")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func newErrorCmd() *cobra.Command {
	flags := &windowFlags{}
	cmd := &cobra.Command{
		Use:   "error",
		Short: "Attribute an error burst to a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := model.ParseTimeWindow(flags.start, flags.end)
			if err != nil {
				return err
			}
			env, err := setup(flags.patternsFile)
			if err != nil {
				return err
			}
			defer env.close()

			result := env.components.ErrorAnalyzer.Analyze(cmd.Context(), window, flags.candidates)
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	flags.register(cmd)
	return cmd
}

func newLatencyCmd() *cobra.Command {
	flags := &windowFlags{}
	var (
		referenceStart  string
		referenceEnd    string
		normalize       bool
		onlyTopPerTrace bool
	)
	cmd := &cobra.Command{
		Use:   "latency",
		Short: "Attribute a latency spike to a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := model.ParseTimeWindow(flags.start, flags.end)
			if err != nil {
				return err
			}
			req := analyzer.LatencyRequest{Window: window, Candidates: flags.candidates}
			if referenceStart != "" || referenceEnd != "" {
				req.ReferenceWindow, err = model.ParseTimeWindow(referenceStart, referenceEnd)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("normalize") {
				req.Normalize = &normalize
			}
			if cmd.Flags().Changed("only-top-per-trace") {
				req.OnlyTopPerTrace = &onlyTopPerTrace
			}

			env, err := setup(flags.patternsFile)
			if err != nil {
				return err
			}
			defer env.close()

			result, err := env.components.LatencyAnalyzer.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&referenceStart, "reference-start", "", "Start of the reference window, defaults to the lookback before --start")
	cmd.Flags().StringVar(&referenceEnd, "reference-end", "", "End of the reference window")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "Subtract each operation's reference baseline")
	cmd.Flags().BoolVar(&onlyTopPerTrace, "only-top-per-trace", false, "Keep only the largest contributor of each trace")
	return cmd
}

type environment struct {
	components *app.Components
	logger     *zap.Logger
}

func (e *environment) close() {
	e.components.Close()
	_ = e.logger.Sync()
}

func setup(patternsFile string) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.App.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := app.NewLogger(level)
	if err != nil {
		return nil, err
	}
	miner, err := loadMiner(patternsFile)
	if err != nil {
		return nil, err
	}
	es, err := app.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	components, err := app.Build(es, cfg, miner, logger)
	if err != nil {
		return nil, err
	}
	return &environment{components: components, logger: logger}, nil
}

// loadMiner returns nil, meaning mine the span index, when path is empty.
func loadMiner(path string) (patterns.Miner, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns file: %w", err)
	}
	result, err := patterns.ParseResult(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patterns file %s: %w", path, err)
	}
	return patterns.StaticMiner{Result: result}, nil
}

func printResult(w io.Writer, result analyzer.AnalysisResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
