package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "culprit",
	Short: "Culprit - root cause attribution for distributed traces",
	Long: `Culprit attributes an error burst or a latency spike observed in a span store
to the service it most likely originates from.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CULPRIT_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides app.log_level")

	rootCmd.AddCommand(newErrorCmd())
	rootCmd.AddCommand(newLatencyCmd())
	rootCmd.AddCommand(newGenerateCmd())
}
