package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hedeqiang/rebound"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rebound",
	Short: "Inspect and exercise exponential backoff schedules",
	Long: `rebound computes exponential backoff delays with jitter.

Preview delay schedules, list the retry policies of a configuration file,
and watch a health endpoint with backoff between failed checks.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "rebound.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the configuration file")
}

// loadConfig reads the configuration file and applies the --log-level flag.
func loadConfig() (rebound.Config, error) {
	cfg, err := rebound.LoadConfig(configPath)
	if err != nil {
		return rebound.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg rebound.Config) (*zap.Logger, error) {
	logger, err := rebound.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}
