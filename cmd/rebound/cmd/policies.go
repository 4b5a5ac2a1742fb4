package cmd

import (
	"fmt"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hedeqiang/rebound"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the retry policies of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		r := rebound.New(rebound.WithConfig(cfg), rebound.WithLogger(logger))

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Policy", "Max Attempts", "Min (ms)", "Max (ms)", "Factor", "Jitter")
		for _, p := range cfg.Policies {
			if !slices.Contains(r.Policies(), p.Name) {
				continue
			}
			attempts := fmt.Sprint(p.MaxAttempts)
			if p.MaxAttempts < 0 {
				attempts = "unlimited"
			}
			_ = table.Append(
				p.Name,
				attempts,
				fmt.Sprint(p.Backoff.MinimumDelay),
				fmt.Sprint(p.Backoff.MaximumDelay),
				fmt.Sprint(p.Backoff.GrowthFactor),
				fmt.Sprint(p.Backoff.JitterRatio),
			)
		}
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}
