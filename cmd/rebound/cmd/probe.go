package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hedeqiang/rebound/watcher"
)

var (
	probeConfig  = watcher.DefaultPollerConfig()
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Poll a health endpoint, backing off while it fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := probeConfig.Backoff.Validate(); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		url := args[0]
		client := &http.Client{Timeout: probeTimeout}
		p := watcher.NewPoller(httpProbe(client, url), probeConfig)
		p.OnError(func(err error) {
			logger.Warn("probe failed",
				zap.String("url", url),
				zap.Int("failures", p.Failures()),
				zap.Error(err),
			)
		})
		p.OnRecover(func(failures int) {
			logger.Info("probe recovered", zap.String("url", url), zap.Int("failures", failures))
		})

		logger.Info("probing", zap.String("url", url), zap.Duration("interval", probeConfig.Interval))
		return p.Watch(ctx)
	},
}

func init() {
	flags := probeCmd.Flags()
	flags.DurationVar(&probeConfig.Interval, "interval", probeConfig.Interval, "interval between checks while healthy")
	flags.Float64Var(&probeConfig.Backoff.MinimumDelay, "min", probeConfig.Backoff.MinimumDelay, "minimum delay after a failure, in milliseconds")
	flags.Float64Var(&probeConfig.Backoff.MaximumDelay, "max", probeConfig.Backoff.MaximumDelay, "maximum delay after a failure, in milliseconds")
	flags.Float64Var(&probeConfig.Backoff.GrowthFactor, "factor", probeConfig.Backoff.GrowthFactor, "growth factor per consecutive failure")
	flags.Float64Var(&probeConfig.Backoff.JitterRatio, "jitter", probeConfig.Backoff.JitterRatio, "jitter ratio")
	flags.DurationVar(&probeTimeout, "timeout", 5*time.Second, "timeout of a single check")
	rootCmd.AddCommand(probeCmd)
}

// httpProbe returns a Probe that GETs url and fails on transport errors and
// non-2xx responses.
func httpProbe(client *http.Client, url string) watcher.Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unhealthy: HTTP %d", resp.StatusCode)
		}
		return nil
	}
}
