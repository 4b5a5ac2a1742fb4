// Example basic: call a JSON-RPC endpoint under a retry policy.
//
// Usage:
//
//	RPC_URL=https://eth-mainnet.alchemyapi.io/v2/YOUR_KEY go run ./example/basic
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/rebound"
	"github.com/hedeqiang/rebound/backoff"
	mw "github.com/hedeqiang/rebound/middleware"
	"github.com/hedeqiang/rebound/policy"
	"github.com/hedeqiang/rebound/transport"
)

func main() {
	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		log.Fatal("RPC_URL environment variable is required")
	}

	logger, err := rebound.NewLogger("debug")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	// 1. Create a Rebound instance with an "rpc" policy
	r := rebound.New(
		rebound.WithLogger(logger),
		rebound.WithPolicy(policy.Policy{
			Name:        "rpc",
			MaxAttempts: 5,
			Backoff: backoff.Config{
				MinimumDelay: 200,
				MaximumDelay: 5000,
				GrowthFactor: 2,
				JitterRatio:  0.2,
			},
		}),
	)

	// 2. Log every attempt and space them out
	r.Use(mw.NewLogger(logger), mw.NewRateLimit(100*time.Millisecond, 1))

	// 3. The transport retries 429 and 5xx on its own; the policy covers the rest
	client := transport.NewHTTP(rpcURL)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var block string
	err = r.Do(ctx, "rpc", func(ctx context.Context) error {
		result, err := client.Call(ctx, "eth_blockNumber")
		if err != nil {
			return err
		}
		block = string(result)
		return nil
	})
	if err != nil {
		logger.Fatal("eth_blockNumber failed", zap.Error(err))
	}
	fmt.Println("latest block:", block)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.Shutdown(shutdownCtx)
}
