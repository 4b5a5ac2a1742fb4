// Example subscriber: observe retries through channel and callback subscribers.
//
// Usage:
//
//	go run ./example/subscriber
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/hedeqiang/rebound"
	"github.com/hedeqiang/rebound/backoff"
	"github.com/hedeqiang/rebound/event"
	"github.com/hedeqiang/rebound/policy"
	"github.com/hedeqiang/rebound/subscriber"
)

var errBusy = errors.New("resource busy")

func main() {
	ch := subscriber.NewChannel(64)

	var failures atomic.Int64
	cb := subscriber.NewCallback(func(a event.Attempt) {
		if a.Err != nil {
			failures.Add(1)
		}
	})

	r := rebound.New(
		rebound.WithSubscriber(ch),
		rebound.WithSubscriber(subscriber.Only(cb, event.Retrying, event.Failed)),
		rebound.WithPolicy(policy.Policy{
			Name:        "flaky",
			MaxAttempts: 6,
			Backoff:     backoff.Config{MinimumDelay: 50, MaximumDelay: 800, JitterRatio: 0.3},
		}),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for a := range ch.Attempts() {
			fmt.Printf("[%s] attempt=%d outcome=%s delay=%s err=%v\n",
				a.Policy, a.Attempt, a.Outcome, a.Delay, a.Err)
		}
	}()

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		if err := r.Go("flaky", func(ctx context.Context) error {
			if calls.Add(1)%3 != 0 {
				return errBusy
			}
			return nil
		}); err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
	<-done

	fmt.Printf("calls=%d failed attempts=%d dropped=%d\n", calls.Load(), failures.Load(), ch.Dropped())
}
