// Package backoff provides a stateful exponential backoff generator.
//
// A Generator produces successive retry delays in milliseconds:
//
//	delay = MinimumDelay * GrowthFactor^attempt (+/- jitter), capped at MaximumDelay
//
// Each call to Next advances the attempt counter; Reset starts the sequence
// over. A Generator is owned by a single retry loop and is not safe for
// concurrent use.
//
//	g := backoff.New(backoff.Config{MinimumDelay: 100, MaximumDelay: 10000})
//	for {
//	    if err := op(); err == nil {
//	        break
//	    }
//	    time.Sleep(g.NextDuration())
//	}
package backoff
