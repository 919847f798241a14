package common

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Default pacing for the EC2 and S3 control planes. Both throttle mutating
// calls well below their documented read limits, so stay conservative:
// 5 requests per second with a burst of 10.
const (
	defaultRequestsPerSecond = 5
	defaultBurst             = 10

	// throttleRetries is how many times a throttled call is retried before
	// the error is surfaced.
	throttleRetries = 3
)

// throttleBaseDelay is the first backoff step; it doubles per attempt.
// Variable so tests can shorten it.
var throttleBaseDelay = 500 * time.Millisecond

// NewAPILimiter returns the shared per-run rate limiter used by the tagging
// providers.
func NewAPILimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst)
}

// CallWithRetry paces call through limiter and retries it with exponential
// backoff when AWS reports throttling. All other errors are returned as-is
// on the first occurrence.
func CallWithRetry(ctx context.Context, limiter *rate.Limiter, call func() error) error {
	delay := throttleBaseDelay
	var err error
	for attempt := 0; attempt <= throttleRetries; attempt++ {
		if limiter != nil {
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
		}
		err = call()
		if err == nil || !IsThrottle(err) {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
