package delivery

import (
	"context"
	"time"
)

// BackoffFunc returns how long to wait before the next attempt, given the
// number of attempts already completed (1-based).
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff is the default backoff: 2^attempt seconds after the
// attempt-th try, so a single retry waits 2s, a second retry 4s, and so on.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 16 {
		attempt = 16 // cap the shift; anything beyond is an hour-plus anyway
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Operation is one delivery attempt. It must report network-level
// failures through the TestResult, not an error; errors abort the retry
// loop immediately (pre-network failures are never retried).
type Operation func(ctx context.Context) (*TestResult, error)

// Retryable reports whether a result may be retried: only network
// failures and timeouts qualify. A completed non-2xx response is a final,
// authoritative answer from the endpoint and is never retried here;
// hammering a broken receiver during an interactive test helps nobody.
func Retryable(res *TestResult) bool {
	if res == nil {
		return false
	}
	if res.Status == StatusTimeout {
		return true
	}
	return res.Status == StatusFailed && res.StatusCode == 0
}

// Do runs op up to attempts+1 times, waiting backoff(k) before attempt
// k+1. It stops early on the first non-retryable result and returns the
// last classified result with RetryCount set. A nil backoff uses
// ExponentialBackoff. Context cancellation during a wait returns the
// last result immediately.
func Do(ctx context.Context, op Operation, attempts int, backoff BackoffFunc) (*TestResult, error) {
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	if attempts < 0 {
		attempts = 0
	}

	var last *TestResult
	for attempt := 0; ; attempt++ {
		res, err := op(ctx)
		if err != nil {
			return nil, err
		}
		res.RetryCount = attempt
		last = res

		if !Retryable(res) || attempt >= attempts {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return last, nil
		case <-time.After(backoff(attempt + 1)):
		}
	}
}
