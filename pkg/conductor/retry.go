package conductor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aravindhsampath/chitti/pkg/brainclient"
)

// retryPolicy bounds the Conductor's own retry of brain calls: the Brain
// Client never retries itself (spec.md §4.2), this is the caller's job.
type retryPolicy struct {
	MaxAttempts int
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{MaxAttempts: 3}
}

// withRetry runs op up to p.MaxAttempts times, backing off exponentially
// with jitter between attempts and honoring a RateLimitedError's
// Retry-After hint when present. It gives up immediately on a
// non-retryable error.
func (p retryPolicy) withRetry(ctx context.Context, op func(attempt int) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	var lastErr error
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	rateLimitedLastTime := false
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if !brainclient.IsRetryable(lastErr) {
			return lastErr
		}

		rl, isRateLimited := lastErr.(*brainclient.RateLimitedError)
		// spec.md §7: a rate limit is retried once, not with the full
		// backoff budget — two in a row surfaces RateLimited.
		if isRateLimited && rateLimitedLastTime {
			return lastErr
		}
		rateLimitedLastTime = isRateLimited

		if attempt == attempts {
			break
		}

		delay := bo.NextBackOff()
		if isRateLimited {
			delay = time.Duration(rl.RetryAfterSeconds) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
