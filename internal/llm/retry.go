package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy controls retries for retryable unified errors (429, 5xx, 408).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Jitter:     true,
	}
}

// SleepFunc lets tests replace the inter-attempt sleep.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry invokes fn until it succeeds, returns a non-retryable error, or the
// policy budget is exhausted. A provider-supplied Retry-After wins over the
// computed backoff. onRetry, when non-nil, observes each failed attempt.
func Retry(ctx context.Context, policy RetryPolicy, sleep SleepFunc, onRetry func(attempt int, err error), fn func() (Response, error)) (Response, error) {
	if sleep == nil {
		sleep = defaultSleep
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var le Error
		if !errors.As(err, &le) || !le.Retryable() || attempt >= policy.MaxRetries {
			return Response{}, err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		delay := backoffDelay(policy, attempt)
		if ra := le.RetryAfter(); ra != nil && *ra > 0 {
			delay = *ra
		}
		if err := sleep(ctx, delay); err != nil {
			return Response{}, lastErr
		}
	}
}

func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	d := policy.BaseDelay << uint(attempt)
	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	if policy.Jitter && d > 0 {
		d = d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
	}
	return d
}
