package service

import (
	"context"
	"errors"
	"time"
)

// RetryState is what the policy knows about a completion in progress.
type RetryState struct {
	// Attempt is the 0-based index of the attempt that just failed.
	Attempt int
	// TransportFailures counts failures that were not rate limits.
	TransportFailures int
}

// RetryPolicy decides whether and when a failed completion attempt is retried.
type RetryPolicy struct {
	MaxAttempts int
	// BaseDelay is the first rate-limit backoff. It doubles on every attempt.
	BaseDelay time.Duration
	// TransportDelay is the fixed wait before retrying any other failure.
	TransportDelay time.Duration
	// MaxTransportRetries bounds retries of failures that are not rate limits.
	MaxTransportRetries int
}

// DefaultRetryPolicy waits 2s then 4s on rate limits and retries other failures once after 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         3,
		BaseDelay:           2 * time.Second,
		TransportDelay:      time.Second,
		MaxTransportRetries: 1,
	}
}

// Backoff returns the wait after the failed 0-based attempt.
func (p RetryPolicy) Backoff(attempt int, err error) time.Duration {
	if IsRateLimited(err) {
		return p.BaseDelay << uint(attempt)
	}
	return p.TransportDelay
}

// Retryable reports whether another attempt may follow the failure err.
func (p RetryPolicy) Retryable(err error, state RetryState) bool {
	if state.Attempt+1 >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	return state.TransportFailures <= p.MaxTransportRetries
}
