package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Backoff strategies for RetryPolicy.
const (
	BackoffNone        = "none"
	BackoffConstant    = "constant"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// RetryPolicy bounds the transient-failure retries of one synthesis call.
// These retries are independent of refine attempts.
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Backoff    string        `json:"backoff" yaml:"backoff"`
	Delay      time.Duration `json:"delay" yaml:"delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
}

// DefaultRetryPolicy retries twice with exponential backoff from one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    BackoffExponential,
		Delay:      time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// UnmarshalJSON accepts delays as duration strings ("500ms") or nanoseconds.
func (p *RetryPolicy) UnmarshalJSON(data []byte) error {
	type plain RetryPolicy
	aux := struct {
		*plain
		Delay    schema.Duration `json:"delay"`
		MaxDelay schema.Duration `json:"max_delay"`
	}{plain: (*plain)(p), Delay: schema.Duration(p.Delay), MaxDelay: schema.Duration(p.MaxDelay)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Delay = time.Duration(aux.Delay)
	p.MaxDelay = time.Duration(aux.MaxDelay)
	return nil
}

// IsRetryableError classifies whether a synthesis error should be retried.
// Retryable: network errors, timeouts, rate limits, typed errors with retryable codes.
// Not retryable: cancellation, malformed output, rejected requests.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// The caller abandoned the request.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *schema.Error
	if errors.As(err, &se) {
		return se.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"eof",
		"temporary failure",
		"i/o timeout",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"internal server error",
		"too many requests",
		"overloaded",
	}
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	// Default: retryable; MaxRetries bounds the cost.
	return true
}

// ComputeBackoff calculates the delay before retry number attempt (zero-based).
func ComputeBackoff(policy RetryPolicy, attempt int) time.Duration {
	if policy.Delay <= 0 {
		return 0
	}

	var delay time.Duration
	switch policy.Backoff {
	case BackoffExponential:
		multiplier := time.Duration(1)
		for i := 0; i < attempt; i++ {
			multiplier *= 2
		}
		delay = policy.Delay * multiplier
	case BackoffLinear:
		delay = policy.Delay * time.Duration(attempt+1)
	default: // none, constant
		delay = policy.Delay
	}

	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// WaitForBackoff sleeps for delay or returns early if the context is cancelled.
func WaitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
