package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/drawsynth/pkg/schema"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"wrapped cancel", fmt.Errorf("synthesize: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, true},
		{"overloaded provider", schema.NewError(schema.ErrCodeSynthesisFailed, "model API error (529)"), true},
		{"store hiccup", schema.NewError(schema.ErrCodeStore, "database connection lost"), true},
		{"wrapped malformed", fmt.Errorf("attempt 2: %w", schema.NewError(schema.ErrCodeMalformedOutput, "no JSON")), false},
		{"plain error", errors.New("something went wrong"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestIsRetryableError_TerminalCodes(t *testing.T) {
	for _, code := range []string{
		schema.ErrCodeValidation,
		schema.ErrCodeSchemaViolation,
		schema.ErrCodeMalformedOutput,
		schema.ErrCodeProviderRejected,
		schema.ErrCodeRender,
		schema.ErrCodeInvalidTransition,
		schema.ErrCodeNotFound,
		schema.ErrCodeCancelled,
		schema.ErrCodeCircuitOpen,
	} {
		assert.False(t, IsRetryableError(schema.NewError(code, "x")), code)
	}
}

func TestIsRetryableError_TransportMessages(t *testing.T) {
	for _, msg := range []string{
		"connection refused",
		"connection reset by peer",
		"broken pipe",
		"unexpected EOF",
		"i/o timeout",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"internal server error",
		"Overloaded",
	} {
		assert.True(t, IsRetryableError(errors.New(msg)), msg)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, BackoffExponential, p.Backoff)
	assert.Equal(t, time.Second, ComputeBackoff(p, 0))
	assert.Equal(t, 10*time.Second, ComputeBackoff(p, 8), "capped at MaxDelay")
}

func TestComputeBackoff(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name   string
		policy RetryPolicy
		want   []time.Duration // by retry index
	}{
		{"no delay", RetryPolicy{Backoff: BackoffExponential}, []time.Duration{0, 0}},
		{"constant", RetryPolicy{Backoff: BackoffConstant, Delay: 100 * ms}, []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"none", RetryPolicy{Backoff: BackoffNone, Delay: 100 * ms}, []time.Duration{100 * ms, 100 * ms}},
		{"linear", RetryPolicy{Backoff: BackoffLinear, Delay: 10 * ms}, []time.Duration{10 * ms, 20 * ms, 30 * ms}},
		{"exponential", RetryPolicy{Backoff: BackoffExponential, Delay: 10 * ms}, []time.Duration{10 * ms, 20 * ms, 40 * ms, 80 * ms}},
		{"capped", RetryPolicy{Backoff: BackoffExponential, Delay: 10 * ms, MaxDelay: 50 * ms}, []time.Duration{10 * ms, 20 * ms, 40 * ms, 50 * ms, 50 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				assert.Equal(t, want, ComputeBackoff(tt.policy, i), "retry %d", i)
			}
		})
	}
}

func TestWaitForBackoff(t *testing.T) {
	assert.NoError(t, WaitForBackoff(context.Background(), 0))
	assert.NoError(t, WaitForBackoff(context.Background(), -1))

	start := time.Now()
	assert.NoError(t, WaitForBackoff(context.Background(), 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitForBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err := WaitForBackoff(ctx, 5*time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
