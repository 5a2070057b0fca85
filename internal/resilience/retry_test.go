package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SenErenn/StellaRep/internal/errors"
)

func TestRetryWithConfigStopsOnSuccess(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return true },
	}

	attempts := 0
	err := RetryWithConfig(context.Background(), config, func() error {
		attempts++
		if attempts < 3 {
			return errors.NewNetworkError("connection reset", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfigDoesNotRetryNonRetryable(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return errors.NewValidationError("bad address")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryManagerFallsBackToStandardPolicy(t *testing.T) {
	rm := NewRetryManager()
	rm.RegisterPolicy("etherscan-api", SlowRetryPolicy)

	assert.Equal(t, "slow", rm.GetPolicy("etherscan-api").Name)
	assert.Equal(t, "standard", rm.GetPolicy("unregistered").Name)
}

func TestExecuteWithRetryHonorsRegisteredPolicy(t *testing.T) {
	RegisterServicePolicy("flaky-upstream", FastRetryPolicy)

	attempts := 0
	err := ExecuteWithRetry(context.Background(), "flaky-upstream", func() error {
		attempts++
		return errors.NewTimeoutError("deadline exceeded", nil)
	})

	require.Error(t, err)
	assert.Equal(t, FastRetryPolicy.Config.MaxAttempts, attempts)
}
