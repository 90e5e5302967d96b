package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), rc, "topology", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("rpc error: code = Unavailable")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), rc, "topology", func(context.Context) error {
		calls++
		return errors.New("permission denied")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_HonorsCancellation(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, rc, "topology", func(context.Context) error {
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
