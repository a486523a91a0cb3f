package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWithBackoff_RetriesOnceThenFails(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := WithBackoff(context.Background(), Retries(1, time.Millisecond), zaptest.NewLogger(t), "allDeposits", func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestWithBackoff_SucceedsOnRetry(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), Retries(3, time.Millisecond), zaptest.NewLogger(t), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithBackoff_SingleAttemptReturnsRawError(t *testing.T) {
	boom := errors.New("boom")
	err := WithBackoff(context.Background(), Retries(0, 0), zaptest.NewLogger(t), "op", func() error { return boom })
	assert.Equal(t, boom, err)
}

func TestWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithBackoff(ctx, DefaultConfig(), zaptest.NewLogger(t), "op", func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, calculateBackoff(cfg, 1))
	assert.Equal(t, 2*time.Second, calculateBackoff(cfg, 2))
	assert.Equal(t, 5*time.Second, calculateBackoff(cfg, 5))

	cfg.JitterEnabled = true
	for i := 0; i < 10; i++ {
		d := calculateBackoff(cfg, 2)
		assert.GreaterOrEqual(t, d, 1700*time.Millisecond)
		assert.LessOrEqual(t, d, 2300*time.Millisecond)
	}
}
