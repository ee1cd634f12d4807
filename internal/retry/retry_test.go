package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gpspull/internal/retry"
)

var errTransient = errors.New("transient")

func fastConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		IsRetryable:  func(error) bool { return true },
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return errTransient
	})
	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	require.ErrorIs(t, err, errTransient, "last error stays unwrappable")
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	cfg := fastConfig()
	cfg.IsRetryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := retry.Do(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.NotErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	require.Equal(t, 1, calls)
}

func TestDoHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, fastConfig(), func() error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	})
	require.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestDefaultIsRetryable(t *testing.T) {
	t.Parallel()

	require.False(t, retry.DefaultIsRetryable(nil))
	require.False(t, retry.DefaultIsRetryable(errors.New("boring")))
	require.True(t, retry.DefaultIsRetryable(context.DeadlineExceeded))
}
