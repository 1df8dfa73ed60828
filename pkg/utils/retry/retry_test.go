package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/utils/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	Multiplier:  2,
	MaxDelay:    5 * time.Millisecond,
}

func TestPolicy_Do(t *testing.T) {
	t.Run("succeeds on third attempt", func(t *testing.T) {
		calls := 0
		err := fastPolicy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		gt.NoError(t, err)
		gt.Number(t, calls).Equal(3)
	})

	t.Run("returns last error after max attempts", func(t *testing.T) {
		calls := 0
		errFinal := errors.New("still failing")
		err := fastPolicy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errFinal
		})
		gt.Error(t, err).Is(errFinal)
		gt.Number(t, calls).Equal(3)
	})

	t.Run("does not retry after success", func(t *testing.T) {
		calls := 0
		gt.NoError(t, fastPolicy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		}))
		gt.Number(t, calls).Equal(1)
	})

	t.Run("zero attempts is rejected", func(t *testing.T) {
		err := retry.Policy{}.Do(context.Background(), func(ctx context.Context) error { return nil })
		gt.Error(t, err)
	})

	t.Run("default policy matches tagging schedule", func(t *testing.T) {
		gt.Value(t, retry.DefaultPolicy.MaxAttempts).Equal(uint(3))
		gt.Value(t, retry.DefaultPolicy.BaseDelay).Equal(4 * time.Second)
		gt.Value(t, retry.DefaultPolicy.MaxDelay).Equal(10 * time.Second)
	})
}
