package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("runs handler after caller context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		async.Dispatch(ctx, func(ctx context.Context) error {
			cancel()
			done <- ctx.Err()
			return nil
		})

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler was not called")
		}
	})

	t.Run("absorbs errors and panics", func(t *testing.T) {
		called := make(chan struct{}, 2)
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			called <- struct{}{}
			return errors.New("boom")
		})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			called <- struct{}{}
			panic("boom")
		})

		for range 2 {
			select {
			case <-called:
			case <-time.After(time.Second):
				t.Fatal("handler was not called")
			}
		}
	})
}
