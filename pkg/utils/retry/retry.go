package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/m-mizutani/goerr/v2"
)

// Policy is an exponential retry schedule. The first attempt runs
// immediately; attempt n waits min(BaseDelay*Multiplier^(n-2), MaxDelay).
type Policy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultPolicy is used for per-item writes of the tagging stage.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   4 * time.Second,
	Multiplier:  2,
	MaxDelay:    10 * time.Second,
}

// Do calls fn until it succeeds, MaxAttempts is reached or ctx is done. The
// returned error is the last error of fn.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxAttempts == 0 {
		return goerr.New("retry policy requires at least one attempt")
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
	)
	return err
}
