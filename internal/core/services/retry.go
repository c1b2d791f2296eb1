package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

const defaultInitialInterval = 100 * time.Millisecond

// newBackoff builds an exponential backoff from p. Each call starts a fresh
// elapsed-time budget.
func newBackoff(p domain.RetryPolicy) retry.Backoff {
	initial := p.InitialInterval
	if initial <= 0 {
		initial = defaultInitialInterval
	}
	b := retry.NewExponential(initial)
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(p.JitterPercent, b)
	}
	if p.MaxInterval > 0 {
		b = retry.WithCappedDuration(p.MaxInterval, b)
	}
	if p.MaxElapsed <= 0 {
		return retry.WithMaxRetries(0, b)
	}
	return retry.WithMaxDuration(p.MaxElapsed, b)
}

// withBackoff runs fn until it succeeds, returns an error other than a
// connection failure, or the policy's elapsed budget runs out. The last
// error is returned unwrapped.
func withBackoff(ctx context.Context, p domain.RetryPolicy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, newBackoff(p), func(ctx context.Context) error {
		err := fn(ctx)
		if domain.IsConnectionFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
