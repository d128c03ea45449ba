// Package resiliency retries transient failures with exponential back-off.
package resiliency

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ProbeBackOff is the policy used for short-lived reachability probes.
func ProbeBackOff() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(500*time.Millisecond),
		backoff.WithMaxElapsedTime(0),
	)
}

// RetryGet calls factory until it succeeds, returns a backoff.Permanent
// error, or ctx ends. On deadline the last attempt error is joined in.
func RetryGet[T any](ctx context.Context, policy backoff.BackOff, factory func() (T, error)) (T, error) {
	if policy == nil {
		policy = backoff.NewExponentialBackOff()
	}

	var lastAttemptErr error
	value, err := backoff.RetryNotifyWithData(
		factory,
		backoff.WithContext(policy, ctx),
		func(err error, _ time.Duration) {
			lastAttemptErr = err
		},
	)

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded) && lastAttemptErr != nil:
		var zero T
		return zero, errors.Join(lastAttemptErr, err)
	case err != nil:
		var zero T
		return zero, err
	default:
		return value, nil
	}
}
