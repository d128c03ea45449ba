// Package await turns callback-driven vendor operations into blocking calls.
//
// The vendor library only delivers callbacks while someone calls its drain
// entry point, so Do pumps that entry point on a fixed interval until the
// operation's Token completes or the policy deadline elapses.
package await

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultInterval = 50 * time.Millisecond
	DefaultDeadline = 5 * time.Second
)

var (
	// ErrTimeout is wrapped by every TimeoutError.
	ErrTimeout = errors.New("operation timed out")
	// ErrPending is returned when a token result is read before completion.
	ErrPending = errors.New("operation still pending")
	// ErrReleased completes a token whose free hook ran before any result.
	ErrReleased = errors.New("operation released without result")
)

// TimeoutError reports an operation whose callback did not fire before its deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Policy bounds one polling loop.
type Policy struct {
	Interval time.Duration
	Deadline time.Duration
}

func (p Policy) normalized() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.Deadline <= 0 {
		p.Deadline = DefaultDeadline
	}
	if p.Interval > p.Deadline {
		p.Interval = p.Deadline
	}
	return p
}

// Pump drains the vendor callback queue on the calling goroutine.
type Pump interface {
	RunCallbacks()
}

// PumpFunc adapts a function to the Pump interface.
type PumpFunc func()

func (f PumpFunc) RunCallbacks() {
	f()
}

// Do starts one operation and blocks until its token completes, the policy
// deadline elapses, or ctx is cancelled.
//
// start registers the token with the vendor and must return immediately. A
// token abandoned on timeout stays valid for any late callback; its result is
// never read again.
func Do[T any](ctx context.Context, pump Pump, policy Policy, op string, start func(*Token[T]) error) (T, error) {
	var zero T
	policy = policy.normalized()

	tok := NewToken[T]()
	if err := start(tok); err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	if err := Wait(ctx, pump, policy, op, tok.Done()); err != nil {
		return zero, err
	}
	value, err := tok.Result()
	if errors.Is(err, ErrReleased) {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return value, err
}

// Wait pumps until done is closed. It returns a *TimeoutError once the
// deadline passes; the wait never overshoots the deadline by more than one
// interval.
func Wait(ctx context.Context, pump Pump, policy Policy, op string, done <-chan struct{}) error {
	policy = policy.normalized()
	deadline := time.Now().Add(policy.Deadline)

	timer := time.NewTimer(policy.Interval)
	defer timer.Stop()

	for {
		if pump != nil {
			pump.RunCallbacks()
		}

		select {
		case <-done:
			return nil
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Op: op, After: policy.Deadline}
		}

		timer.Reset(min(policy.Interval, remaining))
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
}
