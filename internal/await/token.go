package await

import (
	"sync"
	"sync/atomic"
)

// Token is the completion slot shared between a blocked caller and the vendor
// callback that eventually fills it.
//
// The payload is written under mu before done is closed, so a reader that
// observes Done sees the payload.
type Token[T any] struct {
	mu        sync.Mutex
	completed bool
	value     T
	err       error
	done      chan struct{}

	released atomic.Bool
}

// NewToken returns an incomplete token.
func NewToken[T any]() *Token[T] {
	return &Token[T]{done: make(chan struct{})}
}

// Complete stores the operation outcome. Only the first call wins; it reports
// whether this call completed the token.
func (t *Token[T]) Complete(value T, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed {
		return false
	}
	t.value = value
	t.err = err
	t.completed = true
	close(t.done)
	return true
}

// Release marks the vendor's free hook as run and completes the token with
// ErrReleased if no result arrived first. It reports false on repeat calls.
func (t *Token[T]) Release() bool {
	if !t.released.CompareAndSwap(false, true) {
		return false
	}
	var zero T
	t.Complete(zero, ErrReleased)
	return true
}

// Released reports whether the free hook has run.
func (t *Token[T]) Released() bool {
	return t.released.Load()
}

// Done is closed once Complete has stored a result.
func (t *Token[T]) Done() <-chan struct{} {
	return t.done
}

// Result returns a copy of the stored outcome, or ErrPending.
func (t *Token[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.completed {
		var zero T
		return zero, ErrPending
	}
	return t.value, t.err
}
