package sdk

import (
	"sync"

	"github.com/rbright/socialbridge/internal/await"
)

// Into returns a Callback that completes tok with the vendor result and
// releases it from the free hook.
func Into[T any](tok *await.Token[T]) Callback[T] {
	return Callback[T]{
		OnComplete: func(result Result, value T) {
			tok.Complete(value, result.Err())
		},
		OnFree: func() {
			tok.Release()
		},
	}
}

// CallbackTable maps opaque integer user-data values to Go callbacks.
//
// Only integers cross the C boundary. An entry lives until its free hook
// releases it, so a late callback for an abandoned operation still finds its
// target; a second release of the same id is a no-op.
type CallbackTable struct {
	mu      sync.Mutex
	next    uintptr
	entries map[uintptr]any
}

func NewCallbackTable() *CallbackTable {
	return &CallbackTable{entries: make(map[uintptr]any)}
}

// Register stores v and returns its id. Ids are never zero.
func (t *CallbackTable) Register(v any) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries == nil {
		t.entries = make(map[uintptr]any)
	}
	t.next++
	if t.next == 0 {
		t.next++
	}
	t.entries[t.next] = v
	return t.next
}

// Lookup returns the entry for id without releasing it.
func (t *CallbackTable) Lookup(id uintptr) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[id]
	return v, ok
}

// Release removes id and returns its entry. It reports false when id was
// never registered or was already released.
func (t *CallbackTable) Release(id uintptr) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return v, ok
}

// Len is the number of live entries.
func (t *CallbackTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
