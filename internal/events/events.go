// Package events buffers message-created notifications until the host drains them.
package events

import (
	"log/slog"
	"sync"
	"time"
)

const DefaultCapacity = 1024

// Event is one message-created notification.
type Event struct {
	MessageID uint64
	Timestamp time.Time
}

// Queue is a bounded FIFO that discards the oldest event when full. It is
// safe for use from vendor callback threads.
type Queue struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	buf     []Event
	head    int
	len     int
	dropped int
}

func NewQueue(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{
		logger: logger,
		now:    time.Now,
		buf:    make([]Event, capacity),
	}
}

// Push records a message id stamped with the current time.
func (q *Queue) Push(messageID uint64) {
	ev := Event{MessageID: messageID, Timestamp: q.now()}

	q.mu.Lock()
	defer q.mu.Unlock()

	tail := (q.head + q.len) % len(q.buf)
	q.buf[tail] = ev
	if q.len == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.dropped++
		return
	}
	q.len++
}

// Drain returns every pending event oldest first and empties the queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	out := make([]Event, 0, q.len)
	for i := 0; i < q.len; i++ {
		idx := (q.head + i) % len(q.buf)
		out = append(out, q.buf[idx])
		q.buf[idx] = Event{}
	}
	q.head = 0
	q.len = 0
	dropped := q.dropped
	q.dropped = 0
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warn("message events dropped before drain", "dropped", dropped, "capacity", len(q.buf))
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len
}

func (q *Queue) Capacity() int {
	return len(q.buf)
}
