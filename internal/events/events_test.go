package events

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ids(events []Event) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.MessageID)
	}
	return out
}

func TestDrainReturnsFIFOAndClears(t *testing.T) {
	q := NewQueue(4, nil)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	require.Equal(t, []uint64{1, 2, 3}, ids(q.Drain()))
	require.Zero(t, q.Len())
	require.Empty(t, q.Drain())
}

func TestPushDropsOldestWhenFull(t *testing.T) {
	var logs bytes.Buffer
	q := NewQueue(3, slog.New(slog.NewJSONHandler(&logs, nil)))

	for i := uint64(1); i <= 5; i++ {
		q.Push(i)
	}

	require.Equal(t, 3, q.Len())
	require.Equal(t, []uint64{3, 4, 5}, ids(q.Drain()))
	require.Contains(t, logs.String(), `"dropped":2`)

	logs.Reset()
	q.Push(6)
	require.Equal(t, []uint64{6}, ids(q.Drain()))
	require.Empty(t, logs.String())
}

func TestWrapAroundAfterPartialDrain(t *testing.T) {
	q := NewQueue(2, nil)
	q.Push(1)
	require.Equal(t, []uint64{1}, ids(q.Drain()))

	q.Push(2)
	q.Push(3)
	q.Push(4)
	require.Equal(t, []uint64{3, 4}, ids(q.Drain()))
}

func TestPushStampsTime(t *testing.T) {
	q := NewQueue(1, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	q.now = func() time.Time { return fixed }

	q.Push(9)
	got := q.Drain()
	require.Len(t, got, 1)
	require.Equal(t, fixed, got[0].Timestamp)
}

func TestDefaultCapacity(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewQueue(0, nil).Capacity())
}

func TestConcurrentPush(t *testing.T) {
	q := NewQueue(10_000, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(uint64(i))
			}
		}()
	}
	wg.Wait()

	require.Len(t, q.Drain(), 800)
}
