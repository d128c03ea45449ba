package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rbright/socialbridge/internal/sdk"
)

// errorCodeUnknownApplication is what the vendor reports when the application
// is not enabled for the social SDK. A Connected to Uninitialized drop carries
// the same meaning.
const errorCodeUnknownApplication = 4004

// RegressionError reports a connection that fell back after making progress,
// or that the vendor rejected with an error code.
type RegressionError struct {
	Code   int
	Status sdk.Status
}

func (e *RegressionError) Error() string {
	code := e.Code
	if code == 0 {
		code = errorCodeUnknownApplication
	}
	if code == errorCodeUnknownApplication {
		return "SDK error 4004 - app not configured for SDK in Developer Portal"
	}
	return fmt.Sprintf("SDK error %d - connection rejected at status=%d", code, int(e.Status))
}

// ConnectTimeoutError reports a connection that never reached ready.
type ConnectTimeoutError struct {
	Status sdk.Status
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("SDK connection timeout - stuck at status=%d", int(e.Status))
}

// statusTracker records vendor status notifications. The vendor may call
// observe from its own threads.
type statusTracker struct {
	now func() time.Time

	mu          sync.Mutex
	current     sdk.StatusEvent
	regressedAt time.Time
	regression  *RegressionError
}

type statusSnapshot struct {
	current     sdk.StatusEvent
	regressedAt time.Time
	regression  *RegressionError
}

func newStatusTracker(now func() time.Time) *statusTracker {
	if now == nil {
		now = time.Now
	}
	return &statusTracker{now: now}
}

func (t *statusTracker) observe(ev sdk.StatusEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.current.Status
	t.current = ev

	switch {
	case ev.Error != 0:
		t.markRegressed(&RegressionError{Code: ev.Error, Status: ev.Status})
	case ev.Status == sdk.StatusUninitialized && prev >= sdk.StatusConnected:
		t.markRegressed(&RegressionError{Status: prev})
	case ev.Status >= sdk.StatusReady:
		t.regressedAt = time.Time{}
	}
}

func (t *statusTracker) markRegressed(err *RegressionError) {
	if t.regressedAt.IsZero() {
		t.regressedAt = t.now()
	}
	t.regression = err
}

func (t *statusTracker) snapshot() statusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return statusSnapshot{
		current:     t.current,
		regressedAt: t.regressedAt,
		regression:  t.regression,
	}
}

func (t *statusTracker) status() sdk.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Status
}

// ready reports whether the handshake can finish.
func (s statusSnapshot) ready() bool {
	return s.current.Error == 0 && s.current.Status >= sdk.StatusReady
}

// expired reports whether an open regression outlived grace.
func (s statusSnapshot) expired(now time.Time, grace time.Duration) bool {
	return !s.regressedAt.IsZero() && now.Sub(s.regressedAt) >= grace
}
