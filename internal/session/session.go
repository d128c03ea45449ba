// Package session owns the single process-wide vendor connection.
//
// Manager walks the handshake (credentials, connect, status polling), guards
// the handle behind the lifecycle FSM, and hands a read-only client to
// commands only while the session is ready.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/config"
	"github.com/rbright/socialbridge/internal/events"
	"github.com/rbright/socialbridge/internal/fsm"
	"github.com/rbright/socialbridge/internal/sdk"
	"github.com/zeebo/blake3"
	"k8s.io/apimachinery/pkg/util/wait"
)

// AuthorizationRequiredToken is the marker a host sends when it has no stored
// token and expects an interactive authorization flow.
const AuthorizationRequiredToken = "SDK_AUTH_REQUIRED"

// minTokenLength rejects values too short to be a vendor access token.
const minTokenLength = 20

var (
	ErrNotInitialized      = errors.New("SDK not initialized")
	ErrAlreadyActive       = errors.New("session already active; disconnect first")
	ErrNoApplicationID     = errors.New("no application ID provided")
	ErrMissingToken        = errors.New("missing token")
	ErrTokenMalformed      = errors.New("token appears malformed (too short)")
	ErrAuthorizationNeeded = errors.New("interactive authorization is not supported; supply a stored access token")
)

// Credentials are the inputs of one initialize request.
type Credentials struct {
	Token         string
	ApplicationID uint64
}

// Manager is the single owner of the vendor handle.
type Manager struct {
	lib      sdk.Library
	logger   *slog.Logger
	timeouts config.TimeoutsConfig
	reinit   config.ReinitializePolicy
	appID    uint64
	events   *events.Queue
	now      func() time.Time

	freeThreaded sync.Once
	lifecycle    sync.Mutex

	mu        sync.RWMutex
	state     fsm.State
	client    sdk.Client
	id        string
	tracker   *statusTracker
	observers []func(fsm.State)
}

// NewManager constructs a session manager with safe default fallbacks.
func NewManager(lib sdk.Library, cfg config.Config, queue *events.Queue, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if queue == nil {
		queue = events.NewQueue(cfg.Events.Capacity, logger)
	}
	reinit := cfg.Session.Reinitialize
	if reinit == "" {
		reinit = config.ReinitializeReject
	}

	return &Manager{
		lib:      lib,
		logger:   logger,
		timeouts: cfg.Timeouts,
		reinit:   reinit,
		appID:    cfg.SDK.ApplicationID,
		events:   queue,
		now:      time.Now,
		state:    fsm.StateUninitialized,
	}
}

// RunCallbacks pumps the vendor queue so Manager can drive await loops.
func (m *Manager) RunCallbacks() {
	m.lib.RunCallbacks()
}

// Events is the queue fed by message-created notifications.
func (m *Manager) Events() *events.Queue {
	return m.events
}

// State returns the current FSM state snapshot.
func (m *Manager) State() fsm.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status is the last vendor status seen by the active or initializing session.
func (m *Manager) Status() sdk.Status {
	m.mu.RLock()
	tracker := m.tracker
	m.mu.RUnlock()

	if tracker == nil {
		return sdk.StatusUninitialized
	}
	return tracker.status()
}

// ID is the current session id, empty when no session exists.
func (m *Manager) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id
}

// Client returns the ready client or ErrNotInitialized.
func (m *Manager) Client() (sdk.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != fsm.StateReady || m.client == nil {
		return nil, ErrNotInitialized
	}
	return m.client, nil
}

// OnStateChange registers fn to run after every state transition.
func (m *Manager) OnStateChange(fn func(fsm.State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Initialize opens a vendor session and blocks until it is ready.
func (m *Manager) Initialize(ctx context.Context, creds Credentials) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.State() != fsm.StateUninitialized {
		if m.reinit != config.ReinitializeReplace {
			return ErrAlreadyActive
		}
		m.logger.Info("replacing active session", "session_id", m.ID())
		m.disconnectLocked()
	}

	appID := creds.ApplicationID
	if appID == 0 {
		appID = m.appID
	}
	if appID == 0 {
		return ErrNoApplicationID
	}
	if err := validateToken(creds.Token); err != nil {
		return err
	}

	if err := m.transition(fsm.EventInitialize); err != nil {
		return err
	}

	id := uuid.NewString()
	logger := m.logger.With("session_id", id, "app_id", appID)
	logger.Info("initializing session", "token_fingerprint", Fingerprint(creds.Token), "token_len", len(creds.Token))

	client, tracker, err := m.open(ctx, logger, appID, creds.Token)
	if err != nil {
		logger.Error("session initialization failed", "error", err.Error())
		m.toErrorAndReset()
		return err
	}

	m.mu.Lock()
	m.client = client
	m.id = id
	m.tracker = tracker
	m.mu.Unlock()

	if err := m.transition(fsm.EventReady); err != nil {
		client.Close()
		m.clear()
		m.toErrorAndReset()
		return err
	}

	logger.Info("session ready", "status", tracker.status().String())
	return nil
}

// open runs the vendor handshake. The returned client is ready; on error it
// has already been closed.
func (m *Manager) open(ctx context.Context, logger *slog.Logger, appID uint64, token string) (sdk.Client, *statusTracker, error) {
	if m.lib == nil {
		return nil, nil, sdk.ErrUnavailable
	}

	m.freeThreaded.Do(m.lib.SetFreeThreaded)

	client, err := m.lib.NewClient()
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	tracker := newStatusTracker(m.now)
	m.mu.Lock()
	m.tracker = tracker
	m.mu.Unlock()

	client.SetApplicationID(appID)
	client.SetStatusChangedCallback(func(ev sdk.StatusEvent) {
		tracker.observe(ev)
		if ev.Error != 0 {
			logger.Warn("vendor status error", "status", ev.Status.String(), "error_code", ev.Error, "detail", ev.Detail)
			return
		}
		logger.Debug("vendor status changed", "status", ev.Status.String())
	})

	kind, value := sdk.ParseToken(token)
	_, err = await.Do(ctx, m.lib, m.timeouts.Auth, "update token", func(tok *await.Token[struct{}]) error {
		client.UpdateToken(kind, value, sdk.Into(tok))
		return nil
	})
	switch {
	case errors.Is(err, await.ErrTimeout):
		logger.Warn("token update callback did not fire; connecting anyway", "after", m.timeouts.Auth.Deadline.String())
	case err != nil:
		client.Close()
		return nil, nil, fmt.Errorf("update token: %w", err)
	}

	client.Connect()
	client.SetMessageCreatedCallback(m.events.Push)

	if err := m.waitReady(ctx, tracker); err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, tracker, nil
}

// waitReady pumps until the vendor reports ready, a regression outlives the
// grace window, or the connect deadline passes.
func (m *Manager) waitReady(ctx context.Context, tracker *statusTracker) error {
	policy := m.timeouts.Connect
	if policy.Interval <= 0 {
		policy.Interval = 200 * time.Millisecond
	}
	if policy.Deadline <= 0 {
		policy.Deadline = 30 * time.Second
	}

	pollCtx, cancel := context.WithTimeout(ctx, policy.Deadline)
	defer cancel()

	err := wait.PollUntilContextCancel(pollCtx, policy.Interval, true, func(context.Context) (bool, error) {
		m.lib.RunCallbacks()

		snap := tracker.snapshot()
		if snap.ready() {
			return true, nil
		}
		if snap.expired(m.now(), m.timeouts.RegressionGrace) {
			return false, snap.regression
		}
		return false, nil
	})
	if err == nil {
		return nil
	}

	var regression *RegressionError
	if errors.As(err, &regression) {
		return regression
	}
	if ctx.Err() != nil {
		return fmt.Errorf("wait for ready: %w", ctx.Err())
	}
	if wait.Interrupted(err) || pollCtx.Err() != nil {
		snap := tracker.snapshot()
		if snap.regression != nil {
			return snap.regression
		}
		return &ConnectTimeoutError{Status: snap.current.Status}
	}
	return err
}

// Disconnect tears down the active session. It reports whether one existed.
func (m *Manager) Disconnect() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.disconnectLocked()
}

func (m *Manager) disconnectLocked() bool {
	m.mu.RLock()
	client, id := m.client, m.id
	m.mu.RUnlock()

	if client == nil {
		return false
	}

	client.Close()
	m.clear()
	if err := m.transition(fsm.EventDisconnect); err != nil {
		m.toErrorAndReset()
	}
	m.logger.Info("session disconnected", "session_id", id)
	return true
}

func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = nil
	m.id = ""
	m.tracker = nil
}

// transition applies one FSM event and notifies observers outside the lock.
func (m *Manager) transition(event fsm.Event) error {
	m.mu.Lock()
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.state = next
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return nil
}

// toErrorAndReset transitions to error and back to uninitialized best-effort.
func (m *Manager) toErrorAndReset() {
	m.mu.Lock()
	m.tracker = nil
	m.mu.Unlock()

	_ = m.transition(fsm.EventFail)
	_ = m.transition(fsm.EventReset)
}

func validateToken(token string) error {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return ErrMissingToken
	case token == AuthorizationRequiredToken:
		return ErrAuthorizationNeeded
	case len(token) <= minTokenLength:
		return ErrTokenMalformed
	}
	return nil
}

// Fingerprint identifies a token in logs without revealing it.
func Fingerprint(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
