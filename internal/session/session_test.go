package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/config"
	"github.com/rbright/socialbridge/internal/fsm"
	"github.com/rbright/socialbridge/internal/sdk"
	"github.com/rbright/socialbridge/internal/sdk/sdktest"
	"github.com/stretchr/testify/require"
)

const validToken = "type=1:abcdefghijklmnopqrstuvwxyz0123"

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Timeouts.Auth = await.Policy{Interval: 2 * time.Millisecond, Deadline: 50 * time.Millisecond}
	cfg.Timeouts.Connect = await.Policy{Interval: 2 * time.Millisecond, Deadline: 100 * time.Millisecond}
	cfg.Timeouts.RegressionGrace = 20 * time.Millisecond
	return cfg
}

type stateRecorder struct {
	mu     sync.Mutex
	states []fsm.State
}

func (r *stateRecorder) record(s fsm.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fsm.State(nil), r.states...)
}

func TestInitializeReachesReady(t *testing.T) {
	lib := sdktest.NewLibrary()
	mgr := NewManager(lib, testConfig(), nil, nil)
	rec := &stateRecorder{}
	mgr.OnStateChange(rec.record)

	require.NoError(t, mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 42}))

	require.Equal(t, fsm.StateReady, mgr.State())
	require.Equal(t, sdk.StatusReady, mgr.Status())
	require.Equal(t, []fsm.State{fsm.StateInitializing, fsm.StateReady}, rec.all())
	_, err := uuid.Parse(mgr.ID())
	require.NoError(t, err)

	fake := lib.LastClient()
	require.NotNil(t, fake)
	require.Equal(t, uint64(42), fake.AppID())
	kind, token := fake.Token()
	require.Equal(t, sdk.TokenBearer, kind)
	require.Equal(t, "abcdefghijklmnopqrstuvwxyz0123", token)
	require.Equal(t, 1, lib.FreeThreadedCalls())
	require.Equal(t, []string{sdktest.OpSetApplicationID, sdktest.OpUpdateToken, sdktest.OpConnect}, fake.Calls())

	client, err := mgr.Client()
	require.NoError(t, err)
	require.Equal(t, sdk.Client(fake), client)
}

func TestInitializeUsesConfiguredApplicationID(t *testing.T) {
	cfg := testConfig()
	cfg.SDK.ApplicationID = 1349146942634065960
	lib := sdktest.NewLibrary()
	mgr := NewManager(lib, cfg, nil, nil)

	require.NoError(t, mgr.Initialize(context.Background(), Credentials{Token: validToken}))
	require.Equal(t, uint64(1349146942634065960), lib.LastClient().AppID())
}

func TestInitializeValidationMakesNoVendorCalls(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  error
	}{
		{name: "no application id", creds: Credentials{Token: validToken}, want: ErrNoApplicationID},
		{name: "missing token", creds: Credentials{ApplicationID: 1}, want: ErrMissingToken},
		{name: "authorization marker", creds: Credentials{Token: AuthorizationRequiredToken, ApplicationID: 1}, want: ErrAuthorizationNeeded},
		{name: "short token", creds: Credentials{Token: strings.Repeat("x", 20), ApplicationID: 1}, want: ErrTokenMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lib := sdktest.NewLibrary()
			mgr := NewManager(lib, testConfig(), nil, nil)

			err := mgr.Initialize(context.Background(), tc.creds)
			require.ErrorIs(t, err, tc.want)
			require.Nil(t, lib.LastClient())
			require.Zero(t, lib.FreeThreadedCalls())
			require.Equal(t, fsm.StateUninitialized, mgr.State())
		})
	}
}

func TestClientBeforeInitialize(t *testing.T) {
	mgr := NewManager(sdktest.NewLibrary(), testConfig(), nil, nil)

	_, err := mgr.Client()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Equal(t, "SDK not initialized", err.Error())
	require.Equal(t, sdk.StatusUninitialized, mgr.Status())
	require.Empty(t, mgr.ID())
}

func TestInitializeWithoutLibrary(t *testing.T) {
	mgr := NewManager(nil, testConfig(), nil, nil)

	err := mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1})
	require.ErrorIs(t, err, sdk.ErrUnavailable)
	require.Equal(t, fsm.StateUninitialized, mgr.State())
}

func TestInitializeRejectsSecondSessionByDefault(t *testing.T) {
	lib := sdktest.NewLibrary()
	mgr := NewManager(lib, testConfig(), nil, nil)
	creds := Credentials{Token: validToken, ApplicationID: 1}

	require.NoError(t, mgr.Initialize(context.Background(), creds))
	err := mgr.Initialize(context.Background(), creds)
	require.ErrorIs(t, err, ErrAlreadyActive)
	require.Len(t, lib.Clients(), 1)
	require.Equal(t, fsm.StateReady, mgr.State())
	require.False(t, lib.LastClient().Closed())
}

func TestInitializeReplacePolicyClosesPreviousClient(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Reinitialize = config.ReinitializeReplace
	lib := sdktest.NewLibrary()
	mgr := NewManager(lib, cfg, nil, nil)
	creds := Credentials{Token: validToken, ApplicationID: 1}

	require.NoError(t, mgr.Initialize(context.Background(), creds))
	firstID := mgr.ID()
	require.NoError(t, mgr.Initialize(context.Background(), creds))

	clients := lib.Clients()
	require.Len(t, clients, 2)
	require.True(t, clients[0].Closed())
	require.False(t, clients[1].Closed())
	require.NotEqual(t, firstID, mgr.ID())
	require.Equal(t, 1, lib.FreeThreadedCalls())
}

func TestInitializeToleratesTokenCallbackTimeout(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.Configure = func(c *sdktest.Client) {
		c.SetBehavior(sdktest.OpUpdateToken, sdktest.Behavior{Delivery: sdktest.DeliverNever})
	}
	mgr := NewManager(lib, testConfig(), nil, nil)

	require.NoError(t, mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1}))
	require.Equal(t, fsm.StateReady, mgr.State())
}

func TestInitializeFailsOnTokenServiceError(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.Configure = func(c *sdktest.Client) {
		c.SetBehavior(sdktest.OpUpdateToken, sdktest.Behavior{Result: sdk.Result{Code: 50025, Message: "invalid token"}})
	}
	mgr := NewManager(lib, testConfig(), nil, nil)
	rec := &stateRecorder{}
	mgr.OnStateChange(rec.record)

	err := mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1})
	require.Error(t, err)

	var svcErr *sdk.ServiceError
	require.True(t, errors.As(err, &svcErr))
	require.Equal(t, 50025, svcErr.Code)

	require.True(t, lib.LastClient().Closed())
	require.Zero(t, lib.LastClient().CallCount(sdktest.OpConnect))
	require.Equal(t, fsm.StateUninitialized, mgr.State())
	require.Equal(t, []fsm.State{fsm.StateInitializing, fsm.StateError, fsm.StateUninitialized}, rec.all())

	_, err = mgr.Client()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeConnectionTimeout(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.Configure = func(c *sdktest.Client) {
		c.ConnectScript = []sdk.StatusEvent{{Status: sdk.StatusConnecting}}
	}
	cfg := testConfig()
	mgr := NewManager(lib, cfg, nil, nil)

	started := time.Now()
	err := mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1})
	elapsed := time.Since(started)

	var timeoutErr *ConnectTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	require.Equal(t, "SDK connection timeout - stuck at status=1", err.Error())
	require.GreaterOrEqual(t, elapsed, cfg.Timeouts.Connect.Deadline)
	require.True(t, lib.LastClient().Closed())
	require.Equal(t, fsm.StateUninitialized, mgr.State())
}

func TestInitializeRegressionFailsAfterGrace(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.Configure = func(c *sdktest.Client) {
		c.ConnectScript = []sdk.StatusEvent{
			{Status: sdk.StatusConnecting},
			{Status: sdk.StatusConnected},
			{Status: sdk.StatusUninitialized},
		}
	}
	cfg := testConfig()
	cfg.Timeouts.Connect.Deadline = 2 * time.Second
	mgr := NewManager(lib, cfg, nil, nil)

	started := time.Now()
	err := mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1})

	var regression *RegressionError
	require.True(t, errors.As(err, &regression))
	require.Equal(t, "SDK error 4004 - app not configured for SDK in Developer Portal", err.Error())
	require.Less(t, time.Since(started), time.Second)
	require.Equal(t, fsm.StateUninitialized, mgr.State())
}

func TestInitializeRecoversFromRegressionWithinGrace(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.Configure = func(c *sdktest.Client) {
		c.ConnectScript = []sdk.StatusEvent{
			{Status: sdk.StatusConnecting},
			{Status: sdk.StatusConnected},
			{Status: sdk.StatusUninitialized},
			{Status: sdk.StatusConnecting},
			{Status: sdk.StatusConnected},
			{Status: sdk.StatusReady},
		}
	}
	cfg := testConfig()
	cfg.Timeouts.Connect.Deadline = 2 * time.Second
	cfg.Timeouts.RegressionGrace = time.Second
	mgr := NewManager(lib, cfg, nil, nil)

	require.NoError(t, mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1}))
	require.Equal(t, fsm.StateReady, mgr.State())
}

func TestInitializeStatusErrorCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{code: 4004, want: "SDK error 4004 - app not configured for SDK in Developer Portal"},
		{code: 4000, want: "SDK error 4000 - connection rejected at status=1"},
	}

	for _, tc := range tests {
		lib := sdktest.NewLibrary()
		lib.Configure = func(c *sdktest.Client) {
			c.ConnectScript = []sdk.StatusEvent{
				{Status: sdk.StatusConnecting},
				{Status: sdk.StatusConnecting, Error: tc.code},
			}
		}
		cfg := testConfig()
		cfg.Timeouts.Connect.Deadline = 2 * time.Second
		mgr := NewManager(lib, cfg, nil, nil)

		err := mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1})
		require.EqualError(t, err, tc.want)
	}
}

func TestInitializeNewClientError(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.NewClientErr = errors.New("out of handles")
	mgr := NewManager(lib, testConfig(), nil, nil)

	err := mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "create client: out of handles")
	require.Equal(t, fsm.StateUninitialized, mgr.State())
	require.Equal(t, sdk.StatusUninitialized, mgr.Status())
}

func TestInitializeHonorsContextCancel(t *testing.T) {
	lib := sdktest.NewLibrary()
	lib.Configure = func(c *sdktest.Client) {
		c.ConnectScript = nil
	}
	cfg := testConfig()
	cfg.Timeouts.Connect.Deadline = 5 * time.Second
	mgr := NewManager(lib, cfg, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := mgr.Initialize(ctx, Credentials{Token: validToken, ApplicationID: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, fsm.StateUninitialized, mgr.State())
}

func TestDisconnect(t *testing.T) {
	lib := sdktest.NewLibrary()
	mgr := NewManager(lib, testConfig(), nil, nil)
	rec := &stateRecorder{}

	require.False(t, mgr.Disconnect())
	require.NoError(t, mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1}))
	mgr.OnStateChange(rec.record)

	require.True(t, mgr.Disconnect())
	require.True(t, lib.LastClient().Closed())
	require.Equal(t, fsm.StateUninitialized, mgr.State())
	require.Equal(t, []fsm.State{fsm.StateUninitialized}, rec.all())
	require.Empty(t, mgr.ID())

	_, err := mgr.Client()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.False(t, mgr.Disconnect())
}

func TestMessageCreatedFeedsEventQueue(t *testing.T) {
	lib := sdktest.NewLibrary()
	mgr := NewManager(lib, testConfig(), nil, nil)
	require.NoError(t, mgr.Initialize(context.Background(), Credentials{Token: validToken, ApplicationID: 1}))

	lib.LastClient().EmitMessageCreated(77)
	lib.LastClient().EmitMessageCreated(78)

	drained := mgr.Events().Drain()
	require.Len(t, drained, 2)
	require.Equal(t, uint64(77), drained[0].MessageID)
	require.Equal(t, uint64(78), drained[1].MessageID)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(validToken)
	require.Len(t, a, 16)
	require.Equal(t, a, Fingerprint(validToken))
	require.NotEqual(t, a, Fingerprint(validToken+"x"))
	require.NotContains(t, validToken, a)
}
