// Package sdktest provides an in-memory vendor library for tests.
//
// Every asynchronous operation follows a Behavior that controls when the
// completion callback fires and how the free hook is invoked, so callers can
// exercise pump-driven delivery, background threads, late callbacks, and
// callbacks that never arrive.
package sdktest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/socialbridge/internal/sdk"
)

// Operation names recorded by Client.Calls and keyed by Client.SetBehavior.
const (
	OpSetApplicationID   = "set_application_id"
	OpUpdateToken        = "update_token"
	OpConnect            = "connect"
	OpClose              = "close"
	OpGetUserGuilds      = "get_user_guilds"
	OpGetGuildChannels   = "get_guild_channels"
	OpGetRelationships   = "get_relationships"
	OpSendUserMessage    = "send_user_message"
	OpSendLobbyMessage   = "send_lobby_message"
	OpGetLobbyMessages   = "get_lobby_messages"
	OpGetUserMessages    = "get_user_messages"
	OpGetMessage         = "get_message"
	OpCreateOrJoinLobby  = "create_or_join_lobby"
	OpGetLobbyIDs        = "get_lobby_ids"
	OpGetLobbyMetadata   = "get_lobby_metadata"
	OpLeaveLobby         = "leave_lobby"
	OpSetSelfMute        = "set_self_mute"
	OpSelfMute           = "self_mute"
	OpSetSelfDeaf        = "set_self_deaf"
	OpSelfDeaf           = "self_deaf"
	OpStartCall          = "start_call"
	OpCallStatus         = "call_status"
	OpEndCall            = "end_call"
	OpUpdateRichPresence = "update_rich_presence"
)

// Delivery selects when a completion callback fires.
type Delivery int

const (
	// DeliverOnPump queues the callback until the next RunCallbacks.
	DeliverOnPump Delivery = iota
	// DeliverImmediately fires inside the registering call.
	DeliverImmediately
	// DeliverInBackground fires from another goroutine after Behavior.Delay.
	DeliverInBackground
	// DeliverNever drops the callback.
	DeliverNever
)

// FreeContract selects how the free hook follows the callback.
type FreeContract int

const (
	FreeAfterCallback FreeContract = iota
	FreeNever
	FreeTwice
	// FreeWithoutCallback runs the free hook and never the callback.
	FreeWithoutCallback
)

// Behavior describes how one operation completes.
type Behavior struct {
	Delivery Delivery
	Delay    time.Duration
	Free     FreeContract
	Result   sdk.Result
}

// Succeed is the default behavior: success delivered on the next pump.
var Succeed = Behavior{Result: sdk.OK}

// Library is a fake sdk.Library.
type Library struct {
	mu      sync.Mutex
	queue   []func()
	clients []*Client

	freeThreaded atomic.Int32
	pumps        atomic.Int64

	// NewClientErr fails NewClient when set.
	NewClientErr error
	// Configure runs on every new client before it is returned.
	Configure func(*Client)
}

var _ sdk.Library = (*Library)(nil)

func NewLibrary() *Library {
	return &Library{}
}

func (l *Library) SetFreeThreaded() {
	l.freeThreaded.Add(1)
}

// FreeThreadedCalls counts SetFreeThreaded invocations.
func (l *Library) FreeThreadedCalls() int {
	return int(l.freeThreaded.Load())
}

// RunCallbacks fires every queued callback, then advances each client's
// status script by one step.
func (l *Library) RunCallbacks() {
	l.pumps.Add(1)

	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	clients := append([]*Client(nil), l.clients...)
	l.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	for _, c := range clients {
		c.tick()
	}
}

// Pumps counts RunCallbacks invocations.
func (l *Library) Pumps() int64 {
	return l.pumps.Load()
}

func (l *Library) NewClient() (sdk.Client, error) {
	if l.NewClientErr != nil {
		return nil, l.NewClientErr
	}

	c := newClient(l)
	if l.Configure != nil {
		l.Configure(c)
	}

	l.mu.Lock()
	l.clients = append(l.clients, c)
	l.mu.Unlock()
	return c, nil
}

// Clients returns every client created so far.
func (l *Library) Clients() []*Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Client(nil), l.clients...)
}

// LastClient returns the most recently created client, or nil.
func (l *Library) LastClient() *Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.clients) == 0 {
		return nil
	}
	return l.clients[len(l.clients)-1]
}

func (l *Library) enqueue(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, fn)
}
