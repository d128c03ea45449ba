package sdktest

import (
	"maps"
	"sync"
	"time"

	"github.com/rbright/socialbridge/internal/sdk"
)

// DefaultConnectScript is the status sequence a client walks through after
// Connect, one step per RunCallbacks.
var DefaultConnectScript = []sdk.StatusEvent{
	{Status: sdk.StatusConnecting},
	{Status: sdk.StatusConnected},
	{Status: sdk.StatusReady},
}

// DefaultCallScript is the voice call sequence after StartCall.
var DefaultCallScript = []sdk.CallStatus{sdk.CallConnecting, sdk.CallConnected}

// Sent records one outgoing message.
type Sent struct {
	Op      string
	Target  uint64
	Content string
	ID      uint64
}

// Client is a fake sdk.Client. Exported data fields may be set from
// Library.Configure before the client is handed out.
type Client struct {
	lib *Library

	ConnectScript  []sdk.StatusEvent
	CallScript     []sdk.CallStatus
	StartCallFails bool

	Guilds        []sdk.Guild
	Channels      map[uint64][]sdk.GuildChannel
	Relationships []sdk.Relationship
	Messages      map[uint64]sdk.Message
	LobbyMessages map[uint64][]sdk.Message
	UserMessages  map[uint64][]sdk.Message
	Lobbies       map[uint64]map[string]string

	mu          sync.Mutex
	background  sync.WaitGroup
	calls       []string
	behaviors   map[string]Behavior
	completions map[string]int
	frees       map[string]int

	appID     uint64
	tokenKind sdk.TokenType
	token     string
	closed    bool
	statusFn  func(sdk.StatusEvent)
	messageFn func(uint64)
	pending   []sdk.StatusEvent

	secrets     map[string]uint64
	nextID      uint64
	mute        bool
	deaf        bool
	voice       map[uint64]sdk.CallStatus
	voiceScript map[uint64][]sdk.CallStatus
	activity    sdk.Activity
	sent        []Sent
}

var _ sdk.Client = (*Client)(nil)

func newClient(lib *Library) *Client {
	return &Client{
		lib:           lib,
		ConnectScript: append([]sdk.StatusEvent(nil), DefaultConnectScript...),
		CallScript:    append([]sdk.CallStatus(nil), DefaultCallScript...),
		Channels:      make(map[uint64][]sdk.GuildChannel),
		Messages:      make(map[uint64]sdk.Message),
		LobbyMessages: make(map[uint64][]sdk.Message),
		UserMessages:  make(map[uint64][]sdk.Message),
		Lobbies:       make(map[uint64]map[string]string),
		behaviors:     make(map[string]Behavior),
		completions:   make(map[string]int),
		frees:         make(map[string]int),
		secrets:       make(map[string]uint64),
		nextID:        1000,
		voice:         make(map[uint64]sdk.CallStatus),
		voiceScript:   make(map[uint64][]sdk.CallStatus),
	}
}

// SetBehavior overrides how op completes.
func (c *Client) SetBehavior(op string, b Behavior) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.behaviors[op] = b
}

// Calls returns every recorded operation in call order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CallCount counts recorded calls of op.
func (c *Client) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, call := range c.calls {
		if call == op {
			n++
		}
	}
	return n
}

// Completions counts completion callbacks fired for op.
func (c *Client) Completions(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completions[op]
}

// Frees counts free hooks fired for op.
func (c *Client) Frees(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frees[op]
}

// WaitBackground blocks until every background delivery has fired.
func (c *Client) WaitBackground() {
	c.background.Wait()
}

// AppID is the last application id set.
func (c *Client) AppID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appID
}

// Token returns the last submitted credential.
func (c *Client) Token() (sdk.TokenType, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenKind, c.token
}

// Closed reports whether Close ran.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns every message sent through the client.
func (c *Client) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Activity is the last rich presence submitted.
func (c *Client) Activity() sdk.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activity
}

// EmitStatus queues a status notification for the next pump.
func (c *Client) EmitStatus(ev sdk.StatusEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, ev)
}

// EmitMessageCreated fires the message-created callback synchronously.
func (c *Client) EmitMessageCreated(id uint64) {
	c.mu.Lock()
	fn := c.messageFn
	c.mu.Unlock()

	if fn != nil {
		fn(id)
	}
}

func (c *Client) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
}

func (c *Client) behavior(op string) Behavior {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.behaviors[op]; ok {
		return b
	}
	return Succeed
}

func (c *Client) count(counter map[string]int, op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counter[op]++
}

func (c *Client) allocID() uint64 {
	c.nextID++
	return c.nextID
}

// tick advances the status and voice scripts by one step.
func (c *Client) tick() {
	c.mu.Lock()
	var (
		ev   sdk.StatusEvent
		emit bool
	)
	if len(c.pending) > 0 {
		ev, c.pending = c.pending[0], c.pending[1:]
		emit = true
	}
	for lobby, script := range c.voiceScript {
		if len(script) == 0 {
			delete(c.voiceScript, lobby)
			continue
		}
		c.voice[lobby] = script[0]
		c.voiceScript[lobby] = script[1:]
	}
	fn := c.statusFn
	c.mu.Unlock()

	if emit && fn != nil {
		fn(ev)
	}
}

// deliver runs cb according to the behavior configured for op.
func deliver[T any](c *Client, op string, cb sdk.Callback[T], value T) {
	b := c.behavior(op)

	free := func() {
		c.count(c.frees, op)
		cb.Free()
	}
	fire := func() {
		if b.Free == FreeWithoutCallback {
			free()
			return
		}
		c.count(c.completions, op)
		cb.Complete(b.Result, value)
		switch b.Free {
		case FreeAfterCallback:
			free()
		case FreeTwice:
			free()
			free()
		}
	}

	switch b.Delivery {
	case DeliverImmediately:
		fire()
	case DeliverOnPump:
		c.lib.enqueue(fire)
	case DeliverInBackground:
		c.background.Add(1)
		go func() {
			defer c.background.Done()
			time.Sleep(b.Delay)
			fire()
		}()
	case DeliverNever:
	}
}

func (c *Client) SetApplicationID(id uint64) {
	c.record(OpSetApplicationID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appID = id
}

func (c *Client) SetStatusChangedCallback(fn func(sdk.StatusEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusFn = fn
}

func (c *Client) SetMessageCreatedCallback(fn func(uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageFn = fn
}

func (c *Client) UpdateToken(kind sdk.TokenType, token string, cb sdk.Callback[struct{}]) {
	c.record(OpUpdateToken)
	c.mu.Lock()
	c.tokenKind = kind
	c.token = token
	c.mu.Unlock()

	deliver(c, OpUpdateToken, cb, struct{}{})
}

func (c *Client) Connect() {
	c.record(OpConnect)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, c.ConnectScript...)
}

func (c *Client) Close() {
	c.record(OpClose)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.statusFn = nil
	c.messageFn = nil
	c.pending = nil
}

func (c *Client) GetUserGuilds(cb sdk.Callback[[]sdk.Guild]) {
	c.record(OpGetUserGuilds)
	c.mu.Lock()
	guilds := append([]sdk.Guild(nil), c.Guilds...)
	c.mu.Unlock()

	deliver(c, OpGetUserGuilds, cb, guilds)
}

func (c *Client) GetGuildChannels(guildID uint64, cb sdk.Callback[[]sdk.GuildChannel]) {
	c.record(OpGetGuildChannels)
	c.mu.Lock()
	channels := append([]sdk.GuildChannel(nil), c.Channels[guildID]...)
	c.mu.Unlock()

	deliver(c, OpGetGuildChannels, cb, channels)
}

func (c *Client) GetRelationships() []sdk.Relationship {
	c.record(OpGetRelationships)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sdk.Relationship(nil), c.Relationships...)
}

func (c *Client) SendUserMessage(recipientID uint64, content string, cb sdk.Callback[uint64]) {
	c.record(OpSendUserMessage)
	deliver(c, OpSendUserMessage, cb, c.storeSent(OpSendUserMessage, recipientID, content))
}

func (c *Client) SendLobbyMessage(lobbyID uint64, content string, cb sdk.Callback[uint64]) {
	c.record(OpSendLobbyMessage)
	deliver(c, OpSendLobbyMessage, cb, c.storeSent(OpSendLobbyMessage, lobbyID, content))
}

func (c *Client) storeSent(op string, target uint64, content string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.allocID()
	c.sent = append(c.sent, Sent{Op: op, Target: target, Content: content, ID: id})
	c.Messages[id] = sdk.Message{ID: id, ChannelID: target, Content: content, SentAt: uint64(time.Now().UnixMilli())}
	return id
}

func (c *Client) GetLobbyMessages(lobbyID uint64, limit int, cb sdk.Callback[[]sdk.Message]) {
	c.record(OpGetLobbyMessages)
	c.mu.Lock()
	messages := truncate(c.LobbyMessages[lobbyID], limit)
	c.mu.Unlock()

	deliver(c, OpGetLobbyMessages, cb, messages)
}

func (c *Client) GetUserMessages(recipientID uint64, limit int, cb sdk.Callback[[]sdk.Message]) {
	c.record(OpGetUserMessages)
	c.mu.Lock()
	messages := truncate(c.UserMessages[recipientID], limit)
	c.mu.Unlock()

	deliver(c, OpGetUserMessages, cb, messages)
}

func truncate(messages []sdk.Message, limit int) []sdk.Message {
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return append([]sdk.Message(nil), messages...)
}

func (c *Client) GetMessage(messageID uint64) (sdk.Message, bool) {
	c.record(OpGetMessage)
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.Messages[messageID]
	return msg, ok
}

func (c *Client) CreateOrJoinLobby(secret string, metadata map[string]string, cb sdk.Callback[uint64]) {
	c.record(OpCreateOrJoinLobby)
	c.mu.Lock()
	id, ok := c.secrets[secret]
	if !ok {
		id = c.allocID()
		c.secrets[secret] = id
		c.Lobbies[id] = make(map[string]string)
	}
	maps.Copy(c.Lobbies[id], metadata)
	c.mu.Unlock()

	deliver(c, OpCreateOrJoinLobby, cb, id)
}

func (c *Client) GetLobbyIDs() []uint64 {
	c.record(OpGetLobbyIDs)
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]uint64, 0, len(c.Lobbies))
	for id := range c.Lobbies {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) GetLobbyMetadata(lobbyID uint64) (map[string]string, bool) {
	c.record(OpGetLobbyMetadata)
	c.mu.Lock()
	defer c.mu.Unlock()

	metadata, ok := c.Lobbies[lobbyID]
	if !ok {
		return nil, false
	}
	return maps.Clone(metadata), true
}

func (c *Client) LeaveLobby(lobbyID uint64, cb sdk.Callback[struct{}]) {
	c.record(OpLeaveLobby)
	c.mu.Lock()
	delete(c.Lobbies, lobbyID)
	for secret, id := range c.secrets {
		if id == lobbyID {
			delete(c.secrets, secret)
		}
	}
	c.mu.Unlock()

	deliver(c, OpLeaveLobby, cb, struct{}{})
}

func (c *Client) SetSelfMute(mute bool) {
	c.record(OpSetSelfMute)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mute = mute
}

func (c *Client) SelfMute() bool {
	c.record(OpSelfMute)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mute
}

func (c *Client) SetSelfDeaf(deaf bool) {
	c.record(OpSetSelfDeaf)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deaf = deaf
}

func (c *Client) SelfDeaf() bool {
	c.record(OpSelfDeaf)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deaf
}

func (c *Client) StartCall(lobbyID uint64) bool {
	c.record(OpStartCall)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.StartCallFails {
		return false
	}
	c.voice[lobbyID] = sdk.CallJoining
	c.voiceScript[lobbyID] = append([]sdk.CallStatus(nil), c.CallScript...)
	return true
}

func (c *Client) CallStatus(lobbyID uint64) (sdk.CallStatus, bool) {
	c.record(OpCallStatus)
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.voice[lobbyID]
	return status, ok
}

func (c *Client) EndCall(lobbyID uint64, cb sdk.Callback[struct{}]) {
	c.record(OpEndCall)
	c.mu.Lock()
	delete(c.voice, lobbyID)
	delete(c.voiceScript, lobbyID)
	c.mu.Unlock()

	deliver(c, OpEndCall, cb, struct{}{})
}

func (c *Client) UpdateRichPresence(activity sdk.Activity, cb sdk.Callback[struct{}]) {
	c.record(OpUpdateRichPresence)
	c.mu.Lock()
	c.activity = activity
	c.mu.Unlock()

	deliver(c, OpUpdateRichPresence, cb, struct{}{})
}
