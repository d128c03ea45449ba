// Package bridge dispatches protocol commands onto the vendor session.
//
// Every command resolves to exactly one response. Commands that need a
// session are refused before their arguments are read when none is ready,
// and no failure, timeout, or panic escapes Handle.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/config"
	"github.com/rbright/socialbridge/internal/events"
	"github.com/rbright/socialbridge/internal/fsm"
	"github.com/rbright/socialbridge/internal/protocol"
	"github.com/rbright/socialbridge/internal/sdk"
	"github.com/rbright/socialbridge/internal/session"
)

// Session is the subset of session.Manager the dispatcher drives.
type Session interface {
	await.Pump
	Initialize(context.Context, session.Credentials) error
	Disconnect() bool
	Client() (sdk.Client, error)
	State() fsm.State
	Status() sdk.Status
	ID() string
	Events() *events.Queue
}

type handlerFunc func(ctx context.Context, client sdk.Client, args json.RawMessage) (any, error)

type command struct {
	handle          handlerFunc
	requiresSession bool
}

// Dispatcher maps command names onto handlers.
type Dispatcher struct {
	session  Session
	timeouts config.TimeoutsConfig
	logger   *slog.Logger
	commands map[string]command
}

var _ protocol.Handler = (*Dispatcher)(nil)

// New builds a dispatcher over sess using the per-class poll policies in timeouts.
func New(sess Session, timeouts config.TimeoutsConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{session: sess, timeouts: timeouts, logger: logger}
	d.commands = map[string]command{
		"ping":               {handle: d.ping},
		"status":             {handle: d.status},
		"initialize":         {handle: d.initialize},
		"disconnect":         {handle: d.disconnect},
		"get_message_events": {handle: d.getMessageEvents},

		"get_guilds":         {handle: d.getGuilds, requiresSession: true},
		"get_guild_channels": {handle: d.getGuildChannels, requiresSession: true},
		"get_relationships":  {handle: d.getRelationships, requiresSession: true},

		"send_message":       {handle: d.sendMessage, requiresSession: true},
		"send_lobby_message": {handle: d.sendLobbyMessage, requiresSession: true},
		"send_dm":            {handle: d.sendDM, requiresSession: true},
		"get_lobby_messages": {handle: d.getLobbyMessages, requiresSession: true},
		"get_user_messages":  {handle: d.getUserMessages, requiresSession: true},
		"get_message":        {handle: d.getMessage, requiresSession: true},

		"create_lobby":         {handle: d.createOrJoinLobby, requiresSession: true},
		"create_or_join_lobby": {handle: d.createOrJoinLobby, requiresSession: true},
		"get_lobby_ids":        {handle: d.getLobbyIDs, requiresSession: true},
		"get_lobby":            {handle: d.getLobby, requiresSession: true},
		"leave_lobby":          {handle: d.leaveLobby, requiresSession: true},

		"set_mute":               {handle: d.setMute, requiresSession: true},
		"set_deaf":               {handle: d.setDeaf, requiresSession: true},
		"get_mute_status":        {handle: d.getMuteStatus, requiresSession: true},
		"get_deaf_status":        {handle: d.getDeafStatus, requiresSession: true},
		"connect_lobby_voice":    {handle: d.connectLobbyVoice, requiresSession: true},
		"disconnect_lobby_voice": {handle: d.disconnectLobbyVoice, requiresSession: true},

		"set_activity": {handle: d.setActivity, requiresSession: true},
	}
	return d
}

// Commands lists every registered command name in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle resolves one command into its response.
func (d *Dispatcher) Handle(ctx context.Context, cmd protocol.Command) (resp protocol.Response) {
	logger := d.logger.With("id", cmd.ID, "command", cmd.Name)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("command panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			resp = protocol.Fail(cmd.ID, fmt.Errorf("internal error: %v", r))
		}
	}()

	entry, ok := d.commands[cmd.Name]
	if !ok {
		logger.Warn("unknown command")
		return protocol.Fail(cmd.ID, fmt.Errorf("unknown command: %s", cmd.Name))
	}

	var client sdk.Client
	if entry.requiresSession {
		var err error
		client, err = d.session.Client()
		if err != nil {
			logger.Debug("command refused", "state", string(d.session.State()))
			return protocol.Fail(cmd.ID, err)
		}
	}

	result, err := entry.handle(ctx, client, cmd.Args)
	elapsed := time.Since(started)
	if err != nil {
		logger.Warn("command failed", "error", err.Error(), "elapsed_ms", elapsed.Milliseconds())
		return protocol.Fail(cmd.ID, err)
	}

	logger.Debug("command completed", "elapsed_ms", elapsed.Milliseconds())
	return protocol.OK(cmd.ID, result)
}

func (d *Dispatcher) ping(context.Context, sdk.Client, json.RawMessage) (any, error) {
	return pongResult{Pong: true}, nil
}

func (d *Dispatcher) status(context.Context, sdk.Client, json.RawMessage) (any, error) {
	return sessionStatusResult{
		State:     string(d.session.State()),
		Status:    d.session.Status().String(),
		SessionID: d.session.ID(),
	}, nil
}

type initializeArgs struct {
	Token string     `json:"token"`
	AppID *Snowflake `json:"app_id"`
}

func (d *Dispatcher) initialize(ctx context.Context, _ sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[initializeArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.Token == "" {
		return nil, missing("token")
	}

	creds := session.Credentials{Token: args.Token}
	if args.AppID != nil {
		creds.ApplicationID = uint64(*args.AppID)
	}
	if err := d.session.Initialize(ctx, creds); err != nil {
		return nil, err
	}
	return statusResult{Status: "initialized"}, nil
}

func (d *Dispatcher) disconnect(context.Context, sdk.Client, json.RawMessage) (any, error) {
	d.session.Disconnect()
	return statusResult{Status: "disconnected"}, nil
}

func (d *Dispatcher) getMessageEvents(context.Context, sdk.Client, json.RawMessage) (any, error) {
	return toMessageEvents(d.session.Events().Drain()), nil
}
