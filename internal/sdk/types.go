package sdk

import (
	"strconv"
	"strings"
)

// Status is the vendor client's connection status.
type Status int

const (
	StatusUninitialized Status = iota
	StatusConnecting
	StatusConnected
	StatusReady
	StatusReconnecting
	StatusDisconnecting
	StatusHTTPWait
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReady:
		return "ready"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnecting:
		return "disconnecting"
	case StatusHTTPWait:
		return "http_wait"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// StatusEvent is one status-changed notification.
type StatusEvent struct {
	Status Status
	Error  int
	Detail int
}

// TokenType selects how the vendor interprets an access token.
type TokenType int

const (
	TokenUser   TokenType = 0
	TokenBearer TokenType = 1
)

// CallStatus is the vendor voice call state.
type CallStatus int

const (
	CallDisconnected CallStatus = iota
	CallJoining
	CallConnecting
	CallSignallingConnected
	CallConnected
	CallReconnecting
	CallDisconnecting
)

func (s CallStatus) String() string {
	switch s {
	case CallDisconnected:
		return "disconnected"
	case CallJoining:
		return "joining"
	case CallConnecting:
		return "connecting"
	case CallSignallingConnected:
		return "signalling_connected"
	case CallConnected:
		return "connected"
	case CallReconnecting:
		return "reconnecting"
	case CallDisconnecting:
		return "disconnecting"
	default:
		return "call_status(" + strconv.Itoa(int(s)) + ")"
	}
}

type Guild struct {
	ID   uint64
	Name string
}

type GuildChannel struct {
	ID   uint64
	Name string
	Type int
}

type Message struct {
	ID        uint64
	AuthorID  uint64
	ChannelID uint64
	Content   string
	// SentAt is the vendor timestamp in Unix milliseconds.
	SentAt uint64
}

type Relationship struct {
	ID       uint64
	Username string
}

type Activity struct {
	State   string
	Details string
}

// ParseToken splits a stored credential of the form "type=N:value".
// A bare value, a malformed prefix, or an unparsable N yields a bearer token.
func ParseToken(raw string) (TokenType, string) {
	rest, ok := strings.CutPrefix(raw, "type=")
	if !ok {
		return TokenBearer, raw
	}

	kind, value, ok := strings.Cut(rest, ":")
	if !ok {
		return TokenBearer, raw
	}

	n, err := strconv.Atoi(kind)
	if err != nil {
		return TokenBearer, value
	}
	return TokenType(n), value
}
