// Package sdk describes the boundary to the vendor social SDK.
//
// The vendor library is callback driven: asynchronous operations take a
// completion callback plus a free hook and only deliver them while the
// process drains the library queue through Library.RunCallbacks. The native
// cgo binding lives in sdk/native and registers itself through Register; an
// in-memory fake lives in sdk/sdktest.
package sdk

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnavailable is returned by Open when no native binding was compiled in.
var ErrUnavailable = errors.New("native social SDK not compiled in (build with -tags discord_social_sdk)")

// Library is the process-wide vendor entry point.
type Library interface {
	// SetFreeThreaded declares that callbacks may race with RunCallbacks.
	SetFreeThreaded()
	// RunCallbacks drains pending vendor callbacks on the calling goroutine.
	RunCallbacks()
	NewClient() (Client, error)
}

// Client is one vendor connection handle.
//
// Methods taking a Callback return immediately; the callback fires later,
// during RunCallbacks or on a vendor thread.
type Client interface {
	SetApplicationID(id uint64)
	SetStatusChangedCallback(fn func(StatusEvent))
	SetMessageCreatedCallback(fn func(messageID uint64))
	UpdateToken(kind TokenType, token string, cb Callback[struct{}])
	Connect()
	// Close drops the handle and every resource the vendor holds for it.
	Close()

	GetUserGuilds(cb Callback[[]Guild])
	GetGuildChannels(guildID uint64, cb Callback[[]GuildChannel])
	GetRelationships() []Relationship

	SendUserMessage(recipientID uint64, content string, cb Callback[uint64])
	SendLobbyMessage(lobbyID uint64, content string, cb Callback[uint64])
	GetLobbyMessages(lobbyID uint64, limit int, cb Callback[[]Message])
	GetUserMessages(recipientID uint64, limit int, cb Callback[[]Message])
	GetMessage(messageID uint64) (Message, bool)

	CreateOrJoinLobby(secret string, metadata map[string]string, cb Callback[uint64])
	GetLobbyIDs() []uint64
	GetLobbyMetadata(lobbyID uint64) (map[string]string, bool)
	LeaveLobby(lobbyID uint64, cb Callback[struct{}])

	SetSelfMute(mute bool)
	SelfMute() bool
	SetSelfDeaf(deaf bool)
	SelfDeaf() bool
	StartCall(lobbyID uint64) bool
	CallStatus(lobbyID uint64) (CallStatus, bool)
	EndCall(lobbyID uint64, cb Callback[struct{}])

	UpdateRichPresence(activity Activity, cb Callback[struct{}])
}

// Callback is the completion and free pair handed to the vendor for one operation.
type Callback[T any] struct {
	OnComplete func(Result, T)
	OnFree     func()
}

// Complete invokes OnComplete when set.
func (c Callback[T]) Complete(result Result, value T) {
	if c.OnComplete != nil {
		c.OnComplete(result, value)
	}
}

// Free invokes OnFree when set.
func (c Callback[T]) Free() {
	if c.OnFree != nil {
		c.OnFree()
	}
}

// Result is the vendor's per-operation outcome.
type Result struct {
	Successful bool
	Code       int
	Message    string
}

// OK is a successful Result.
var OK = Result{Successful: true}

// Err returns nil for a successful result and a *ServiceError otherwise.
func (r Result) Err() error {
	if r.Successful {
		return nil
	}
	return &ServiceError{Code: r.Code, Message: r.Message}
}

// ServiceError carries the vendor's own error code and message.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error %d", e.Code)
	}
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}

var (
	openMu sync.RWMutex
	opener func() (Library, error)
)

// Register installs the constructor used by Open. The native binding calls it
// from init.
func Register(open func() (Library, error)) {
	openMu.Lock()
	defer openMu.Unlock()
	opener = open
}

// Available reports whether a native binding is registered.
func Available() bool {
	openMu.RLock()
	defer openMu.RUnlock()
	return opener != nil
}

// Open returns the registered native library or ErrUnavailable.
func Open() (Library, error) {
	openMu.RLock()
	open := opener
	openMu.RUnlock()

	if open == nil {
		return nil, ErrUnavailable
	}
	return open()
}
