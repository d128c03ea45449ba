//go:build discord_social_sdk && cgo

package native

/*
#cgo LDFLAGS: -ldiscord_partner_sdk
#include <stdlib.h>
#include "discord.h"

extern void sbFree(uintptr_t ud);
extern void sbResult(Discord_ClientResult* r, uintptr_t ud);
extern void sbID(Discord_ClientResult* r, uint64_t id, uintptr_t ud);
extern void sbGuilds(Discord_ClientResult* r, Discord_GuildMinimalSpan s, uintptr_t ud);
extern void sbChannels(Discord_ClientResult* r, Discord_GuildChannelSpan s, uintptr_t ud);
extern void sbMessages(Discord_ClientResult* r, Discord_MessageHandleSpan s, uintptr_t ud);
extern void sbStatus(int status, int error, int detail, uintptr_t ud);
extern void sbMessageCreated(uint64_t id, uintptr_t ud);

static void sb_free(void* ud) { sbFree((uintptr_t)ud); }
static void sb_result(Discord_ClientResult* r, void* ud) { sbResult(r, (uintptr_t)ud); }
static void sb_id(Discord_ClientResult* r, uint64_t id, void* ud) { sbID(r, id, (uintptr_t)ud); }
static void sb_guilds(Discord_ClientResult* r, Discord_GuildMinimalSpan s, void* ud) { sbGuilds(r, s, (uintptr_t)ud); }
static void sb_channels(Discord_ClientResult* r, Discord_GuildChannelSpan s, void* ud) { sbChannels(r, s, (uintptr_t)ud); }
static void sb_messages(Discord_ClientResult* r, Discord_MessageHandleSpan s, void* ud) { sbMessages(r, s, (uintptr_t)ud); }
static void sb_status(int status, int error, int detail, void* ud) { sbStatus(status, error, detail, (uintptr_t)ud); }
static void sb_message_created(uint64_t id, void* ud) { sbMessageCreated(id, (uintptr_t)ud); }

static void sb_set_status_cb(Discord_Client* c, uintptr_t ud) {
	Discord_Client_SetStatusChangedCallback(c, sb_status, sb_free, (void*)ud);
}
static void sb_set_message_created_cb(Discord_Client* c, uintptr_t ud) {
	Discord_Client_SetMessageCreatedCallback(c, sb_message_created, sb_free, (void*)ud);
}
static void sb_update_token(Discord_Client* c, int kind, Discord_String token, uintptr_t ud) {
	Discord_Client_UpdateToken(c, kind, token, sb_result, sb_free, (void*)ud);
}
static void sb_get_user_guilds(Discord_Client* c, uintptr_t ud) {
	Discord_Client_GetUserGuilds(c, sb_guilds, sb_free, (void*)ud);
}
static void sb_get_guild_channels(Discord_Client* c, uint64_t guild, uintptr_t ud) {
	Discord_Client_GetGuildChannels(c, guild, sb_channels, sb_free, (void*)ud);
}
static void sb_send_user_message(Discord_Client* c, uint64_t to, Discord_String content, uintptr_t ud) {
	Discord_Client_SendUserMessage(c, to, content, sb_id, sb_free, (void*)ud);
}
static void sb_send_lobby_message(Discord_Client* c, uint64_t lobby, Discord_String content, uintptr_t ud) {
	Discord_Client_SendLobbyMessage(c, lobby, content, sb_id, sb_free, (void*)ud);
}
static void sb_get_lobby_messages(Discord_Client* c, uint64_t lobby, int32_t limit, uintptr_t ud) {
	Discord_Client_GetLobbyMessagesWithLimit(c, lobby, limit, sb_messages, sb_free, (void*)ud);
}
static void sb_get_user_messages(Discord_Client* c, uint64_t to, int32_t limit, uintptr_t ud) {
	Discord_Client_GetUserMessagesWithLimit(c, to, limit, sb_messages, sb_free, (void*)ud);
}
static void sb_create_or_join_lobby(Discord_Client* c, Discord_String secret, Discord_Properties meta, uintptr_t ud) {
	Discord_Properties member = {0, NULL, NULL};
	Discord_Client_CreateOrJoinLobbyWithMetadata(c, secret, meta, member, sb_id, sb_free, (void*)ud);
}
static void sb_leave_lobby(Discord_Client* c, uint64_t lobby, uintptr_t ud) {
	Discord_Client_LeaveLobby(c, lobby, sb_result, sb_free, (void*)ud);
}
static void sb_end_call(Discord_Client* c, uint64_t lobby, uintptr_t ud) {
	Discord_Client_EndCall(c, lobby, sb_result, sb_free, (void*)ud);
}
static void sb_update_rich_presence(Discord_Client* c, Discord_Activity* a, uintptr_t ud) {
	Discord_Client_UpdateRichPresence(c, a, sb_result, sb_free, (void*)ud);
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/rbright/socialbridge/internal/sdk"
)

func init() {
	sdk.Register(Open)
}

type library struct{}

// Open returns the process-wide native library.
func Open() (sdk.Library, error) {
	return library{}, nil
}

func (library) SetFreeThreaded() {
	C.Discord_SetFreeThreaded()
}

func (library) RunCallbacks() {
	C.Discord_RunCallbacks()
}

func (library) NewClient() (sdk.Client, error) {
	handle := (*C.Discord_Client)(C.calloc(1, C.sizeof_Discord_Client))
	if handle == nil {
		return nil, errors.New("allocate client handle")
	}
	C.Discord_Client_Init(handle)
	return &client{handle: handle}, nil
}

// client owns one C-allocated handle. Persistent callbacks stay registered
// until the vendor frees them or the handle is dropped.
type client struct {
	mu         sync.Mutex
	handle     *C.Discord_Client
	persistent []uintptr
}

var closedResult = sdk.Result{Code: -1, Message: "client closed"}

// live returns the handle, or nil once Close ran.
func (c *client) live() *C.Discord_Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

func closed[T any](cb sdk.Callback[T]) {
	var zero T
	cb.Complete(closedResult, zero)
	cb.Free()
}

func (c *client) SetApplicationID(id uint64) {
	if h := c.live(); h != nil {
		C.Discord_Client_SetApplicationId(h, C.uint64_t(id))
	}
}

func (c *client) SetStatusChangedCallback(fn func(sdk.StatusEvent)) {
	h := c.live()
	if h == nil {
		return
	}
	ud := bind(fn, nil)
	c.keep(ud)
	C.sb_set_status_cb(h, ud)
}

func (c *client) SetMessageCreatedCallback(fn func(uint64)) {
	h := c.live()
	if h == nil {
		return
	}
	ud := bind(fn, nil)
	c.keep(ud)
	C.sb_set_message_created_cb(h, ud)
}

func (c *client) keep(ud C.uintptr_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistent = append(c.persistent, uintptr(ud))
}

func (c *client) UpdateToken(kind sdk.TokenType, token string, cb sdk.Callback[struct{}]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	str, release := cString(token)
	defer release()

	ud := bind(func(r sdk.Result) { cb.Complete(r, struct{}{}) }, cb.Free)
	C.sb_update_token(h, C.int(kind), str, ud)
}

func (c *client) Connect() {
	if h := c.live(); h != nil {
		C.Discord_Client_Connect(h)
	}
}

func (c *client) Close() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	persistent := c.persistent
	c.persistent = nil
	c.mu.Unlock()

	if h == nil {
		return
	}
	C.Discord_Client_Drop(h)
	C.free(unsafe.Pointer(h))

	// The vendor normally frees persistent callbacks on drop; release is a
	// no-op for ids it already freed.
	for _, id := range persistent {
		callbacks.Release(id)
	}
}

func (c *client) GetUserGuilds(cb sdk.Callback[[]sdk.Guild]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	C.sb_get_user_guilds(h, bind(func(r sdk.Result, v []sdk.Guild) { cb.Complete(r, v) }, cb.Free))
}

func (c *client) GetGuildChannels(guildID uint64, cb sdk.Callback[[]sdk.GuildChannel]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	ud := bind(func(r sdk.Result, v []sdk.GuildChannel) { cb.Complete(r, v) }, cb.Free)
	C.sb_get_guild_channels(h, C.uint64_t(guildID), ud)
}

func (c *client) GetRelationships() []sdk.Relationship {
	h := c.live()
	if h == nil {
		return nil
	}

	var span C.Discord_RelationshipHandleSpan
	C.Discord_Client_GetRelationships(h, &span)
	if span.ptr == nil {
		return nil
	}
	// The caller owns the returned span and every handle in it.
	defer C.Discord_Free(unsafe.Pointer(span.ptr))

	handles := unsafe.Slice(span.ptr, int(span.size))
	out := make([]sdk.Relationship, 0, len(handles))
	for i := range handles {
		rel := sdk.Relationship{ID: uint64(C.Discord_RelationshipHandle_Id(&handles[i]))}
		var user C.Discord_UserHandle
		if C.Discord_RelationshipHandle_User(&handles[i], &user) {
			var name C.Discord_String
			C.Discord_UserHandle_Username(&user, &name)
			rel.Username = goString(name)
			C.Discord_UserHandle_Drop(&user)
		}
		C.Discord_RelationshipHandle_Drop(&handles[i])
		out = append(out, rel)
	}
	return out
}

func (c *client) SendUserMessage(recipientID uint64, content string, cb sdk.Callback[uint64]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	str, release := cString(content)
	defer release()

	ud := bind(func(r sdk.Result, id uint64) { cb.Complete(r, id) }, cb.Free)
	C.sb_send_user_message(h, C.uint64_t(recipientID), str, ud)
}

func (c *client) SendLobbyMessage(lobbyID uint64, content string, cb sdk.Callback[uint64]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	str, release := cString(content)
	defer release()

	ud := bind(func(r sdk.Result, id uint64) { cb.Complete(r, id) }, cb.Free)
	C.sb_send_lobby_message(h, C.uint64_t(lobbyID), str, ud)
}

func (c *client) GetLobbyMessages(lobbyID uint64, limit int, cb sdk.Callback[[]sdk.Message]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	ud := bind(func(r sdk.Result, v []sdk.Message) { cb.Complete(r, v) }, cb.Free)
	C.sb_get_lobby_messages(h, C.uint64_t(lobbyID), C.int32_t(limit), ud)
}

func (c *client) GetUserMessages(recipientID uint64, limit int, cb sdk.Callback[[]sdk.Message]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	ud := bind(func(r sdk.Result, v []sdk.Message) { cb.Complete(r, v) }, cb.Free)
	C.sb_get_user_messages(h, C.uint64_t(recipientID), C.int32_t(limit), ud)
}

func (c *client) GetMessage(messageID uint64) (sdk.Message, bool) {
	h := c.live()
	if h == nil {
		return sdk.Message{}, false
	}

	var msg C.Discord_MessageHandle
	if !C.Discord_Client_GetMessageHandle(h, C.uint64_t(messageID), &msg) || msg.opaque == nil {
		return sdk.Message{}, false
	}
	defer C.Discord_MessageHandle_Drop(&msg)
	return convertMessage(&msg), true
}

func (c *client) CreateOrJoinLobby(secret string, metadata map[string]string, cb sdk.Callback[uint64]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	str, releaseSecret := cString(secret)
	defer releaseSecret()
	props, releaseProps := cProperties(metadata)
	defer releaseProps()

	ud := bind(func(r sdk.Result, id uint64) { cb.Complete(r, id) }, cb.Free)
	C.sb_create_or_join_lobby(h, str, props, ud)
}

func (c *client) GetLobbyIDs() []uint64 {
	h := c.live()
	if h == nil {
		return nil
	}

	var span C.Discord_UInt64Span
	C.Discord_Client_GetLobbyIds(h, &span)
	if span.ptr == nil {
		return nil
	}
	defer C.Discord_Free(unsafe.Pointer(span.ptr))

	ids := unsafe.Slice(span.ptr, int(span.size))
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

func (c *client) GetLobbyMetadata(lobbyID uint64) (map[string]string, bool) {
	h := c.live()
	if h == nil {
		return nil, false
	}

	var lobby C.Discord_LobbyHandle
	if !C.Discord_Client_GetLobbyHandle(h, C.uint64_t(lobbyID), &lobby) || lobby.opaque == nil {
		return nil, false
	}
	defer C.Discord_LobbyHandle_Drop(&lobby)

	var props C.Discord_Properties
	C.Discord_LobbyHandle_Metadata(&lobby, &props)

	out := make(map[string]string, int(props.size))
	if props.size == 0 || props.keys == nil || props.values == nil {
		return out, true
	}
	keys := unsafe.Slice(props.keys, int(props.size))
	values := unsafe.Slice(props.values, int(props.size))
	for i := range keys {
		out[goString(keys[i])] = goString(values[i])
	}
	return out, true
}

func (c *client) LeaveLobby(lobbyID uint64, cb sdk.Callback[struct{}]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	ud := bind(func(r sdk.Result) { cb.Complete(r, struct{}{}) }, cb.Free)
	C.sb_leave_lobby(h, C.uint64_t(lobbyID), ud)
}

func (c *client) SetSelfMute(mute bool) {
	if h := c.live(); h != nil {
		C.Discord_Client_SetSelfMuteAll(h, C.bool(mute))
	}
}

func (c *client) SelfMute() bool {
	if h := c.live(); h != nil {
		return bool(C.Discord_Client_GetSelfMuteAll(h))
	}
	return false
}

func (c *client) SetSelfDeaf(deaf bool) {
	if h := c.live(); h != nil {
		C.Discord_Client_SetSelfDeafAll(h, C.bool(deaf))
	}
}

func (c *client) SelfDeaf() bool {
	if h := c.live(); h != nil {
		return bool(C.Discord_Client_GetSelfDeafAll(h))
	}
	return false
}

func (c *client) StartCall(lobbyID uint64) bool {
	h := c.live()
	if h == nil {
		return false
	}

	var call C.Discord_Call
	if !C.Discord_Client_StartCall(h, C.uint64_t(lobbyID), &call) {
		return false
	}
	if call.opaque != nil {
		C.Discord_Call_Drop(&call)
	}
	return true
}

func (c *client) CallStatus(lobbyID uint64) (sdk.CallStatus, bool) {
	h := c.live()
	if h == nil {
		return sdk.CallDisconnected, false
	}

	var call C.Discord_Call
	if !C.Discord_Client_GetCall(h, C.uint64_t(lobbyID), &call) || call.opaque == nil {
		return sdk.CallDisconnected, false
	}
	defer C.Discord_Call_Drop(&call)
	return sdk.CallStatus(C.Discord_Call_GetStatus(&call)), true
}

func (c *client) EndCall(lobbyID uint64, cb sdk.Callback[struct{}]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}
	ud := bind(func(r sdk.Result) { cb.Complete(r, struct{}{}) }, cb.Free)
	C.sb_end_call(h, C.uint64_t(lobbyID), ud)
}

func (c *client) UpdateRichPresence(activity sdk.Activity, cb sdk.Callback[struct{}]) {
	h := c.live()
	if h == nil {
		closed(cb)
		return
	}

	act := (*C.Discord_Activity)(C.calloc(1, C.sizeof_Discord_Activity))
	defer C.free(unsafe.Pointer(act))
	C.Discord_Activity_Init(act)
	defer C.Discord_Activity_Drop(act)

	state, releaseState := cStringPtr(activity.State)
	defer releaseState()
	details, releaseDetails := cStringPtr(activity.Details)
	defer releaseDetails()
	C.Discord_Activity_SetState(act, state)
	C.Discord_Activity_SetDetails(act, details)

	ud := bind(func(r sdk.Result) { cb.Complete(r, struct{}{}) }, cb.Free)
	C.sb_update_rich_presence(h, act, ud)
}
