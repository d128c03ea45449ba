//go:build discord_social_sdk && cgo

package native

/*
#include <stdint.h>
#include "discord.h"
*/
import "C"

import (
	"log/slog"
	"runtime/debug"

	"github.com/rbright/socialbridge/internal/sdk"
)

// entry is one registered callback. complete holds one of the typed
// function shapes the trampolines below expect.
type entry struct {
	complete any
	free     func()
}

var callbacks = sdk.NewCallbackTable()

func bind(complete any, free func()) C.uintptr_t {
	return C.uintptr_t(callbacks.Register(&entry{complete: complete, free: free}))
}

func lookup[F any](ud C.uintptr_t) (F, bool) {
	var zero F
	v, ok := callbacks.Lookup(uintptr(ud))
	if !ok {
		return zero, false
	}
	e, ok := v.(*entry)
	if !ok {
		return zero, false
	}
	fn, ok := e.complete.(F)
	return fn, ok
}

// guard keeps a panicking Go callback from unwinding into vendor frames.
func guard(name string) {
	if r := recover(); r != nil {
		slog.Error("native callback panicked", "callback", name, "panic", r, "stack", string(debug.Stack()))
	}
}

//export sbFree
func sbFree(ud C.uintptr_t) {
	defer guard("free")

	v, ok := callbacks.Release(uintptr(ud))
	if !ok {
		return
	}
	if e, ok := v.(*entry); ok && e.free != nil {
		e.free()
	}
}

//export sbResult
func sbResult(r *C.Discord_ClientResult, ud C.uintptr_t) {
	defer guard("result")
	if fn, ok := lookup[func(sdk.Result)](ud); ok {
		fn(convertResult(r))
	}
}

//export sbID
func sbID(r *C.Discord_ClientResult, id C.uint64_t, ud C.uintptr_t) {
	defer guard("id")
	if fn, ok := lookup[func(sdk.Result, uint64)](ud); ok {
		fn(convertResult(r), uint64(id))
	}
}

//export sbGuilds
func sbGuilds(r *C.Discord_ClientResult, span C.Discord_GuildMinimalSpan, ud C.uintptr_t) {
	defer guard("guilds")
	if fn, ok := lookup[func(sdk.Result, []sdk.Guild)](ud); ok {
		fn(convertResult(r), convertGuilds(span))
	}
}

//export sbChannels
func sbChannels(r *C.Discord_ClientResult, span C.Discord_GuildChannelSpan, ud C.uintptr_t) {
	defer guard("channels")
	if fn, ok := lookup[func(sdk.Result, []sdk.GuildChannel)](ud); ok {
		fn(convertResult(r), convertChannels(span))
	}
}

//export sbMessages
func sbMessages(r *C.Discord_ClientResult, span C.Discord_MessageHandleSpan, ud C.uintptr_t) {
	defer guard("messages")
	if fn, ok := lookup[func(sdk.Result, []sdk.Message)](ud); ok {
		fn(convertResult(r), convertMessages(span))
	}
}

//export sbStatus
func sbStatus(status, code, detail C.int, ud C.uintptr_t) {
	defer guard("status")
	if fn, ok := lookup[func(sdk.StatusEvent)](ud); ok {
		fn(sdk.StatusEvent{Status: sdk.Status(status), Error: int(code), Detail: int(detail)})
	}
}

//export sbMessageCreated
func sbMessageCreated(id C.uint64_t, ud C.uintptr_t) {
	defer guard("message_created")
	if fn, ok := lookup[func(uint64)](ud); ok {
		fn(uint64(id))
	}
}
