//go:build discord_social_sdk && cgo

package native

/*
#include <stdlib.h>
#include "discord.h"
*/
import "C"

import (
	"unsafe"

	"github.com/rbright/socialbridge/internal/sdk"
)

func goString(s C.Discord_String) string {
	if s.ptr == nil || s.size == 0 {
		return ""
	}
	return C.GoStringN((*C.char)(unsafe.Pointer(s.ptr)), C.int(s.size))
}

// cString copies s into C memory for the duration of one vendor call.
func cString(s string) (C.Discord_String, func()) {
	p := C.CString(s)
	str := C.Discord_String{ptr: (*C.uint8_t)(unsafe.Pointer(p)), size: C.size_t(len(s))}
	return str, func() { C.free(unsafe.Pointer(p)) }
}

func cStringPtr(s string) (*C.Discord_String, func()) {
	str, release := cString(s)
	p := (*C.Discord_String)(C.malloc(C.sizeof_Discord_String))
	*p = str
	return p, func() {
		C.free(unsafe.Pointer(p))
		release()
	}
}

func cProperties(m map[string]string) (C.Discord_Properties, func()) {
	if len(m) == 0 {
		return C.Discord_Properties{}, func() {}
	}

	n := len(m)
	bytes := C.size_t(n) * C.sizeof_Discord_String
	keys := (*C.Discord_String)(C.malloc(bytes))
	values := (*C.Discord_String)(C.malloc(bytes))
	ks := unsafe.Slice(keys, n)
	vs := unsafe.Slice(values, n)

	releases := make([]func(), 0, 2*n)
	i := 0
	for k, v := range m {
		var rk, rv func()
		ks[i], rk = cString(k)
		vs[i], rv = cString(v)
		releases = append(releases, rk, rv)
		i++
	}

	props := C.Discord_Properties{size: C.size_t(n), keys: keys, values: values}
	return props, func() {
		for _, release := range releases {
			release()
		}
		C.free(unsafe.Pointer(keys))
		C.free(unsafe.Pointer(values))
	}
}

func convertResult(r *C.Discord_ClientResult) sdk.Result {
	if r == nil {
		return sdk.Result{Code: -1, Message: "missing result"}
	}
	if C.Discord_ClientResult_Successful(r) {
		return sdk.OK
	}

	var msg C.Discord_String
	C.Discord_ClientResult_Error(r, &msg)
	return sdk.Result{Code: int(C.Discord_ClientResult_ErrorCode(r)), Message: goString(msg)}
}

func convertGuilds(span C.Discord_GuildMinimalSpan) []sdk.Guild {
	if span.ptr == nil || span.size == 0 {
		return []sdk.Guild{}
	}

	items := unsafe.Slice(span.ptr, int(span.size))
	out := make([]sdk.Guild, 0, len(items))
	for i := range items {
		var name C.Discord_String
		C.Discord_GuildMinimal_Name(&items[i], &name)
		out = append(out, sdk.Guild{
			ID:   uint64(C.Discord_GuildMinimal_Id(&items[i])),
			Name: goString(name),
		})
	}
	return out
}

func convertChannels(span C.Discord_GuildChannelSpan) []sdk.GuildChannel {
	if span.ptr == nil || span.size == 0 {
		return []sdk.GuildChannel{}
	}

	items := unsafe.Slice(span.ptr, int(span.size))
	out := make([]sdk.GuildChannel, 0, len(items))
	for i := range items {
		var name C.Discord_String
		C.Discord_GuildChannel_Name(&items[i], &name)
		out = append(out, sdk.GuildChannel{
			ID:   uint64(C.Discord_GuildChannel_Id(&items[i])),
			Name: goString(name),
			Type: int(C.Discord_GuildChannel_Type(&items[i])),
		})
	}
	return out
}

func convertMessages(span C.Discord_MessageHandleSpan) []sdk.Message {
	if span.ptr == nil || span.size == 0 {
		return []sdk.Message{}
	}

	items := unsafe.Slice(span.ptr, int(span.size))
	out := make([]sdk.Message, 0, len(items))
	for i := range items {
		out = append(out, convertMessage(&items[i]))
	}
	return out
}

func convertMessage(msg *C.Discord_MessageHandle) sdk.Message {
	var content C.Discord_String
	C.Discord_MessageHandle_Content(msg, &content)
	return sdk.Message{
		ID:        uint64(C.Discord_MessageHandle_Id(msg)),
		AuthorID:  uint64(C.Discord_MessageHandle_AuthorId(msg)),
		ChannelID: uint64(C.Discord_MessageHandle_ChannelId(msg)),
		Content:   goString(content),
		SentAt:    uint64(C.Discord_MessageHandle_SentTimestamp(msg)),
	}
}
