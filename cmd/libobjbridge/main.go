//go:build cgo

// Command libobjbridge builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libobjbridge.so ./cmd/libobjbridge
//
// Every function returning an object transfers one reference to the caller,
// who must pass it to release_object exactly once. Handle arguments are
// borrowed for the duration of the call.
//
// Set OBJBRIDGE_DEBUG=1 to panic on contract violations.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"context"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/abi"
	"github.com/wippyai/objbridge/memory"
	"github.com/wippyai/objbridge/platform"
)

type library struct {
	rt       *objbridge.Runtime
	bridge   *abi.Bridge
	platform *platform.Platform
}

var (
	libOnce sync.Once
	lib     *library
)

// shared returns the process-wide runtime. Storage always comes from the C
// heap so pointers handed to the caller are not Go pointers.
func shared() *library {
	libOnce.Do(func() {
		debug := os.Getenv("OBJBRIDGE_DEBUG") == "1"

		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		if debug {
			zc = zap.NewDevelopmentConfig()
		}
		logger, err := zc.Build()
		if err != nil {
			logger = zap.NewNop()
		}

		rt, err := objbridge.New(objbridge.Config{
			Allocator: memory.NewManual(),
			Logger:    logger,
			Debug:     debug,
		})
		if err != nil {
			logger.Fatal("create bridge runtime", zap.Error(err))
		}
		lib = &library{
			rt:       rt,
			bridge:   abi.New(rt),
			platform: platform.New(rt),
		}
	})
	return lib
}

func handle(h C.uint64_t) objbridge.Handle { return objbridge.Handle(h) }

//export retain_object
func retain_object(h C.uint64_t) {
	shared().bridge.RetainObject(uint64(h))
}

//export release_object
func release_object(h C.uint64_t) {
	shared().bridge.ReleaseObject(uint64(h))
}

//export allocate_string
func allocate_string(data *C.char, n C.size_t) C.uint64_t {
	l := shared()
	b, err := memory.Foreign(unsafe.Pointer(data), uint64(n))
	if err != nil {
		l.rt.Logger().Error("allocate_string", zap.Error(err))
		return 0
	}
	return C.uint64_t(l.rt.Return(l.rt.NewStringFromBytes(b)))
}

//export data_from_bytes
func data_from_bytes(data *C.uint8_t, n C.size_t) C.uint64_t {
	l := shared()
	b, err := memory.Foreign(unsafe.Pointer(data), uint64(n))
	if err != nil {
		l.rt.Logger().Error("data_from_bytes", zap.Error(err))
		return 0
	}
	return C.uint64_t(l.rt.Return(l.rt.NewData(b)))
}

// object_pointer returns the base address of h's storage, valid while the
// caller holds a reference, or NULL.
//
//export object_pointer
func object_pointer(h C.uint64_t) unsafe.Pointer {
	p, _, err := shared().rt.Pointer(handle(h))
	if err != nil {
		return nil
	}
	return p
}

//export object_len
func object_len(h C.uint64_t) C.int64_t {
	return C.int64_t(shared().bridge.ObjectLen(uint64(h)))
}

//export array_get
func array_get(h C.uint64_t, idx C.uint32_t) C.uint64_t {
	return C.uint64_t(shared().bridge.ArrayGet(uint64(h), uint32(idx)))
}

//export object_field
func object_field(h C.uint64_t, idx C.uint32_t) C.uint64_t {
	return C.uint64_t(shared().bridge.ObjectField(uint64(h), uint32(idx)))
}

//export is_null
func is_null(h C.uint64_t) C.bool {
	return C.bool(shared().bridge.IsNull(uint64(h)) == 1)
}

//export get_greeting
func get_greeting(name C.uint64_t) C.uint64_t {
	return C.uint64_t(shared().platform.GetGreeting(handle(name)))
}

//export echo
func echo(s C.uint64_t) C.uint64_t {
	return C.uint64_t(shared().platform.Echo(handle(s)))
}

//export send_and_get_data
func send_and_get_data(data C.uint64_t) C.uint64_t {
	return C.uint64_t(shared().platform.SendAndGetData(handle(data)))
}

//export get_file_thumbnail_base64
func get_file_thumbnail_base64(path C.uint64_t) C.uint64_t {
	return C.uint64_t(shared().platform.GetFileThumbnailBase64(handle(path)))
}

//export complex_data
func complex_data() C.uint64_t {
	return C.uint64_t(shared().platform.ComplexData())
}

//export get_data
func get_data() C.uint64_t {
	return C.uint64_t(shared().platform.GetData())
}

//export get_int_array
func get_int_array() C.uint64_t {
	return C.uint64_t(shared().platform.IntArray())
}

//export get_custom_object
func get_custom_object() C.uint64_t {
	return C.uint64_t(shared().platform.CustomObject())
}

//export get_mounts
func get_mounts() C.uint64_t {
	return C.uint64_t(shared().platform.GetMounts(context.Background()))
}

//export return_nullable
func return_nullable(null C.bool) C.uint64_t {
	return C.uint64_t(shared().platform.ReturnNullable(bool(null)))
}

// objbridge_live_objects reports how many objects are alive, for leak checks.
//
//export objbridge_live_objects
func objbridge_live_objects() C.int64_t {
	return C.int64_t(shared().rt.Stats().Objects)
}

func main() {}
