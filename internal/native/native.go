//go:build randomx && cgo

// Package native binds the engine table to librandomx.
//
// Build with -tags randomx and make randomx.h and librandomx visible to cgo
// (CGO_CFLAGS / CGO_LDFLAGS or a system install).
package native

/*
#cgo LDFLAGS: -lrandomx -lstdc++ -lm
#include <randomx.h>
*/
import "C"

import (
	"unsafe"

	"github.com/Giulio2002/randomx/internal/engine"
)

// Engine is the cgo-backed table. The zero value is ready to use.
type Engine struct{}

var _ engine.Engine = Engine{}

// zero backs empty slices so the engine always sees a valid pointer.
var zero [1]byte

// ptr returns a pointer and length for b computed from the slice itself.
func ptr(b []byte) (unsafe.Pointer, C.size_t) {
	if len(b) == 0 {
		return unsafe.Pointer(&zero[0]), 0
	}
	return unsafe.Pointer(&b[0]), C.size_t(len(b))
}

func (Engine) Name() string { return "native" }

func (Engine) Flags() uint32 { return uint32(C.randomx_get_flags()) }

func (Engine) AllocCache(flags uint32) engine.CacheHandle {
	return engine.CacheHandle(unsafe.Pointer(C.randomx_alloc_cache(C.randomx_flags(flags))))
}

func (Engine) InitCache(c engine.CacheHandle, key []byte) {
	p, n := ptr(key)
	C.randomx_init_cache((*C.randomx_cache)(c), p, n)
}

func (Engine) ReleaseCache(c engine.CacheHandle) {
	C.randomx_release_cache((*C.randomx_cache)(c))
}

func (Engine) AllocDataset(flags uint32) engine.DatasetHandle {
	return engine.DatasetHandle(unsafe.Pointer(C.randomx_alloc_dataset(C.randomx_flags(flags))))
}

func (Engine) DatasetItemCount() uint64 { return uint64(C.randomx_dataset_item_count()) }

func (Engine) InitDataset(d engine.DatasetHandle, c engine.CacheHandle, start, count uint64) {
	C.randomx_init_dataset((*C.randomx_dataset)(d), (*C.randomx_cache)(c), C.ulong(start), C.ulong(count))
}

func (Engine) ReleaseDataset(d engine.DatasetHandle) {
	C.randomx_release_dataset((*C.randomx_dataset)(d))
}

func (Engine) CreateVM(flags uint32, c engine.CacheHandle, d engine.DatasetHandle) engine.VMHandle {
	vm := C.randomx_create_vm(C.randomx_flags(flags), (*C.randomx_cache)(c), (*C.randomx_dataset)(d))
	return engine.VMHandle(unsafe.Pointer(vm))
}

func (Engine) SetCache(vm engine.VMHandle, c engine.CacheHandle) {
	C.randomx_vm_set_cache((*C.randomx_vm)(vm), (*C.randomx_cache)(c))
}

func (Engine) SetDataset(vm engine.VMHandle, d engine.DatasetHandle) {
	C.randomx_vm_set_dataset((*C.randomx_vm)(vm), (*C.randomx_dataset)(d))
}

func (Engine) DestroyVM(vm engine.VMHandle) {
	C.randomx_destroy_vm((*C.randomx_vm)(vm))
}

func (Engine) CalculateHash(vm engine.VMHandle, input []byte, out *[engine.HashSize]byte) {
	p, n := ptr(input)
	C.randomx_calculate_hash((*C.randomx_vm)(vm), p, n, unsafe.Pointer(&out[0]))
}

func (Engine) CalculateHashFirst(vm engine.VMHandle, input []byte) {
	p, n := ptr(input)
	C.randomx_calculate_hash_first((*C.randomx_vm)(vm), p, n)
}

func (Engine) CalculateHashNext(vm engine.VMHandle, input []byte, out *[engine.HashSize]byte) {
	p, n := ptr(input)
	C.randomx_calculate_hash_next((*C.randomx_vm)(vm), p, n, unsafe.Pointer(&out[0]))
}

func (Engine) CalculateHashLast(vm engine.VMHandle, out *[engine.HashSize]byte) {
	C.randomx_calculate_hash_last((*C.randomx_vm)(vm), unsafe.Pointer(&out[0]))
}
