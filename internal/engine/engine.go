// Package engine declares the function table a proof-of-work engine exposes.
//
// Handles are opaque. A nil handle returned from an allocation call is the
// only failure signal the table has; none of the other calls accept a nil or
// released handle.
package engine

import "unsafe"

// HashSize is the length of a hash written by the Calculate* calls.
const HashSize = 32

// Engine flag bits.
const (
	FlagDefault     uint32 = 0
	FlagLargePages  uint32 = 1
	FlagHardAES     uint32 = 2
	FlagFullMem     uint32 = 4
	FlagJIT         uint32 = 8
	FlagSecure      uint32 = 16
	FlagArgon2SSSE3 uint32 = 32
	FlagArgon2AVX2  uint32 = 64

	// FlagMask covers every bit an engine understands.
	FlagMask = FlagLargePages | FlagHardAES | FlagFullMem | FlagJIT |
		FlagSecure | FlagArgon2SSSE3 | FlagArgon2AVX2
)

type (
	CacheHandle   unsafe.Pointer
	DatasetHandle unsafe.Pointer
	VMHandle      unsafe.Pointer
)

// Engine is the fixed table of engine entry points. Flag arguments are raw
// engine bitmasks.
type Engine interface {
	// Name identifies the backend ("native", "soft").
	Name() string
	// Flags reports the flag combination recommended for this host.
	Flags() uint32

	AllocCache(flags uint32) CacheHandle
	InitCache(c CacheHandle, key []byte)
	ReleaseCache(c CacheHandle)

	AllocDataset(flags uint32) DatasetHandle
	DatasetItemCount() uint64
	InitDataset(d DatasetHandle, c CacheHandle, start, count uint64)
	ReleaseDataset(d DatasetHandle)

	// CreateVM binds a new VM to c and, with the full-mem flag, d.
	CreateVM(flags uint32, c CacheHandle, d DatasetHandle) VMHandle
	SetCache(vm VMHandle, c CacheHandle)
	SetDataset(vm VMHandle, d DatasetHandle)
	DestroyVM(vm VMHandle)

	CalculateHash(vm VMHandle, input []byte, out *[HashSize]byte)
	CalculateHashFirst(vm VMHandle, input []byte)
	CalculateHashNext(vm VMHandle, input []byte, out *[HashSize]byte)
	CalculateHashLast(vm VMHandle, out *[HashSize]byte)
}
