// Package randomx owns the caches, datasets and virtual machines of a
// RandomX-style proof-of-work engine.
//
// The engine itself is a black box reached through a fixed function table.
// This package turns its opaque handles into owned values: a handle is only
// reachable through its owner, every release is explicit, and a Cache or
// Dataset refuses to be released while a VM still borrows it.
//
// With the randomx build tag (and cgo) the table is bound to librandomx.
// Otherwise a portable software engine is used; it honours the same
// contracts but does not produce RandomX hashes.
//
// A typical light-mode session:
//
//	cache, err := randomx.NewCache(randomx.RecommendedFlags(), key)
//	vm, err := randomx.NewVM(randomx.RecommendedFlags(), cache, nil)
//	h, err := vm.Hash(input)
//	vm.Release()
//	cache.Release()
package randomx

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/Giulio2002/randomx/internal/engine"
)

// HashSize is the length of a Hash in bytes.
const HashSize = engine.HashSize

// Hash is a 256-bit engine output.
type Hash [HashSize]byte

// Numeric returns the first 8 bytes of h as a little-endian integer.
func (h Hash) Numeric() uint64 { return binary.LittleEndian.Uint64(h[:8]) }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

// defaultEngine backs every allocation. Tests swap it.
var defaultEngine = newEngine()

// EngineName names the backend this binary was built with.
func EngineName() string { return defaultEngine.Name() }
