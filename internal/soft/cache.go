package soft

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"

	"github.com/Giulio2002/randomx/internal/engine"
)

var cacheSalt = []byte("soft-engine-cache-v1")

type cache struct {
	mem         *region
	lines       uint64
	initialized bool
}

func toCache(h engine.CacheHandle) *cache { return (*cache)(unsafe.Pointer(h)) }

func (e *Engine) AllocCache(flags uint32) engine.CacheHandle {
	mem, err := newRegion(e.p.CacheSize, flags&engine.FlagLargePages != 0)
	if err != nil {
		return nil
	}
	c := &cache{mem: mem, lines: uint64(e.p.CacheSize / itemSize)}
	return engine.CacheHandle(unsafe.Pointer(c))
}

// InitCache derives a 64-byte seed from key with Argon2id and expands it
// over the whole cache with the BLAKE2b XOF.
func (e *Engine) InitCache(h engine.CacheHandle, key []byte) {
	c := toCache(h)
	seed := argon2.IDKey(key, cacheSalt, 1, e.p.ArgonMemoryKiB, 1, 64)
	xof, err := blake2b.NewXOF(uint32(len(c.mem.b)), seed)
	if err != nil {
		panic(fmt.Sprintf("soft: cache xof: %v", err))
	}
	if _, err := io.ReadFull(xof, c.mem.b); err != nil {
		panic(fmt.Sprintf("soft: cache xof: %v", err))
	}
	c.initialized = true
}

func (e *Engine) ReleaseCache(h engine.CacheHandle) {
	c := toCache(h)
	_ = c.mem.free()
	c.mem = nil
	c.initialized = false
}

// item derives dataset item i from the cache into out.
func (e *Engine) item(c *cache, i uint64, out *[itemSize]byte) {
	var buf [2 * itemSize]byte
	binary.LittleEndian.PutUint64(buf[:8], i)
	st := blake2b.Sum512(buf[:8])
	for r := 0; r < e.p.ItemRounds; r++ {
		line := binary.LittleEndian.Uint64(st[:8]) % c.lines * itemSize
		copy(buf[:itemSize], st[:])
		copy(buf[itemSize:], c.mem.b[line:line+itemSize])
		st = blake2b.Sum512(buf[:])
	}
	*out = st
}
