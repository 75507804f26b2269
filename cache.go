package randomx

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Giulio2002/randomx/internal/engine"
)

// Cache owns an engine cache handle keyed by a byte string.
//
// A Cache is safe for concurrent use. It may be shared by many VMs and
// dataset fills; Init waits for their in-flight engine calls to finish.
type Cache struct {
	eng     engine.Engine
	flags   Flags
	id      uint64
	counted bool
	lease   lease

	// mu is held shared while the engine reads the cache and exclusively
	// while Init or Release writes it. It guards the fields below.
	mu     sync.RWMutex
	handle engine.CacheHandle
	ready  bool
	gen    uint64

	cleanup runtime.Cleanup
}

var cacheIDs atomic.Uint64

// AllocCache allocates an uninitialized cache. FlagFullMem has no meaning
// for a cache and is ignored.
func AllocCache(flags Flags) (*Cache, error) {
	const op = "AllocCache"
	if err := checkFlags(op, flags); err != nil {
		return nil, err
	}
	flags &^= FlagFullMem

	eng := defaultEngine
	h := eng.AllocCache(uint32(flags))
	counted := recordAlloc("cache", h != nil)
	if h == nil {
		return nil, opError(op, KindAllocation, "engine returned no cache for flags %s", flags)
	}

	c := &Cache{eng: eng, flags: flags, id: cacheIDs.Add(1), counted: counted, handle: h}
	c.cleanup = runtime.AddCleanup(c, func(h engine.CacheHandle) {
		eng.ReleaseCache(h)
		recordRelease("cache", counted)
		Logger().Warn("randomx: cache garbage collected without Release")
	}, h)
	Logger().Debug("randomx: cache allocated", zap.Stringer("flags", flags))
	return c, nil
}

// NewCache allocates a cache and initializes it with key.
func NewCache(flags Flags, key []byte) (*Cache, error) {
	c, err := AllocCache(flags)
	if err != nil {
		return nil, err
	}
	if err := c.Init(key); err != nil {
		_ = c.Release()
		return nil, err
	}
	return c, nil
}

// Init (re)derives the cache from key, overwriting any previous state. An
// empty key is valid. Light-mode VMs bound to c pick up the new state on
// their next hash. Init fails with ErrInUse while a VM bound to c has a
// pipelined hash pending.
func (c *Cache) Init(key []byte) error {
	const op = "Cache.Init"
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return opError(op, KindReleased, "cache already released")
	}
	if n := c.lease.pinned(); n > 0 {
		return opError(op, KindInUse, "%d vm(s) have a pipelined hash pending", n)
	}
	c.eng.InitCache(c.handle, key)
	c.ready = true
	c.gen++
	Logger().Debug("randomx: cache initialized", zap.Int("key_len", len(key)), zap.Uint64("generation", c.gen))
	return nil
}

// Initialized reports whether Init has succeeded and c is not released.
func (c *Cache) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready && c.handle != nil
}

// Flags returns the flags c was allocated with.
func (c *Cache) Flags() Flags { return c.flags }

// Release frees the engine cache. It fails with ErrInUse while a VM is bound
// to c or a dataset fill is reading it, and with ErrUseAfterRelease if c was
// already released.
func (c *Cache) Release() error {
	if err := c.lease.retire("Cache.Release", "cache"); err != nil {
		return err
	}
	c.cleanup.Stop()

	c.mu.Lock()
	c.eng.ReleaseCache(c.handle)
	c.handle = nil
	c.ready = false
	c.mu.Unlock()

	recordRelease("cache", c.counted)
	Logger().Debug("randomx: cache released")
	return nil
}

// acquire borrows c for a reader and checks that it holds a key.
func (c *Cache) acquire(op string) error {
	if c == nil {
		return opError(op, KindInvalidArgument, "nil cache")
	}
	if err := c.lease.borrow(op, "cache"); err != nil {
		return err
	}
	if !c.Initialized() {
		c.lease.unborrow()
		return opError(op, KindNotReady, "cache has no key; call Init first")
	}
	return nil
}
