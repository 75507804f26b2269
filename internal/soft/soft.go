// Package soft is a portable software engine implementing the engine table.
//
// It keeps the resource model of the native engine (caches keyed by an
// arbitrary byte string, datasets derived item by item from a cache, VMs
// with a private scratchpad, a three-call pipeline) on top of Argon2id and
// BLAKE2b. Hashes are deterministic for a given key and input but are not
// RandomX hashes.
//
// Light and fast mode produce the same hash: a light VM derives each
// dataset item from the cache on demand, a fast VM reads it from the
// dataset. Flags never change results.
package soft

import (
	"fmt"

	"github.com/Giulio2002/randomx/internal/engine"
)

const itemSize = 64

// Params sizes the engine. All sizes are in bytes.
type Params struct {
	CacheSize      int
	ItemCount      uint64
	ScratchpadSize int
	// Rounds is the number of dataset reads per hash.
	Rounds int
	// ItemRounds is the number of cache reads per dataset item.
	ItemRounds     int
	ArgonMemoryKiB uint32
}

// DefaultParams is small enough to build a full dataset in milliseconds.
var DefaultParams = Params{
	CacheSize:      256 << 10,
	ItemCount:      1 << 14,
	ScratchpadSize: 16 << 10,
	Rounds:         64,
	ItemRounds:     4,
	ArgonMemoryKiB: 256,
}

func (p Params) validate() error {
	switch {
	case p.CacheSize < itemSize || p.CacheSize%itemSize != 0 || p.CacheSize > 1<<31:
		return fmt.Errorf("soft: cache size %d must be a positive multiple of %d below 2 GiB", p.CacheSize, itemSize)
	case p.ScratchpadSize < itemSize || p.ScratchpadSize%itemSize != 0 || p.ScratchpadSize > 1<<31:
		return fmt.Errorf("soft: scratchpad size %d must be a positive multiple of %d below 2 GiB", p.ScratchpadSize, itemSize)
	case p.ItemCount == 0 || p.ItemCount > (1<<40)/itemSize:
		return fmt.Errorf("soft: item count %d out of range", p.ItemCount)
	case p.Rounds <= 0 || p.ItemRounds <= 0:
		return fmt.Errorf("soft: rounds must be positive")
	}
	return nil
}

// Engine is the software engine.
type Engine struct {
	p Params
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine with DefaultParams.
func New() *Engine {
	return &Engine{p: DefaultParams}
}

// NewWithParams returns an engine sized by p.
func NewWithParams(p Params) (*Engine, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Engine{p: p}, nil
}

// Params returns the sizes e was built with.
func (e *Engine) Params() Params { return e.p }

func (e *Engine) Name() string { return "soft" }

func (e *Engine) Flags() uint32 { return hostFlags() }
