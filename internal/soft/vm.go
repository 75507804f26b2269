package soft

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/crypto/blake2b"

	"github.com/Giulio2002/randomx/internal/engine"
)

type vm struct {
	full    bool
	cache   *cache
	dataset *dataset
	scratch *region
	// temp is the seed of the input submitted by the last
	// CalculateHashFirst/Next call.
	temp [blake2b.Size]byte
}

func toVM(h engine.VMHandle) *vm { return (*vm)(unsafe.Pointer(h)) }

// CreateVM returns nil where the native engine would reject the combination:
// full-mem without a dataset, light mode without an initialized cache, or
// hard AES on a CPU without it.
func (e *Engine) CreateVM(flags uint32, ch engine.CacheHandle, dh engine.DatasetHandle) engine.VMHandle {
	full := flags&engine.FlagFullMem != 0
	c, d := toCache(ch), toDataset(dh)
	switch {
	case full && d == nil:
		return nil
	case !full && c == nil:
		return nil
	case c != nil && !c.initialized:
		return nil
	case flags&engine.FlagHardAES != 0 && !hasAES():
		return nil
	}
	scratch, err := newRegion(e.p.ScratchpadSize, flags&engine.FlagLargePages != 0)
	if err != nil {
		return nil
	}
	return engine.VMHandle(unsafe.Pointer(&vm{full: full, cache: c, dataset: d, scratch: scratch}))
}

// SetCache is ignored by full-mem VMs, which never read the cache.
func (e *Engine) SetCache(h engine.VMHandle, c engine.CacheHandle) {
	if v := toVM(h); !v.full {
		v.cache = toCache(c)
	}
}

// SetDataset is ignored by light VMs.
func (e *Engine) SetDataset(h engine.VMHandle, d engine.DatasetHandle) {
	if v := toVM(h); v.full {
		v.dataset = toDataset(d)
	}
}

func (e *Engine) DestroyVM(h engine.VMHandle) {
	v := toVM(h)
	_ = v.scratch.free()
	v.scratch, v.cache, v.dataset = nil, nil, nil
}

func (e *Engine) CalculateHash(h engine.VMHandle, input []byte, out *[engine.HashSize]byte) {
	seed := blake2b.Sum512(input)
	e.run(toVM(h), &seed, out)
}

func (e *Engine) CalculateHashFirst(h engine.VMHandle, input []byte) {
	toVM(h).temp = blake2b.Sum512(input)
}

func (e *Engine) CalculateHashNext(h engine.VMHandle, input []byte, out *[engine.HashSize]byte) {
	v := toVM(h)
	prev := v.temp
	v.temp = blake2b.Sum512(input)
	e.run(v, &prev, out)
}

func (e *Engine) CalculateHashLast(h engine.VMHandle, out *[engine.HashSize]byte) {
	v := toVM(h)
	e.run(v, &v.temp, out)
}

// run fills the scratchpad from seed, folds Rounds dataset items into it and
// finalizes the state and scratchpad digest into out.
func (e *Engine) run(v *vm, seed *[blake2b.Size]byte, out *[engine.HashSize]byte) {
	s := v.scratch.b
	xof, err := blake2b.NewXOF(uint32(len(s)), seed[:])
	if err != nil {
		panic(fmt.Sprintf("soft: scratchpad xof: %v", err))
	}
	if _, err := io.ReadFull(xof, s); err != nil {
		panic(fmt.Sprintf("soft: scratchpad xof: %v", err))
	}

	lines := uint64(len(s) / itemSize)
	st := *seed
	var (
		buf [2 * itemSize]byte
		it  [itemSize]byte
	)
	for r := 0; r < e.p.Rounds; r++ {
		idx := binary.LittleEndian.Uint64(st[0:8]) % e.p.ItemCount
		if v.full {
			copy(it[:], v.dataset.mem.b[idx*itemSize:])
		} else {
			e.item(v.cache, idx, &it)
		}
		off := binary.LittleEndian.Uint64(st[8:16]) % lines * itemSize
		line := s[off : off+itemSize]
		for j := range line {
			line[j] ^= it[j]
		}
		copy(buf[:itemSize], st[:])
		copy(buf[itemSize:], line)
		st = blake2b.Sum512(buf[:])
	}

	sp := blake2b.Sum512(s)
	copy(buf[:itemSize], st[:])
	copy(buf[itemSize:], sp[:])
	*out = blake2b.Sum256(buf[:])
}
