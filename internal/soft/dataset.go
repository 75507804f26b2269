package soft

import (
	"unsafe"

	"github.com/Giulio2002/randomx/internal/engine"
)

type dataset struct {
	mem *region
}

func toDataset(h engine.DatasetHandle) *dataset { return (*dataset)(unsafe.Pointer(h)) }

func (e *Engine) AllocDataset(flags uint32) engine.DatasetHandle {
	mem, err := newRegion(int(e.p.ItemCount*itemSize), flags&engine.FlagLargePages != 0)
	if err != nil {
		return nil
	}
	return engine.DatasetHandle(unsafe.Pointer(&dataset{mem: mem}))
}

func (e *Engine) DatasetItemCount() uint64 { return e.p.ItemCount }

// InitDataset writes items [start, start+count). Calls over disjoint ranges
// may run concurrently.
func (e *Engine) InitDataset(dh engine.DatasetHandle, ch engine.CacheHandle, start, count uint64) {
	d, c := toDataset(dh), toCache(ch)
	for i := start; i < start+count; i++ {
		e.item(c, i, (*[itemSize]byte)(d.mem.b[i*itemSize:]))
	}
}

func (e *Engine) ReleaseDataset(h engine.DatasetHandle) {
	d := toDataset(h)
	_ = d.mem.free()
	d.mem = nil
}
