package randomx

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Giulio2002/randomx/internal/engine"
)

// Dataset owns an engine dataset: ItemCount items derived from a Cache.
//
// A Dataset can be bound to VMs only once every item has been initialized
// from the same cache key, and cannot be initialized while any VM is bound
// to it.
type Dataset struct {
	eng     engine.Engine
	flags   Flags
	items   uint64
	counted bool
	lease   lease

	mu     sync.Mutex // guards handle, filled and source
	handle engine.DatasetHandle
	filled spans
	source keySource

	cleanup runtime.Cleanup
}

// keySource identifies the cache key a range was derived from.
type keySource struct {
	cache uint64
	gen   uint64
}

// AllocDataset allocates an uninitialized dataset. This is the largest
// allocation the engine makes and the one most likely to fail.
func AllocDataset(flags Flags) (*Dataset, error) {
	const op = "AllocDataset"
	if err := checkFlags(op, flags); err != nil {
		return nil, err
	}

	eng := defaultEngine
	h := eng.AllocDataset(uint32(flags))
	counted := recordAlloc("dataset", h != nil)
	if h == nil {
		return nil, opError(op, KindAllocation, "engine returned no dataset for flags %s", flags)
	}
	items := eng.DatasetItemCount()
	if items == 0 {
		eng.ReleaseDataset(h)
		recordRelease("dataset", counted)
		return nil, opError(op, KindAllocation, "engine reports zero dataset items")
	}

	d := &Dataset{eng: eng, flags: flags, items: items, counted: counted, handle: h}
	d.cleanup = runtime.AddCleanup(d, func(h engine.DatasetHandle) {
		eng.ReleaseDataset(h)
		recordRelease("dataset", counted)
		Logger().Warn("randomx: dataset garbage collected without Release")
	}, h)
	Logger().Debug("randomx: dataset allocated", zap.Stringer("flags", flags), zap.Uint64("items", items))
	return d, nil
}

// NewDataset allocates a dataset and fills it from cache with workers
// goroutines.
func NewDataset(flags Flags, cache *Cache, workers int) (*Dataset, error) {
	d, err := AllocDataset(flags)
	if err != nil {
		return nil, err
	}
	if err := d.Init(cache, workers); err != nil {
		_ = d.Release()
		return nil, err
	}
	return d, nil
}

// ItemCount returns the number of items in d.
func (d *Dataset) ItemCount() uint64 { return d.items }

// Flags returns the flags d was allocated with.
func (d *Dataset) Flags() Flags { return d.flags }

// InitRange fills items [start, start+count) from cache. Ranges past
// ItemCount are rejected before the engine is called.
//
// Calls are not serialized: several goroutines may fill d at once, provided
// their ranges do not overlap. Overlap is not detected. A range filled from
// a different cache, or from the same cache after it was re-keyed, discards
// the coverage of earlier ranges, so d is Ready again only once the new key
// has filled every item.
func (d *Dataset) InitRange(cache *Cache, start, count uint64) error {
	const op = "Dataset.InitRange"
	end := start + count
	if end < start || end > d.items {
		return opError(op, KindOutOfBounds, "range [%d, %d+%d) exceeds %d items", start, start, count, d.items)
	}
	if cache != nil && cache.eng != d.eng {
		return opError(op, KindInvalidArgument, "cache belongs to a different engine")
	}
	if err := d.lease.write(op, "dataset"); err != nil {
		return err
	}
	defer d.lease.unwrite()
	if err := cache.acquire(op); err != nil {
		return err
	}
	defer cache.lease.unborrow()
	if count == 0 {
		return nil
	}

	h := d.nativeHandle()
	cache.mu.RLock()
	d.eng.InitDataset(h, cache.handle, start, count)
	src := keySource{cache: cache.id, gen: cache.gen}
	cache.mu.RUnlock()

	d.mu.Lock()
	if src != d.source {
		if len(d.filled) > 0 {
			Logger().Debug("randomx: dataset key changed, coverage reset",
				zap.Uint64("cache", src.cache), zap.Uint64("generation", src.gen))
		}
		d.filled = nil
		d.source = src
	}
	d.filled.add(start, end)
	d.mu.Unlock()
	return nil
}

// Init fills the whole dataset, splitting it into workers contiguous ranges
// filled in parallel. workers <= 0 uses one per CPU.
func (d *Dataset) Init(cache *Cache, workers int) error {
	began := time.Now()
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if uint64(workers) > d.items {
		workers = int(d.items)
	}

	var g errgroup.Group
	n := uint64(workers)
	for i := range n {
		lo, hi := d.items*i/n, d.items*(i+1)/n
		g.Go(func() error { return d.InitRange(cache, lo, hi-lo) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	took := time.Since(began)
	recordDatasetInit(took)
	Logger().Debug("randomx: dataset initialized", zap.Int("workers", workers), zap.Duration("took", took))
	return nil
}

// Ready reports whether every item has been initialized.
func (d *Dataset) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle != nil && d.filled.covers(d.items)
}

// Release frees the engine dataset. It fails with ErrInUse while a VM is
// bound to d or a fill is running, and with ErrUseAfterRelease if d was
// already released.
func (d *Dataset) Release() error {
	if err := d.lease.retire("Dataset.Release", "dataset"); err != nil {
		return err
	}
	d.cleanup.Stop()

	d.mu.Lock()
	d.eng.ReleaseDataset(d.handle)
	d.handle = nil
	d.filled = nil
	d.mu.Unlock()

	recordRelease("dataset", d.counted)
	Logger().Debug("randomx: dataset released")
	return nil
}

func (d *Dataset) nativeHandle() engine.DatasetHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle
}

// acquire borrows d for a VM and checks that it is fully initialized.
func (d *Dataset) acquire(op string) error {
	if err := d.lease.borrow(op, "dataset"); err != nil {
		return err
	}
	if !d.Ready() {
		d.lease.unborrow()
		return opError(op, KindNotReady, "dataset %s", d.missing())
	}
	return nil
}

func (d *Dataset) missing() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var done uint64
	for _, s := range d.filled {
		done += s[1] - s[0]
	}
	return fmt.Sprintf("has %d of %d items initialized", done, d.items)
}

// spans is a sorted set of disjoint half-open ranges.
type spans [][2]uint64

func (s *spans) add(lo, hi uint64) {
	if lo >= hi {
		return
	}
	merged := append(*s, [2]uint64{lo, hi})
	sort.Slice(merged, func(i, j int) bool { return merged[i][0] < merged[j][0] })
	out := merged[:1]
	for _, r := range merged[1:] {
		last := &out[len(out)-1]
		if r[0] <= last[1] {
			last[1] = max(last[1], r[1])
			continue
		}
		out = append(out, r)
	}
	*s = out
}

func (s spans) covers(n uint64) bool {
	return len(s) == 1 && s[0][0] == 0 && s[0][1] >= n
}
