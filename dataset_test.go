package randomx

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetItemCount(t *testing.T) {
	d, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	defer d.Release()
	assert.Positive(t, d.ItemCount())
	assert.False(t, d.Ready())
}

func TestDatasetAllocFailure(t *testing.T) {
	f := useFaultEngine(t)
	f.failDataset.Store(true)

	d, err := AllocDataset(FlagDefault)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrAllocationFailed)

	c := newTestCache(t, "Key")
	_, err = NewDataset(FlagDefault, c, 2)
	assert.ErrorIs(t, err, ErrAllocationFailed)
}

func TestDatasetOutOfBounds(t *testing.T) {
	f := useFaultEngine(t)
	c := newTestCache(t, "Key")
	d, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	defer d.Release()

	n := d.ItemCount()
	for _, r := range [][2]uint64{{0, n + 1}, {n, 1}, {n - 1, 2}, {1, math.MaxUint64}} {
		assert.ErrorIs(t, d.InitRange(c, r[0], r[1]), ErrOutOfBounds, "range %v", r)
	}
	assert.Zero(t, f.initDatasetCalls.Load(), "rejected ranges must not reach the engine")

	require.NoError(t, d.InitRange(c, n-1, 1))
	require.NoError(t, d.InitRange(c, n, 0))
	assert.Equal(t, int64(1), f.initDatasetCalls.Load())
}

func TestDatasetReadyOnlyWhenCovered(t *testing.T) {
	c := newTestCache(t, "Key")
	d, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	defer d.Release()
	n := d.ItemCount()

	require.NoError(t, d.InitRange(c, 0, n/2))
	assert.False(t, d.Ready())
	_, err = NewVM(FlagDefault, c, d)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, c.lease.holders(), "failed NewVM must drop its cache borrow")

	require.NoError(t, d.InitRange(c, n/2, n-n/2))
	assert.True(t, d.Ready())
}

func TestDatasetParallelRangesMatchSingleFill(t *testing.T) {
	skipHeavy(t)
	c := newTestCache(t, "Key")

	single, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	t.Cleanup(func() { _ = single.Release() })
	require.NoError(t, single.InitRange(c, 0, single.ItemCount()))

	split, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	t.Cleanup(func() { _ = split.Release() })
	n := split.ItemCount()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	bounds := []uint64{0, n / 3, 2 * n / 3, n}
	for i := range 3 {
		wg.Go(func() { errs[i] = split.InitRange(c, bounds[i], bounds[i+1]-bounds[i]) })
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.True(t, split.Ready())

	a := newTestVM(t, c, single)
	b := newTestVM(t, c, split)
	for _, in := range []string{"Input", "Input 2"} {
		ha, err := a.Hash([]byte(in))
		require.NoError(t, err)
		hb, err := b.Hash([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, ha, hb)
	}
}

func TestDatasetInitWorkers(t *testing.T) {
	skipHeavy(t)
	c := newTestCache(t, "Key")
	for _, workers := range []int{0, 1, 7} {
		d, err := NewDataset(FlagDefault, c, workers)
		require.NoError(t, err, "workers=%d", workers)
		assert.True(t, d.Ready())
		require.NoError(t, d.Release())
	}
}

func TestDatasetInitWhileBound(t *testing.T) {
	c := newTestCache(t, "Key")
	d := newTestDataset(t, c)
	vm := newTestVM(t, c, d)

	assert.ErrorIs(t, d.InitRange(c, 0, 1), ErrInUse)
	assert.ErrorIs(t, d.Release(), ErrInUse)
	assert.ErrorIs(t, c.Release(), ErrInUse)

	require.NoError(t, vm.Release())
	require.NoError(t, d.InitRange(c, 0, 1))
}

func TestDatasetRefillFromOtherKey(t *testing.T) {
	c := newTestCache(t, "Key")
	d := newTestDataset(t, c)
	n := d.ItemCount()
	require.True(t, d.Ready())

	other := newTestCache(t, "Key 2")
	require.NoError(t, d.InitRange(other, 0, n/2))
	assert.False(t, d.Ready(), "half the items still come from the old key")
	vm, err := NewVM(FlagDefault, other, d)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Nil(t, vm)
	require.NoError(t, d.InitRange(other, n/2, n-n/2))
	assert.True(t, d.Ready())

	// Re-keying the same cache counts as a new source too.
	require.NoError(t, other.Init([]byte("Key")))
	require.NoError(t, d.InitRange(other, 0, 1))
	assert.False(t, d.Ready())
	require.NoError(t, d.Init(other, 2))
	assert.True(t, d.Ready())

	fast := newTestVM(t, other, d)
	light := newTestVM(t, c, nil)
	want, err := light.Hash([]byte("Input"))
	require.NoError(t, err)
	got, err := fast.Hash([]byte("Input"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDatasetOutlivesCache(t *testing.T) {
	c, err := NewCache(FlagDefault, []byte("Key"))
	require.NoError(t, err)
	d := newTestDataset(t, c)

	// The dataset keeps no reference to the cache after filling.
	require.NoError(t, c.Release())
	assert.True(t, d.Ready())
}

func TestDatasetReleaseTwice(t *testing.T) {
	c := newTestCache(t, "Key")
	d, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	require.NoError(t, d.Release())

	assert.ErrorIs(t, d.Release(), ErrUseAfterRelease)
	assert.ErrorIs(t, d.InitRange(c, 0, 1), ErrUseAfterRelease)
	assert.False(t, d.Ready())
}

func TestSpans(t *testing.T) {
	var s spans
	s.add(10, 20)
	s.add(0, 5)
	assert.False(t, s.covers(20))
	s.add(5, 10)
	assert.Equal(t, spans{{0, 20}}, s)
	assert.True(t, s.covers(20))
	s.add(3, 3)
	s.add(15, 30)
	assert.Equal(t, spans{{0, 30}}, s)
}
