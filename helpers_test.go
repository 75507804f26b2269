package randomx

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/randomx/internal/engine"
	"github.com/Giulio2002/randomx/internal/soft"
)

// faultEngine wraps the software engine to fail allocations on demand and
// count calls that must never reach it.
type faultEngine struct {
	engine.Engine
	failCache   atomic.Bool
	failDataset atomic.Bool
	failVM      atomic.Bool

	initDatasetCalls atomic.Int64
	createVMCalls    atomic.Int64
	hashCalls        atomic.Int64
}

func (f *faultEngine) AllocCache(flags uint32) engine.CacheHandle {
	if f.failCache.Load() {
		return nil
	}
	return f.Engine.AllocCache(flags)
}

func (f *faultEngine) AllocDataset(flags uint32) engine.DatasetHandle {
	if f.failDataset.Load() {
		return nil
	}
	return f.Engine.AllocDataset(flags)
}

func (f *faultEngine) InitDataset(d engine.DatasetHandle, c engine.CacheHandle, start, count uint64) {
	f.initDatasetCalls.Add(1)
	f.Engine.InitDataset(d, c, start, count)
}

func (f *faultEngine) CreateVM(flags uint32, c engine.CacheHandle, d engine.DatasetHandle) engine.VMHandle {
	f.createVMCalls.Add(1)
	if f.failVM.Load() {
		return nil
	}
	return f.Engine.CreateVM(flags, c, d)
}

func (f *faultEngine) CalculateHashNext(vm engine.VMHandle, input []byte, out *[engine.HashSize]byte) {
	f.hashCalls.Add(1)
	f.Engine.CalculateHashNext(vm, input, out)
}

func (f *faultEngine) CalculateHashLast(vm engine.VMHandle, out *[engine.HashSize]byte) {
	f.hashCalls.Add(1)
	f.Engine.CalculateHashLast(vm, out)
}

// useFaultEngine routes allocations through a faultEngine for the rest of t.
// Tests using it must not run in parallel.
func useFaultEngine(t *testing.T) *faultEngine {
	t.Helper()
	f := &faultEngine{Engine: soft.New()}
	old := defaultEngine
	defaultEngine = f
	t.Cleanup(func() { defaultEngine = old })
	return f
}

// skipHeavy skips tests that build a full dataset on the native engine,
// which needs gigabytes of memory, when running with -short.
func skipHeavy(t testing.TB) {
	t.Helper()
	if testing.Short() && EngineName() == "native" {
		t.Skip("full native dataset skipped in short mode")
	}
}

func newTestCache(t testing.TB, key string) *Cache {
	t.Helper()
	c, err := NewCache(FlagDefault, []byte(key))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Release() })
	return c
}

func newTestDataset(t testing.TB, c *Cache) *Dataset {
	t.Helper()
	skipHeavy(t)
	d, err := NewDataset(FlagDefault, c, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Release() })
	return d
}

func newTestVM(t testing.TB, c *Cache, d *Dataset) *VM {
	t.Helper()
	vm, err := NewVM(FlagDefault, c, d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Release() })
	return vm
}
