package randomx

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/Giulio2002/randomx/internal/engine"
)

// Mode is the binding state of a VM.
type Mode int

const (
	// ModeLight VMs are bound to a Cache only.
	ModeLight Mode = iota
	// ModeFast VMs read a Dataset and keep their Cache borrowed.
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "light"
}

// binding is the part of a VM its cleanup needs: the handle, the borrows
// and the pipeline pin on the cache.
type binding struct {
	eng      engine.Engine
	handle   engine.VMHandle
	counted  bool
	cache    *Cache
	dataset  *Dataset
	cacheGen uint64
	primed   bool
}

func (b *binding) release() {
	b.eng.DestroyVM(b.handle)
	b.handle = nil
	recordRelease("vm", b.counted)
	if b.primed {
		b.primed = false
		b.cache.lease.unpin()
	}
	b.cache.lease.unborrow()
	if b.dataset != nil {
		b.dataset.lease.unborrow()
	}
}

func reclaimVM(b *binding) {
	b.release()
	Logger().Warn("randomx: vm garbage collected without Release")
}

// VM owns an engine virtual machine bound to a Cache and optionally a
// Dataset. Methods are serialized by an internal mutex; run one VM per
// goroutine for parallel hashing.
//
// Besides the single-shot Hash, a VM supports the pipelined protocol
//
//	vm.HashFirst(x0)
//	h0, _ := vm.HashNext(x1)
//	h1, _ := vm.HashNext(x2)
//	h2, _ := vm.HashLast()
//
// where each HashNext returns the hash of the previous input. Calls out of
// that order fail with ErrProtocolViolation.
type VM struct {
	mu      sync.Mutex
	flags   Flags
	b       *binding // nil once released
	cleanup runtime.Cleanup
}

// NewVM creates a VM bound to cache and, if dataset is non-nil, to dataset
// in fast mode. A dataset implies FlagFullMem; FlagFullMem without one is
// rejected.
func NewVM(flags Flags, cache *Cache, dataset *Dataset) (*VM, error) {
	const op = "NewVM"
	if err := checkFlags(op, flags); err != nil {
		return nil, err
	}
	switch {
	case dataset != nil:
		flags |= FlagFullMem
	case flags.Has(FlagFullMem):
		return nil, opError(op, KindInvalidFlags, "full-mem requires a dataset")
	}

	if err := cache.acquire(op); err != nil {
		return nil, err
	}
	b := &binding{eng: cache.eng, cache: cache}
	var dh engine.DatasetHandle
	if dataset != nil {
		if dataset.eng != cache.eng {
			cache.lease.unborrow()
			return nil, opError(op, KindInvalidArgument, "cache and dataset belong to different engines")
		}
		if err := dataset.acquire(op); err != nil {
			cache.lease.unborrow()
			return nil, err
		}
		b.dataset = dataset
		dh = dataset.nativeHandle()
	}

	cache.mu.RLock()
	b.handle = b.eng.CreateVM(uint32(flags), cache.handle, dh)
	b.cacheGen = cache.gen
	cache.mu.RUnlock()
	b.counted = recordAlloc("vm", b.handle != nil)
	if b.handle == nil {
		cache.lease.unborrow()
		if dataset != nil {
			dataset.lease.unborrow()
		}
		return nil, opError(op, KindAllocation, "engine returned no vm for flags %s", flags)
	}

	vm := &VM{flags: flags, b: b}
	vm.cleanup = runtime.AddCleanup(vm, reclaimVM, b)
	Logger().Debug("randomx: vm created", zap.Stringer("mode", vm.mode()), zap.Stringer("flags", flags))
	return vm, nil
}

// Mode reports whether vm hashes from its cache or its dataset.
func (vm *VM) Mode() Mode {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.mode()
}

// Flags returns the flags the engine VM was created with.
func (vm *VM) Flags() Flags {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.flags
}

func (vm *VM) mode() Mode {
	if vm.flags.Has(FlagFullMem) {
		return ModeFast
	}
	return ModeLight
}

// check validates vm for op. The caller holds vm.mu.
func (vm *VM) check(op string, primed bool) error {
	switch {
	case vm.b == nil:
		return opError(op, KindReleased, "vm already released")
	case primed && !vm.b.primed:
		return opError(op, KindProtocol, "no input submitted; call HashFirst first")
	case !primed && vm.b.primed:
		return opError(op, KindProtocol, "pipeline is primed; drain it with HashLast first")
	}
	return nil
}

// run invokes fn on the engine VM with the cache held shared. A light VM
// whose cache was re-keyed since it last ran is re-bound first.
func (vm *VM) run(fn func(eng engine.Engine, h engine.VMHandle)) {
	b := vm.b
	b.cache.mu.RLock()
	defer b.cache.mu.RUnlock()
	if vm.mode() == ModeLight && b.cacheGen != b.cache.gen {
		b.eng.SetCache(b.handle, b.cache.handle)
		b.cacheGen = b.cache.gen
	}
	fn(b.eng, b.handle)
}

func (vm *VM) hash(op string, input []byte) (Hash, error) {
	if err := vm.check(op, false); err != nil {
		return Hash{}, err
	}
	var out Hash
	vm.run(func(eng engine.Engine, h engine.VMHandle) {
		eng.CalculateHash(h, input, (*[HashSize]byte)(&out))
	})
	recordHashes(vm.mode(), 1)
	return out, nil
}

func (vm *VM) first(op string, input []byte) error {
	if err := vm.check(op, false); err != nil {
		return err
	}
	// The pin is taken under the cache lock so a concurrent Init either
	// runs before the input is submitted or sees the pin.
	vm.run(func(eng engine.Engine, h engine.VMHandle) {
		eng.CalculateHashFirst(h, input)
		vm.b.cache.lease.pin()
	})
	vm.b.primed = true
	return nil
}

func (vm *VM) next(op string, input []byte) (Hash, error) {
	if err := vm.check(op, true); err != nil {
		return Hash{}, err
	}
	var out Hash
	vm.run(func(eng engine.Engine, h engine.VMHandle) {
		eng.CalculateHashNext(h, input, (*[HashSize]byte)(&out))
	})
	recordHashes(vm.mode(), 1)
	return out, nil
}

func (vm *VM) last(op string) (Hash, error) {
	if err := vm.check(op, true); err != nil {
		return Hash{}, err
	}
	var out Hash
	vm.run(func(eng engine.Engine, h engine.VMHandle) {
		eng.CalculateHashLast(h, (*[HashSize]byte)(&out))
	})
	vm.b.primed = false
	vm.b.cache.lease.unpin()
	recordHashes(vm.mode(), 1)
	return out, nil
}

// Hash computes the hash of input. It blocks for the whole computation.
func (vm *VM) Hash(input []byte) (Hash, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.hash("VM.Hash", input)
}

// HashFirst submits input and primes the pipeline without returning a hash.
func (vm *VM) HashFirst(input []byte) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.first("VM.HashFirst", input)
}

// HashNext submits input and returns the hash of the previously submitted
// input.
func (vm *VM) HashNext(input []byte) (Hash, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.next("VM.HashNext", input)
}

// HashLast returns the hash of the last submitted input and drains the
// pipeline.
func (vm *VM) HashLast() (Hash, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.last("VM.HashLast")
}

// HashBatch hashes inputs in order, pipelined when there is more than one.
// The VM is held for the whole batch.
func (vm *VM) HashBatch(inputs [][]byte) ([]Hash, error) {
	const op = "VM.HashBatch"
	vm.mu.Lock()
	defer vm.mu.Unlock()

	switch len(inputs) {
	case 0:
		return nil, vm.check(op, false)
	case 1:
		h, err := vm.hash(op, inputs[0])
		if err != nil {
			return nil, err
		}
		return []Hash{h}, nil
	}

	if err := vm.first(op, inputs[0]); err != nil {
		return nil, err
	}
	out := make([]Hash, 0, len(inputs))
	for _, in := range inputs[1:] {
		h, err := vm.next(op, in)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	h, err := vm.last(op)
	if err != nil {
		return nil, err
	}
	return append(out, h), nil
}

// RebindCache moves vm onto cache. Fast VMs keep hashing from their dataset
// and only transfer the borrow.
func (vm *VM) RebindCache(cache *Cache) error {
	const op = "VM.RebindCache"
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.check(op, false); err != nil {
		return err
	}
	b := vm.b
	if cache == b.cache {
		return nil
	}
	if cache != nil && cache.eng != b.eng {
		return opError(op, KindInvalidArgument, "cache belongs to a different engine")
	}
	if err := cache.acquire(op); err != nil {
		return err
	}

	cache.mu.RLock()
	if vm.mode() == ModeLight {
		b.eng.SetCache(b.handle, cache.handle)
	}
	b.cacheGen = cache.gen
	cache.mu.RUnlock()

	old := b.cache
	b.cache = cache
	old.lease.unborrow()
	Logger().Debug("randomx: vm cache rebound", zap.Stringer("mode", vm.mode()))
	return nil
}

// RebindDataset moves vm onto dataset, switching a light VM to fast mode.
// The engine cannot attach a dataset to a light VM, so one is replaced by a
// new full-mem VM on the same cache; if that allocation fails vm is left
// unchanged.
func (vm *VM) RebindDataset(dataset *Dataset) error {
	const op = "VM.RebindDataset"
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.check(op, false); err != nil {
		return err
	}
	b := vm.b
	switch {
	case dataset == nil:
		return opError(op, KindInvalidArgument, "nil dataset")
	case dataset == b.dataset:
		return nil
	case dataset.eng != b.eng:
		return opError(op, KindInvalidArgument, "dataset belongs to a different engine")
	}
	if err := dataset.acquire(op); err != nil {
		return err
	}
	dh := dataset.nativeHandle()

	if old := b.dataset; old != nil {
		b.eng.SetDataset(b.handle, dh)
		b.dataset = dataset
		old.lease.unborrow()
		Logger().Debug("randomx: vm dataset rebound")
		return nil
	}

	flags := vm.flags | FlagFullMem
	b.cache.mu.RLock()
	h := b.eng.CreateVM(uint32(flags), b.cache.handle, dh)
	gen := b.cache.gen
	b.cache.mu.RUnlock()
	counted := recordAlloc("vm", h != nil)
	if h == nil {
		dataset.lease.unborrow()
		return opError(op, KindAllocation, "engine returned no vm for flags %s", flags)
	}
	b.eng.DestroyVM(b.handle)
	recordRelease("vm", b.counted)
	b.handle, b.counted, b.dataset, b.cacheGen = h, counted, dataset, gen
	vm.flags = flags
	Logger().Debug("randomx: vm switched to fast mode", zap.Stringer("flags", flags))
	return nil
}

// Release destroys the engine VM and ends its borrows. A primed pipeline is
// discarded. Releasing twice fails with ErrUseAfterRelease.
func (vm *VM) Release() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.b == nil {
		return opError("VM.Release", KindReleased, "vm already released")
	}
	vm.cleanup.Stop()
	vm.b.release()
	vm.b = nil
	Logger().Debug("randomx: vm released")
	return nil
}
