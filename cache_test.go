package randomx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAllocInit(t *testing.T) {
	for _, key := range []string{"", "Key", string(make([]byte, 4096))} {
		c, err := AllocCache(FlagDefault)
		require.NoError(t, err)
		assert.False(t, c.Initialized())

		require.NoError(t, c.Init([]byte(key)))
		assert.True(t, c.Initialized())
		require.NoError(t, c.Release())
	}
}

func TestCacheMasksFullMem(t *testing.T) {
	c, err := AllocCache(FlagFullMem)
	require.NoError(t, err)
	defer c.Release()
	assert.False(t, c.Flags().Has(FlagFullMem))
}

func TestCacheAllocFailure(t *testing.T) {
	f := useFaultEngine(t)
	f.failCache.Store(true)

	c, err := AllocCache(FlagDefault)
	assert.Nil(t, c)
	require.ErrorIs(t, err, ErrAllocationFailed)
	var rxErr *Error
	require.ErrorAs(t, err, &rxErr)
	assert.Equal(t, "AllocCache", rxErr.Op)

	_, err = NewCache(FlagDefault, []byte("Key"))
	assert.ErrorIs(t, err, ErrAllocationFailed)
}

func TestCacheRejectsUnknownFlags(t *testing.T) {
	_, err := AllocCache(Flags(1 << 30))
	assert.ErrorIs(t, err, ErrInvalidFlags)
	assert.EqualError(t, err, "randomx: AllocCache: invalid_flags: unknown bits 0x40000000")

	_, err = AllocDataset(Flags(1 << 30))
	assert.EqualError(t, err, "randomx: AllocDataset: invalid_flags: unknown bits 0x40000000")
	_, err = NewVM(Flags(1<<30), newTestCache(t, "Key"), nil)
	assert.EqualError(t, err, "randomx: NewVM: invalid_flags: unknown bits 0x40000000")
}

func TestCacheReleaseTwice(t *testing.T) {
	c, err := NewCache(FlagDefault, []byte("Key"))
	require.NoError(t, err)
	require.NoError(t, c.Release())

	assert.ErrorIs(t, c.Release(), ErrUseAfterRelease)
	assert.ErrorIs(t, c.Init([]byte("Key")), ErrUseAfterRelease)
	assert.False(t, c.Initialized())

	_, err = NewVM(FlagDefault, c, nil)
	assert.ErrorIs(t, err, ErrUseAfterRelease)
}

func TestCacheReleaseWhileBound(t *testing.T) {
	c, err := NewCache(FlagDefault, []byte("Key"))
	require.NoError(t, err)
	vm, err := NewVM(FlagDefault, c, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Release(), ErrInUse)

	require.NoError(t, vm.Release())
	require.NoError(t, c.Release())
}

func TestCacheUninitializedNotUsable(t *testing.T) {
	c, err := AllocCache(FlagDefault)
	require.NoError(t, err)
	defer c.Release()

	_, err = NewVM(FlagDefault, c, nil)
	assert.ErrorIs(t, err, ErrNotReady)

	d, err := AllocDataset(FlagDefault)
	require.NoError(t, err)
	defer d.Release()
	assert.ErrorIs(t, d.InitRange(c, 0, 1), ErrNotReady)

	// A failed bind leaves no borrow behind.
	assert.NoError(t, c.Init([]byte("Key")))
	assert.Zero(t, c.lease.holders())
}

func TestCacheReinitRebindsLightVM(t *testing.T) {
	c := newTestCache(t, "Key")
	vm := newTestVM(t, c, nil)
	before, err := vm.Hash([]byte("Input"))
	require.NoError(t, err)

	require.NoError(t, c.Init([]byte("Key 2")))
	rekeyed, err := vm.Hash([]byte("Input"))
	require.NoError(t, err)
	assert.NotEqual(t, before, rekeyed)

	fresh := newTestVM(t, newTestCache(t, "Key 2"), nil)
	want, err := fresh.Hash([]byte("Input"))
	require.NoError(t, err)
	assert.Equal(t, want, rekeyed)

	require.NoError(t, c.Init([]byte("Key")))
	again, err := vm.Hash([]byte("Input"))
	require.NoError(t, err)
	assert.Equal(t, before, again)
}
