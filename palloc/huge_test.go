package palloc

import "testing"
import "time"
import "unsafe"

import s "github.com/bnclabs/gosettings"
import "github.com/stretchr/testify/require"

// Repeated allocate/free of one huge size must be served from the
// bucket cache after the first trip to the OS.
func TestHugeReuse(t *testing.T) {
	a := testAllocator(s.Settings{"statistics": true})
	defer a.Release()

	for i := 0; i < 1000; i++ {
		p := a.Allocate(60000)
		require.NotNil(t, p, "iteration %v", i)
		a.Deallocate(p)
	}
	require.EqualValues(t, 1000, a.stats.hugeAllocs)
	require.EqualValues(t, 999, a.stats.hugeHits)
	// A single 64KB region serves the whole run.
	require.EqualValues(t, 65536, a.stats.hugeHeap)
}

func TestHugeHeaderLayout(t *testing.T) {
	require.EqualValues(t, hugeHeaderSize, unsafe.Sizeof(hugeLocation{}))

	a := testAllocator(nil)
	defer a.Release()

	p := a.Allocate(50000)
	loc := hugeat(uintptr(p) - hugeHeaderSize)
	require.EqualValues(t, 0, loc.base%SmallGroupSize, "region not aligned")
	require.EqualValues(t, hugeBucket(50000), loc.bin)
	require.True(t, loc.size >= 50000+hugeHeaderSize)
	a.Deallocate(p)
}

// Small huge allocations carve their 64KB rounding slack into cache
// siblings that share the parent mapping.
func TestHugeSlackSiblings(t *testing.T) {
	a := testAllocator(s.Settings{"statistics": true})
	defer a.Release()

	// 20000+64 rounds to 20480; the 64KB mapping leaves room for one
	// 16KB-aligned sibling of the same bucket, at offset 32768.
	p := a.Allocate(20000)
	require.NotNil(t, p)
	bucket := hugeBucket(20000)
	require.True(t, a.hugeBins[bucket].count > 0, "no siblings cached")

	// The next allocation of the size comes from the carved slack,
	// not from a new mapping.
	heap := a.stats.hugeHeap
	q := a.Allocate(20000)
	require.EqualValues(t, heap, a.stats.hugeHeap, "sibling not reused")

	a.Deallocate(q)
	a.Deallocate(p)
}

// Large huge allocations turn their slack into a block of small
// groups instead.
func TestHugeSlackGroups(t *testing.T) {
	a := testAllocator(nil)
	defer a.Release()

	// 40000+64 rounds to 40960; the 16KB-aligned remainder of the
	// 64KB mapping carries one small group.
	before := a.smallAlloc[0].freeBlocks.count
	p := a.Allocate(40000)
	require.NotNil(t, p)
	require.Equal(t, before+1, a.smallAlloc[0].freeBlocks.count,
		"slack not registered as a block")

	parent := hugeat(uintptr(p) - hugeHeaderSize)
	require.NotZero(t, parent.block)
	require.EqualValues(t, 2, parent.refs) // client + carved block
	a.Deallocate(p)
}

// Every fourth rejected push grows the bucket's cache bound.
func TestHugeCacheGrows(t *testing.T) {
	a := testAllocator(nil)
	defer a.Release()

	bin := &a.hugeBins[200]
	bin.cacheSize, bin.maxCacheSize, bin.extendedMax = 0, 0, 4
	for i := 0; i < 4; i++ {
		bin.increaseCacheSize()
	}
	require.EqualValues(t, 1, bin.cacheSize)
	for i := 0; i < 8; i++ {
		bin.increaseCacheSize()
	}
	require.EqualValues(t, 3, bin.cacheSize)
}

// The reaper evicts half of a bucket whose oldest entry went stale,
// and walks the cache bound back down.
func TestReaperEvicts(t *testing.T) {
	a := testAllocator(nil)
	defer a.Release()

	ptrs := make([]unsafe.Pointer, 8)
	for i := range ptrs {
		ptrs[i] = a.Allocate(60000)
	}
	for _, p := range ptrs {
		a.Deallocate(p)
	}
	bucket := hugeBucket(60000)
	bin := &a.hugeBins[bucket]
	cached := bin.count
	require.True(t, cached >= 8)

	// Age every entry past the bucket's limit and sweep.
	bin.lock.lock()
	for loc := bin.first; loc != 0; loc = hugeat(loc).next {
		hugeat(loc).pushTime = time.Now().Unix() - int64(bin.cacheTime) - 10
	}
	bin.lock.unlock()
	a.cleanHugeCache()
	require.EqualValues(t, cached-cached/2, bin.count)
}

func TestReaperShutdown(t *testing.T) {
	a := testAllocator(s.Settings{"huge.reaperinterval": int64(1)})

	p := a.Allocate(60000) // starts the reaper lazily
	require.EqualValues(t, 1, a.reaperOn)
	a.Deallocate(p)
	a.Release() // must stop the reaper without hanging

	select {
	case <-a.reaper.finch:
	case <-time.After(5 * time.Second):
		t.Errorf("reaper did not stop")
	}
}
