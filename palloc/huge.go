package palloc

import "sync/atomic"
import "time"
import "unsafe"

import "github.com/bnclabs/golog"
import "github.com/gratianlup/ParallelAllocator/sys"

// hugeLocation 64-byte header at the front of every huge region,
// 16KB-aligned so Deallocate recognizes huge pointers by their offset
// from the group boundary. Regions carved into siblings share one
// parent whose reference count pins the mapping.
type hugeLocation struct {
	next     uintptr // stack link while cached
	base     uintptr // mapped region base; the header itself for parents
	mapped   int64   // bytes mapped at base, 0 for carved siblings
	size     int64   // bucket-rounded size including the header
	parent   uintptr // parent header, 0 when self-owned
	block    uintptr // carved block descriptor, parents only
	bin      int32
	refs     uint32 // atomic; client + siblings + carved block
	pushTime int64  // unix seconds at cache insertion
}

func hugeat(p uintptr) *hugeLocation {
	return (*hugeLocation)(unsafe.Pointer(p))
}

// hugeBin per 4KB-granularity bucket: a bounded LIFO of freed huge
// locations plus the adaptive sizing state.
type hugeBin struct {
	lock         spinlock
	first        uintptr
	count        uint32
	cacheSize    uint32 // current bound, grows under demand
	maxCacheSize uint32
	extendedMax  uint32
	cacheTime    uint32 // seconds before the reaper may evict
	fullHits     uint32 // atomic
}

func (hb *hugeBin) init(bin int, maxcache uint32) {
	depth, age := hugeBinParams(bin)
	hb.cacheSize = depth
	hb.maxCacheSize = depth
	hb.extendedMax = depth * 8
	if hb.extendedMax > maxcache {
		hb.extendedMax = maxcache
	}
	if hb.extendedMax < depth {
		hb.extendedMax = depth
	}
	hb.cacheTime = age
}

// push cache a freed location. Returns the location back when the
// stack is at capacity, zero when it was absorbed.
func (hb *hugeBin) push(loc uintptr) uintptr {
	hb.lock.lock()
	if hb.count >= hb.cacheSize || hb.cacheSize == 0 {
		hb.lock.unlock()
		return loc
	}
	h := hugeat(loc)
	h.next = hb.first
	h.pushTime = time.Now().Unix()
	hb.first = loc
	hb.count++
	hb.lock.unlock()
	return 0
}

func (hb *hugeBin) pop() uintptr {
	hb.lock.lock()
	loc := hb.first
	if loc != 0 {
		hb.first = hugeat(loc).next
		hb.count--
	}
	hb.lock.unlock()
	return loc
}

// oldest push time of the bottom entry, zero when empty.
func (hb *hugeBin) oldest() int64 {
	hb.lock.lock()
	defer hb.lock.unlock()
	last := int64(0)
	for loc := hb.first; loc != 0; loc = hugeat(loc).next {
		last = hugeat(loc).pushTime
	}
	return last
}

// increaseCacheSize every fourth rejected push grows the bound, the
// demand for the size is clearly high.
func (hb *hugeBin) increaseCacheSize() {
	if atomic.AddUint32(&hb.fullHits, 1)%4 != 0 {
		return
	}
	hb.lock.lock()
	if hb.cacheSize < hb.extendedMax {
		hb.cacheSize++
	}
	hb.lock.unlock()
}

// decreaseCacheSize halve an inflated bound back toward the default;
// reaper only.
func (hb *hugeBin) decreaseCacheSize() {
	hb.lock.lock()
	if hb.cacheSize > hb.maxCacheSize {
		hb.cacheSize = (hb.cacheSize + hb.maxCacheSize) / 2
	}
	hb.lock.unlock()
}

//---- allocation path

// hugeBucket bucket index for a user size, header included.
func hugeBucket(size int64) int {
	return int((size + hugeHeaderSize + HugeGranularity - 1) / HugeGranularity)
}

// allocateHuge serve a size between the large tier and the OS
// pass-through: cached reuse first, then a fresh OS region whose
// rounding slack is carved into cache siblings or small groups.
func (a *Allocator) allocateHuge(size int64) unsafe.Pointer {
	a.ensureReaper()
	bucket := hugeBucket(size)
	bin := &a.hugeBins[bucket]

	if loc := bin.pop(); loc != 0 {
		a.stats.hugeCacheHit()
		return unsafe.Pointer(loc + hugeHeaderSize)
	}
	bin.increaseCacheSize()

	objSize := (size + hugeHeaderSize + HugeGranularity - 1) &^ (HugeGranularity - 1)
	mapped := (size + hugeHeaderSize + osGranularity - 1) &^ (osGranularity - 1)
	node := -1
	if a.numa {
		node = int(a.context().node)
	}
	ptr := sys.AllocPages(mapped, SmallGroupSize, node)
	if ptr == nil {
		return nil
	}
	a.stats.hugeMapped(mapped)

	base := uintptr(ptr)
	parent := hugeat(base)
	parent.base = base
	parent.mapped = mapped
	parent.size = objSize
	parent.bin = int32(bucket)
	parent.refs = 1 // the client's own reference

	// Put the rounding slack to use.
	slack, end := base+uintptr(objSize), base+uintptr(mapped)
	if objSize <= hugeSplitPosition {
		a.carveAsCache(parent, slack, end)
	} else {
		a.carveAsGroups(parent, slack, end)
	}
	return unsafe.Pointer(base + hugeHeaderSize)
}

// carveAsCache fill the slack with cache entries the size of the
// parent allocation. Entries sit on 16KB boundaries so they classify
// like any huge location. When the bucket's stack fills up the rest
// of the slack becomes small groups instead.
func (a *Allocator) carveAsCache(parent *hugeLocation, start, end uintptr) {
	bin := &a.hugeBins[parent.bin]
	size := uintptr(parent.size)
	for {
		start = (start + SmallGroupSize - 1) &^ (SmallGroupSize - 1)
		if start+size > end {
			return
		}
		sibling := hugeat(start)
		*sibling = hugeLocation{
			base: start, size: parent.size, bin: parent.bin,
			parent: parent.base,
		}
		atomic.AddUint32(&parent.refs, 1)
		if bin.push(start) != 0 {
			// The cache is full; use the rest as group space.
			atomic.AddUint32(&parent.refs, ^uint32(0))
			a.carveAsGroups(parent, start, end)
			return
		}
		start += size
	}
}

// carveAsGroups register the 16KB-aligned remainder of the slack as a
// block of small groups.
func (a *Allocator) carveAsGroups(parent *hugeLocation, start, end uintptr) {
	start = (start + SmallGroupSize - 1) &^ (SmallGroupSize - 1)
	if start >= end {
		return
	}
	groups := uint32((end - start) / SmallGroupSize)
	if groups == 0 {
		return
	}
	bitmap := ^uint64(0) >> (64 - groups)
	node := int32(0)
	if a.numa {
		node = a.context().node
	}
	desc := a.smallAlloc[node].addBlock(start, bitmap, groups, parent.base)
	if desc == 0 {
		return
	}
	atomic.AddUint32(&parent.refs, 1) // the block's reference
	parent.block = desc
}

//---- free path

// freeHuge cache the location, disposing of it when the bucket is at
// capacity.
func (a *Allocator) freeHuge(addr uintptr) {
	loc := addr - hugeHeaderSize
	bin := &a.hugeBins[hugeat(loc).bin]
	if rejected := bin.push(loc); rejected != 0 {
		a.disposeHuge(rejected)
	}
}

// disposeHuge give a cached or rejected location up for good.
func (a *Allocator) disposeHuge(loc uintptr) {
	h := hugeat(loc)
	if h.parent != 0 {
		a.releaseHugeRef(h.parent)
		return
	}
	a.releaseHugeRef(loc)
}

// releaseHugeRef drop one reference from a parent region and unmap it
// when nothing points at it anymore. When only a wholly-idle carved
// block still pins the region, the block is withdrawn too.
func (a *Allocator) releaseHugeRef(parent uintptr) {
	h := hugeat(parent)
	refs := atomic.AddUint32(&h.refs, ^uint32(0))
	if refs == 0 {
		a.stats.hugeUnmapped(h.mapped)
		sys.FreePages(unsafe.Pointer(h.base), h.mapped)
		return
	}
	if refs == 1 {
		if desc := h.block; desc != 0 {
			ba := a.smallAlloc[blockat(desc).numaNode]
			if ba.removeBlock(desc, parent) {
				a.releaseHugeRef(parent) // the block's reference
			}
		}
	}
}

//---- reaper support

// cleanHugeCache one reaper sweep: buckets whose oldest entry idled
// past the bucket's age limit lose half their entries, and inflated
// cache bounds shrink back.
func (a *Allocator) cleanHugeCache() {
	now := time.Now().Unix()
	evicted := 0
	for bucket := hugeStartBin; bucket < hugeBinCount; bucket++ {
		bin := &a.hugeBins[bucket]
		bin.lock.lock()
		count := bin.count
		bin.lock.unlock()
		if count == 0 {
			continue
		}
		oldest := bin.oldest()
		if oldest == 0 || now-oldest <= int64(bin.cacheTime) {
			continue
		}
		drop := count / 2
		if drop == 0 {
			drop = 1
		}
		for i := uint32(0); i < drop; i++ {
			loc := bin.pop()
			if loc == 0 {
				break
			}
			a.disposeHuge(loc)
			evicted++
		}
		bin.decreaseCacheSize()
	}
	if evicted > 0 {
		a.stats.reaperEvicted(evicted)
		log.Debugf("palloc: reaper evicted %v huge locations\n", evicted)
	}
}
