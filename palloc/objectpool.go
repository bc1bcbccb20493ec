package palloc

import "unsafe"

import "github.com/gratianlup/ParallelAllocator/lib"
import "github.com/gratianlup/ParallelAllocator/sys"

// objectPool slab pool for fixed-size metadata records: block
// descriptors and thread contexts. Slabs come straight from the page
// source, aligned to their own size so a record maps back to its slab
// by masking, and a 64-bit bitmap tracks the free records of a slab.
// Packing many records into one slab keeps them on few pages.
type objectPool struct {
	lock       spinlock
	slabs      objlist // front slab has free records, or none do
	slabSize   int64   // power of two
	objectSize int64
	cacheSize  int // wholly-free slabs kept before releasing to the OS
}

// slabHeader first cache line of every slab.
type slabHeader struct {
	node        listNode
	bitmap      uint64 // bit set = record free
	freeObjects uint32
	_           [CacheLineSize - 16 - 8 - 4]byte
}

const slabHeaderSize = CacheLineSize

func slabat(p uintptr) *slabHeader {
	return (*slabHeader)(unsafe.Pointer(p))
}

func newObjectPool(slabSize, objectSize int64, cacheSize int) *objectPool {
	if slabSize&(slabSize-1) != 0 {
		panic("objectpool: slab size not a power of 2")
	}
	objectSize = (objectSize + CacheLineSize - 1) &^ (CacheLineSize - 1)
	return &objectPool{
		slabSize:   slabSize,
		objectSize: objectSize,
		cacheSize:  cacheSize,
	}
}

func (pool *objectPool) maxObjects() uint32 {
	n := uint32((pool.slabSize - slabHeaderSize) / pool.objectSize)
	if n > 64 {
		n = 64 // bounded by the bitmap
	}
	return n
}

// getObject a record from the pool, nil-pointer (0) when the OS is out
// of memory.
func (pool *objectPool) getObject() uintptr {
	pool.lock.lock()
	defer pool.lock.unlock()

	if pool.slabs.count == 0 || slabat(pool.slabs.first).freeObjects == 0 {
		if pool.allocSlab() == false {
			return 0
		}
	}
	slab := slabat(pool.slabs.first)
	i := uint(lib.Bit64(slab.bitmap).Findfirstset())
	slab.bitmap &^= uint64(1) << i
	slab.freeObjects--
	addr := uintptr(unsafe.Pointer(slab)) + slabHeaderSize +
		uintptr(i)*uintptr(pool.objectSize)
	lib.Memset(unsafe.Pointer(addr), 0, int(pool.objectSize))
	return addr
}

// returnObject hand a record back. The slab is found by masking the
// record's address. Wholly-free slabs beyond the cache budget return
// to the OS; otherwise the slab moves forward so the front slab keeps
// the invariant "no free records in front means none anywhere".
func (pool *objectPool) returnObject(addr uintptr) {
	pool.lock.lock()
	defer pool.lock.unlock()

	slabAddr := addr &^ (uintptr(pool.slabSize) - 1)
	slab := slabat(slabAddr)
	i := (addr - slabAddr - slabHeaderSize) / uintptr(pool.objectSize)
	slab.bitmap |= uint64(1) << i
	slab.freeObjects++

	if pool.slabs.first == slabAddr {
		return
	}
	front := slabat(pool.slabs.first)
	if slab.freeObjects == pool.maxObjects() &&
		pool.slabs.count > pool.cacheSize && front.freeObjects > 0 {
		pool.slabs.remove(slabAddr)
		sys.FreePages(unsafe.Pointer(slabAddr), pool.slabSize)
		return
	}
	pool.makeSlabActive(slabAddr)
}

// makeSlabActive bring a slab toward the front. It takes the front
// position only when the active slab is nearly exhausted and this one
// is better stocked; otherwise it parks right behind the front.
func (pool *objectPool) makeSlabActive(slabAddr uintptr) {
	front := slabat(pool.slabs.first)
	slab := slabat(slabAddr)
	if front.freeObjects <= pool.maxObjects()/4 &&
		slab.freeObjects > front.freeObjects {
		pool.slabs.remove(slabAddr)
		pool.slabs.addFirst(slabAddr)
	} else {
		pool.slabs.remove(slabAddr)
		pool.slabs.addAfter(pool.slabs.first, slabAddr)
	}
}

func (pool *objectPool) allocSlab() bool {
	ptr := sys.AllocPages(pool.slabSize, pool.slabSize, -1)
	if ptr == nil {
		return false
	}
	slab := slabat(uintptr(ptr))
	slab.freeObjects = pool.maxObjects()
	slab.bitmap = ^uint64(0) >> (64 - slab.freeObjects)
	pool.slabs.addFirst(uintptr(ptr))
	return true
}

// release unmap every slab. Records handed out become invalid.
func (pool *objectPool) release() {
	pool.lock.lock()
	defer pool.lock.unlock()
	for pool.slabs.count > 0 {
		slab := pool.slabs.removeFirst()
		sys.FreePages(unsafe.Pointer(slab), pool.slabSize)
	}
}

// overhead bytes spent on slabs, records handed out included; used by
// the accounting surface.
func (pool *objectPool) overhead() (heap int64) {
	pool.lock.lock()
	defer pool.lock.unlock()
	return int64(pool.slabs.count) * pool.slabSize
}
