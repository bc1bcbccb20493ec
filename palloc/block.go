package palloc

import "sync/atomic"
import "unsafe"

import "github.com/bnclabs/golog"
import "github.com/gratianlup/ParallelAllocator/api"
import "github.com/gratianlup/ParallelAllocator/lib"
import "github.com/gratianlup/ParallelAllocator/sys"

// blockDescriptor bookkeeping of one 1MB block, pooled and one cache
// line in size. A set bit in the bitmap means the group is free for
// handing out; the bitmap is mutated atomically because foreign
// threads return groups without the allocator lock.
type blockDescriptor struct {
	node       listNode
	base       uintptr
	bitmap     uint64
	fullMask   uint64 // bitmap value when every group is free
	hugeParent uintptr
	freeGroups uint32
	numaNode   int32
}

func blockat(p uintptr) *blockDescriptor {
	return (*blockDescriptor)(unsafe.Pointer(p))
}

func (b *blockDescriptor) addr() uintptr {
	return uintptr(unsafe.Pointer(b))
}

// blockAllocator per (tier x NUMA node) supplier of groups. Holds the
// blocks with free groups, the exhausted blocks, and per-class lists
// of partially-used groups returned by their owners. One spin lock
// covers every operation.
type blockAllocator struct {
	lock        spinlock
	ops         groupOps
	node        int32
	cacheSize   int // blocks kept before wholly-free ones go to the OS
	sorted      bool
	descriptors *objectPool
	releaseParent func(parent uintptr) // huge-region unpin hook
	freeBlocks  objlist // at least one free group
	fullBlocks  objlist // no free group
	partial     []objlist // partially-used groups per class
	peers       []*blockAllocator // same tier on other nodes
	heapBytes   int64 // atomic, OS memory held via blocks
}

func newBlockAllocator(
	ops groupOps, node int32, cacheSize int, sorted bool,
	descriptors *objectPool) *blockAllocator {

	ba := &blockAllocator{
		ops: ops, node: node, cacheSize: cacheSize, sorted: sorted,
		descriptors: descriptors,
	}
	ba.partial = make([]objlist, ops.binCount())
	if _, large := ops.(largeOps); large {
		for i := range ba.partial {
			ba.partial[i].masked = true
		}
	}
	return ba
}

func (ba *blockAllocator) groupsPerBlock() uint32 {
	return uint32(BlockSize / ba.ops.groupSize())
}

//---- group supply

// getGroup a group for the class, owned by the caller. Partially-used
// groups returned by previous owners go first, then unused groups of
// cached blocks, then peer nodes, and a fresh OS block last. Returns
// 0 when the OS is out of memory.
func (ba *blockAllocator) getGroup(
	info allocationInfo, locations uint32, bin uintptr, owner uint32) uintptr {

	ba.lock.lock()
	if g := ba.partial[info.bin].removeFirst(); g != 0 {
		ba.ops.initUsed(g, owner, ba.sorted)
		ba.ops.setParentBin(g, bin)
		ba.lock.unlock()
		return g
	}
	if ba.freeBlocks.count > 0 {
		g := ba.takeFromFront(owner)
		ba.ops.initUnused(g, uint32(info.size), locations, owner)
		ba.ops.setParentBin(g, bin)
		ba.lock.unlock()
		return g
	}
	ba.lock.unlock()

	// Nothing local; borrow a group from a peer node before growing.
	for _, peer := range ba.peers {
		if g := peer.tryGetGroup(owner); g != 0 {
			ba.ops.initUnused(g, uint32(info.size), locations, owner)
			ba.ops.setParentBin(g, bin)
			return g
		}
	}

	block := ba.allocBlock()
	if block == 0 {
		return 0
	}
	ba.lock.lock()
	ba.freeBlocks.addFirst(block)
	g := ba.takeFromFront(owner)
	ba.lock.unlock()

	ba.ops.initUnused(g, uint32(info.size), locations, owner)
	ba.ops.setParentBin(g, bin)
	return g
}

// tryGetGroup an unused group without growing; the peer-borrow entry
// point. The caller initializes the group.
func (ba *blockAllocator) tryGetGroup(owner uint32) uintptr {
	ba.lock.lock()
	defer ba.lock.unlock()
	if ba.freeBlocks.count == 0 {
		return 0
	}
	return ba.takeFromFront(owner)
}

// takeFromFront one group out of the first free block; the caller
// holds the lock and has checked the list is non-empty.
func (ba *blockAllocator) takeFromFront(owner uint32) uintptr {
	block := blockat(ba.freeBlocks.first)
	i := uint(lib.Bit64(block.bitmap).Findfirstset())
	old := atomicClearBit64(&block.bitmap, i)
	block.freeGroups--
	if old&(old-1) == 0 {
		// That was the last free group.
		ba.freeBlocks.removeFirst()
		ba.fullBlocks.addFirst(block.addr())
	}
	g := block.base + uintptr(i)*uintptr(ba.ops.groupSize())
	ba.ops.setParentBlock(g, block.addr())
	ba.ops.setOwner(g, owner)
	return g
}

//---- group return

// returnFullGroup a wholly-free group goes back to its block. The
// common case flips one bit without the lock; list transitions and
// block release take it.
func (ba *blockAllocator) returnFullGroup(g uintptr) {
	block := blockat(ba.ops.parentBlockOf(g))
	if block.numaNode != ba.node {
		// Borrowed from a peer; hand it home.
		for _, peer := range ba.peers {
			if peer.node == block.numaNode {
				peer.returnFullGroup(g)
				return
			}
		}
		return
	}
	i := uint((g - block.base) / uintptr(ba.ops.groupSize()))
	old := atomicSetBit64(&block.bitmap, i)
	block.freeGroups++

	switch {
	case old == 0:
		// The block was exhausted and has a free group again.
		ba.lock.lock()
		if atomic.LoadUint64(&block.bitmap) != 0 {
			ba.fullBlocks.remove(block.addr())
			ba.freeBlocks.addFirst(block.addr())
		}
		ba.lock.unlock()

	case old|(1<<i) == block.fullMask:
		// Every group is free; release the block when the cache is
		// over budget or the backing pages belong to a huge parent.
		ba.lock.lock()
		if atomic.LoadUint64(&block.bitmap) != block.fullMask {
			ba.lock.unlock()
			return // a thread took a group before we got the lock
		}
		switch {
		case block.hugeParent != 0:
			ba.freeBlocks.remove(block.addr())
			parent := block.hugeParent
			hugeat(parent).block = 0
			ba.descriptors.returnObject(block.addr())
			ba.lock.unlock()
			ba.releaseParent(parent)
			return
		case ba.freeBlocks.count+ba.fullBlocks.count > ba.cacheSize:
			ba.freeBlocks.remove(block.addr())
			ba.deallocBlock(block)
		}
		ba.lock.unlock()
	}
}

// Transitions between the partial-free list and the block.
const (
	addGroup = iota + 1
	removeGroup
)

// returnPartialGroup owner adds a partially-used group to the class
// list (ADD), or a foreign thread that filled an orphan group moves it
// out of the list and back to its block (REMOVE). Both directions
// re-verify state under the lock, the calls race with adoption.
func (ba *blockAllocator) returnPartialGroup(
	g uintptr, action int, bin int, owner uint32) {

	ba.lock.lock()
	if action == addGroup {
		if ba.ops.ownerOf(g) != owner {
			ba.lock.unlock()
			return // re-adopted concurrently, stale call
		}
		ba.ops.setOwner(g, ownerNone)
		ba.ops.setParentBin(g, 0)
		ba.partial[bin].addFirst(g)
		ba.lock.unlock()
		return
	}
	if ba.ops.parentBinOf(g) != 0 {
		ba.lock.unlock()
		return // adopted again, no longer strictly in the partial list
	}
	ba.partial[bin].remove(g)
	ba.lock.unlock()
	ba.returnFullGroup(g)
}

//---- block supply

func (ba *blockAllocator) allocBlock() uintptr {
	node := int(ba.node)
	if len(ba.peers) == 0 {
		node = -1
	}
	ptr := sys.AllocPages(BlockSize, SmallGroupSize, node)
	if ptr == nil {
		log.Warnf("palloc: %v, block of %v bytes\n", api.ErrorOutofMemory, BlockSize)
		return 0
	}
	desc := ba.descriptors.getObject()
	if desc == 0 {
		sys.FreePages(ptr, BlockSize)
		return 0
	}
	block := blockat(desc)
	block.base = uintptr(ptr)
	block.freeGroups = ba.groupsPerBlock()
	block.fullMask = ^uint64(0) >> (64 - block.freeGroups)
	block.bitmap = block.fullMask
	block.numaNode = ba.node
	atomic.AddInt64(&ba.heapBytes, BlockSize)
	return desc
}

func (ba *blockAllocator) deallocBlock(block *blockDescriptor) {
	sys.FreePages(unsafe.Pointer(block.base), BlockSize)
	atomic.AddInt64(&ba.heapBytes, -BlockSize)
	ba.descriptors.returnObject(block.addr())
}

// addBlock register a group run carved out of a huge location's
// slack. The descriptor joins the free list like any other block, but
// its pages belong to the huge parent.
func (ba *blockAllocator) addBlock(
	addr uintptr, bitmap uint64, groups uint32, parent uintptr) uintptr {

	desc := ba.descriptors.getObject()
	if desc == 0 {
		return 0
	}
	block := blockat(desc)
	block.base = addr
	block.bitmap, block.fullMask = bitmap, bitmap
	block.freeGroups = groups
	block.hugeParent = parent
	block.numaNode = ba.node

	ba.lock.lock()
	ba.freeBlocks.addFirst(desc)
	ba.lock.unlock()
	return desc
}

// removeBlock drop an idle carved block so it stops pinning its huge
// parent. Succeeds only while the descriptor still belongs to the
// parent and every group of the block is free.
func (ba *blockAllocator) removeBlock(desc, parent uintptr) bool {
	ba.lock.lock()
	block := blockat(desc)
	if block.hugeParent != parent ||
		atomic.LoadUint64(&block.bitmap) != block.fullMask {
		ba.lock.unlock()
		return false
	}
	ba.freeBlocks.remove(desc)
	hugeat(parent).block = 0
	ba.descriptors.returnObject(desc)
	ba.lock.unlock()
	return true
}

// release unmap every OS-backed block. Called on allocator release.
func (ba *blockAllocator) release() {
	ba.lock.lock()
	defer ba.lock.unlock()
	for _, list := range []*objlist{&ba.freeBlocks, &ba.fullBlocks} {
		for list.count > 0 {
			block := blockat(list.removeFirst())
			if block.hugeParent == 0 {
				sys.FreePages(unsafe.Pointer(block.base), BlockSize)
				atomic.AddInt64(&ba.heapBytes, -BlockSize)
			} else {
				hugeat(block.hugeParent).block = 0
				ba.releaseParent(block.hugeParent)
			}
		}
	}
}

func (ba *blockAllocator) heap() int64 {
	return atomic.LoadInt64(&ba.heapBytes)
}
