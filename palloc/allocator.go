package palloc

import "runtime"
import "sync/atomic"
import "time"
import "unsafe"

import "github.com/bnclabs/golog"
import s "github.com/bnclabs/gosettings"
import "github.com/gratianlup/ParallelAllocator/api"
import humanize "github.com/dustin/go-humanize"
import "github.com/gratianlup/ParallelAllocator/lib"
import "golang.org/x/sys/cpu"
import "github.com/gratianlup/ParallelAllocator/sys"

// Allocator the engine facade. Classifies sizes into the four tiers,
// owns the per-node block allocators, the huge caches and the
// metadata pools, and hands every calling thread its own context on
// first use.
type Allocator struct {
	numa    bool
	steal   bool
	sorted  bool
	nodes   int32
	release uint32 // atomic, set by Release

	contexts []contextSlot
	ctxLock  spinlock
	nextCtx  uint32

	ctxPool  *objectPool
	descPool *objectPool

	smallAlloc []*blockAllocator // per NUMA node
	largeAlloc []*blockAllocator

	hugeBins       [hugeBinCount]hugeBin
	reaper         *cacheReaper
	reaperOn       uint32
	reaperLock     spinlock
	reaperInterval time.Duration

	stats statistics
}

// contextSlot one padded pointer per processor.
type contextSlot struct {
	ctx uintptr
	_   cpu.CacheLinePad
}

var smallops smallOps
var largeops largeOps

// Allocator implements api.Mallocer.
var _ api.Mallocer = (*Allocator)(nil)

// NewAllocator construct the engine. The page source must be usable
// before any thread enters Allocate, hence pools and block allocators
// come up here and not lazily.
func NewAllocator(setts s.Settings) *Allocator {
	a := &Allocator{
		numa:   setts.Bool("numa"),
		steal:  setts.Bool("steal"),
		sorted: setts.Bool("sort.freelists"),
		nodes:  1,
	}
	a.stats.enabled = setts.Bool("statistics")
	a.reaperInterval =
		time.Duration(setts.Int64("huge.reaperinterval")) * time.Second

	if a.numa {
		if n := sys.NodeCount(); n > 1 {
			if n > MaxNumaNodes {
				n = MaxNumaNodes
			}
			a.nodes = int32(n)
		}
	}

	a.descPool = newObjectPool(4096, 64, 4)
	ctxSize := int64(unsafe.Sizeof(threadContext{}))
	a.ctxPool = newObjectPool(64*1024, ctxSize, 1)

	smallCache := int(setts.Int64("blockcache.small"))
	largeCache := int(setts.Int64("blockcache.large"))
	for node := int32(0); node < a.nodes; node++ {
		a.smallAlloc = append(a.smallAlloc,
			newBlockAllocator(smallops, node, smallCache, a.sorted, a.descPool))
		a.largeAlloc = append(a.largeAlloc,
			newBlockAllocator(largeops, node, largeCache, a.sorted, a.descPool))
	}
	for node := int32(0); node < a.nodes; node++ {
		a.smallAlloc[node].releaseParent = a.releaseHugeRef
		a.largeAlloc[node].releaseParent = a.releaseHugeRef
		if a.nodes > 1 {
			for peer := int32(0); peer < a.nodes; peer++ {
				if peer != node {
					a.smallAlloc[node].peers =
						append(a.smallAlloc[node].peers, a.smallAlloc[peer])
					a.largeAlloc[node].peers =
						append(a.largeAlloc[node].peers, a.largeAlloc[peer])
				}
			}
		}
	}

	maxcache := uint32(setts.Int64("huge.maxcache"))
	for i := hugeStartBin; i < hugeBinCount; i++ {
		a.hugeBins[i].init(i, maxcache)
	}

	a.contexts = make([]contextSlot, runtime.GOMAXPROCS(0))

	log.Infof(
		"palloc: engine up, %v node(s), %v contexts, tiers %v/%v/%v\n",
		a.nodes, len(a.contexts),
		humanize.Bytes(uint64(MaxSmallSize)),
		humanize.Bytes(uint64(MaxLargeSize)),
		humanize.Bytes(uint64(MaxHugeSize)))
	return a
}

//---- context management

// context the calling goroutine's per-processor context, created on
// first use.
func (a *Allocator) context() *threadContext {
	pid := runtime_procPin()
	runtime_procUnpin()
	slot := &a.contexts[pid%len(a.contexts)]
	p := atomic.LoadUintptr(&slot.ctx)
	if p == 0 {
		p = a.createContext(slot)
	}
	return contextat(p)
}

func (a *Allocator) createContext(slot *contextSlot) uintptr {
	a.ctxLock.lock()
	defer a.ctxLock.unlock()
	if p := atomic.LoadUintptr(&slot.ctx); p != 0 {
		return p
	}
	p := a.ctxPool.getObject()
	if p == 0 {
		panic(api.ErrorOutofMemory)
	}
	node := int32(0)
	if a.numa {
		node = int32(sys.CurrentNode())
		if node >= a.nodes {
			node = 0
		}
	}
	ctx := contextat(p)
	ctx.initialize(a.nextCtx, node, a.steal)
	a.nextCtx++
	a.stats.contextCreated()
	atomic.StoreUintptr(&slot.ctx, p)
	return p
}

//---- public surface

// Allocate aligned storage of the requested size; nil when the OS is
// out of memory. Sizes route to the small, large, huge or OS tier.
func (a *Allocator) Allocate(size int64) unsafe.Pointer {
	if atomic.LoadUint32(&a.release) != 0 {
		panic(api.ErrorReleased)
	}
	if size < 0 {
		return nil
	}
	if size <= MaxSmallSize {
		info := smallAllocInfo(size)
		addr := a.allocateSmall(info)
		if addr != 0 {
			a.stats.allocBytes(info.size)
		}
		return unsafe.Pointer(addr)
	} else if size <= MaxLargeSize {
		info := largeAllocInfo(size)
		addr := a.allocateLarge(info)
		if addr != 0 {
			a.stats.allocBytes(info.size)
		}
		return unsafe.Pointer(addr)
	} else if size <= MaxHugeSize {
		a.stats.hugeAlloc()
		ptr := a.allocateHuge(size)
		if ptr != nil && a.stats.enabled {
			a.stats.allocBytes(a.Slabsize(ptr))
		}
		return ptr
	}
	a.stats.osAlloc()
	ptr := a.allocateOS(size)
	if ptr != nil && a.stats.enabled {
		a.stats.allocBytes(a.Slabsize(ptr))
	}
	return ptr
}

// Deallocate return storage obtained from Allocate. Nil is a no-op.
// The offset of the address inside its 16KB frame tells the tier: the
// OS and huge headers sit at the frame start, group locations come
// after their headers, and the marker bits of a group's first word
// separate small from large.
func (a *Allocator) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if a.stats.enabled {
		a.stats.freeBytes(a.Slabsize(ptr))
	}
	addr := uintptr(ptr)
	aligned := addr &^ (SmallGroupSize - 1)
	offset := addr - aligned

	if offset <= hugeHeaderSize {
		if offset <= osHeaderSize {
			a.deallocateOS(addr)
		} else {
			a.freeHuge(addr)
		}
		return
	}
	if nodeTier(aligned) == 0 {
		a.deallocateSmall(addr, aligned)
	} else {
		base := aligned - uintptr(nodeSubgroup(aligned))*SmallGroupSize
		a.deallocateLarge(addr, base)
	}
}

// Realloc resize a location, preserving contents up to the smaller
// size. Stays in place when the new size fits the current location
// and fills at least half of it.
func (a *Allocator) Realloc(ptr unsafe.Pointer, size int64) unsafe.Pointer {
	if ptr == nil {
		return a.Allocate(size)
	}
	if size == 0 {
		a.Deallocate(ptr)
		return nil
	}
	usable := a.Slabsize(ptr)
	if size <= usable && usable <= 2*size {
		return ptr
	}
	fresh := a.Allocate(size)
	if fresh == nil {
		return nil
	}
	n := usable
	if size < n {
		n = size
	}
	lib.Memcpy(fresh, ptr, int(n))
	a.Deallocate(ptr)
	return fresh
}

// Slabs every location size served by the segregated tiers.
func (a *Allocator) Slabs() []int64 {
	sizes := make([]int64, 0, SmallBins+LargeBins)
	sizes = append(sizes, smallBinSize[:SmallBins-1]...)
	sizes = append(sizes, largeBinSize[:]...)
	return sizes
}

// Slabsize usable bytes behind a pointer obtained from Allocate.
func (a *Allocator) Slabsize(ptr unsafe.Pointer) int64 {
	addr := uintptr(ptr)
	aligned := addr &^ (SmallGroupSize - 1)
	offset := addr - aligned

	if offset <= hugeHeaderSize {
		if offset <= osHeaderSize {
			hdr := (*osHeader)(unsafe.Pointer(aligned))
			return hdr.mapped - osHeaderSize
		}
		return hugeat(addr - hugeHeaderSize).size - hugeHeaderSize
	}
	if nodeTier(aligned) == 0 {
		return groupAt(aligned).sizeOfLocation(addr)
	}
	base := aligned - uintptr(nodeSubgroup(aligned))*SmallGroupSize
	return int64(largeGroupAt(base).locationSize)
}

// Info memory accounting: OS memory held, metadata overhead and, with
// statistics enabled, net allocated bytes.
func (a *Allocator) Info() (capacity, heap, alloc, overhead int64) {
	for node := int32(0); node < a.nodes; node++ {
		heap += a.smallAlloc[node].heap()
		heap += a.largeAlloc[node].heap()
	}
	heap += atomic.LoadInt64(&a.stats.hugeHeap)
	overhead += a.descPool.overhead() + a.ctxPool.overhead()
	alloc = atomic.LoadInt64(&a.stats.allocated)
	total, _, _ := getsysmem()
	return int64(total), heap, alloc, overhead
}

// Log a humanized snapshot of the accounting.
func (a *Allocator) Log() {
	capacity, heap, alloc, overhead := a.Info()
	log.Infof(
		"palloc: capacity %v, heap %v, alloc %v, overhead %v\n",
		humanize.Bytes(uint64(capacity)), humanize.Bytes(uint64(heap)),
		humanize.Bytes(uint64(alloc)), humanize.Bytes(uint64(overhead)))
}

// Release stop the reaper and unmap everything the engine holds.
// Locations still live become invalid; Allocate on a released
// allocator panics.
func (a *Allocator) Release() {
	if atomic.SwapUint32(&a.release, 1) != 0 {
		return
	}
	if atomic.LoadUint32(&a.reaperOn) == 1 {
		a.reaper.shutdown()
	}
	for i := hugeStartBin; i < hugeBinCount; i++ {
		for {
			loc := a.hugeBins[i].pop()
			if loc == 0 {
				break
			}
			a.disposeHuge(loc)
		}
	}
	for node := int32(0); node < a.nodes; node++ {
		a.smallAlloc[node].release()
		a.largeAlloc[node].release()
	}
	a.ctxPool.release()
	a.descPool.release()
	for i := range a.contexts {
		atomic.StoreUintptr(&a.contexts[i].ctx, 0)
	}
	log.Infof("palloc: engine released\n")
}

//---- small tier

// allocateSmall the owner-path allocation order: active group, second
// group, a group with public frees, stealing, then a fresh group from
// the block allocator.
func (a *Allocator) allocateSmall(info allocationInfo) uintptr {
	ctx := a.context()
	ctx.lock.lock()
	bin := &ctx.small[info.bin]

	if first := bin.groups.first; first != 0 {
		if addr := groupAt(first).getPrivateLocation(); addr != 0 {
			ctx.lock.unlock()
			return addr
		}
	}

	if bin.groups.count >= 2 {
		second := bin.groups.getnext(bin.groups.first)
		g := groupAt(second)
		if g.isEmptyEnough() {
			a.makeGroupActive(&bin.groups, second)
			if a.steal {
				ctx.setStealable(bin.number, g.canBeStolen())
			}
			addr := g.getLocation(a.sorted)
			ctx.lock.unlock()
			return addr
		}
	}

	if bin.publicGroup != 0 {
		bin.publicLock.lock()
		gaddr := bin.publicGroup
		g := groupAt(gaddr)
		bin.publicGroup = g.nextPublic
		bin.publicLock.unlock()

		// A group can linger in the chain after its owner returned it
		// to the block allocator; only adopt what is still ours.
		if g.loadParentBin() == bin.addr() {
			if gaddr != bin.groups.first {
				a.makeGroupActive(&bin.groups, gaddr)
			}
			addr := g.getLocation(a.sorted)
			if a.steal {
				ctx.setStealable(bin.number, g.canBeStolen())
			}
			if addr != 0 {
				ctx.lock.unlock()
				return addr
			}
		}
	}

	if a.steal {
		if addr := a.trySteal(ctx, bin, info); addr != 0 {
			ctx.lock.unlock()
			return addr
		}
	}

	locations := tierLocations(smallops, info.size)
	ba := a.smallAlloc[ctx.node]
	gaddr := ba.getGroup(info, locations, bin.addr(), ctx.id)
	if gaddr == 0 {
		ctx.lock.unlock()
		return 0
	}
	a.stats.groupObtained()
	if a.steal {
		ctx.setStealable(bin.number, true)
	}
	bin.groups.addFirst(gaddr)
	addr := groupAt(gaddr).getLocation(a.sorted)
	ctx.lock.unlock()
	return addr
}

// makeGroupActive rotate the current front to the back and bring the
// group to the front.
func (a *Allocator) makeGroupActive(groups *objlist, gaddr uintptr) {
	front := groups.removeFirst()
	groups.addLast(front)
	if groups.first != gaddr {
		groups.remove(gaddr)
		groups.addFirst(gaddr)
	}
}

// trySteal serve the request out of a larger class's mostly-free
// group.
func (a *Allocator) trySteal(
	ctx *threadContext, b *bin, info allocationInfo) uintptr {

	gaddr := b.stolenGroup
	if gaddr == 0 && b.canSteal {
		gaddr = a.stealGroup(ctx, b.number+1, uint32(info.size))
		if gaddr != 0 {
			b.stolenGroup = gaddr
			g := groupAt(gaddr)
			if b.number < g.smallestStolen {
				g.smallestStolen = b.number
			}
		}
	}
	if gaddr == 0 {
		return 0
	}
	addr := groupAt(gaddr).stealLocation(uint32(info.size), a.sorted)
	if addr == 0 {
		b.stolenGroup = 0
		return 0
	}
	b.stolenLocations++
	b.canSteal = b.stolenLocations < b.maxStolenLocations
	a.stats.stole()
	return addr
}

// stealGroup scan the stealable map upward from startBin for an
// active group that still qualifies and whose locations are big
// enough to host stolen ranges.
func (a *Allocator) stealGroup(
	ctx *threadContext, startBin uint32, size uint32) uintptr {

	for binno := startBin; binno < SmallBins; {
		idx := lib.Bit64(ctx.stealable).Findfirstsetfrom(uint8(binno))
		if idx < 0 {
			return 0
		}
		gaddr := ctx.small[idx].groups.first
		if gaddr != 0 {
			g := groupAt(gaddr)
			if g.canBeStolen() &&
				g.locationSize >= size+minStolenOverhead {
				return gaddr
			}
		}
		binno = uint32(idx) + 1
	}
	return 0
}

// deallocateSmall owner frees go to the private list and may return
// the group; foreign frees go to the public list; orphan groups are
// handled through the block allocator.
func (a *Allocator) deallocateSmall(addr, gaddr uintptr) {
	g := groupAt(gaddr)
	if g.loadParentBin() != 0 {
		ctx := a.context()
		ctx.lock.lock()
		if bin := g.loadParentBin(); bin != 0 && g.owner == ctx.id {
			a.ownerFreeSmall(ctx, binat(bin), g, addr)
			ctx.lock.unlock()
			return
		}
		ctx.lock.unlock()
		if bin := g.loadParentBin(); bin != 0 {
			a.foreignFreeSmall(addr, g, bin)
			return
		}
	}
	a.orphanFree(addr, gaddr, smallops, func(x uintptr) uint32 {
		return g.returnPublicLocation(x)
	}, g.mayBeFull)
}

func (a *Allocator) ownerFreeSmall(
	ctx *threadContext, b *bin, g *group, addr uintptr) {

	g.returnPrivateLocation(addr)
	gaddr := g.base()

	if g.isUnused() && b.groups.count > int(b.returnAllowed)-1 {
		a.returnUnusedGroup(ctx, b, gaddr, smallops)
		return
	}
	if b.canReturnPartial && g.shouldReturn() &&
		b.groups.count > int(b.returnAllowed)-1 {
		a.returnPartialGroup(ctx, b, gaddr, smallops)
		return
	}
	if gaddr != b.groups.first && b.groups.count >= 2 {
		if gaddr != b.groups.getnext(b.groups.first) {
			// Bring the group to the second position; if the second
			// group has no room, none of the later ones do either.
			b.groups.remove(gaddr)
			b.groups.addAfter(b.groups.first, gaddr)
		}
	}
}

func (a *Allocator) foreignFreeSmall(addr uintptr, g *group, binPtr uintptr) {
	a.stats.publicFree()
	count := g.returnPublicLocation(addr)
	if count == 0 {
		return // landed in a stolen range that is not wholly free
	}
	if count == 1 {
		// First public location: link the group into the owner bin's
		// public chain, unless the owner returned the group while we
		// were pushing.
		b := binat(binPtr)
		b.publicLock.lock()
		if g.loadParentBin() == binPtr {
			g.nextPublic = b.publicGroup
			b.publicGroup = g.base()
		}
		b.publicLock.unlock()
	}
}

// orphanFree free into a group without an owner: push public, and
// when the push makes the group wholly free, ask the block allocator
// to move it from the partial list back to its block.
func (a *Allocator) orphanFree(
	addr, gaddr uintptr, ops groupOps,
	push func(uintptr) uint32, full func(uint32) bool) {

	count := push(addr)
	if count == 0 || !full(count) {
		return
	}
	block := blockat(ops.parentBlockOf(gaddr))
	ba := a.allocFor(ops, block.numaNode)
	ba.returnPartialGroup(gaddr, removeGroup, ops.binOf(gaddr), ownerNone)
	a.stats.groupReturned()
}

// allocFor the tier's block allocator on the given node.
func (a *Allocator) allocFor(ops groupOps, node int32) *blockAllocator {
	if _, large := ops.(largeOps); large {
		return a.largeAlloc[node]
	}
	return a.smallAlloc[node]
}

// returnUnusedGroup hand a wholly-free group back to its block.
func (a *Allocator) returnUnusedGroup(
	ctx *threadContext, b *bin, gaddr uintptr, ops groupOps) {

	ops.setParentBin(gaddr, 0)
	b.groups.remove(gaddr)
	if ops.allowSteal() {
		a.removeStolenGroup(ctx, gaddr, b.number)
	}
	block := blockat(ops.parentBlockOf(gaddr))
	a.allocFor(ops, block.numaNode).returnFullGroup(gaddr)
	a.stats.groupReturned()
	if b.groups.count == int(b.returnAllowed)-1 {
		b.returnAllowed++
	}
}

// returnPartialGroup hand a mostly-free group to the class's partial
// list. Foreign threads may have published frees since the owner last
// looked, so the group is unlinked from the public chain under the
// bin's lock first.
func (a *Allocator) returnPartialGroup(
	ctx *threadContext, b *bin, gaddr uintptr, ops groupOps) {

	b.groups.remove(gaddr)
	if ops.allowSteal() {
		a.removeStolenGroup(ctx, gaddr, b.number)
	}

	b.publicLock.lock()
	if ops.hasPublic(gaddr) {
		if b.publicGroup == gaddr {
			b.publicGroup = ops.nextPublic(gaddr)
		} else if b.publicGroup != 0 {
			prev := b.publicGroup
			for cur := ops.nextPublic(prev); cur != 0; {
				if cur == gaddr {
					ops.setNextPublic(prev, ops.nextPublic(gaddr))
					break
				}
				prev, cur = cur, ops.nextPublic(cur)
			}
		}
	}
	b.publicLock.unlock()

	block := blockat(ops.parentBlockOf(gaddr))
	a.allocFor(ops, block.numaNode).returnPartialGroup(
		gaddr, addGroup, int(b.number), ctx.id)
	a.stats.groupReturned()
	if b.groups.count == int(b.returnAllowed)-1 {
		b.returnAllowed++
	}
}

// removeStolenGroup clear the stolen-group reference of every bin
// between the smallest stealer and the owner bin before the group
// leaves the context.
func (a *Allocator) removeStolenGroup(
	ctx *threadContext, gaddr uintptr, groupBin uint32) {

	g := groupAt(gaddr)
	if g.smallestStolen == notStolen {
		return
	}
	for i := g.smallestStolen; i < groupBin; i++ {
		if ctx.small[i].stolenGroup == gaddr {
			ctx.small[i].stolenGroup = 0
		}
	}
}

//---- large tier

func (a *Allocator) allocateLarge(info allocationInfo) uintptr {
	ctx := a.context()
	ctx.lock.lock()
	bin := &ctx.large[info.bin]

	if first := bin.groups.first; first != 0 {
		if addr := largeGroupAt(first).getPrivateLocation(); addr != 0 {
			ctx.lock.unlock()
			return addr
		}
	}

	if bin.groups.count >= 2 {
		second := bin.groups.getnext(bin.groups.first)
		g := largeGroupAt(second)
		if g.isEmptyEnough() {
			a.makeGroupActive(&bin.groups, second)
			addr := g.getLocation()
			ctx.lock.unlock()
			return addr
		}
	}

	if bin.publicGroup != 0 {
		bin.publicLock.lock()
		gaddr := bin.publicGroup
		g := largeGroupAt(gaddr)
		bin.publicGroup = g.nextPublic
		bin.publicLock.unlock()

		if g.loadParentBin() == bin.addr() {
			if gaddr != bin.groups.first {
				a.makeGroupActive(&bin.groups, gaddr)
			}
			if addr := g.getLocation(); addr != 0 {
				ctx.lock.unlock()
				return addr
			}
		}
	}

	locations := tierLocations(largeops, info.size)
	ba := a.largeAlloc[ctx.node]
	gaddr := ba.getGroup(info, locations, bin.addr(), ctx.id)
	if gaddr == 0 {
		ctx.lock.unlock()
		return 0
	}
	a.stats.groupObtained()
	bin.groups.addFirst(gaddr)
	addr := largeGroupAt(gaddr).getLocation()
	ctx.lock.unlock()
	return addr
}

func (a *Allocator) deallocateLarge(addr, gaddr uintptr) {
	g := largeGroupAt(gaddr)
	if g.loadParentBin() != 0 {
		ctx := a.context()
		ctx.lock.lock()
		if bin := g.loadParentBin(); bin != 0 && g.owner == ctx.id {
			a.ownerFreeLarge(ctx, binat(bin), g, addr)
			ctx.lock.unlock()
			return
		}
		ctx.lock.unlock()
		if bin := g.loadParentBin(); bin != 0 {
			a.foreignFreeLarge(addr, g, bin)
			return
		}
	}
	a.orphanFree(addr, gaddr, largeops, g.returnPublicLocation, g.mayBeFull)
}

func (a *Allocator) ownerFreeLarge(
	ctx *threadContext, b *bin, g *largeGroup, addr uintptr) {

	g.returnPrivateLocation(addr)
	gaddr := g.base()

	if g.isUnused() && b.groups.count > int(b.returnAllowed)-1 {
		a.returnUnusedGroup(ctx, b, gaddr, largeops)
		return
	}
	if g.shouldReturn() && b.groups.count > int(b.returnAllowed)-1 {
		a.returnPartialGroup(ctx, b, gaddr, largeops)
		return
	}
	if gaddr != b.groups.first && b.groups.count >= 2 {
		if gaddr != b.groups.getnext(b.groups.first) {
			b.groups.remove(gaddr)
			b.groups.addAfter(b.groups.first, gaddr)
		}
	}
}

func (a *Allocator) foreignFreeLarge(addr uintptr, g *largeGroup, binPtr uintptr) {
	a.stats.publicFree()
	count := g.returnPublicLocation(addr)
	if count == 1 {
		b := binat(binPtr)
		b.publicLock.lock()
		if g.loadParentBin() == binPtr {
			g.nextPublic = b.publicGroup
			b.publicGroup = g.base()
		}
		b.publicLock.unlock()
	}
}

//---- OS pass-through

// osHeader 16-byte header in front of pass-through locations, placed
// on a 16KB boundary so classification by offset works.
type osHeader struct {
	mapped int64
	_      int64
}

func (a *Allocator) allocateOS(size int64) unsafe.Pointer {
	mapped := (size + osHeaderSize + sys.PageSize - 1) &^ (sys.PageSize - 1)
	node := -1
	if a.numa {
		node = int(a.context().node)
	}
	ptr := sys.AllocPages(mapped, SmallGroupSize, node)
	if ptr == nil {
		return nil
	}
	hdr := (*osHeader)(ptr)
	hdr.mapped = mapped
	return unsafe.Pointer(uintptr(ptr) + osHeaderSize)
}

func (a *Allocator) deallocateOS(addr uintptr) {
	base := addr - osHeaderSize
	hdr := (*osHeader)(unsafe.Pointer(base))
	sys.FreePages(unsafe.Pointer(base), hdr.mapped)
}
