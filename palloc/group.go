package palloc

import "sort"
import "sync/atomic"
import "unsafe"

// group a 16KB region serving one small size-class, aligned to its own
// size. A 256-byte header is followed by equal-sized locations. The
// header spans four cache lines: the first holds only the list node,
// the second the ownership fields, the third the owner-private free
// state, the fourth the fields foreign threads mutate. Keeping owner
// and foreign state on separate lines avoids coherency traffic when
// the group is touched from both sides at once.
type group struct {
	node listNode
	_    [CacheLineSize - 16]byte

	parentBin      uintptr // owning bin, atomic; 0 while in a free pool
	parentBlock    uintptr // enclosing block descriptor
	stolen         uintptr // active stolen location other bins carve
	owner          uint32  // context id, ownerNone while pooled
	locations      uint32
	locationSize   uint32
	smallestStolen uint32 // smallest bin number that stole from here
	_              [CacheLineSize - 3*8 - 4*4]byte

	bump         uintptr // first never-touched location
	lastLocation uintptr // end of the location array
	privateStart uintptr // LIFO of owner-freed locations
	privateEnd   uintptr
	privateUsed  uint32 // in-use count from the owner's viewpoint
	_            [CacheLineSize - 4*8 - 4]byte

	publicStart uint64 // packed (count,first), CAS only
	nextPublic  uintptr
	publicLock  spinlock // serializes foreign frees into stolen ranges
	_           [CacheLineSize - 2*8 - 4]byte
}

func groupAt(p uintptr) *group {
	return (*group)(unsafe.Pointer(p))
}

func (g *group) base() uintptr {
	return uintptr(unsafe.Pointer(g))
}

// parentBin is read by foreign threads to detect orphaned groups, so
// every access goes through the atomics.

func (g *group) loadParentBin() uintptr {
	return atomic.LoadUintptr(&g.parentBin)
}

func (g *group) storeParentBin(bin uintptr) {
	atomic.StoreUintptr(&g.parentBin, bin)
}

// initializeUnused prepare a wholly-free group for a new owner. The
// parent block survives the header reset.
func (g *group) initializeUnused(locationSize, locations, owner uint32) {
	block := g.parentBlock
	*g = group{}
	g.parentBlock = block

	g.owner = owner
	g.locationSize = locationSize
	g.locations = locations
	g.smallestStolen = notStolen
	g.bump = g.base() + smallGroupHeaderSize
	g.lastLocation = g.bump + uintptr(locationSize)*uintptr(locations)
}

// initializeUsed adopt a partially-used group from the free pool.
// Locations freed by foreign threads while it was pooled become
// private again.
func (g *group) initializeUsed(owner uint32, sorted bool) {
	g.owner = owner
	g.smallestStolen = notStolen
	g.privatize(sorted)
}

//---- predicates consulted by the owner

func (g *group) isEmptyEnough() bool {
	return g.privateUsed < g.locations
}

// canBeStolen at least a quarter of the locations are free.
func (g *group) canBeStolen() bool {
	return g.privateUsed <= g.locations*3/4
}

// shouldReturn at least three quarters free and no pending foreign
// frees; worth handing back to the block allocator.
func (g *group) shouldReturn() bool {
	return g.privateUsed <= g.locations/4 &&
		atomic.LoadUint64(&g.publicStart) == 0
}

// isUnused nothing handed out at all.
func (g *group) isUnused() bool {
	return g.privateUsed == 0 && atomic.LoadUint64(&g.publicStart) == 0
}

// mayBeFull the group is possibly wholly free once the given number
// of public locations is accounted for. Foreign frees decrement the
// owner's counter only at privatize time, so the test is a hint.
func (g *group) mayBeFull(publicCount uint32) bool {
	return g.privateUsed-publicCount == 0
}

func (g *group) hasPublic() bool {
	return atomic.LoadUint64(&g.publicStart) != 0
}

//---- owner-side allocation

// getPrivateLocation bump-allocate while untouched space remains,
// then serve the private free list. Returns 0 when both are dry.
func (g *group) getPrivateLocation() uintptr {
	if g.bump < g.lastLocation {
		addr := g.bump
		g.bump += uintptr(g.locationSize)
		g.privateUsed++
		return addr
	}
	if g.privateStart != 0 {
		return g.popPrivate()
	}
	return 0
}

func (g *group) popPrivate() uintptr {
	addr := g.privateStart
	g.privateStart = *(*uintptr)(unsafe.Pointer(addr))
	if g.privateStart == 0 {
		g.privateEnd = 0
	}
	g.privateUsed++
	return addr
}

// getPublicLocation privatize the foreign-freed list and retry the
// private path.
func (g *group) getPublicLocation(sorted bool) uintptr {
	if atomic.LoadUint64(&g.publicStart) == 0 {
		return 0
	}
	g.privatize(sorted)
	return g.getPrivateLocation()
}

func (g *group) getLocation(sorted bool) uintptr {
	if addr := g.getPrivateLocation(); addr != 0 {
		return addr
	}
	return g.getPublicLocation(sorted)
}

// privatize capture the public list in one swap and append it to the
// private list. The captured count settles the optimistic decrements
// done by foreign threads.
func (g *group) privatize(sorted bool) {
	first, count := swapListHead(&g.publicStart)
	if first == 0 {
		return
	}
	if sorted {
		first = sortChain(first, count)
	}
	tail := chainTail(first)
	if g.privateStart == 0 {
		g.privateStart = first
	} else {
		*(*uintptr)(unsafe.Pointer(g.privateEnd)) = first
	}
	g.privateEnd = tail
	g.privateUsed -= count
}

func chainTail(first uintptr) uintptr {
	tail := first
	for {
		next := *(*uintptr)(unsafe.Pointer(tail))
		if next == 0 {
			return tail
		}
		tail = next
	}
}

// sortChain relink the captured chain in ascending address order, so
// subsequent allocations walk the group front to back.
func sortChain(first uintptr, count uint32) uintptr {
	addrs := make([]uintptr, 0, count)
	for p := first; p != 0; p = *(*uintptr)(unsafe.Pointer(p)) {
		addrs = append(addrs, p)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for i := 0; i < len(addrs)-1; i++ {
		*(*uintptr)(unsafe.Pointer(addrs[i])) = addrs[i+1]
	}
	*(*uintptr)(unsafe.Pointer(addrs[len(addrs)-1])) = 0
	return addrs[0]
}

//---- owner-side free

// returnPrivateLocation free a location owned by the calling context.
// Addresses that do not fall on a location boundary belong to a
// stolen range and resolve through the stolen-location walk first.
func (g *group) returnPrivateLocation(addr uintptr) {
	if (addr-g.base()-smallGroupHeaderSize)%uintptr(g.locationSize) != 0 {
		addr = g.returnStolen(addr)
		if addr == 0 {
			return // the stolen location is not wholly free yet
		}
		if g.stolen == addr {
			g.stolen = 0 // don't carve a location that is free again
		}
	}
	*(*uintptr)(unsafe.Pointer(addr)) = g.privateStart
	if g.privateStart == 0 {
		g.privateEnd = addr
	}
	g.privateStart = addr
	g.privateUsed--
}

//---- foreign-side free

// returnPublicLocation CAS-push a location freed by a foreign thread
// onto the public list, returns the new public count. A zero return
// means the address resolved into a stolen range that is not yet
// wholly free, and nothing was pushed.
func (g *group) returnPublicLocation(addr uintptr) uint32 {
	if (addr-g.base()-smallGroupHeaderSize)%uintptr(g.locationSize) != 0 {
		g.publicLock.lock()
		addr = g.returnStolen(addr)
		g.publicLock.unlock()
		if addr == 0 {
			return 0
		}
	}
	return pushListHead(&g.publicStart, addr)
}
