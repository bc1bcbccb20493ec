package palloc

import "unsafe"

// bin a thread's list of groups serving one size-class. The front
// group is the active one; the second position is kept as the best
// fallback so "second group has no room" implies none of the others
// do either. The public chain links groups holding foreign-freed
// locations and is shared with foreign threads under the bin's lock.
type bin struct {
	groups             objlist
	publicGroup        uintptr // head of the public-group chain
	stolenGroup        uintptr
	publicLock         spinlock
	number             uint32
	returnAllowed      uint32 // minimum groups kept before returning one
	stolenLocations    uint32
	maxStolenLocations uint32
	canReturnPartial   bool
	canSteal           bool
	_                  [CacheLineSize*2 - 32 - 2*8 - 5*4 - 2]byte
}

func (b *bin) addr() uintptr {
	return uintptr(unsafe.Pointer(b))
}

func binat(p uintptr) *bin {
	return (*bin)(unsafe.Pointer(p))
}

// threadContext per-thread allocation state: one bin per size-class
// of both tiers and the bitmap of bins whose active group is worth
// stealing from. Contexts live in the context pool and are found
// through the processor-indexed table of the facade; the per-context
// spin lock serializes the owner paths, and is uncontended as long as
// goroutines stay spread over processors.
type threadContext struct {
	id        uint32
	node      int32
	hugeOps   uint32
	lock      spinlock
	stealable uint64 // bit per small bin, set when its active group is stealable
	_         [CacheLineSize - 4*4 - 8]byte
	small     [SmallBins]bin
	large     [LargeBins]bin
}

func contextat(p uintptr) *threadContext {
	return (*threadContext)(unsafe.Pointer(p))
}

// initialize reset a context taken from the pool for a new identity.
func (ctx *threadContext) initialize(id uint32, node int32, steal bool) {
	ctx.id = id
	ctx.node = node
	ctx.stealable = 0
	for i := range ctx.small {
		b := &ctx.small[i]
		*b = bin{}
		b.number = uint32(i)
		b.returnAllowed = 1
		b.canReturnPartial = smallOps{}.canReturnPartial(i)
		if steal {
			b.canSteal = true
			b.maxStolenLocations = uint32(SmallGroupSize/smallBinSize[i]) / 2
		}
	}
	for i := range ctx.large {
		b := &ctx.large[i]
		*b = bin{}
		b.groups.masked = true
		b.number = uint32(i)
		b.returnAllowed = 1
		b.canReturnPartial = true
	}
}

// setStealable publish or retract a small bin in the stealable map.
func (ctx *threadContext) setStealable(binno uint32, available bool) {
	if available {
		ctx.stealable |= uint64(1) << binno
	} else {
		ctx.stealable &^= uint64(1) << binno
	}
}
