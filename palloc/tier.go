package palloc

// groupOps static dispatch between the two group layouts. The block
// allocator and the facade manipulate groups through this table so the
// same code drives both tiers.
type groupOps interface {
	// groupSize byte size and alignment of one group.
	groupSize() int64
	// headerSize bytes reserved in front of the locations.
	headerSize() int64
	// binCount size-classes of the tier.
	binCount() int
	// binSize location size of the class.
	binSize(bin int) int64
	// binOf class index for a group, derived from its location size.
	binOf(g uintptr) int
	// allowSteal whether bins of this tier may steal locations.
	allowSteal() bool
	// canReturnPartial whether the class may return partially-used
	// groups to the block allocator.
	canReturnPartial(bin int) bool

	initUnused(g uintptr, locationSize, locations, owner uint32)
	initUsed(g uintptr, owner uint32, sorted bool)

	ownerOf(g uintptr) uint32
	setOwner(g uintptr, owner uint32)
	parentBinOf(g uintptr) uintptr
	setParentBin(g uintptr, bin uintptr)
	parentBlockOf(g uintptr) uintptr
	setParentBlock(g uintptr, block uintptr)

	hasPublic(g uintptr) bool
	nextPublic(g uintptr) uintptr
	setNextPublic(g uintptr, next uintptr)
}

type smallOps struct{}

func (smallOps) groupSize() int64  { return SmallGroupSize }
func (smallOps) headerSize() int64 { return smallGroupHeaderSize }
func (smallOps) binCount() int     { return SmallBins }
func (smallOps) allowSteal() bool  { return true }

func (smallOps) binSize(bin int) int64 {
	return smallBinSize[bin]
}

func (smallOps) binOf(g uintptr) int {
	return smallAllocInfo(int64(groupAt(g).locationSize)).bin
}

// canReturnPartial only classes whose location size is a multiple of
// the cache line hand partially-used groups back.
func (smallOps) canReturnPartial(bin int) bool {
	return smallBinSize[bin]%CacheLineSize == 0
}

func (smallOps) initUnused(g uintptr, locationSize, locations, owner uint32) {
	groupAt(g).initializeUnused(locationSize, locations, owner)
}

func (smallOps) initUsed(g uintptr, owner uint32, sorted bool) {
	groupAt(g).initializeUsed(owner, sorted)
}

func (smallOps) ownerOf(g uintptr) uint32          { return groupAt(g).owner }
func (smallOps) setOwner(g uintptr, owner uint32)  { groupAt(g).owner = owner }
func (smallOps) parentBinOf(g uintptr) uintptr     { return groupAt(g).loadParentBin() }
func (smallOps) setParentBin(g uintptr, b uintptr) { groupAt(g).storeParentBin(b) }
func (smallOps) parentBlockOf(g uintptr) uintptr   { return groupAt(g).parentBlock }
func (smallOps) setParentBlock(g, b uintptr)       { groupAt(g).parentBlock = b }
func (smallOps) hasPublic(g uintptr) bool          { return groupAt(g).hasPublic() }
func (smallOps) nextPublic(g uintptr) uintptr      { return groupAt(g).nextPublic }
func (smallOps) setNextPublic(g, next uintptr)     { groupAt(g).nextPublic = next }

type largeOps struct{}

func (largeOps) groupSize() int64  { return LargeGroupSize }
func (largeOps) headerSize() int64 { return largeGroupHeaderSize }
func (largeOps) binCount() int     { return LargeBins }
func (largeOps) allowSteal() bool  { return false }

func (largeOps) binSize(bin int) int64 {
	return largeBinSize[bin]
}

func (largeOps) binOf(g uintptr) int {
	return largeAllocInfo(int64(largeGroupAt(g).locationSize)).bin
}

func (largeOps) canReturnPartial(bin int) bool { return true }

// initUnused the large layout packs locations per subgroup, so the
// per-subgroup count drives the real total.
func (largeOps) initUnused(g uintptr, locationSize, locations, owner uint32) {
	largeGroupAt(g).initializeUnused(locationSize, locations, owner)
}

func (largeOps) initUsed(g uintptr, owner uint32, sorted bool) {
	largeGroupAt(g).initializeUsed(owner)
}

func (largeOps) ownerOf(g uintptr) uint32          { return largeGroupAt(g).owner }
func (largeOps) setOwner(g uintptr, owner uint32)  { largeGroupAt(g).owner = owner }
func (largeOps) parentBinOf(g uintptr) uintptr     { return largeGroupAt(g).loadParentBin() }
func (largeOps) setParentBin(g uintptr, b uintptr) { largeGroupAt(g).storeParentBin(b) }
func (largeOps) parentBlockOf(g uintptr) uintptr   { return largeGroupAt(g).parentBlock }
func (largeOps) setParentBlock(g, b uintptr)       { largeGroupAt(g).parentBlock = b }
func (largeOps) hasPublic(g uintptr) bool          { return largeGroupAt(g).hasPublic() }
func (largeOps) nextPublic(g uintptr) uintptr      { return largeGroupAt(g).nextPublic }
func (largeOps) setNextPublic(g, next uintptr)     { largeGroupAt(g).nextPublic = next }

// tierLocations locations a group of the tier holds for a class.
func tierLocations(ops groupOps, locationSize int64) uint32 {
	if _, ok := ops.(largeOps); ok {
		perSubgroup := (SmallGroupSize - largeGroupHeaderSize) / locationSize
		return uint32(4 * perSubgroup)
	}
	return uint32((SmallGroupSize - smallGroupHeaderSize) / locationSize)
}
