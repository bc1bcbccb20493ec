package palloc

import "math/bits"

// allocationInfo rounded location size and bin of a request.
type allocationInfo struct {
	size int64
	bin  int
}

// smallAllocTable direct lookup for sizes upto 64 bytes, indexed by
// the requested byte count. A table beats the jump table a switch
// would generate.
var smallAllocTable [MaxTinySize + 1]allocationInfo

// smallAllocTable2 coarse 320-byte-granular lookup for sizes between
// 896 and 2688, indexed by size/320. An entry covers sizes upto its
// own class; larger requests within the slot promote to the next one.
var smallAllocTable2 = [10]allocationInfo{
	{0, 0}, // never reached
	{0, 0},
	{1152, afterSegregatedBin + 0},
	{1152, afterSegregatedBin + 0},
	{1472, afterSegregatedBin + 1},
	{1792, afterSegregatedBin + 2},
	{2304, afterSegregatedBin + 3},
	{2304, afterSegregatedBin + 3},
	{2688, afterSegregatedBin + 4},
	{2688, afterSegregatedBin + 4},
}

func init() {
	bin := 0
	for size := int64(0); size <= MaxTinySize; size++ {
		for smallBinSize[bin] < size {
			bin++
		}
		smallAllocTable[size] = allocationInfo{smallBinSize[bin], bin}
	}
}

// smallAllocInfo bin and rounded size for the small tier. Three
// regimes: direct table upto 64, computed from the top set bit upto
// 896, coarse table upto 2688.
func smallAllocInfo(size int64) allocationInfo {
	if size <= MaxTinySize {
		return smallAllocTable[size]
	}
	if size <= MaxSegregatedSize {
		// Between two consecutive powers of two sit four bins spread
		// uniformly; 127 is the largest distance between them.
		hb := uint(bits.Len64(uint64(size-1)) - 1)
		offset := int64(127 >> (9 - hb))
		rounded := (size + offset) &^ offset
		bin := int((size-1)>>(hb-2)) + 4*int(hb-5) + 2
		return allocationInfo{rounded, bin}
	}
	info := smallAllocTable2[size/320]
	if size > info.size {
		info = smallAllocTable2[size/320+1]
	}
	return info
}

// largeAllocInfo bin and rounded size for the large tier, selected by
// a short if-chain.
func largeAllocInfo(size int64) allocationInfo {
	if size <= largeBinSize[0] {
		return allocationInfo{largeBinSize[0], 0}
	} else if size <= largeBinSize[1] {
		return allocationInfo{largeBinSize[1], 1}
	} else if size <= largeBinSize[2] {
		return allocationInfo{largeBinSize[2], 2}
	}
	return allocationInfo{largeBinSize[3], 3}
}
