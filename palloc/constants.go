package palloc

// Tunable constants of the allocation engine. These are compiled in,
// runtime behaviour is configured through Defaultsettings().
const (
	// CacheLineSize the most common cache line size nowadays.
	CacheLineSize = 64

	// MaxNumaNodes upper bound on block-allocator pairs kept per tier.
	MaxNumaNodes = 64

	// BlockSize memory is obtained from the OS in blocks of 1MB, each
	// split into up to 64 groups.
	BlockSize = 1024 * 1024

	// SmallGroupSize groups serving the small tier, aligned to their
	// own size so any location maps back to its group by masking.
	SmallGroupSize = 16 * 1024

	// LargeGroupSize groups serving the large tier, made of four
	// 16KB subgroups.
	LargeGroupSize = 64 * 1024

	smallGroupHeaderSize = 256 // 4 cache lines
	largeGroupHeaderSize = 192 // 3 cache lines

	groupsPerBlock = BlockSize / SmallGroupSize // bounded by the 64-bit bitmap

	// SmallBins number of small size-classes. The last slot is spare.
	SmallBins = 31

	// LargeBins number of large size-classes.
	LargeBins = 4

	// MaxTinySize sizes upto this are classified by a direct table.
	MaxTinySize = 64

	// MaxSegregatedSize sizes upto this are classified by computing
	// on the top set bit.
	MaxSegregatedSize = 896

	// MaxSmallSize largest size served by the small tier.
	MaxSmallSize = 2688

	// MaxLargeSize largest size served by the large tier. A 64KB
	// group with four 192-byte subgroup headers holds exactly two
	// 8096-byte locations per subgroup.
	MaxLargeSize = 8096

	// MaxHugeSize largest size served by the huge cache, about 1MB.
	// Anything bigger goes straight to the OS.
	MaxHugeSize = 1048512

	afterSegregatedBin = 25

	// notStolen marker for groups no bin has stolen from.
	notStolen = 255

	// HugeGranularity huge locations round up to 4KB buckets.
	HugeGranularity = 4096

	hugeHeaderSize = 64

	// osGranularity huge OS requests round up to 64KB so the slack
	// can be carved into cache siblings or small groups.
	osGranularity = 64 * 1024

	// hugeSplitPosition requests upto 32KB fill their slack with
	// cache siblings, larger ones with small groups.
	hugeSplitPosition = 32 * 1024

	// hugeBinCount buckets 2..256 are used; 256 covers MaxHugeSize.
	// Bucket 2 (sizes 8097..8128) is not initialized and caches
	// nothing; buckets 3..256 carry cache parameters.
	hugeBinCount = 257
	hugeStartBin = 3

	// maxHugeCache hard ceiling on any bucket's stack depth.
	maxHugeCache = 512

	// blockSmallCache, blockLargeCache blocks kept per allocator
	// before wholly-free ones return to the OS.
	blockSmallCache = 16
	blockLargeCache = 8

	osHeaderSize = 16

	ownerNone = ^uint32(0)
)

// smallBinSize location sizes of the small tier: ten tiny sizes, four
// logarithmic steps between successive powers of two upto 896, then
// five coarse steps upto 2688. Slot 30 is spare and mirrors the
// largest class.
var smallBinSize = [SmallBins]int64{
	8, 12, 16, 20, 24, 32, 40, 48, 56, 64,
	80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 448, 512, 640, 768, 896,
	1152, 1472, 1792, 2304, 2688,
	2688,
}

// largeBinSize location sizes of the large tier.
var largeBinSize = [LargeBins]int64{3200, 4048, 5397, 8096}

// hugeCacheSize default stack depth per huge bucket; smaller, hotter
// locations get deeper caches. Buckets past the table use depth 1.
var hugeCacheSize = [...]uint32{
	0, 0, 0, 32, 32, 31, 31, 31, 30, 30, 29, 28, 27, 26, 24, 22, 20, 16, 14,
	12, 12, 11, 11, 10, 10, 9, 9, 9, 9, 8, 8, 8, 8, 8, 8,
	7, 7, 7, 7, 7, 7, 7, 7, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}

// hugeCacheTime seconds a cached entry of the bucket may idle before
// the reaper evicts. Buckets past the table use 30 seconds.
var hugeCacheTime = [...]uint32{
	0, 0, 0, 480, 480, 479, 479, 478, 477, 476, 474, 471, 468, 463, 457, 449, 437, 420, 370,
	341, 321, 305, 292, 281, 271, 263, 256, 249, 243, 237, 232, 227, 222, 218, 214,
	210, 206, 203, 199, 196, 193, 190, 187, 185, 182, 180, 177, 175, 173, 171, 168,
	166, 164, 162, 160, 159, 157, 155, 153, 152, 150, 148, 147, 145, 144, 142, 141,
	139, 138, 137, 135, 134, 133, 132, 130, 129, 128, 127, 126, 124, 123, 122, 121,
	120, 119, 118, 117, 116, 115, 114, 113, 112, 111, 110, 109, 108, 107, 107, 106,
	105, 104, 103, 102, 101, 101, 100, 99, 98, 97, 97, 96, 95, 94, 94, 93,
	92, 92, 91, 90, 89, 89, 88, 87, 87, 86, 85, 85, 84, 83, 83, 82,
	82, 81, 80, 80, 79, 79, 78, 77, 77, 76, 76, 75, 75, 74, 73, 73,
	72, 72, 71, 71, 70, 70, 69, 69, 68, 68, 67, 67, 66, 66, 65, 65,
	64, 64, 63, 63, 62, 62, 61, 61, 60, 60, 59, 59, 59, 58, 58, 57,
	57, 56, 56, 55, 55, 55, 54, 54, 53, 53, 53, 52, 52, 51, 51, 50,
	50, 50, 49, 49, 49, 48, 48, 47, 47, 47, 46, 46, 45, 45, 45, 44,
	44, 44, 43, 43, 43, 42, 42, 41, 41, 41, 40, 40, 40, 39, 39, 39,
	38, 38, 38, 37, 37, 37, 36, 36, 36, 35, 35, 35, 34, 34, 34, 33,
	33, 33, 33, 32, 32, 32, 31, 31, 31, 30, 30, 30,
}

func hugeBinParams(bin int) (depth, age uint32) {
	depth, age = 1, 30
	if bin < len(hugeCacheSize) {
		depth = hugeCacheSize[bin]
	}
	if bin < len(hugeCacheTime) {
		age = hugeCacheTime[bin]
	}
	return depth, age
}
