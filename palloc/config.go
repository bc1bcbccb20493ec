package palloc

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Defaultsettings for the allocation engine.
//
// "numa" (bool, default: false)
//		Keep one block-allocator pair per NUMA node and bind block
//		pages to the node of the allocating thread. Nodes borrow
//		groups from each other before growing.
//
// "steal" (bool, default: true)
//		Let an exhausted small bin carve locations out of a larger
//		class's mostly-free group instead of taking a new group.
//
// "sort.freelists" (bool, default: false)
//		Re-sort privatized free lists by address before merging, at a
//		modest CPU cost, so allocations walk groups front to back.
//
// "statistics" (bool, default: false)
//		Maintain the engine counters. Of these, only the net allocated
//		bytes are reported, through Info() and Log().
//
// "huge.maxcache" (int64, default: derived)
//		Hard ceiling on any huge bucket's stack depth. The default
//		scales with free system memory, one slot per 8MB free,
//		bounded to [8, 512].
//
// "huge.reaperinterval" (int64, default: 30)
//		Seconds between sweeps of the huge-cache reaper.
//
// "blockcache.small" (int64, default: 16)
//		Blocks the small tier keeps per node before wholly-free ones
//		return to the OS.
//
// "blockcache.large" (int64, default: 8)
//		Same for the large tier.
func Defaultsettings() s.Settings {
	_, _, free := getsysmem()
	maxcache := int64(free / (8 * 1024 * 1024))
	if maxcache < 8 {
		maxcache = 8
	} else if maxcache > maxHugeCache {
		maxcache = maxHugeCache
	}
	return s.Settings{
		"numa":                false,
		"steal":               true,
		"sort.freelists":      false,
		"statistics":          false,
		"huge.maxcache":       maxcache,
		"huge.reaperinterval": int64(30),
		"blockcache.small":    int64(blockSmallCache),
		"blockcache.large":    int64(blockLargeCache),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}
