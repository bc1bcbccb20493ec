package palloc

import "sync/atomic"

// statistics optional engine counters. When disabled every update is
// a no-op branch on a single bool, cheap enough for the hot path.
type statistics struct {
	enabled bool

	contexts       int64
	groupsObtained int64
	groupsReturned int64
	publicFrees    int64
	steals         int64
	hugeAllocs     int64
	hugeHits       int64
	hugeHeap       int64 // always tracked, feeds Info()
	osAllocs       int64
	evictions      int64
	allocated      int64 // net bytes handed to callers
}

func (st *statistics) contextCreated() {
	if st.enabled {
		atomic.AddInt64(&st.contexts, 1)
	}
}

func (st *statistics) groupObtained() {
	if st.enabled {
		atomic.AddInt64(&st.groupsObtained, 1)
	}
}

func (st *statistics) groupReturned() {
	if st.enabled {
		atomic.AddInt64(&st.groupsReturned, 1)
	}
}

func (st *statistics) publicFree() {
	if st.enabled {
		atomic.AddInt64(&st.publicFrees, 1)
	}
}

func (st *statistics) stole() {
	if st.enabled {
		atomic.AddInt64(&st.steals, 1)
	}
}

func (st *statistics) hugeAlloc() {
	if st.enabled {
		atomic.AddInt64(&st.hugeAllocs, 1)
	}
}

func (st *statistics) hugeCacheHit() {
	if st.enabled {
		atomic.AddInt64(&st.hugeHits, 1)
	}
}

func (st *statistics) hugeMapped(n int64) {
	atomic.AddInt64(&st.hugeHeap, n)
}

func (st *statistics) hugeUnmapped(n int64) {
	atomic.AddInt64(&st.hugeHeap, -n)
}

func (st *statistics) osAlloc() {
	if st.enabled {
		atomic.AddInt64(&st.osAllocs, 1)
	}
}

func (st *statistics) reaperEvicted(n int) {
	if st.enabled {
		atomic.AddInt64(&st.evictions, int64(n))
	}
}

func (st *statistics) allocBytes(n int64) {
	if st.enabled {
		atomic.AddInt64(&st.allocated, n)
	}
}

func (st *statistics) freeBytes(n int64) {
	if st.enabled {
		atomic.AddInt64(&st.allocated, -n)
	}
}
