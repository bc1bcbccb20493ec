package palloc

import "sync/atomic"
import "time"

import "github.com/bnclabs/golog"

// cacheReaper low-priority background worker that walks the huge
// buckets on a fixed interval and evicts entries that sat unused past
// their bucket's age limit. Created lazily on the first huge
// allocation; shutdown exists so tests and Release can stop it.
type cacheReaper struct {
	interval time.Duration
	stopch   chan struct{}
	finch    chan struct{}
}

func newCacheReaper(interval time.Duration) *cacheReaper {
	return &cacheReaper{
		interval: interval,
		stopch:   make(chan struct{}),
		finch:    make(chan struct{}),
	}
}

func (r *cacheReaper) run(a *Allocator) {
	log.Verbosef("palloc: cache reaper started, interval %v\n", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.cleanHugeCache()
		case <-r.stopch:
			close(r.finch)
			return
		}
	}
}

func (r *cacheReaper) shutdown() {
	close(r.stopch)
	<-r.finch
}

// ensureReaper start the reaper exactly once. Double-checked: the
// flag is only published after the goroutine exists.
func (a *Allocator) ensureReaper() {
	if atomic.LoadUint32(&a.reaperOn) == 1 {
		return
	}
	a.reaperLock.lock()
	defer a.reaperLock.unlock()
	if a.reaperOn == 0 {
		a.reaper = newCacheReaper(a.reaperInterval)
		go a.reaper.run(a)
		atomic.StoreUint32(&a.reaperOn, 1)
	}
}
