//go:build !windows

package sys

import "sync"
import "unsafe"

import "golang.org/x/sys/unix"

// PageSize granularity of commit and decommit on this platform.
const PageSize = int64(4096)

// Mappings are made through the x/sys wrappers, which track regions
// as whole byte slices. Alignment comes from over-mapping and handing
// out an aligned interior pointer; the registry finds the enclosing
// mapping again when the run is freed. The slack pages are anonymous
// and untouched, so they never cost resident memory.
var mappings = struct {
	sync.Mutex
	regions map[uintptr][]byte
}{regions: make(map[uintptr][]byte)}

// AllocPages map size bytes of zeroed anonymous memory aligned to
// align bytes. align must be a power of two and a multiple of the
// page size. When node is >= 0 the pages are bound to that NUMA node,
// best effort. Returns nil when the OS refuses the mapping.
func AllocPages(size, align int64, node int) unsafe.Pointer {
	if align < PageSize {
		align = PageSize
	}
	region, err := unix.Mmap(
		-1, 0, int(size+align),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil
	}
	base := uintptr(unsafe.Pointer(&region[0]))
	aligned := (base + uintptr(align) - 1) &^ (uintptr(align) - 1)

	mappings.Lock()
	mappings.regions[aligned] = region
	mappings.Unlock()

	ptr := unsafe.Pointer(aligned)
	if node >= 0 {
		bindpages(ptr, size, node)
	}
	return ptr
}

// FreePages return a run previously obtained from AllocPages.
func FreePages(ptr unsafe.Pointer, size int64) {
	mappings.Lock()
	region := mappings.regions[uintptr(ptr)]
	delete(mappings.regions, uintptr(ptr))
	mappings.Unlock()
	if region != nil {
		unix.Munmap(region)
	}
}

// DecommitPages advise the OS that the run's contents are disposable.
// The range stays mapped and re-commits, zeroed, on next touch.
func DecommitPages(ptr unsafe.Pointer, size int64) {
	var b []byte
	sl := (*sliceHeader)(unsafe.Pointer(&b))
	sl.data, sl.len, sl.cap = ptr, int(size), int(size)
	unix.Madvise(b, unix.MADV_DONTNEED)
}

type sliceHeader struct {
	data     unsafe.Pointer
	len, cap int
}
