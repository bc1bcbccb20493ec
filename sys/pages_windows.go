//go:build windows

package sys

import "unsafe"

import "golang.org/x/sys/windows"

// PageSize granularity of commit and decommit on this platform.
const PageSize = int64(4096)

// VirtualAlloc reserves on 64 KB boundaries, which covers every
// alignment the engine asks for (16 KB groups).
const allocationGranularity = int64(64 * 1024)

// AllocPages map size bytes of anonymous memory aligned to align bytes.
// The node parameter is accepted for interface parity; binding uses the
// default policy of the calling thread.
func AllocPages(size, align int64, node int) unsafe.Pointer {
	if align > allocationGranularity {
		return nil
	}
	addr, err := windows.VirtualAlloc(
		0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil
	}
	return unsafe.Pointer(addr)
}

// FreePages return a run previously obtained from AllocPages.
func FreePages(ptr unsafe.Pointer, size int64) {
	windows.VirtualFree(uintptr(ptr), 0, windows.MEM_RELEASE)
}

// DecommitPages advise the OS that the run's contents are disposable.
func DecommitPages(ptr unsafe.Pointer, size int64) {
	windows.VirtualFree(uintptr(ptr), uintptr(size), windows.MEM_DECOMMIT)
}
