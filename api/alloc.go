package api

import "unsafe"

// Mallocer interface for scalable memory management. The parallel
// allocator implements this interface, and so does every tier that
// can stand alone.
type Mallocer interface {
	// Slabs allocatable location sizes served by the segregated tiers.
	Slabs() (sizes []int64)

	// Allocate a chunk of `n` bytes. Chunks whose slab is a multiple
	// of 16 are 16-byte aligned, most others 8-byte aligned. The 12
	// and 20 byte slabs are only 4-byte aligned, and the 5397 byte
	// slab has no alignment beyond one byte. Returns nil when the
	// system is out of memory.
	Allocate(n int64) unsafe.Pointer

	// Deallocate chunk. Nil is a no-op, unrelated pointers are
	// undefined behaviour.
	Deallocate(ptr unsafe.Pointer)

	// Realloc grow or shrink chunk to `n` bytes, preserving content
	// up to the smaller of the two sizes.
	Realloc(ptr unsafe.Pointer, n int64) unsafe.Pointer

	// Info of memory accounting for this allocator.
	Info() (capacity, heap, alloc, overhead int64)

	// Release the allocator and all its resources.
	Release()
}
