// Package palloc implements a general-purpose concurrent memory
// allocator designed to scale with hardware threads on multi-socket
// machines. Allocations route by size through four tiers:
//
//   small  upto 2688 bytes  31 size-classes, 16KB groups, per-thread bins
//   large  upto 8096 bytes  4 size-classes, 64KB groups of four subgroups
//   huge   upto ~1MB        direct page allocation with cached reuse
//   os     above ~1MB       pass-through to the operating system
//
// Each thread context owns the groups serving its bins, so the hot
// paths run without contended atomics: owner frees touch only the
// group's private list, while frees from other threads CAS onto a
// packed public list the owner privatizes in one swap. Wholly or
// mostly free groups flow back through per-node block allocators that
// carve 1MB blocks into groups, and freed huge locations park in
// per-size stacks a background reaper trims.
//
// Construct the engine with NewAllocator(Defaultsettings()) and use
// Allocate/Deallocate/Realloc. Returned memory lives outside the Go
// heap; the caller must not store Go pointers in it.
package palloc
