// Package sys wraps the operating system's virtual-memory interface
// and, on Linux, the NUMA topology. All higher layers obtain their
// backing pages through AllocPages/FreePages and never touch the OS
// directly.
//
// Pages handed out by AllocPages are zeroed, committed, read-write and
// aligned to at least the requested power-of-two boundary, which the
// allocation engine relies on to recover group headers by address
// masking.
package sys
