//go:build !linux

package sys

import "unsafe"

// NodeCount number of NUMA nodes, always 1 on platforms without
// topology discovery.
func NodeCount() int { return 1 }

// CPUNode the NUMA node owning the given cpu.
func CPUNode(cpu int) int { return 0 }

// CurrentNode the NUMA node of the cpu the caller is running on.
func CurrentNode() int { return 0 }

func bindpages(ptr unsafe.Pointer, size int64, node int) {}
