//go:build linux

package sys

import "os"
import "strconv"
import "strings"
import "sync"
import "unsafe"

import "golang.org/x/sys/unix"

const nodesysfs = "/sys/devices/system/node"

// mpolPreferred is the Linux MPOL_PREFERRED mbind() policy constant.
// Not exposed by golang.org/x/sys/unix, so it is defined here directly.
const mpolPreferred = 1

var topology struct {
	once    sync.Once
	nodes   int
	cpunode map[int]int
}

func loadtopology() {
	topology.nodes, topology.cpunode = 1, map[int]int{}
	entries, err := os.ReadDir(nodesysfs)
	if err != nil {
		return
	}
	nodes := 0
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "node") == false {
			continue
		}
		node, err := strconv.Atoi(name[len("node"):])
		if err != nil {
			continue
		}
		nodes++
		data, err := os.ReadFile(nodesysfs + "/" + name + "/cpulist")
		if err != nil {
			continue
		}
		for _, cpu := range parsecpulist(string(data)) {
			topology.cpunode[cpu] = node
		}
	}
	if nodes > 0 {
		topology.nodes = nodes
	}
}

// parsecpulist expand a sysfs cpulist like "0-3,8-11" to cpu numbers.
func parsecpulist(s string) []int {
	cpus := make([]int, 0, 16)
	for _, field := range strings.Split(strings.TrimSpace(s), ",") {
		if field == "" {
			continue
		}
		if idx := strings.IndexByte(field, '-'); idx >= 0 {
			from, err1 := strconv.Atoi(field[:idx])
			till, err2 := strconv.Atoi(field[idx+1:])
			if err1 != nil || err2 != nil {
				continue
			}
			for cpu := from; cpu <= till; cpu++ {
				cpus = append(cpus, cpu)
			}
		} else if cpu, err := strconv.Atoi(field); err == nil {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

// NodeCount number of NUMA nodes on this machine, at least 1.
func NodeCount() int {
	topology.once.Do(loadtopology)
	return topology.nodes
}

// CPUNode the NUMA node owning the given cpu.
func CPUNode(cpu int) int {
	topology.once.Do(loadtopology)
	return topology.cpunode[cpu]
}

// CurrentNode the NUMA node of the cpu the caller is running on.
func CurrentNode() int {
	topology.once.Do(loadtopology)
	if topology.nodes == 1 {
		return 0
	}
	var cpu, node uintptr
	_, _, errno := unix.Syscall(
		unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0
	}
	return int(node)
}

// bindpages prefer the given node for the run's backing pages. Failure
// is ignored, the pages then follow the default first-touch policy.
func bindpages(ptr unsafe.Pointer, size int64, node int) {
	if NodeCount() == 1 {
		return
	}
	mask := uint64(1) << uint(node)
	unix.Syscall6(
		unix.SYS_MBIND, uintptr(ptr), uintptr(size),
		uintptr(mpolPreferred), uintptr(unsafe.Pointer(&mask)), 64, 0)
}
