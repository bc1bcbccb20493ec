package sys

import "testing"

func TestAllocPagesAlignment(t *testing.T) {
	for _, align := range []int64{4096, 16384, 65536} {
		ptr := AllocPages(1024*1024, align, -1)
		if ptr == nil {
			t.Fatalf("mapping failed for align %v", align)
		}
		if uintptr(ptr)%uintptr(align) != 0 {
			t.Errorf("pointer %p not aligned to %v", ptr, align)
		}
		FreePages(ptr, 1024*1024)
	}
}

func TestAllocPagesZeroedWritable(t *testing.T) {
	size := int64(64 * 1024)
	ptr := AllocPages(size, 16384, -1)
	if ptr == nil {
		t.Fatalf("mapping failed")
	}
	b := (*[64 * 1024]byte)(ptr)
	for i := 0; i < len(b); i += 4096 {
		if b[i] != 0 {
			t.Errorf("page at %v not zeroed", i)
		}
	}
	for i := range b {
		b[i] = 0xa5
	}
	if b[0] != 0xa5 || b[len(b)-1] != 0xa5 {
		t.Errorf("pages not writable")
	}
	DecommitPages(ptr, size)
	FreePages(ptr, size)
}

func TestNumaStubsSane(t *testing.T) {
	if n := NodeCount(); n < 1 {
		t.Errorf("expected at least one node, got %v", n)
	}
	if node := CurrentNode(); node < 0 || node >= NodeCount() {
		t.Errorf("current node %v out of range", node)
	}
	if node := CPUNode(0); node < 0 {
		t.Errorf("cpu 0 on node %v", node)
	}
}
