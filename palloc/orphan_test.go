package palloc

import "testing"
import "unsafe"

// A group returned to the partial list while locations are still in
// flight: the remaining frees run the orphan path and the final one
// moves the group back into its block, leaving nothing behind.
func TestOrphanedGroupFrees(t *testing.T) {
	pin1(t)
	a := testAllocator(nil)
	defer a.Release()

	// Class 64 may return partially-used groups. Fill one group plus
	// one location of a second, then free most of the first group so
	// the owner hands it back while locations are still live.
	count := int(tierLocations(smallops, 64))
	ptrs := make([]unsafe.Pointer, count+1)
	for i := range ptrs {
		ptrs[i] = a.Allocate(64)
	}
	gaddr := uintptr(ptrs[0]) &^ (SmallGroupSize - 1)
	g := groupAt(gaddr)
	ba := a.smallAlloc[0]

	keep := make([]unsafe.Pointer, 0, count)
	for _, p := range ptrs[:count] {
		if uintptr(p)&^(SmallGroupSize-1) == gaddr {
			keep = append(keep, p)
		}
	}
	for _, p := range keep[63:] {
		a.Deallocate(p)
	}
	if g.loadParentBin() != 0 || g.owner != ownerNone {
		t.Fatalf("group not returned to the partial list")
	}
	if ba.partial[9].count != 1 {
		t.Fatalf("expected the group in the partial list")
	}

	// The 63 live locations now free through the orphan path.
	for _, p := range keep[:63] {
		a.Deallocate(p)
	}
	if ba.partial[9].count != 0 {
		t.Errorf("orphan group still in the partial list")
	}
	block := blockat(g.parentBlock)
	if block.bitmap&(1<<uint((gaddr-block.base)/SmallGroupSize)) == 0 {
		t.Errorf("group never reached its block")
	}
	a.Deallocate(ptrs[count])
}
