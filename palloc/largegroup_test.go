package palloc

import "testing"

import "github.com/gratianlup/ParallelAllocator/sys"

func testLargeGroup(t *testing.T, locationSize uint32) (*largeGroup, func()) {
	t.Helper()
	ptr := sys.AllocPages(LargeGroupSize, LargeGroupSize, -1)
	if ptr == nil {
		t.Fatalf("cannot map a large group")
	}
	g := largeGroupAt(uintptr(ptr))
	locations := tierLocations(largeops, int64(locationSize))
	g.initializeUnused(locationSize, locations, 1)
	return g, func() { sys.FreePages(ptr, LargeGroupSize) }
}

// Locations must stay clear of the subgroup marker regions for every
// class of the tier.
func TestLargeGroupLayout(t *testing.T) {
	for _, size := range largeBinSize {
		g, drop := testLargeGroup(t, uint32(size))
		for i := uint32(0); i < g.locations; i++ {
			addr := g.locationAddress(i)
			offset := (addr - g.base()) % SmallGroupSize
			if offset < largeGroupHeaderSize {
				t.Errorf("class %v: location %v inside a header region", size, i)
			}
			if addr+uintptr(size) > g.base()+
				(uintptr(addr-g.base())/SmallGroupSize+1)*SmallGroupSize {
				t.Errorf("class %v: location %v crosses a subgroup", size, i)
			}
			if g.addressLocation(addr) != i {
				t.Errorf("class %v: location %v does not round-trip", size, i)
			}
		}
		drop()
	}
}

func TestLargeGroupMarkers(t *testing.T) {
	g, drop := testLargeGroup(t, 8096)
	defer drop()

	for i := uint(0); i < 4; i++ {
		sub := g.base() + uintptr(i)*SmallGroupSize
		if nodeTier(sub) == 0 {
			t.Errorf("subgroup %v missing the tier bit", i)
		}
		if nodeSubgroup(sub) != i {
			t.Errorf("expected subgroup %v, got %v", i, nodeSubgroup(sub))
		}
	}
}

func TestLargeGroupAllocFree(t *testing.T) {
	g, drop := testLargeGroup(t, 3200)
	defer drop()

	if g.locations != 20 {
		t.Errorf("expected %v, got %v", 20, g.locations)
	}
	ptrs := make([]uintptr, 0, 20)
	for i := 0; i < 20; i++ {
		addr := g.getLocation()
		if addr == 0 {
			t.Fatalf("premature exhaustion at %v", i)
		}
		ptrs = append(ptrs, addr)
	}
	if g.getLocation() != 0 {
		t.Errorf("full group still hands out locations")
	}

	// Mixed owner and foreign frees; merge must restore everything.
	for i := 0; i < 10; i++ {
		g.returnPrivateLocation(ptrs[i])
	}
	for i := 10; i < 20; i++ {
		if count := g.returnPublicLocation(ptrs[i]); count != uint32(i-9) {
			t.Fatalf("expected count %v, got %v", i-9, count)
		}
	}
	if g.isUnused() {
		t.Errorf("unmerged group claims unused")
	}
	if g.mayBeFull(10) == false {
		t.Errorf("group with all locations accounted should test full")
	}
	g.mergeBits()
	if g.isUnused() == false {
		t.Errorf("merged group not unused")
	}
	if g.privateFree != 20 {
		t.Errorf("expected %v, got %v", 20, g.privateFree)
	}
}
