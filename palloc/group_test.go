package palloc

import "testing"
import "unsafe"

import "github.com/gratianlup/ParallelAllocator/sys"

func testGroup(t *testing.T, locationSize uint32) (*group, func()) {
	t.Helper()
	ptr := sys.AllocPages(SmallGroupSize, SmallGroupSize, -1)
	if ptr == nil {
		t.Fatalf("cannot map a group")
	}
	g := groupAt(uintptr(ptr))
	locations := tierLocations(smallops, int64(locationSize))
	g.initializeUnused(locationSize, locations, 1)
	return g, func() { sys.FreePages(ptr, SmallGroupSize) }
}

func TestGroupBumpThenList(t *testing.T) {
	g, drop := testGroup(t, 64)
	defer drop()

	if g.locations != 252 {
		t.Errorf("expected %v, got %v", 252, g.locations)
	}
	// Bump phase hands out ascending, location-sized steps.
	first := g.getPrivateLocation()
	second := g.getPrivateLocation()
	if second-first != 64 {
		t.Errorf("expected stride %v, got %v", 64, second-first)
	}
	if (first-g.base()-smallGroupHeaderSize)%64 != 0 {
		t.Errorf("location off the grid: %x", first)
	}

	// Owner frees feed the private list, LIFO.
	g.returnPrivateLocation(second)
	g.returnPrivateLocation(first)
	if got := g.getPrivateLocation(); got != first {
		t.Errorf("expected %x, got %x", first, got)
	}
	if got := g.getPrivateLocation(); got != second {
		t.Errorf("expected %x, got %x", second, got)
	}
}

func TestGroupExhaustion(t *testing.T) {
	g, drop := testGroup(t, 2688)
	defer drop()

	seen := map[uintptr]bool{}
	for i := uint32(0); i < g.locations; i++ {
		addr := g.getLocation(false)
		if addr == 0 {
			t.Fatalf("premature exhaustion at %v", i)
		}
		if seen[addr] {
			t.Fatalf("duplicate location %x", addr)
		}
		seen[addr] = true
	}
	if g.getLocation(false) != 0 {
		t.Errorf("full group still hands out locations")
	}
	if g.isUnused() {
		t.Errorf("full group claims to be unused")
	}
}

// The accounting invariant: in-use plus private-free plus public-free
// equals capacity whenever no allocation is in flight.
func TestGroupCounts(t *testing.T) {
	g, drop := testGroup(t, 64)
	defer drop()

	ptrs := make([]uintptr, 0, g.locations)
	for i := 0; i < 100; i++ {
		ptrs = append(ptrs, g.getPrivateLocation())
	}
	for i := 0; i < 30; i++ { // owner frees
		g.returnPrivateLocation(ptrs[i])
	}
	for i := 30; i < 60; i++ { // foreign frees
		if count := g.returnPublicLocation(ptrs[i]); count != uint32(i-29) {
			t.Fatalf("expected count %v, got %v", i-29, count)
		}
	}

	privateFree := 0
	for p := g.privateStart; p != 0; p = *(*uintptr)(unsafe.Pointer(p)) {
		privateFree++
	}
	publicFree := int(listHeadCount(g.publicStart))
	bumpLeft := int(g.lastLocation-g.bump) / 64
	if privateFree != 30 || publicFree != 30 {
		t.Fatalf("unexpected lists: %v private, %v public", privateFree, publicFree)
	}
	// privateUsed still counts the publicly freed locations.
	if int(g.privateUsed) != 100-30 {
		t.Errorf("expected used %v, got %v", 70, g.privateUsed)
	}
	if int(g.privateUsed)-publicFree+privateFree+publicFree+bumpLeft !=
		int(g.locations) {
		t.Errorf("counts do not add up")
	}

	g.privatize(false)
	if g.privateUsed != 40 {
		t.Errorf("expected used %v, got %v", 40, g.privateUsed)
	}
	if g.publicStart != 0 {
		t.Errorf("public list survived privatize")
	}
}

func TestGroupPrivatizeSorted(t *testing.T) {
	g, drop := testGroup(t, 64)
	defer drop()

	ptrs := make([]uintptr, 8)
	for i := range ptrs {
		ptrs[i] = g.getPrivateLocation()
	}
	// Publish out of order, privatize with sorting on.
	for _, i := range []int{5, 1, 7, 3, 0, 6, 2, 4} {
		g.returnPublicLocation(ptrs[i])
	}
	g.privatize(true)

	prev := uintptr(0)
	for p := g.privateStart; p != 0; p = *(*uintptr)(unsafe.Pointer(p)) {
		if p <= prev {
			t.Fatalf("list not in ascending order")
		}
		prev = p
	}
	// Sorted merges walk the group front to back.
	if g.privateStart != ptrs[0] {
		t.Errorf("expected %x first, got %x", ptrs[0], g.privateStart)
	}
}

func TestGroupPredicates(t *testing.T) {
	g, drop := testGroup(t, 64)
	defer drop()

	if g.isUnused() == false {
		t.Errorf("fresh group not unused")
	}
	ptrs := make([]uintptr, g.locations)
	for i := range ptrs {
		ptrs[i] = g.getPrivateLocation()
	}
	if g.canBeStolen() {
		t.Errorf("full group claims stealable")
	}
	if g.shouldReturn() {
		t.Errorf("full group claims returnable")
	}
	for i := 0; i < len(ptrs)*3/4+1; i++ {
		g.returnPrivateLocation(ptrs[i])
	}
	if g.canBeStolen() == false {
		t.Errorf("mostly-free group not stealable")
	}
	if g.shouldReturn() == false {
		t.Errorf("mostly-free group not returnable")
	}
	if g.mayBeFull(0) {
		t.Errorf("group with live locations may not be full")
	}
}
