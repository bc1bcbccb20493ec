package palloc

import "testing"
import "unsafe"

func TestObjectPoolGetReturn(t *testing.T) {
	pool := newObjectPool(4096, 64, 1)
	defer pool.release()

	if pool.maxObjects() != 63 {
		t.Errorf("expected %v, got %v", 63, pool.maxObjects())
	}

	objs := make([]uintptr, 0, 100)
	seen := map[uintptr]bool{}
	for i := 0; i < 100; i++ {
		p := pool.getObject()
		if p == 0 {
			t.Fatalf("pool exhausted at %v", i)
		}
		if p%CacheLineSize != 0 {
			t.Errorf("record %x not cache-line aligned", p)
		}
		if seen[p] {
			t.Fatalf("duplicate record %x", p)
		}
		seen[p] = true
		objs = append(objs, p)
	}
	if pool.slabs.count != 2 {
		t.Errorf("expected %v slabs, got %v", 2, pool.slabs.count)
	}

	// Records are zeroed on every get.
	*(*uint64)(unsafe.Pointer(objs[0])) = 0xdeadbeef
	pool.returnObject(objs[0])
	p := pool.getObject()
	if *(*uint64)(unsafe.Pointer(p)) != 0 {
		t.Errorf("recycled record not zeroed")
	}
	pool.returnObject(p)

	for _, p := range objs[1:] {
		pool.returnObject(p)
	}
}

// A wholly-free slab beyond the cache budget goes back to the OS.
func TestObjectPoolShrinks(t *testing.T) {
	pool := newObjectPool(4096, 64, 1)
	defer pool.release()

	objs := make([]uintptr, 0, 126)
	for i := 0; i < 126; i++ { // two full slabs
		objs = append(objs, pool.getObject())
	}
	if pool.slabs.count != 2 {
		t.Fatalf("expected %v slabs, got %v", 2, pool.slabs.count)
	}
	for _, p := range objs {
		pool.returnObject(p)
	}
	if pool.slabs.count != 1 {
		t.Errorf("expected %v slab after shrink, got %v", 1, pool.slabs.count)
	}
}

func TestObjectPoolRecycleAddress(t *testing.T) {
	pool := newObjectPool(4096, 128, 1)
	defer pool.release()

	p1 := pool.getObject()
	pool.returnObject(p1)
	p2 := pool.getObject()
	if p1 != p2 {
		t.Errorf("expected %x again, got %x", p1, p2)
	}
	pool.returnObject(p2)
}
