package lib

import "testing"
import "unsafe"

func TestMemcpy(t *testing.T) {
	src, dst := make([]byte, 100), make([]byte, 100)
	for i := range src {
		src[i] = byte(i)
	}
	n := Memcpy(unsafe.Pointer(&dst[0]), unsafe.Pointer(&src[0]), 100)
	if n != 100 {
		t.Errorf("expected %v, got %v", 100, n)
	}
	for i := range dst {
		if dst[i] != byte(i) {
			t.Fatalf("expected %v, got %v", byte(i), dst[i])
		}
	}
}

func TestMemset(t *testing.T) {
	blk := make([]byte, 64)
	Memset(unsafe.Pointer(&blk[0]), 0xab, 64)
	for i := range blk {
		if blk[i] != 0xab {
			t.Fatalf("expected %v, got %v", 0xab, blk[i])
		}
	}
}
