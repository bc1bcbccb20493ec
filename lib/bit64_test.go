package lib

import "testing"

func TestBit64Findfirstset(t *testing.T) {
	if x := Bit64(0).Findfirstset(); x != -1 {
		t.Errorf("expected %v, got %v", -1, x)
	} else if x = Bit64(0x8000000000000000).Findfirstset(); x != 63 {
		t.Errorf("expected %v, got %v", 63, x)
	} else if x = Bit64(0x10).Findfirstset(); x != 4 {
		t.Errorf("expected %v, got %v", 4, x)
	}
}

func TestBit64Findfirstsetfrom(t *testing.T) {
	b := Bit64(0).Setbit(3).Setbit(40)
	if x := b.Findfirstsetfrom(0); x != 3 {
		t.Errorf("expected %v, got %v", 3, x)
	} else if x = b.Findfirstsetfrom(4); x != 40 {
		t.Errorf("expected %v, got %v", 40, x)
	} else if x = b.Findfirstsetfrom(41); x != -1 {
		t.Errorf("expected %v, got %v", -1, x)
	}
}

func TestBit64SetClear(t *testing.T) {
	for i := uint8(0); i < 64; i++ {
		if x := Bit64(0).Setbit(i); x != Bit64(1)<<i {
			t.Errorf("expected %x, got %x", Bit64(1)<<i, x)
		}
		if x := (Bit64(1) << i).Clearbit(i); x != 0 {
			t.Errorf("expected %v, got %v", 0, x)
		}
		if (Bit64(1) << i).Isset(i) == false {
			t.Errorf("expected bit %v set", i)
		}
	}
}

func TestBit64Ones(t *testing.T) {
	if x := Bit64(0).Zeros(); x != 64 {
		t.Errorf("expected %v, got %v", 64, x)
	} else if x = Bit64(0xaaaaaaaaaaaaaaaa).Ones(); x != 32 {
		t.Errorf("expected %v, got %v", 32, x)
	}
}

func TestBit32Findset(t *testing.T) {
	if x := Bit32(0).Findfirstset(); x != -1 {
		t.Errorf("expected %v, got %v", -1, x)
	} else if x = Bit32(0x80000000).Findlastset(); x != 31 {
		t.Errorf("expected %v, got %v", 31, x)
	} else if x = Bit32(0x104).Findfirstset(); x != 2 {
		t.Errorf("expected %v, got %v", 2, x)
	}
}
