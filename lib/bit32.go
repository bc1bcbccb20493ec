package lib

import "math/bits"

// Bit32 alias for uint32, provides bit twiddling methods on 32-bit number.
type Bit32 uint32

func (b Bit32) Ones() int8 {
	b = b - ((b >> 1) & 0x55555555)
	b = (b & 0x33333333) + ((b >> 2) & 0x33333333)
	return int8((((b + (b >> 4)) & 0x0F0F0F0F) * 0x01010101) >> 24)
}

func (b Bit32) Zeros() int8 {
	return 32 - b.Ones()
}

// Findfirstset index of the least significant set bit, -1 when zero.
func (b Bit32) Findfirstset() int8 {
	if b == 0 {
		return -1
	}
	return int8(bits.TrailingZeros32(uint32(b)))
}

// Findlastset index of the most significant set bit, -1 when zero.
func (b Bit32) Findlastset() int8 {
	if b == 0 {
		return -1
	}
	return int8(bits.Len32(uint32(b)) - 1)
}

func (b Bit32) Setbit(i uint8) Bit32 {
	return b | (1 << i)
}

func (b Bit32) Clearbit(i uint8) Bit32 {
	return b & ^Bit32(1<<i)
}

func (b Bit32) Isset(i uint8) bool {
	return (b & (1 << i)) != 0
}
