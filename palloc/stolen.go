package palloc

import "unsafe"

// A bin that ran out of groups may steal whole locations from a
// larger class and sub-divide them. The victim location starts with a
// stolenLocation header followed by a series of variable-size ranges,
// each carrying its own four-byte header. A bit spin lock embedded in
// the position word serializes mutation, since owner and foreign
// threads both free into ranges.

// stolenLocation header at the front of a victim location. The
// position word holds the offset of the active range in its low
// sixteen bits; the top bit is the lock.
type stolenLocation struct {
	free     uint16
	_        uint16
	position bitSpinLock31
}

const stolenLocationSize = 8

// minStolenOverhead worst case of header, range header and alignment
// pre-pad; victims smaller than size+this cannot host a range.
const minStolenOverhead = stolenLocationSize + stolenRangeSize + 12

// stolenRange header of one run of equal-sized stolen locations.
// Layout of the packed word: bits 0..12 size, bits 13..14 the pre-pad
// in multiples of four, bit 15 the last-range flag.
type stolenRange struct {
	number uint8
	freed  uint8
	packed uint16
}

const stolenRangeSize = 4

func rangeat(p uintptr) *stolenRange {
	return (*stolenRange)(unsafe.Pointer(p))
}

func (r *stolenRange) addr() uintptr {
	return uintptr(unsafe.Pointer(r))
}

func (r *stolenRange) getSize() uint32 {
	return uint32(r.packed & 0x1FFF)
}

func (r *stolenRange) isLast() bool {
	return r.packed&0x8000 != 0
}

func (r *stolenRange) setLast() {
	r.packed |= 0x8000
}

func (r *stolenRange) resetLast() {
	r.packed &^= 0x8000
}

func (r *stolenRange) isEmpty() bool {
	return r.freed == r.number
}

func (r *stolenRange) prepad() uint32 {
	return uint32(r.packed&0x6000) >> 11
}

// size including header, pre-pad and every slot handed out so far.
func (r *stolenRange) extent() uintptr {
	return stolenRangeSize + uintptr(r.prepad()) +
		uintptr(r.getSize())*uintptr(r.number)
}

func createRange(r *stolenRange, size, prepad uint32) {
	r.number, r.freed = 0, 0
	r.packed = uint16(size) | uint16(prepad<<11) | 0x8000
}

// locationAlignment sizes multiple of sixteen align to sixteen bytes,
// the rest to eight.
func locationAlignment(size uint32) uintptr {
	if size&0xF == 0 {
		return 16
	}
	return 8
}

// rangePrepad bytes between the range header and its first slot so
// the slot lands on the alignment the size demands.
func rangePrepad(rangeAddr uintptr, size uint32) uint32 {
	align := locationAlignment(size)
	pos := rangeAddr + stolenRangeSize
	return uint32((pos+align-1)&^(align-1) - pos)
}

func allocateFromRange(r *stolenRange) uintptr {
	addr := r.addr() + r.extent()
	r.number++
	return addr
}

// initializeStolen lay out the header and the first range inside a
// freshly adopted victim location and hand out one slot.
func initializeStolen(loc uintptr, locationSize, size uint32) uintptr {
	st := (*stolenLocation)(unsafe.Pointer(loc))
	r := rangeat(loc + stolenLocationSize)
	createRange(r, size, rangePrepad(r.addr(), size))
	st.position.init(stolenLocationSize)
	st.free = uint16(locationSize) - uint16(size) -
		stolenLocationSize - uint16(r.extent())
	return allocateFromRange(r)
}

// stealLocation serve a smaller-class request out of this group. The
// active stolen location grows range by range; when it cannot fit the
// request another victim location is adopted, as long as the group
// stays steal-eligible.
func (g *group) stealLocation(size uint32, sorted bool) uintptr {
	if uint32(g.locationSize) < size+minStolenOverhead {
		return 0 // locations too small to carve
	}
	if g.stolen == 0 {
		loc := g.getLocation(sorted)
		if loc == 0 {
			return 0
		}
		g.stolen = loc
		return initializeStolen(loc, g.locationSize, size)
	}

	st := (*stolenLocation)(unsafe.Pointer(g.stolen))
	st.position.lock()
	if uint32(st.free) >= size {
		r := rangeat(g.stolen + uintptr(st.position.get()&0xFFFF))
		if r.getSize() == size && r.number < 255 {
			st.free -= uint16(size)
			addr := allocateFromRange(r)
			st.position.unlock()
			return addr
		}
		// A new range is needed, placed after the active one.
		offset := r.extent()
		nr := rangeat(r.addr() + offset)
		prepad := rangePrepad(nr.addr(), size)
		if uint32(st.free) >= size+stolenRangeSize+prepad {
			r.resetLast()
			createRange(nr, size, prepad)
			st.free -= uint16(size + stolenRangeSize + prepad)
			st.position.add(uint32(offset))
			addr := allocateFromRange(nr)
			st.position.unlock()
			return addr
		}
	}
	st.position.unlock()

	// The active location is exhausted; adopt another one.
	g.stolen = 0
	if g.canBeStolen() {
		return g.stealLocation(size, sorted)
	}
	return 0
}

// returnStolen free one slot of a stolen location, identified by an
// address that does not fall on a location boundary. Walks the range
// chain, rewinds the active offset past trailing empty ranges, and
// returns the victim location's address once every range is empty,
// zero otherwise.
func (g *group) returnStolen(addr uintptr) uintptr {
	start := addr - g.base() - smallGroupHeaderSize
	base := addr - start%uintptr(g.locationSize)
	st := (*stolenLocation)(unsafe.Pointer(base))

	st.position.lock()
	defer st.position.unlock()

	var prev, firstEmpty *stolenRange
	series := uintptr(0)
	cur := rangeat(base + stolenLocationSize)
	for {
		if prev != nil && prev.isEmpty() {
			series += prev.extent()
			if firstEmpty == nil {
				firstEmpty = prev
			}
		} else {
			firstEmpty, series = nil, 0
		}

		rstart, rend := cur.addr(), cur.addr()+cur.extent()
		if addr > rstart && addr < rend {
			cur.freed++
			if cur.isEmpty() && cur.isLast() {
				if firstEmpty != nil {
					// A series of empty ranges precedes this last
					// one; rewind the active offset to its start and
					// reuse it from scratch. The ranges past it turn
					// into dead space, so the reused one ends the
					// chain.
					st.free += uint16(cur.extent() + series)
					st.position.set(uint32(firstEmpty.addr() - base))
					firstEmpty.number, firstEmpty.freed = 0, 0
					firstEmpty.setLast()
					st.free -= stolenRangeSize + uint16(firstEmpty.prepad())
				} else if prev != nil {
					st.free += uint16(cur.extent())
					st.position.set(uint32(prev.addr() - base))
					prev.setLast()
				} else {
					// The only range; reuse it from scratch.
					st.free += uint16(cur.extent())
					cur.number, cur.freed = 0, 0
					st.free -= stolenRangeSize + uint16(cur.prepad())
				}
			}
			first := rangeat(base + stolenLocationSize)
			if st.position.get()&0xFFFF == stolenLocationSize && first.isEmpty() {
				return base // the whole victim location is free again
			}
			return 0
		}

		if cur.isLast() {
			return 0 // unreachable for well-formed addresses
		}
		prev = cur
		cur = rangeat(cur.addr() + cur.extent())
	}
}

// sizeOfLocation usable bytes behind an address of this group: the
// location size for ordinary locations, the range's slot size for
// stolen ones.
func (g *group) sizeOfLocation(addr uintptr) int64 {
	start := addr - g.base() - smallGroupHeaderSize
	if start%uintptr(g.locationSize) == 0 {
		return int64(g.locationSize)
	}
	base := addr - start%uintptr(g.locationSize)
	st := (*stolenLocation)(unsafe.Pointer(base))
	st.position.lock()
	defer st.position.unlock()
	cur := rangeat(base + stolenLocationSize)
	for {
		if addr > cur.addr() && addr < cur.addr()+cur.extent() {
			return int64(cur.getSize())
		}
		if cur.isLast() {
			return int64(g.locationSize)
		}
		cur = rangeat(cur.addr() + cur.extent())
	}
}
