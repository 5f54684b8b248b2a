package emu

import "encoding/binary"

// Regions the bulk copier may read from and write to.
const (
	fastDestRegions   = 1<<regionEWRAM | 1<<regionIWRAM | 1<<regionPalette | 1<<regionVRAM | 1<<regionOAM
	fastSourceRegions = fastDestRegions | 0x3F<<regionROM
)

// The bulk copier moves data forward in chunks of this many bytes. Source
// and destination closer than this must be copied element by element.
const copyChunk = 32

func fastSourceAllowed(region uint32) bool {
	return region < 32 && fastSourceRegions&(1<<region) != 0
}

func fastDestAllowed(region uint32) bool {
	return region < 32 && fastDestRegions&(1<<region) != 0
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// fastPathEligible decides whether a transfer of count elements of size
// bytes can be moved as one linear run. The bulk copier assumes a forward,
// non-overlapping run that translates linearly and stays inside one region.
func (d *DMA) fastPathEligible(src, dst, count uint32, srcStep, dstStep int, size uint32) bool {
	if count == 0 || srcStep <= 0 {
		return false
	}
	// A decrementing run can only translate linearly by wrapping a mirror.
	if dstStep < 0 && count > 1 {
		return false
	}

	stride := (count - 1) * size
	dsDst := d.bus.Translate(dst)
	dsDstEnd := d.bus.Translate(advance(dst, dstStep, count-1, size))
	if dsDstEnd != dsDst+stride {
		return false
	}

	srcRegion := regionOf(src)
	if !fastSourceAllowed(srcRegion) || !fastDestAllowed(regionOf(dst)) {
		return false
	}
	if regionOf(src+count*size) != srcRegion {
		return false
	}
	if absDiff(dst, src) < copyChunk {
		return false
	}

	if isROM(src) {
		return true
	}
	// Mirrors can hide overlap and wrap points from the raw addresses.
	dsSrc := d.bus.Translate(src)
	if d.bus.Translate(src+stride) != dsSrc+stride {
		return false
	}
	return absDiff(dsDst, dsSrc) >= copyChunk
}

// transfer moves count elements from src to dst. It updates the transfer
// register but never touches channel cursors.
func (d *DMA) transfer(src, dst, count uint32, srcStep, dstStep int, word32 bool) {
	size := elementSize(word32)
	src &^= size - 1
	dst &^= size - 1
	if count == 0 {
		return
	}
	if src < minDMASource {
		d.transferBadSource(dst, count, dstStep, size)
		return
	}
	if !d.fastPathEligible(src, dst, count, srcStep, dstStep, size) {
		d.transferSafe(src, dst, count, srcStep, dstStep, size)
		return
	}

	n := count * size
	dstSpan := d.bus.span(d.bus.Translate(dst), n)
	if dstSpan == nil {
		d.transferSafe(src, dst, count, srcStep, dstStep, size)
		return
	}
	if isROM(src) {
		d.copyFromROM(src, dstSpan, size)
	} else {
		srcSpan := d.bus.span(d.bus.Translate(src), n)
		if srcSpan == nil {
			d.transferSafe(src, dst, count, srcStep, dstStep, size)
			return
		}
		memCopy(dstSpan, srcSpan, size)
	}

	last := dstSpan[n-size:]
	if size == 4 {
		d.transferRegister = binary.LittleEndian.Uint32(last)
	} else {
		v := uint32(binary.LittleEndian.Uint16(last))
		d.transferRegister = v | v<<16
	}
}

// copyFromROM stages cartridge data through the block cache, one block at
// a time.
func (d *DMA) copyFromROM(src uint32, dst []byte, size uint32) {
	for len(dst) > 0 {
		blk := d.bus.romBytes(src)
		n := len(blk)
		if n > len(dst) {
			n = len(dst)
		}
		memCopy(dst[:n], blk[:n], size)
		src += uint32(n)
		dst = dst[n:]
	}
}

// memCopy copies src to dst front to back in fixed chunks. Both lengths are
// multiples of size. When the two runs overlap by at least one chunk the
// result matches an element-by-element forward copy.
func memCopy(dst, src []byte, size uint32) {
	n := len(src) &^ int(size-1)
	for off := 0; off < n; off += copyChunk {
		end := off + copyChunk
		if end > n {
			end = n
		}
		copy(dst[off:end], src[off:end])
	}
}

// transferSafe moves count elements one at a time through the bus,
// translating every address. It handles any step, overlap and region.
func (d *DMA) transferSafe(src, dst, count uint32, srcStep, dstStep int, size uint32) {
	src &^= size - 1
	dst &^= size - 1
	srcDelta := uint32(int64(srcStep) * int64(size))
	dstDelta := uint32(int64(dstStep) * int64(size))
	for i := uint32(0); i < count; i++ {
		if size == 4 {
			v := d.bus.Read32(src)
			d.bus.Write32(dst, v)
			d.transferRegister = v
		} else {
			v := d.bus.Read16(src)
			d.bus.Write16(dst, v)
			d.transferRegister = uint32(v) | uint32(v)<<16
		}
		src += srcDelta
		dst += dstDelta
	}
}

// transferBadSource runs a transfer whose source is open bus. Every
// destination element receives the current transfer register, which is
// left unchanged.
func (d *DMA) transferBadSource(dst, count uint32, dstStep int, size uint32) {
	dst &^= size - 1
	dstDelta := uint32(int64(dstStep) * int64(size))
	v := d.transferRegister
	for i := uint32(0); i < count; i++ {
		if size == 4 {
			d.bus.Write32(dst, v)
		} else {
			d.bus.Write16(dst, uint16(v))
		}
		dst += dstDelta
	}
}
