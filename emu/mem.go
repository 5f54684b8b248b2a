package emu

import (
	"encoding/binary"

	emucore "github.com/user-none/eblitui/api"
)

const (
	ewramSize   = 0x40000 // 256KB external work RAM
	iwramSize   = 0x8000  // 32KB internal work RAM
	paletteSize = 0x400   // 1KB palette RAM
	vramBGSize  = 0x14000 // 80KB background VRAM (64KB tiles + 16KB bitmap tail)
	vramOBJSize = 0x8000  // 32KB object VRAM
	oamSize     = 0x400   // 1KB object attribute memory

	ewramBase   = 0x02000000
	iwramBase   = 0x03000000
	ioBase      = 0x04000000
	paletteBase = 0x05000000
	vramBase    = 0x06000000
	vramOBJBase = vramBase + 0x10000 + vramObjOffset
	oamBase     = 0x07000000
)

// Compile-time interface checks.
var _ emucore.MemoryInspector = (*Bus)(nil)
var _ emucore.MemoryMapper = (*Bus)(nil)

// Bus holds the guest's directly addressable memory and routes accesses by
// region. Guest addresses go through Translate before reaching the backing
// stores, so every mirror resolves to the same bytes.
//
// Canonical address map:
//
//	0x02000000-0x0203FFFF  external work RAM
//	0x03000000-0x03007FFF  internal work RAM
//	0x04000000-0x040003FF  I/O registers
//	0x05000000-0x050003FF  palette RAM
//	0x06000000-0x06013FFF  background VRAM
//	0x06400000-0x06407FFF  object VRAM
//	0x07000000-0x070003FF  OAM
//	0x08000000-0x0DFFFFFF  cartridge ROM (through the block cache)
type Bus struct {
	ewram   [ewramSize]byte
	iwram   [iwramSize]byte
	palette [paletteSize]byte
	vramBG  [vramBGSize]byte
	vramOBJ [vramOBJSize]byte
	oam     [oamSize]byte

	io  *IORegisters
	rom BlockCache

	// Value driven on the bus by reads from unmapped addresses.
	openBus func() uint32
}

// NewBus creates a Bus over the given register file and cartridge. rom may
// be nil when no cartridge is inserted.
func NewBus(io *IORegisters, rom BlockCache) *Bus {
	return &Bus{io: io, rom: rom}
}

// SetOpenBus sets the source of the open-bus value.
// Called after DMA creation due to circular construction dependency.
func (b *Bus) SetOpenBus(fn func() uint32) {
	b.openBus = fn
}

// Reset clears all RAM.
func (b *Bus) Reset() {
	b.ewram = [ewramSize]byte{}
	b.iwram = [iwramSize]byte{}
	b.palette = [paletteSize]byte{}
	b.vramBG = [vramBGSize]byte{}
	b.vramOBJ = [vramOBJSize]byte{}
	b.oam = [oamSize]byte{}
}

// Translate maps a guest address to its canonical address using the current
// display mode.
func (b *Bus) Translate(addr uint32) uint32 {
	var dispcnt uint16
	if b.io != nil {
		dispcnt = b.io.DISPCNT()
	}
	return Translate(addr, dispcnt)
}

// span returns the n host bytes backing a canonical address range, or nil
// if the range is not entirely inside one backing store.
func (b *Bus) span(canonical, n uint32) []byte {
	var mem []byte
	var off uint32
	switch regionOf(canonical) {
	case regionEWRAM:
		mem, off = b.ewram[:], canonical-ewramBase
	case regionIWRAM:
		mem, off = b.iwram[:], canonical-iwramBase
	case regionPalette:
		mem, off = b.palette[:], canonical-paletteBase
	case regionOAM:
		mem, off = b.oam[:], canonical-oamBase
	case regionVRAM:
		if canonical >= vramOBJBase {
			mem, off = b.vramOBJ[:], canonical-vramOBJBase
		} else {
			mem, off = b.vramBG[:], canonical-vramBase
		}
	default:
		return nil
	}
	if uint64(off)+uint64(n) > uint64(len(mem)) {
		return nil
	}
	return mem[off : off+n]
}

func isROM(addr uint32) bool {
	r := regionOf(addr)
	return r >= regionROM && r < regionSRAM
}

func isIO(addr uint32) bool {
	return addr >= ioBase && addr < ioBase+ioSize
}

func (b *Bus) openBusValue() uint32 {
	if b.openBus == nil {
		return 0
	}
	return b.openBus()
}

// romBytes returns the cached bytes starting at a ROM address, up to the end
// of its block.
func (b *Bus) romBytes(addr uint32) []byte {
	if b.rom == nil {
		var blk [ROMBlockSize]byte
		base := addr & romAddrMask &^ ROMBlockMask
		fillOpenBus(blk[:], base)
		return blk[addr&ROMBlockMask:]
	}
	return b.rom.Block(addr & romAddrMask)[addr&ROMBlockMask:]
}

// Read8 reads a byte from a guest address.
func (b *Bus) Read8(addr uint32) uint8 {
	switch {
	case isIO(addr):
		return b.io.Read8(addr - ioBase)
	case isROM(addr):
		return b.romBytes(addr)[0]
	}
	if s := b.span(b.Translate(addr), 1); s != nil {
		return s[0]
	}
	return uint8(b.openBusValue() >> ((addr & 3) * 8))
}

// Read16 reads a little-endian half-word from a guest address.
func (b *Bus) Read16(addr uint32) uint16 {
	addr &^= 1
	switch {
	case isIO(addr):
		return b.io.Read16(addr - ioBase)
	case isROM(addr):
		return binary.LittleEndian.Uint16(b.romBytes(addr))
	}
	if s := b.span(b.Translate(addr), 2); s != nil {
		return binary.LittleEndian.Uint16(s)
	}
	return uint16(b.openBusValue() >> ((addr & 2) * 8))
}

// Read32 reads a little-endian word from a guest address.
func (b *Bus) Read32(addr uint32) uint32 {
	addr &^= 3
	switch {
	case isIO(addr):
		return b.io.Read32(addr - ioBase)
	case isROM(addr):
		return binary.LittleEndian.Uint32(b.romBytes(addr))
	}
	if s := b.span(b.Translate(addr), 4); s != nil {
		return binary.LittleEndian.Uint32(s)
	}
	return b.openBusValue()
}

// Write8 writes a byte to a guest address. ROM and unmapped writes are
// ignored.
func (b *Bus) Write8(addr uint32, val uint8) {
	switch {
	case isIO(addr):
		b.io.Write8(addr-ioBase, val)
		return
	case isROM(addr):
		return
	}
	if s := b.span(b.Translate(addr), 1); s != nil {
		s[0] = val
	}
}

// Write16 writes a little-endian half-word to a guest address.
func (b *Bus) Write16(addr uint32, val uint16) {
	addr &^= 1
	switch {
	case isIO(addr):
		b.io.Write16(addr-ioBase, val)
		return
	case isROM(addr):
		return
	}
	if s := b.span(b.Translate(addr), 2); s != nil {
		binary.LittleEndian.PutUint16(s, val)
	}
}

// Write32 writes a little-endian word to a guest address.
func (b *Bus) Write32(addr uint32, val uint32) {
	addr &^= 3
	switch {
	case isIO(addr):
		b.io.Write32(addr-ioBase, val)
		return
	case isROM(addr):
		return
	}
	if s := b.span(b.Translate(addr), 4); s != nil {
		binary.LittleEndian.PutUint32(s, val)
	}
}

// mapped reports whether reads from addr reach a device.
func (b *Bus) mapped(addr uint32) bool {
	if isIO(addr) || isROM(addr) {
		return true
	}
	return b.span(b.Translate(addr), 1) != nil
}

// ReadMemory reads guest memory starting at addr into buf and returns the
// number of bytes read. Reading stops at the first unmapped address.
func (b *Bus) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		if !b.mapped(cur) {
			return count
		}
		buf[i] = b.Read8(cur)
		count++
	}
	return count
}

// MemoryMap returns the inspectable memory regions. System RAM is internal
// work RAM followed by external work RAM.
func (b *Bus) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: iwramSize + ewramSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (b *Bus) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		out := make([]byte, 0, iwramSize+ewramSize)
		out = append(out, b.iwram[:]...)
		return append(out, b.ewram[:]...)
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (b *Bus) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		n := copy(b.iwram[:], data)
		if n < len(data) {
			copy(b.ewram[:], data[n:])
		}
	}
}
