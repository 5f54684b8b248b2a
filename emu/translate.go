package emu

// Guest memory regions, selected by the high byte of an address.
const (
	regionBIOS    = 0x0
	regionEWRAM   = 0x2
	regionIWRAM   = 0x3
	regionIO      = 0x4
	regionPalette = 0x5
	regionVRAM    = 0x6
	regionOAM     = 0x7
	regionROM     = 0x8 // 0x8-0xD, three wait-state mirrors
	regionSRAM    = 0xE
)

const (
	// Lowest address a DMA may read from. Anything below is open bus.
	minDMASource = 0x02000000

	// Start of cartridge space.
	romBase = 0x08000000

	// Reserved EWRAM window that the program may use to express a
	// pc-relative cartridge reference.
	romAliasStart = 0x02200000
	romAliasEnd   = 0x02400000

	// Offset applied to the object half of VRAM when it is not part of the
	// bitmap background.
	vramObjOffset = 0x003F0000
)

// regionOf returns the region selector of a guest address.
func regionOf(addr uint32) uint32 {
	return addr >> 24
}

// Translate maps a guest address onto its canonical mirrored address.
//
// Work RAM, internal RAM, palette and OAM mirrors collapse onto their first
// copy. VRAM folds its 128 KiB window onto 96 KiB; the upper 32 KiB lands in
// the object bank unless the display is in a bitmap mode (3-5), where the
// first 16 KiB of it remains background memory. Every other region passes
// through unchanged.
func Translate(addr uint32, dispcnt uint16) uint32 {
	switch regionOf(addr) {
	case regionEWRAM:
		addr &^= 0x00FC0000
	case regionIWRAM:
		addr &^= 0x00FF8000
	case regionPalette, regionOAM:
		addr &^= 0x00FFFC00
	case regionVRAM:
		addr &^= 0x00FE0000
		if addr&0x10000 == 0 {
			break
		}
		addr &^= 0x8000
		if addr&0x4000 != 0 || !bitmapMode(dispcnt) {
			addr += vramObjOffset
		}
	}
	return addr
}

// bitmapMode reports whether DISPCNT selects one of the bitmap modes.
func bitmapMode(dispcnt uint16) bool {
	return dispcnt&7 >= 3
}
