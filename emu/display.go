package emu

const (
	ScreenWidth    = 240
	ScreenHeight   = 160
	TotalScanlines = 228
)

// DISPSTAT bits.
const (
	dispstatVBlank    = 1 << 0
	dispstatHBlank    = 1 << 1
	dispstatVBlankIRQ = 1 << 3
)

var _ DisplayControl = (*Display)(nil)

// Display tracks scanline position and the host h-blank interrupt. It does
// not render.
type Display struct {
	io        *IORegisters
	irq       *IRQ
	hblankIRQ bool
	line      int
}

// NewDisplay creates a display that reports status through io and raises
// guest interrupts on irq.
func NewDisplay(io *IORegisters, irq *IRQ) *Display {
	return &Display{io: io, irq: irq}
}

// Reset returns to line 0 with the host h-blank interrupt off.
func (d *Display) Reset() {
	d.hblankIRQ = false
	d.line = 0
}

// SetHBlankIRQEnabled implements DisplayControl.
func (d *Display) SetHBlankIRQEnabled(on bool) {
	d.hblankIRQ = on
}

// HBlankIRQEnabled reports whether the host h-blank interrupt is enabled.
func (d *Display) HBlankIRQEnabled() bool {
	return d.hblankIRQ
}

// Line returns the current scanline.
func (d *Display) Line() int {
	return d.line
}

// StartScanline updates VCOUNT and the v-blank flag for a new line.
func (d *Display) StartScanline(line int) {
	d.line = line
	d.io.setRaw16(regVCOUNT, uint16(line))

	stat := d.io.DISPSTAT() &^ (dispstatVBlank | dispstatHBlank)
	vblank := line >= ScreenHeight && line < TotalScanlines-1
	if vblank {
		stat |= dispstatVBlank
	}
	d.io.setRaw16(regDISPSTAT, stat)

	if line == ScreenHeight && stat&dispstatVBlankIRQ != 0 {
		d.irq.Request(IRQVBlank)
	}
}

// EnterHBlank sets the h-blank flag, raises the guest h-blank interrupt if
// enabled, and reports whether h-blank DMA should run on this line.
func (d *Display) EnterHBlank() bool {
	stat := d.io.DISPSTAT() | dispstatHBlank
	d.io.setRaw16(regDISPSTAT, stat)
	if stat&dispstatHBlankIRQ != 0 {
		d.irq.Request(IRQHBlank)
	}
	return d.hblankIRQ && d.line < ScreenHeight
}
