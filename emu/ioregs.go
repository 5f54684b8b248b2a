package emu

import "encoding/binary"

const ioSize = 0x400

// I/O register offsets relative to 0x04000000.
const (
	regDISPCNT  = 0x000
	regDISPSTAT = 0x004
	regVCOUNT   = 0x006
	regFIFOA    = 0x0A0
	regFIFOB    = 0x0A4
	regDMA0SAD  = 0x0B0
	regIE       = 0x200
	regIF       = 0x202
	regIME      = 0x208
)

// dmaRegStride is the distance between two channels' register blocks.
const dmaRegStride = 0x0C

// dmaRegs names the four registers of one DMA channel.
type dmaRegs struct {
	sad  uint32 // source address, 32-bit
	dad  uint32 // destination address, 32-bit
	cnt  uint32 // word count, 16-bit
	ctrl uint32 // control, 16-bit
}

var dmaRegTable = [numChannels]dmaRegs{
	{sad: 0x0B0, dad: 0x0B4, cnt: 0x0B8, ctrl: 0x0BA},
	{sad: 0x0BC, dad: 0x0C0, cnt: 0x0C4, ctrl: 0x0C6},
	{sad: 0x0C8, dad: 0x0CC, cnt: 0x0D0, ctrl: 0x0D2},
	{sad: 0x0D4, dad: 0x0D8, cnt: 0x0DC, ctrl: 0x0DE},
}

// Address control values shared by source and destination fields.
const (
	addrIncrement = 0
	addrDecrement = 1
	addrFixed     = 2
	addrReload    = 3 // destination: increment+reload; source: prohibited
)

// Start timing values.
const (
	timingImmediate = 0
	timingVBlank    = 1
	timingHBlank    = 2
	timingSpecial   = 3
)

// stepTable converts an address control value into an element step.
var stepTable = [4]int{1, -1, 0, 1}

// dmaControl is a DMAxCNT_H value.
//
//	bits 5-6   destination address control
//	bits 7-8   source address control
//	bit  9     repeat
//	bit  10    32-bit transfer
//	bit  11    game pak DRQ
//	bits 12-13 start timing
//	bit  14    IRQ on completion
//	bit  15    enable
type dmaControl uint16

const (
	ctrlRepeat dmaControl = 1 << 9
	ctrlWord32 dmaControl = 1 << 10
	ctrlDRQ    dmaControl = 1 << 11
	ctrlIRQ    dmaControl = 1 << 14
	ctrlEnable dmaControl = 1 << 15
)

func (c dmaControl) dstControl() int { return int(c>>5) & 3 }
func (c dmaControl) srcControl() int { return int(c>>7) & 3 }
func (c dmaControl) timing() int     { return int(c>>12) & 3 }
func (c dmaControl) repeat() bool    { return c&ctrlRepeat != 0 }
func (c dmaControl) word32() bool    { return c&ctrlWord32 != 0 }
func (c dmaControl) drq() bool       { return c&ctrlDRQ != 0 }
func (c dmaControl) irq() bool       { return c&ctrlIRQ != 0 }
func (c dmaControl) enabled() bool   { return c&ctrlEnable != 0 }
func (c dmaControl) srcStep() int    { return stepTable[c.srcControl()] }
func (c dmaControl) dstStep() int    { return stepTable[c.dstControl()] }

// controlWriter receives stores to a DMA control register.
type controlWriter interface {
	WriteControl(channel int, value uint16)
}

// IORegisters is the byte-addressable I/O register file. Most registers are
// plain storage; DMA control, interrupt and sound FIFO registers are routed
// to their owners.
type IORegisters struct {
	regs  [ioSize]byte
	dma   controlWriter
	irq   *IRQ
	sound *Sound
}

// NewIORegisters creates a register file wired to the interrupt controller
// and sound FIFOs. Either may be nil.
func NewIORegisters(irq *IRQ, sound *Sound) *IORegisters {
	return &IORegisters{irq: irq, sound: sound}
}

// SetDMA sets the receiver of DMA control register stores.
// Called after DMA creation due to circular construction dependency.
func (io *IORegisters) SetDMA(dma controlWriter) {
	io.dma = dma
}

// controlChannel returns the channel whose control register lives at off.
func controlChannel(off uint32) (int, bool) {
	if off < regDMA0SAD || off >= regDMA0SAD+numChannels*dmaRegStride {
		return 0, false
	}
	if (off-regDMA0SAD)%dmaRegStride != dmaRegTable[0].ctrl-regDMA0SAD {
		return 0, false
	}
	return int((off - regDMA0SAD) / dmaRegStride), true
}

// Read8 reads a register byte.
func (io *IORegisters) Read8(off uint32) uint8 {
	v := io.Read16(off &^ 1)
	return uint8(v >> ((off & 1) * 8))
}

// Read16 reads a register half-word.
func (io *IORegisters) Read16(off uint32) uint16 {
	off &= ioSize - 2
	if off == regIF && io.irq != nil {
		return io.irq.Pending()
	}
	return io.raw16(off)
}

// Read32 reads a register word.
func (io *IORegisters) Read32(off uint32) uint32 {
	off &^= 3
	return uint32(io.Read16(off)) | uint32(io.Read16(off+2))<<16
}

// Write8 writes a register byte. Byte stores to DMA control and interrupt
// registers are merged into the current half-word and routed like a
// half-word store. A byte store to IF acknowledges only the bits it sets.
func (io *IORegisters) Write8(off uint32, val uint8) {
	off &= ioSize - 1
	half := off &^ 1
	shift := (off & 1) * 8
	if _, ok := controlChannel(half); ok || half == regIE || half == regIME {
		cur := io.raw16(half)
		cur = cur&^(0xFF<<shift) | uint16(val)<<shift
		io.Write16(half, cur)
		return
	}
	if half == regIF {
		io.Write16(regIF, uint16(val)<<shift)
		return
	}
	if off&^3 == regFIFOA || off&^3 == regFIFOB {
		if io.sound != nil {
			io.sound.push(fifoIndex(off), []byte{val})
		}
		return
	}
	io.regs[off] = val
}

// Write16 writes a register half-word.
func (io *IORegisters) Write16(off uint32, val uint16) {
	off &= ioSize - 2
	if ch, ok := controlChannel(off); ok && io.dma != nil {
		io.dma.WriteControl(ch, val)
		return
	}
	switch off &^ 2 {
	case regFIFOA, regFIFOB:
		if io.sound != nil {
			io.sound.push(fifoIndex(off), []byte{uint8(val), uint8(val >> 8)})
		}
		return
	}
	switch off {
	case regIF:
		if io.irq != nil {
			io.irq.Acknowledge(val)
		}
		return
	case regIE:
		if io.irq != nil {
			io.irq.ie = val
		}
	case regIME:
		if io.irq != nil {
			io.irq.ime = val&1 != 0
		}
	}
	io.setRaw16(off, val)
}

// Write32 writes a register word.
func (io *IORegisters) Write32(off uint32, val uint32) {
	off &= ioSize - 4
	switch off {
	case regFIFOA, regFIFOB:
		if io.sound != nil {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], val)
			io.sound.push(fifoIndex(off), b[:])
		}
		return
	}
	io.Write16(off, uint16(val))
	io.Write16(off+2, uint16(val>>16))
}

func fifoIndex(off uint32) int {
	if off&^3 == regFIFOB {
		return 1
	}
	return 0
}

func (io *IORegisters) raw16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(io.regs[off:])
}

func (io *IORegisters) setRaw16(off uint32, val uint16) {
	binary.LittleEndian.PutUint16(io.regs[off:], val)
}

func (io *IORegisters) raw32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(io.regs[off:])
}

// DISPCNT returns the display control register.
func (io *IORegisters) DISPCNT() uint16 {
	return io.raw16(regDISPCNT)
}

// DISPSTAT returns the display status register.
func (io *IORegisters) DISPSTAT() uint16 {
	return io.raw16(regDISPSTAT)
}

func (io *IORegisters) dmaSource(ch int) uint32 {
	return io.raw32(dmaRegTable[ch].sad)
}

func (io *IORegisters) dmaDest(ch int) uint32 {
	return io.raw32(dmaRegTable[ch].dad)
}

func (io *IORegisters) dmaCount(ch int) uint32 {
	return uint32(io.raw16(dmaRegTable[ch].cnt))
}

func (io *IORegisters) dmaControl(ch int) dmaControl {
	return dmaControl(io.raw16(dmaRegTable[ch].ctrl))
}

func (io *IORegisters) setDMAControl(ch int, c dmaControl) {
	io.setRaw16(dmaRegTable[ch].ctrl, uint16(c))
}
