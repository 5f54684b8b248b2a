package emu

const numChannels = 4

const (
	// Count used by channel 3 when its count register holds 0.
	maxCountChannel3 = 0x10000

	// Words moved into a sound FIFO per drain request.
	soundWords = 4
)

// trigger selects what an external event does to a channel.
type trigger uint8

const (
	triggerInactive trigger = iota
	triggerImmediateDone
	triggerHBlank16
	triggerHBlank32
	triggerAudio
)

// ChannelState is the externally visible state of a DMA channel.
type ChannelState int

const (
	StateIdle ChannelState = iota
	StateImmediate
	StateBlankingArmed
	StateAudioArmed
)

func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateImmediate:
		return "immediate"
	case StateBlankingArmed:
		return "hblank"
	case StateAudioArmed:
		return "audio"
	default:
		return "unknown"
	}
}

// Channel holds the live cursors of one DMA unit. The register-visible
// addresses live in the I/O register file; the cursors advance independently
// of them.
type Channel struct {
	curSrc  uint32
	curDst  uint32
	handler trigger

	// Set while the channel is moving data. A transfer that stores into a
	// control register must not restart a channel that is mid-transfer.
	busy bool
}

func hblankFlag(ch int) uint32 { return 1 << ch }
func audioFlag(ch int) uint32  { return 1 << (4 + ch) }

const (
	hblankFlagMask = 0x0F
	audioFlagMask  = 0xF0
)

// DISPSTAT bit the guest sets to receive h-blank interrupts itself.
const dispstatHBlankIRQ = 1 << 4

// DisplayControl is the display subsystem's h-blank interrupt switch.
type DisplayControl interface {
	SetHBlankIRQEnabled(on bool)
}

// CodeInvalidator drops any cached translation of guest code. A DMA control
// write may remap memory the recompiler has cached.
type CodeInvalidator interface {
	InvalidateCode()
}

// DMA is the four-channel DMA controller.
type DMA struct {
	channels [numChannels]Channel

	// Per channel: bit ch = armed for h-blank, bit 4+ch = armed for audio.
	flags uint32

	// Last value moved by any transfer; read back as open bus.
	transferRegister uint32

	bus     *Bus
	io      *IORegisters
	irq     InterruptController
	display DisplayControl
	audio   DrainSignal
	code    CodeInvalidator
}

// NewDMA creates an initialized DMA controller.
func NewDMA(bus *Bus, io *IORegisters, irq InterruptController, display DisplayControl, audio DrainSignal) *DMA {
	d := &DMA{
		bus:     bus,
		io:      io,
		irq:     irq,
		display: display,
		audio:   audio,
	}
	d.Init()
	return d
}

// SetCodeInvalidator sets the hook run before every control write.
func (d *DMA) SetCodeInvalidator(c CodeInvalidator) {
	d.code = c
}

// Init returns every channel to idle with zeroed cursors.
func (d *DMA) Init() {
	d.channels = [numChannels]Channel{}
	d.flags = 0
	d.transferRegister = 0
}

// TransferRegister returns the last value moved by a transfer. 16-bit
// transfers leave the half-word in both halves.
func (d *DMA) TransferRegister() uint32 {
	return d.transferRegister
}

// Cursors returns a channel's current source and destination.
func (d *DMA) Cursors(ch int) (src, dst uint32) {
	c := &d.channels[ch]
	return c.curSrc, c.curDst
}

// State returns a channel's current state.
func (d *DMA) State(ch int) ChannelState {
	switch d.channels[ch].handler {
	case triggerImmediateDone:
		return StateImmediate
	case triggerHBlank16, triggerHBlank32:
		return StateBlankingArmed
	case triggerAudio:
		return StateAudioArmed
	default:
		return StateIdle
	}
}

// WriteControlAt handles a 16-bit store to the control register at the
// given guest address. Stores to any other address are ignored.
func (d *DMA) WriteControlAt(regAddr uint32, value uint16) {
	if !isIO(regAddr) {
		return
	}
	if ch, ok := controlChannel(regAddr - ioBase); ok {
		d.WriteControl(ch, value)
	}
}

// WriteControl handles a 16-bit store to a channel's control register.
func (d *DMA) WriteControl(ch int, value uint16) {
	if d.code != nil {
		d.code.InvalidateCode()
	}

	old := d.io.dmaControl(ch)
	v := dmaControl(value)
	switch {
	case d.channels[ch].busy, (old^v)&ctrlEnable == 0:
		d.io.setDMAControl(ch, v)
	case !v.enabled():
		d.io.setDMAControl(ch, v)
		d.stop(ch)
	default:
		d.start(ch, v)
	}
}

func (d *DMA) stop(ch int) {
	d.flags &^= hblankFlag(ch) | audioFlag(ch)
	d.channels[ch].handler = triggerInactive
	d.releaseHBlank()
	d.releaseAudio()
}

// releaseHBlank drops the shared h-blank requirement once no channel holds
// it. The host interrupt stays on if the guest asked for h-blank IRQs.
func (d *DMA) releaseHBlank() {
	if d.flags&hblankFlagMask != 0 {
		return
	}
	d.irq.SetForced(ForcedHBlank, false)
	if d.io.DISPSTAT()&dispstatHBlankIRQ == 0 {
		d.display.SetHBlankIRQEnabled(false)
	}
}

func (d *DMA) releaseAudio() {
	if d.flags&audioFlagMask == 0 {
		d.irq.SetForced(ForcedAudio, false)
	}
}

// sourceDisallowed reports whether a triggered channel may not read from
// src: the cartridge alias window and cartridge space itself.
func sourceDisallowed(src uint32) bool {
	return (src >= romAliasStart && src < romAliasEnd) || src >= romBase
}

func (d *DMA) start(ch int, v dmaControl) {
	d.io.setDMAControl(ch, v&^ctrlEnable)
	if v.drq() {
		return
	}
	switch v.timing() {
	case timingVBlank:
		// Run by the v-blank coordinator, not by this controller.
		d.io.setDMAControl(ch, v)
		return
	case timingHBlank:
		d.startHBlank(ch, v)
		return
	case timingSpecial:
		d.startSpecial(ch, v)
		return
	}
	d.startImmediate(ch, v)
}

func (d *DMA) startImmediate(ch int, v dmaControl) {
	count := d.io.dmaCount(ch)
	if count == 0 && ch == 3 {
		count = maxCountChannel3
	}
	src := d.io.dmaSource(ch)
	if src >= romAliasStart && src < romAliasEnd {
		src = src + romBase - romAliasStart
	}
	dst := d.io.dmaDest(ch)

	if v.irq() {
		d.irq.Request(IRQDMA0 << ch)
	}

	size := elementSize(v.word32())
	srcStep, dstStep := v.srcStep(), v.dstStep()
	c := &d.channels[ch]
	c.curSrc = advance(src, srcStep, count, size)
	if v.dstControl() == addrReload {
		c.curDst = dst
	} else {
		c.curDst = advance(dst, dstStep, count, size)
	}
	if v.repeat() {
		d.io.setDMAControl(ch, v)
		c.handler = triggerImmediateDone
	} else {
		c.handler = triggerInactive
	}

	// A full-length channel 3 copy must not hold off time-critical
	// interrupts.
	if ch == 3 {
		d.irq.EnableNested()
	}
	d.transferFor(ch, src, dst, count, srcStep, dstStep, v.word32())
	if ch == 3 {
		d.irq.DisableNested()
	}
}

func (d *DMA) startHBlank(ch int, v dmaControl) {
	src := d.io.dmaSource(ch)
	if sourceDisallowed(src) {
		return
	}
	d.io.setDMAControl(ch, v)
	d.flags |= hblankFlag(ch)
	d.irq.SetForced(ForcedHBlank, true)
	d.display.SetHBlankIRQEnabled(true)

	c := &d.channels[ch]
	c.curSrc = src
	c.curDst = d.io.dmaDest(ch)
	if v.word32() {
		c.handler = triggerHBlank32
	} else {
		c.handler = triggerHBlank16
	}
}

func (d *DMA) startSpecial(ch int, v dmaControl) {
	if sourceDisallowed(d.io.dmaSource(ch)) {
		return
	}
	switch ch {
	case 1, 2:
		d.startAudio(ch, v)
	default:
		// Channel 3 video capture is not emulated; channel 0 has no
		// special timing.
	}
}

func (d *DMA) startAudio(ch int, v dmaControl) {
	d.io.setDMAControl(ch, v)
	d.flags |= audioFlag(ch)
	d.irq.SetForced(ForcedAudio, true)

	c := &d.channels[ch]
	c.curSrc = d.io.dmaSource(ch)
	c.curDst = d.io.dmaDest(ch)
	c.handler = triggerAudio
	d.audio.AcknowledgeDrain(ch - 1)
}

// Trigger runs whatever an external event means for one channel.
func (d *DMA) Trigger(ch int) {
	switch d.channels[ch].handler {
	case triggerHBlank16:
		d.blankingTransfer(ch, false)
	case triggerHBlank32:
		d.blankingTransfer(ch, true)
	case triggerAudio:
		d.audioTransfer(ch)
	}
}

// HBlank triggers every channel armed for h-blank, in priority order.
func (d *DMA) HBlank() {
	for ch := 0; ch < numChannels; ch++ {
		switch d.channels[ch].handler {
		case triggerHBlank16, triggerHBlank32:
			d.Trigger(ch)
		}
	}
}

// ServiceAudio triggers the audio-armed channels. Each one moves data only
// if the audio side has raised its drain request.
func (d *DMA) ServiceAudio() {
	for ch := 1; ch <= 2; ch++ {
		if d.channels[ch].handler == triggerAudio {
			d.Trigger(ch)
		}
	}
}

func (d *DMA) blankingTransfer(ch int, word32 bool) {
	count := d.io.dmaCount(ch)
	if ch == 3 && count == 0 {
		count = maxCountChannel3
	}
	ctrl := d.io.dmaControl(ch)
	size := elementSize(word32)
	c := &d.channels[ch]

	srcStep := ctrl.srcStep()
	src := c.curSrc
	c.curSrc = advance(src, srcStep, count, size)

	dstStep := ctrl.dstStep()
	var dst uint32
	if ctrl.dstControl() != addrReload {
		dst = c.curDst
		c.curDst = advance(dst, dstStep, count, size)
	} else {
		dst = d.io.dmaDest(ch)
		c.curDst = dst
	}

	if ctrl.irq() {
		d.irq.Request(IRQDMA0 << ch)
	}
	if !ctrl.repeat() {
		c.handler = triggerInactive
		d.flags &^= hblankFlag(ch)
		d.releaseHBlank()
		d.io.setDMAControl(ch, ctrl&^ctrlEnable)
	}
	d.transferFor(ch, src, dst, count, srcStep, dstStep, word32)
}

func (d *DMA) audioTransfer(ch int) {
	fifo := ch - 1
	if !d.audio.DrainRequested(fifo) {
		return
	}

	ctrl := d.io.dmaControl(ch)
	c := &d.channels[ch]
	src := c.curSrc
	srcStep := ctrl.srcStep()
	if src >= minDMASource {
		c.curSrc = advance(src, srcStep, soundWords, 4)
		c.busy = true
		d.transferSafe(src, c.curDst, soundWords, srcStep, 0, 4)
		c.busy = false
	}

	d.audio.AcknowledgeDrain(fifo)

	if ctrl.irq() {
		d.irq.Request(IRQDMA0 << ch)
	}
	if !ctrl.repeat() {
		c.handler = triggerInactive
		d.flags &^= audioFlag(ch)
		d.releaseAudio()
		d.io.setDMAControl(ch, ctrl&^ctrlEnable)
	}
}

// transferFor runs a transfer on behalf of channel ch. Control stores the
// transfer makes to ch itself are only recorded.
func (d *DMA) transferFor(ch int, src, dst, count uint32, srcStep, dstStep int, word32 bool) {
	c := &d.channels[ch]
	c.busy = true
	d.transfer(src, dst, count, srcStep, dstStep, word32)
	c.busy = false
}

func elementSize(word32 bool) uint32 {
	if word32 {
		return 4
	}
	return 2
}

// advance moves addr by count elements of size bytes in direction step.
func advance(addr uint32, step int, count, size uint32) uint32 {
	return addr + uint32(int64(step)*int64(count)*int64(size))
}
