package emu

// Interrupt source bits in IE/IF.
const (
	IRQVBlank uint16 = 1 << 0
	IRQHBlank uint16 = 1 << 1
	IRQDMA0   uint16 = 1 << 8
)

// Forced interrupt bits. While a bit is set the host keeps the matching
// interrupt source unmasked regardless of the guest's IE.
const (
	ForcedHBlank uint32 = 1 << 1
	ForcedAudio  uint32 = 1 << 16
)

// InterruptController is the part of the interrupt controller the DMA
// engine drives.
type InterruptController interface {
	// Request marks interrupt sources as pending.
	Request(bits uint16)
	// SetForced sets or clears bits of the forced interrupt mask.
	SetForced(mask uint32, on bool)
	// EnableNested allows pending interrupts to be serviced while the
	// current handler is still running.
	EnableNested()
	// DisableNested restores the nesting policy in effect before the
	// matching EnableNested.
	DisableNested()
}

var _ InterruptController = (*IRQ)(nil)

// IRQ holds the emulated interrupt state.
type IRQ struct {
	ie     uint16
	ifl    uint16
	ime    bool
	forced uint32
	nested int

	// Highest nesting depth reached since the last Reset.
	maxNested int
}

// NewIRQ creates an interrupt controller with everything masked.
func NewIRQ() *IRQ {
	return &IRQ{}
}

// Reset clears all interrupt state.
func (i *IRQ) Reset() {
	*i = IRQ{}
}

// Request implements InterruptController.
func (i *IRQ) Request(bits uint16) {
	i.ifl |= bits
}

// Acknowledge clears the given pending bits, as a guest write to IF does.
func (i *IRQ) Acknowledge(bits uint16) {
	i.ifl &^= bits
}

// Pending returns the IF register.
func (i *IRQ) Pending() uint16 {
	return i.ifl
}

// Asserted reports whether an enabled interrupt is pending and the master
// enable is set.
func (i *IRQ) Asserted() bool {
	return i.ime && i.ie&i.ifl != 0
}

// SetForced implements InterruptController.
func (i *IRQ) SetForced(mask uint32, on bool) {
	if on {
		i.forced |= mask
	} else {
		i.forced &^= mask
	}
}

// Forced reports whether any bit of mask is set in the forced mask.
func (i *IRQ) Forced(mask uint32) bool {
	return i.forced&mask != 0
}

// EnableNested implements InterruptController.
func (i *IRQ) EnableNested() {
	i.nested++
	if i.nested > i.maxNested {
		i.maxNested = i.nested
	}
}

// DisableNested implements InterruptController.
func (i *IRQ) DisableNested() {
	if i.nested > 0 {
		i.nested--
	}
}

// NestedEnabled reports whether nested interrupt delivery is open.
func (i *IRQ) NestedEnabled() bool {
	return i.nested > 0
}
