package emu

const (
	// CPUClockHz is the system clock.
	CPUClockHz = 16777216
	// CyclesPerScanline is the length of one scanline in CPU cycles.
	CyclesPerScanline = 1232
)

// Options configures a System.
type Options struct {
	// Cartridge data. May be nil.
	ROM BlockCache
	// Direct-sound playback rate in Hz. Zero selects DefaultSampleRate.
	SampleRate int
}

// System wires the DMA controller to the memory bus and the collaborators
// that trigger it.
type System struct {
	Bus     *Bus
	IO      *IORegisters
	IRQ     *IRQ
	Display *Display
	Sound   *Sound
	DMA     *DMA

	sampleRate int
	sampleAcc  int
}

// NewSystem creates and initializes all components.
func NewSystem(opts Options) *System {
	rate := opts.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	irq := NewIRQ()
	sound := NewSound()
	io := NewIORegisters(irq, sound)
	bus := NewBus(io, opts.ROM)
	display := NewDisplay(io, irq)
	dma := NewDMA(bus, io, irq, display, sound)
	io.SetDMA(dma)
	bus.SetOpenBus(dma.TransferRegister)

	return &System{
		Bus:        bus,
		IO:         io,
		IRQ:        irq,
		Display:    display,
		Sound:      sound,
		DMA:        dma,
		sampleRate: rate,
	}
}

// Reset clears memory, registers and DMA state.
func (s *System) Reset() {
	s.Bus.Reset()
	s.IO.regs = [ioSize]byte{}
	s.IRQ.Reset()
	s.Display.Reset()
	s.Sound.Reset()
	s.DMA.Init()
	s.sampleAcc = 0
}

// RunFrame steps one frame of scanlines.
func (s *System) RunFrame() {
	for line := 0; line < TotalScanlines; line++ {
		s.RunScanline(line)
	}
}

// RunScanline steps one scanline: h-blank DMA on visible lines, then the
// audio side for the scanline's worth of samples.
func (s *System) RunScanline(line int) {
	s.Display.StartScanline(line)
	if s.Display.EnterHBlank() {
		s.DMA.HBlank()
	}

	s.sampleAcc += s.sampleRate * CyclesPerScanline
	samples := s.sampleAcc / CPUClockHz
	s.sampleAcc %= CPUClockHz
	for i := 0; i < 2; i++ {
		s.Sound.Drain(i, samples)
	}
	s.ServiceAudio()
}

// ServiceAudio runs audio DMA while the forced audio interrupt is asserted.
func (s *System) ServiceAudio() {
	if s.IRQ.Forced(ForcedAudio) {
		s.DMA.ServiceAudio()
	}
}
