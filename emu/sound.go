package emu

import (
	"sync"
	"sync/atomic"
)

const (
	fifoSize = 32

	// A drain request is raised once the FIFO holds this many bytes or fewer.
	fifoRefillLevel = 16

	// DefaultSampleRate is the direct-sound playback rate used when none is
	// configured.
	DefaultSampleRate = 32768
)

// DrainSignal is the audio side's view of the FIFO refill handshake. The
// audio producer runs on its own clock; DrainRequested must observe its
// latest store and AcknowledgeDrain must be visible to it before it next
// checks the flag.
type DrainSignal interface {
	DrainRequested(fifo int) bool
	AcknowledgeDrain(fifo int)
}

var _ DrainSignal = (*Sound)(nil)

// directFIFO is one direct-sound sample FIFO.
type directFIFO struct {
	mu      sync.Mutex
	buf     [fifoSize]int8
	head    int
	n       int
	played  []int8
	request atomic.Bool
}

// Sound holds the two direct-sound FIFOs fed by DMA channels 1 and 2.
type Sound struct {
	fifos [2]directFIFO
}

// NewSound creates empty FIFOs with no drain request pending.
func NewSound() *Sound {
	return &Sound{}
}

// Reset empties both FIFOs and clears their requests.
func (s *Sound) Reset() {
	for i := range s.fifos {
		f := &s.fifos[i]
		f.mu.Lock()
		f.head, f.n = 0, 0
		f.played = nil
		f.mu.Unlock()
		f.request.Store(false)
	}
}

// push appends bytes written to a FIFO register. Bytes beyond capacity are
// dropped.
func (s *Sound) push(idx int, data []byte) {
	f := &s.fifos[idx]
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range data {
		if f.n == fifoSize {
			return
		}
		f.buf[(f.head+f.n)%fifoSize] = int8(b)
		f.n++
	}
}

// Drain plays up to count samples from a FIFO and returns how many were
// played. It is the audio producer's side of the handshake and may run on a
// different goroutine from the DMA engine.
func (s *Sound) Drain(idx int, count int) int {
	f := &s.fifos[idx]
	f.mu.Lock()
	played := 0
	for played < count && f.n > 0 {
		f.played = append(f.played, f.buf[f.head])
		f.head = (f.head + 1) % fifoSize
		f.n--
		played++
	}
	low := f.n <= fifoRefillLevel
	f.mu.Unlock()

	if low {
		f.request.Store(true)
	}
	return played
}

// Level returns the number of bytes queued in a FIFO.
func (s *Sound) Level(idx int) int {
	f := &s.fifos[idx]
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Samples returns a copy of every sample played from a FIFO so far.
func (s *Sound) Samples(idx int) []int8 {
	f := &s.fifos[idx]
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int8, len(f.played))
	copy(out, f.played)
	return out
}

// DrainRequested implements DrainSignal.
func (s *Sound) DrainRequested(idx int) bool {
	return s.fifos[idx].request.Load()
}

// AcknowledgeDrain implements DrainSignal.
func (s *Sound) AcknowledgeDrain(idx int) {
	s.fifos[idx].request.Store(false)
}
