package emu

import (
	"runtime"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestSound_PushDropsWhenFull(t *testing.T) {
	s := NewSound()
	s.push(0, make([]byte, 40))
	if got := s.Level(0); got != fifoSize {
		t.Errorf("expected level %d, got %d", fifoSize, got)
	}
}

func TestSound_DrainRequestThreshold(t *testing.T) {
	s := NewSound()
	data := make([]byte, fifoSize)
	for i := range data {
		data[i] = byte(i)
	}
	s.push(0, data)

	if n := s.Drain(0, 8); n != 8 {
		t.Errorf("expected 8 played, got %d", n)
	}
	if s.DrainRequested(0) {
		t.Error("expected no request with 24 bytes queued")
	}

	s.Drain(0, 8)
	if !s.DrainRequested(0) {
		t.Error("expected request at refill level")
	}
	if s.DrainRequested(1) {
		t.Error("expected FIFO B unaffected")
	}

	s.AcknowledgeDrain(0)
	if s.DrainRequested(0) {
		t.Error("expected request cleared")
	}

	played := s.Samples(0)
	if len(played) != 16 {
		t.Fatalf("expected 16 samples, got %d", len(played))
	}
	for i, v := range played {
		if v != int8(i) {
			t.Errorf("sample %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestSound_DrainEmpty(t *testing.T) {
	s := NewSound()
	if n := s.Drain(1, 4); n != 0 {
		t.Errorf("expected 0 played, got %d", n)
	}
	if !s.DrainRequested(1) {
		t.Error("expected request from empty FIFO")
	}
}

func TestSound_Reset(t *testing.T) {
	s := NewSound()
	s.push(1, []byte{1, 2, 3})
	s.Drain(1, 3)
	s.Reset()
	if s.Level(1) != 0 || len(s.Samples(1)) != 0 || s.DrainRequested(1) {
		t.Error("expected empty FIFO after reset")
	}
}

// TestSound_ConcurrentRefill runs the drain side and the refill side on
// separate goroutines, the way the audio thread and the DMA engine do.
func TestSound_ConcurrentRefill(t *testing.T) {
	const total = 4096
	src := make([]byte, total)
	for i := range src {
		src[i] = byte(i*31 + i>>4)
	}

	s := NewSound()
	var g errgroup.Group

	g.Go(func() error {
		sent := 0
		for sent < total {
			if !s.DrainRequested(0) {
				runtime.Gosched()
				continue
			}
			s.AcknowledgeDrain(0)
			// Only this goroutine fills the FIFO, so the free space can only
			// grow between the check and the push.
			n := fifoSize - s.Level(0)
			if n > soundWords*4 {
				n = soundWords * 4
			}
			if n > total-sent {
				n = total - sent
			}
			s.push(0, src[sent:sent+n])
			sent += n
		}
		return nil
	})

	g.Go(func() error {
		played := 0
		for played < total {
			played += s.Drain(0, 3)
			runtime.Gosched()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	got := s.Samples(0)
	if len(got) != total {
		t.Fatalf("expected %d samples, got %d", total, len(got))
	}
	for i := range got {
		if got[i] != int8(src[i]) {
			t.Fatalf("sample %d: expected %d, got %d", i, int8(src[i]), got[i])
		}
	}
}
