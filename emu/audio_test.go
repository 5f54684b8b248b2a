package emu

import (
	"math"
	"testing"
)

func TestLowPass_StepResponse(t *testing.T) {
	alpha := lowPassAlpha(DefaultSampleRate, DefaultLowPassHz)
	buf := make([]int16, 32)
	for i := range buf {
		buf[i] = 1000
	}

	applyLowPass(buf, alpha)

	// First sample: alpha * 1000 + (1-alpha) * 0
	expected0 := int16(math.Round(alpha * 1000))
	if buf[0] != expected0 {
		t.Errorf("sample 0: got %d, want %d", buf[0], expected0)
	}
	for i := 1; i < len(buf); i++ {
		if buf[i] < buf[i-1] {
			t.Errorf("sample %d (%d) < sample %d (%d): expected monotonic ramp", i, buf[i], i-1, buf[i-1])
			break
		}
	}
	if buf[len(buf)-1] < 990 {
		t.Errorf("expected convergence near 1000, got %d", buf[len(buf)-1])
	}
}

func TestLowPass_Silence(t *testing.T) {
	buf := make([]int16, 64)
	applyLowPass(buf, lowPassAlpha(DefaultSampleRate, DefaultLowPassHz))
	for i, v := range buf {
		if v != 0 {
			t.Errorf("sample %d: got %d, want 0", i, v)
			break
		}
	}
}

func TestMixPCM16_Unfiltered(t *testing.T) {
	s := NewSound()
	s.push(0, []byte{0x7F, 0x80, 0x01})
	s.push(1, []byte{0x7F, 0x80})
	s.Drain(0, 3)
	s.Drain(1, 2)

	got := s.MixPCM16(DefaultSampleRate, 0)
	want := []int16{32767, -32768, 256}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMixPCM16_Filtered(t *testing.T) {
	s := NewSound()
	s.push(0, []byte{0x40, 0x40, 0x40, 0x40})
	s.Drain(0, 4)

	got := s.MixPCM16(DefaultSampleRate, DefaultLowPassHz)
	if got[0] <= 0 || got[0] >= 0x4000 {
		t.Errorf("expected first sample attenuated, got %d", got[0])
	}
	if got[3] <= got[0] {
		t.Errorf("expected ramp toward 0x4000, got %d then %d", got[0], got[3])
	}
}

func TestClampInt32(t *testing.T) {
	if clampInt32(40000, -32768, 32767) != 32767 {
		t.Error("expected upper clamp")
	}
	if clampInt32(-40000, -32768, 32767) != -32768 {
		t.Error("expected lower clamp")
	}
	if clampInt32(5, -32768, 32767) != 5 {
		t.Error("expected value unchanged")
	}
}
