package emu

import "math"

// DefaultLowPassHz approximates the console's analog output filter.
const DefaultLowPassHz = 8000.0

// lowPassAlpha is the smoothing factor for a first-order RC low-pass filter.
// Derived from: alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
func lowPassAlpha(rate int, cutoffHz float64) float64 {
	return 1.0 / (float64(rate)/(2*math.Pi*cutoffHz) + 1)
}

// MixPCM16 mixes everything played from both direct-sound FIFOs into mono
// 16-bit PCM at full volume. A positive cutoff runs the mix through a
// first-order RC low-pass filter.
func (s *Sound) MixPCM16(rate int, cutoffHz float64) []int16 {
	a, b := s.Samples(0), s.Samples(1)
	out := make([]int16, max(len(a), len(b)))
	for i := range out {
		var v int32
		if i < len(a) {
			v += int32(a[i]) << 8
		}
		if i < len(b) {
			v += int32(b[i]) << 8
		}
		out[i] = int16(clampInt32(v, -32768, 32767))
	}
	if cutoffHz > 0 && rate > 0 {
		applyLowPass(out, lowPassAlpha(rate, cutoffHz))
	}
	return out
}

// applyLowPass filters buf in place, starting from silence.
func applyLowPass(buf []int16, alpha float64) {
	var prev float64
	for i, v := range buf {
		prev = alpha*float64(v) + (1-alpha)*prev
		buf[i] = int16(math.Round(prev))
	}
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
