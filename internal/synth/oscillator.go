package synth

import (
	"math"

	"github.com/loqalabs/soundcode/internal/tone"
)

// Oscillate returns the value of waveform w at the given phase, measured in
// cycles. Every shape starts at zero and rises, like a Web Audio oscillator.
func Oscillate(w tone.Waveform, phase float64) float64 {
	_, p := math.Modf(phase)
	if p < 0 {
		p++
	}
	switch w {
	case tone.Square:
		if p < 0.5 {
			return 1
		}
		return -1
	case tone.Sawtooth:
		q := p + 0.5
		if q >= 1 {
			q--
		}
		return 2*q - 1
	case tone.Triangle:
		q := p + 0.25
		if q >= 1 {
			q--
		}
		return 1 - 4*math.Abs(q-0.5)
	default:
		return math.Sin(2 * math.Pi * p)
	}
}
