package synth

import (
	"math"
	"sync"

	"github.com/loqalabs/soundcode/internal/player"
)

// Mixer sums scheduled voices into sample frames. It is safe for use from an
// audio callback while voices are being added.
type Mixer struct {
	mu     sync.Mutex
	voices []player.Voice
}

func (m *Mixer) Add(v player.Voice) {
	m.mu.Lock()
	m.voices = append(m.voices, v)
	m.mu.Unlock()
}

func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Voices returns a copy of the pending voices.
func (m *Mixer) Voices() []player.Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]player.Voice(nil), m.voices...)
}

// End is the latest stop time of any pending voice.
func (m *Mixer) End() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := 0.0
	for _, v := range m.voices {
		if v.Stop > end {
			end = v.Stop
		}
	}
	return end
}

// Mix adds len(dst) mono frames starting at device time start into dst.
func (m *Mixer) Mix(dst []float64, start float64, sampleRate int) {
	if sampleRate <= 0 || len(dst) == 0 {
		return
	}
	rate := float64(sampleRate)
	step := 1 / rate
	end := start + float64(len(dst))*step

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voices {
		if v.Stop <= start || v.Start >= end {
			continue
		}
		// Only the frames inside the voice; GainAt is zero elsewhere.
		first := max(0, int(math.Floor((v.Start-start)*rate)))
		last := min(len(dst), int(math.Ceil((v.Stop-start)*rate))+1)
		for i := first; i < last; i++ {
			t := start + float64(i)*step
			g := v.GainAt(t)
			if g == 0 {
				continue
			}
			dst[i] += g * Oscillate(v.Waveform, v.Frequency*(t-v.Start))
		}
	}
}

// Prune drops voices that have stopped by time t and reports how many
// remain.
func (m *Mixer) Prune(t float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.voices[:0]
	for _, v := range m.voices {
		if v.Stop > t {
			kept = append(kept, v)
		}
	}
	clear(m.voices[len(kept):])
	m.voices = kept
	return len(kept)
}
