// Package tone maps text to sound-code tone sequences.
//
// Every supported character has exactly one Descriptor in a fixed,
// process-wide table. Encoding walks the input in order, folds each rune to
// upper case and keeps the descriptors of the runes the table knows about.
// Anything else is dropped without a placeholder.
package tone

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Waveform is the oscillator shape used to sound a descriptor.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Triangle Waveform = "triangle"
	Sawtooth Waveform = "sawtooth"
)

// ParseWaveform accepts a waveform name in any case. An empty name is sine.
func ParseWaveform(name string) (Waveform, error) {
	w := Waveform(strings.ToLower(strings.TrimSpace(name)))
	if w == "" {
		return Sine, nil
	}
	if !w.Valid() {
		return "", fmt.Errorf("unknown waveform %q", name)
	}
	return w, nil
}

// Valid reports whether w is one of the four oscillator shapes.
func (w Waveform) Valid() bool {
	switch w {
	case Sine, Square, Triangle, Sawtooth:
		return true
	}
	return false
}

// Descriptor is one unit of sound. Frequency 0 is silence; a non-positive
// Duration is skipped by players.
type Descriptor struct {
	Frequency int      `json:"Frequency"`
	Duration  int      `json:"Duration"`
	Waveform  Waveform `json:"Waveform"`
}

// Silent reports whether d consumes time without sounding.
func (d Descriptor) Silent() bool { return d.Frequency == 0 }

// Skipped reports whether players ignore d entirely.
func (d Descriptor) Skipped() bool { return d.Duration <= 0 }

// Sequence is an ordered list of descriptors, one per mappable character.
type Sequence []Descriptor

// MarshalJSON encodes the sequence as a flat array; an empty or nil
// sequence is "[]".
func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Descriptor(s))
}

