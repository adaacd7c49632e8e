// Package synth renders scheduled voices into PCM audio.
package synth

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/loqalabs/soundcode/internal/player"
)

const (
	DefaultSampleRate = 44100
	// MaxDuration bounds a single render in seconds.
	MaxDuration  = 600
	bitDepth     = 16
	maxInt16     = 32767
	wavFormatPCM = 1
)

// ErrTooLong is returned when the scheduled audio exceeds MaxDuration.
var ErrTooLong = errors.New("render exceeds maximum duration")

// Offline is an audio context with a virtual clock that starts at zero and
// never advances on its own. Voices are collected and rendered on demand.
type Offline struct {
	mixer Mixer
	end   float64
}

func NewOffline() *Offline {
	return &Offline{}
}

func (o *Offline) CurrentTime() float64 { return 0 }

func (o *Offline) State() player.State { return player.StateRunning }

func (o *Offline) Resume() error { return nil }

func (o *Offline) Schedule(v player.Voice) error {
	o.mixer.Add(v)
	return nil
}

// Extend keeps the render running until at least end, so trailing silences
// survive.
func (o *Offline) Extend(end float64) {
	if end > o.end {
		o.end = end
	}
}

// Voices returns the voices scheduled so far.
func (o *Offline) Voices() []player.Voice { return o.mixer.Voices() }

// Duration is the length of the rendered audio in seconds: the later of the
// last voice stop and the player's final cursor.
func (o *Offline) Duration() float64 { return math.Max(o.mixer.End(), o.end) }

// Samples renders the scheduled voices as float samples in [-1, 1].
func (o *Offline) Samples(sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if d := o.Duration(); d > MaxDuration {
		return nil, fmt.Errorf("%w: %.1fs > %ds", ErrTooLong, d, MaxDuration)
	}
	frames := int(math.Ceil(o.Duration() * float64(sampleRate)))
	out := make([]float64, frames)
	o.mixer.Mix(out, 0, sampleRate)
	for i, s := range out {
		out[i] = math.Max(-1, math.Min(1, s))
	}
	return out, nil
}

// Render produces 16-bit mono PCM.
func (o *Offline) Render(sampleRate int) (*audio.IntBuffer, error) {
	samples, err := o.Samples(sampleRate)
	if err != nil {
		return nil, err
	}
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(s * maxInt16))
	}
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}, nil
}

// WriteWAV renders the voices and writes them to w as a WAV file.
func (o *Offline) WriteWAV(w io.WriteSeeker, sampleRate int) error {
	buf, err := o.Render(sampleRate)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
