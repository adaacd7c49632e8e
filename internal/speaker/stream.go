// Package speaker sends scheduled voices to real audio outputs.
package speaker

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/synth"
)

const bytesPerFrame = 2 // 16-bit mono

// stream is the clock and mixer behind a callback-driven device. The clock
// only advances as frames are pulled by the device.
type stream struct {
	rate    int
	frames  atomic.Int64
	mixer   synth.Mixer
	scratch []float64

	mu    sync.Mutex
	state player.State
}

func newStream(sampleRate int) *stream {
	return &stream{rate: sampleRate, state: player.StateSuspended}
}

func (s *stream) CurrentTime() float64 {
	return float64(s.frames.Load()) / float64(s.rate)
}

func (s *stream) State() player.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stream) setState(st player.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *stream) Schedule(v player.Voice) error {
	if s.State() == player.StateClosed {
		return player.ErrNoAudio
	}
	s.mixer.Add(v)
	return nil
}

// fill renders frameCount frames of S16LE mono into out and advances the
// clock.
func (s *stream) fill(out []byte, frameCount uint32) {
	n := int(frameCount)
	if cap(s.scratch) < n {
		s.scratch = make([]float64, n)
	}
	buf := s.scratch[:n]
	clear(buf)

	start := s.frames.Load()
	t0 := float64(start) / float64(s.rate)
	s.mixer.Mix(buf, t0, s.rate)
	for i, v := range buf {
		if (i+1)*bytesPerFrame > len(out) {
			break
		}
		v = math.Max(-1, math.Min(1, v))
		binary.LittleEndian.PutUint16(out[i*bytesPerFrame:], uint16(int16(math.Round(v*math.MaxInt16))))
	}
	s.frames.Store(start + int64(n))
	s.mixer.Prune(float64(start+int64(n)) / float64(s.rate))
}
