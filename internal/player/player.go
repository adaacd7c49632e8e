// Package player schedules tone sequences on an audio clock.
//
// A Player walks a sequence once, keeping a cursor on the context's clock.
// Silences move the cursor by their full duration, audible tones are
// scheduled for half of their nominal duration and move the cursor by that
// half, and descriptors with a non-positive duration are ignored. Play
// returns as soon as every voice is scheduled; the context sounds them on
// its own clock.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/loqalabs/soundcode/internal/tone"
)

// ErrNoAudio is returned when there is no usable audio output.
var ErrNoAudio = errors.New("audio output is not available")

// State mirrors the lifecycle of an audio context.
type State string

const (
	StateRunning   State = "running"
	StateSuspended State = "suspended"
	StateClosed    State = "closed"
)

// Context is an audio output with its own monotonic clock.
type Context interface {
	// CurrentTime is the device clock in seconds.
	CurrentTime() float64
	State() State
	// Resume starts a suspended context. It may return before the device
	// is actually running.
	Resume() error
	Schedule(v Voice) error
}

// Flusher is implemented by contexts that only play once a whole batch of
// voices has been scheduled.
type Flusher interface {
	Flush() error
}

// Extender is implemented by contexts whose output length follows the
// cursor, so that trailing silences are kept. Extend is called with the
// final cursor before any Flush.
type Extender interface {
	Extend(end float64)
}

// Summary describes one scheduling pass.
type Summary struct {
	Voices   int
	Silences int
	Skipped  int
	// Start and End are the cursor positions, in device seconds, before the
	// first and after the last descriptor.
	Start float64
	End   float64
}

// Span is how much device time the pass occupies.
func (s Summary) Span() time.Duration {
	return time.Duration((s.End - s.Start) * float64(time.Second))
}

type Player struct {
	ctx Context
	log *slog.Logger
}

func New(ctx Context, log *slog.Logger) *Player {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Player{ctx: ctx, log: log}
}

// Play schedules seq on the player's context and returns without waiting
// for playback.
func (p *Player) Play(seq tone.Sequence) (Summary, error) {
	if isNil(p.ctx) {
		return Summary{}, ErrNoAudio
	}
	switch p.ctx.State() {
	case StateClosed:
		return Summary{}, fmt.Errorf("%w: context closed", ErrNoAudio)
	case StateSuspended:
		if err := p.ctx.Resume(); err != nil {
			p.log.Warn("audio context resume failed", slog.String("error", err.Error()))
		}
	}

	cursor := p.ctx.CurrentTime()
	sum := Summary{Start: cursor}
	for i, d := range seq {
		switch {
		case d.Skipped():
			sum.Skipped++
		case d.Silent():
			cursor += seconds(d.Duration)
			sum.Silences++
		default:
			v := NewVoice(d, cursor)
			if err := p.ctx.Schedule(v); err != nil {
				sum.End = cursor
				return sum, fmt.Errorf("schedule tone %d: %w", i, err)
			}
			cursor = v.Stop
			sum.Voices++
		}
	}
	sum.End = cursor

	if e, ok := p.ctx.(Extender); ok {
		e.Extend(cursor)
	}
	if f, ok := p.ctx.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return sum, fmt.Errorf("flush audio context: %w", err)
		}
	}
	return sum, nil
}

// Span computes the device time Play would occupy for seq.
func Span(seq tone.Sequence) time.Duration {
	var total time.Duration
	for _, d := range seq {
		switch {
		case d.Skipped():
		case d.Silent():
			total += time.Duration(d.Duration) * time.Millisecond
		default:
			total += time.Duration(d.Duration) * time.Millisecond / 2
		}
	}
	return total
}

func isNil(ctx Context) bool {
	if ctx == nil {
		return true
	}
	v := reflect.ValueOf(ctx)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
