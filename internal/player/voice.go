package player

import (
	"math"

	"github.com/loqalabs/soundcode/internal/tone"
)

const (
	// PeakGain is the level a voice ramps up to after its attack.
	PeakGain = 0.7
	// Attack is the fade-in length in seconds.
	Attack = 0.010
	// Release is how long before the stop time the fade-out ends, in seconds.
	Release = 0.010
)

// GainPoint is one automation event on a voice's gain. A point with Ramp
// set ramps linearly from the previous event to Value at Time; otherwise
// the gain jumps to Value at Time.
type GainPoint struct {
	Time  float64
	Value float64
	Ramp  bool
}

// Voice is a single oscillator scheduled on an audio clock. Times are in
// seconds of device time.
type Voice struct {
	Waveform  tone.Waveform
	Frequency float64
	Start     float64
	Stop      float64
	Gain      []GainPoint
}

// NewVoice builds the voice for an audible descriptor starting at start.
// It sounds for half of the nominal duration.
func NewVoice(d tone.Descriptor, start float64) Voice {
	stop := start + halfSeconds(d.Duration)
	attackEnd := math.Min(start+Attack, stop)
	releaseEnd := math.Max(stop-Release, attackEnd)
	wave := d.Waveform
	if wave == "" {
		wave = tone.Sine
	}
	return Voice{
		Waveform:  wave,
		Frequency: float64(d.Frequency),
		Start:     start,
		Stop:      stop,
		Gain: []GainPoint{
			{Time: start, Value: 0},
			{Time: attackEnd, Value: PeakGain, Ramp: true},
			{Time: releaseEnd, Value: 0, Ramp: true},
		},
	}
}

// Length is the sounding time of the voice in seconds.
func (v Voice) Length() float64 { return v.Stop - v.Start }

// GainAt evaluates the gain automation at time t. Outside [Start, Stop)
// the voice is silent.
func (v Voice) GainAt(t float64) float64 {
	if t < v.Start || t >= v.Stop {
		return 0
	}
	prevT, prevV := v.Start, 1.0
	for _, p := range v.Gain {
		if t < p.Time {
			if !p.Ramp || p.Time <= prevT {
				return prevV
			}
			return prevV + (p.Value-prevV)*(t-prevT)/(p.Time-prevT)
		}
		prevT, prevV = p.Time, p.Value
	}
	return prevV
}

func seconds(ms int) float64 { return float64(ms) / 1000 }

func halfSeconds(ms int) float64 { return float64(ms) / 2 / 1000 }
