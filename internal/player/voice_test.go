package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loqalabs/soundcode/internal/tone"
)

func TestNewVoiceEnvelope(t *testing.T) {
	v := NewVoice(tone.Descriptor{Frequency: 330, Duration: 200, Waveform: tone.Sine}, 1)
	want := []GainPoint{
		{Time: 1, Value: 0},
		{Time: 1.01, Value: PeakGain, Ramp: true},
		{Time: 1.09, Value: 0, Ramp: true},
	}
	assert.Len(t, v.Gain, len(want))
	for i, p := range want {
		assert.InDelta(t, p.Time, v.Gain[i].Time, 1e-12)
		assert.Equal(t, p.Value, v.Gain[i].Value)
		assert.Equal(t, p.Ramp, v.Gain[i].Ramp)
	}

	assert.Zero(t, v.GainAt(0.5))
	assert.Zero(t, v.GainAt(1))
	assert.InDelta(t, 0.35, v.GainAt(1.005), 1e-9)
	assert.InDelta(t, PeakGain, v.GainAt(1.01), 1e-9)
	assert.InDelta(t, 0.35, v.GainAt(1.05), 1e-9)
	assert.Zero(t, v.GainAt(1.095))
	assert.Zero(t, v.GainAt(1.1))
}

func TestNewVoiceShortToneClampsEnvelope(t *testing.T) {
	v := NewVoice(tone.Descriptor{Frequency: 440, Duration: 20}, 0)
	assert.InDelta(t, 0.01, v.Stop, 1e-12)
	for i := 1; i < len(v.Gain); i++ {
		assert.GreaterOrEqual(t, v.Gain[i].Time, v.Gain[i-1].Time)
		assert.LessOrEqual(t, v.Gain[i].Time, v.Stop)
	}
	assert.Equal(t, tone.Sine, v.Waveform)
}
