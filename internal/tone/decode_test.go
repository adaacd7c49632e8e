package tone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	seq := Encode("Sound code 42!")
	data, err := json.Marshal(seq)
	require.NoError(t, err)

	got, err := DecodeSequence(data)
	require.NoError(t, err)
	assert.Equal(t, seq, got)
}

func TestDecodeLenientValues(t *testing.T) {
	got, err := DecodeSequence([]byte(`[
		{"Frequency":440,"Duration":100,"Waveform":"SQUARE"},
		{"Frequency":220,"Duration":-1,"Waveform":null},
		{"Frequency":0,"Duration":50,"Waveform":""}
	]`))
	require.NoError(t, err)
	assert.Equal(t, Sequence{
		{Frequency: 440, Duration: 100, Waveform: Square},
		{Frequency: 220, Duration: -1, Waveform: Sine},
		{Frequency: 0, Duration: 50, Waveform: Sine},
	}, got)
}

func TestDecodeEmptyArray(t *testing.T) {
	got, err := DecodeSequence([]byte(" [] "))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{`,
		"object":            `{"Frequency":1}`,
		"null":              `null`,
		"empty":             ``,
		"missing duration":  `[{"Frequency":440,"Waveform":"sine"}]`,
		"missing waveform":  `[{"Frequency":440,"Duration":100}]`,
		"lowercase field":   `[{"frequency":440,"Duration":100,"Waveform":"sine"}]`,
		"null frequency":    `[{"Frequency":null,"Duration":100,"Waveform":"sine"}]`,
		"fractional":        `[{"Frequency":440.5,"Duration":100,"Waveform":"sine"}]`,
		"negative freq":     `[{"Frequency":-1,"Duration":100,"Waveform":"sine"}]`,
		"unknown waveform":  `[{"Frequency":440,"Duration":100,"Waveform":"noise"}]`,
		"string frequency":  `[{"Frequency":"440","Duration":100,"Waveform":"sine"}]`,
		"null record":       `[null]`,
		"second bad record": `[{"Frequency":440,"Duration":100,"Waveform":"sine"},{"Frequency":1}]`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			seq, err := DecodeSequence([]byte(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedSequence)
			assert.Nil(t, seq)
		})
	}
}

func TestParseWaveform(t *testing.T) {
	w, err := ParseWaveform(" Sawtooth ")
	require.NoError(t, err)
	assert.Equal(t, Sawtooth, w)

	_, err = ParseWaveform("pulse")
	assert.Error(t, err)
}
