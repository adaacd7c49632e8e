package tone

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHI(t *testing.T) {
	got := Encode("HI!")
	want := Sequence{
		{Frequency: 330, Duration: 200, Waveform: Sine},
		{Frequency: 349, Duration: 200, Waveform: Sine},
		{Frequency: 1150, Duration: 120, Waveform: Triangle},
	}
	assert.Equal(t, want, got)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"Frequency":330,"Duration":200,"Waveform":"sine"},
		{"Frequency":349,"Duration":200,"Waveform":"sine"},
		{"Frequency":1150,"Duration":120,"Waveform":"triangle"}
	]`, string(data))
}

func TestEncodeEmpty(t *testing.T) {
	for _, seq := range []Sequence{Encode(""), EncodeOptional(nil)} {
		require.NotNil(t, seq)
		assert.Empty(t, seq)
		data, err := json.Marshal(seq)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	}

	var nilSeq Sequence
	data, err := json.Marshal(nilSeq)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEncodeCaseInsensitive(t *testing.T) {
	want := Encode("ABC")
	assert.Equal(t, want, Encode("abc"))
	assert.Equal(t, want, Encode("AbC"))
}

func TestEncodeDropsUnknown(t *testing.T) {
	seq, tally := EncodeTally("A#B")
	require.Len(t, seq, 2)
	a, _ := Lookup('A')
	b, _ := Lookup('B')
	assert.Equal(t, Sequence{a, b}, seq)
	assert.Equal(t, Tally{Characters: 3, Tones: 2, Dropped: 1}, tally)
}

func TestEncodeLengthBound(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"Ünïcödé ☃ text",
		"#&*()[]{}",
		"The quick brown fox, 1234567890!",
		strings.Repeat("z?", 50),
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			seq := Encode(in)
			n := utf8.RuneCountInString(in)
			assert.LessOrEqual(t, len(seq), n)

			all := true
			for _, r := range in {
				if _, ok := Lookup(r); !ok {
					all = false
				}
			}
			assert.Equal(t, all, len(seq) == n)
			assert.Equal(t, seq, Encode(in), "encoding must be deterministic")
		})
	}
}

func TestSpaceIsSilence(t *testing.T) {
	d, ok := Lookup(' ')
	require.True(t, ok)
	assert.True(t, d.Silent())
	assert.Positive(t, d.Duration)
}

func TestAlphabet(t *testing.T) {
	chars := Alphabet()
	assert.Len(t, chars, 26+10+1+9)
	for _, r := range `ABCXYZ0189 .,?!%$@"'` {
		assert.Contains(t, chars, r)
	}
	for _, r := range chars {
		d, ok := Lookup(r)
		require.True(t, ok)
		assert.True(t, d.Waveform.Valid())
		assert.GreaterOrEqual(t, d.Frequency, 0)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	d, _ := Lookup('A')
	d.Frequency = 1
	again, _ := Lookup('A')
	assert.Equal(t, 165, again.Frequency)
}

