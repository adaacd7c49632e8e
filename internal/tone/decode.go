package tone

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedSequence is returned when a transported sequence cannot be
// decoded in full. Callers must not play any part of it.
var ErrMalformedSequence = errors.New("malformed tone sequence")

var jsonNull = []byte("null")

// DecodeSequence parses the flat JSON array produced by Sequence.MarshalJSON.
// Field names are matched exactly and all three must be present on every
// record. A null Waveform means sine.
func DecodeSequence(data []byte) (Sequence, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedSequence)
	}
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSequence, err)
	}
	seq := make(Sequence, 0, len(records))
	for i, rec := range records {
		d, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedSequence, i, err)
		}
		seq = append(seq, d)
	}
	return seq, nil
}

func decodeRecord(rec map[string]json.RawMessage) (Descriptor, error) {
	if rec == nil {
		return Descriptor{}, errors.New("record is not an object")
	}
	var d Descriptor
	freq, err := intField(rec, "Frequency")
	if err != nil {
		return d, err
	}
	if freq < 0 {
		return d, fmt.Errorf("Frequency must not be negative, got %d", freq)
	}
	dur, err := intField(rec, "Duration")
	if err != nil {
		return d, err
	}
	raw, ok := rec["Waveform"]
	if !ok {
		return d, errors.New("missing field Waveform")
	}
	wave := Sine
	if !bytes.Equal(raw, jsonNull) {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return d, fmt.Errorf("Waveform: %v", err)
		}
		if wave, err = ParseWaveform(name); err != nil {
			return d, err
		}
	}
	d.Frequency, d.Duration, d.Waveform = freq, dur, wave
	return d, nil
}

func intField(rec map[string]json.RawMessage, name string) (int, error) {
	raw, ok := rec[name]
	if !ok {
		return 0, fmt.Errorf("missing field %s", name)
	}
	if bytes.Equal(raw, jsonNull) {
		return 0, fmt.Errorf("field %s is null", name)
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	return v, nil
}
