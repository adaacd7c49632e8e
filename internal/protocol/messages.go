package protocol

import (
	"time"

	"github.com/loqalabs/soundcode/internal/tone"
)

// EncodeRequest asks the generator to encode text. A nil Text is a
// validation failure, not empty input.
type EncodeRequest struct {
	RequestID string  `json:"request_id"`
	Text      *string `json:"text"`
	Play      bool    `json:"play,omitempty"`
}

// EncodeReply answers an EncodeRequest. Tones is nil exactly when Error is
// set; a successful reply always carries an array, possibly empty.
type EncodeReply struct {
	RequestID string         `json:"request_id"`
	Tones     *tone.Sequence `json:"tones,omitempty"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// PlaybackStatus is published after a sequence was scheduled, or rejected.
type PlaybackStatus struct {
	Voices    int       `json:"voices"`
	SpanMS    int64     `json:"span_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectEncodeRequest = "soundcode.encode.request"
	// SubjectPlayback carries a bare tone sequence JSON array.
	SubjectPlayback     = "soundcode.playback"
	SubjectPlaybackDone = "soundcode.playback.done"
)
