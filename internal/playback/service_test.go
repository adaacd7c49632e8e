package playback

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/soundcode/internal/bus"
	"github.com/loqalabs/soundcode/internal/config"
	"github.com/loqalabs/soundcode/internal/natsserver"
	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/protocol"
	"github.com/loqalabs/soundcode/internal/synth"
	"github.com/loqalabs/soundcode/internal/tone"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startBus(t *testing.T) *bus.Client {
	t.Helper()
	srv, err := natsserver.Start(config.BusConfig{Enabled: true, Embedded: true, Port: -1}, newLogger())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	client, err := bus.Connect(context.Background(), "playback-test",
		config.BusConfig{Servers: []string{srv.ClientURL()}, ConnectTimeout: 2000}, newLogger())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestPlayDecodesAndSchedules(t *testing.T) {
	audio := synth.NewOffline()
	svc := NewService(nil, audio, newLogger())

	data, err := json.Marshal(tone.Encode("HI!"))
	require.NoError(t, err)
	sum, err := svc.Play(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Voices)
	assert.Len(t, audio.Voices(), 3)
}

func TestPlayRejectsPartialSequence(t *testing.T) {
	audio := synth.NewOffline()
	svc := NewService(nil, audio, newLogger())

	data := []byte(`[{"Frequency":330,"Duration":200,"Waveform":"sine"},{"Frequency":349,"Duration":200}]`)
	_, err := svc.Play(context.Background(), data)
	assert.ErrorIs(t, err, tone.ErrMalformedSequence)
	assert.Empty(t, audio.Voices(), "nothing from a malformed sequence may play")
}

func TestPlayWithoutAudio(t *testing.T) {
	svc := NewService(nil, nil, newLogger())
	_, err := svc.Play(context.Background(), []byte(`[]`))
	assert.ErrorIs(t, err, player.ErrNoAudio)
}

func TestServiceOverBus(t *testing.T) {
	client := startBus(t)
	audio := synth.NewOffline()
	svc := NewService(client, audio, newLogger())
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Close)

	done := make(chan *nats.Msg, 2)
	sub, err := client.Conn().ChanSubscribe(protocol.SubjectPlaybackDone, done)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	require.NoError(t, client.Conn().Flush())

	require.NoError(t, client.PublishJSON(protocol.SubjectPlayback, tone.Encode("HI!")))
	status := waitStatus(t, done)
	assert.Empty(t, status.Error)
	assert.Equal(t, 3, status.Voices)
	assert.Equal(t, int64(260), status.SpanMS)

	require.NoError(t, client.Conn().Publish(protocol.SubjectPlayback, []byte(`{"Frequency":1}`)))
	status = waitStatus(t, done)
	assert.Contains(t, status.Error, "malformed tone sequence")
	assert.Len(t, audio.Voices(), 3)
}

func waitStatus(t *testing.T, ch <-chan *nats.Msg) protocol.PlaybackStatus {
	t.Helper()
	select {
	case msg := <-ch:
		var status protocol.PlaybackStatus
		require.NoError(t, json.Unmarshal(msg.Data, &status))
		return status
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback status")
	}
	return protocol.PlaybackStatus{}
}
