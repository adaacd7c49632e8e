//go:build cgo

package speaker

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"

	"github.com/loqalabs/soundcode/internal/player"
)

// Device plays voices on the default output through miniaudio. It starts
// suspended; the player resumes it before scheduling.
type Device struct {
	*stream
	ctx *malgo.AllocatedContext
	dev *malgo.Device
	log *slog.Logger
}

// Open initializes the default playback device. Any backend failure is
// reported as player.ErrNoAudio.
func Open(sampleRate int, log *slog.Logger) (*Device, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init audio backend: %v", player.ErrNoAudio, err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate)

	d := &Device{
		stream: newStream(sampleRate),
		ctx:    mctx,
		log:    log.With(slog.String("component", "speaker")),
	}
	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) { d.fill(out, frameCount) },
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("%w: init playback device: %v", player.ErrNoAudio, err)
	}
	d.dev = dev
	d.log.Info("playback device ready", slog.Int("sample_rate", sampleRate))
	return d, nil
}

// Resume starts the device callback. The clock begins advancing once the
// backend pulls the first frames.
func (d *Device) Resume() error {
	if d.State() == player.StateClosed {
		return player.ErrNoAudio
	}
	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}
	d.setState(player.StateRunning)
	return nil
}

func (d *Device) Close() {
	if d == nil || d.State() == player.StateClosed {
		return
	}
	d.setState(player.StateClosed)
	d.dev.Uninit()
	_ = d.ctx.Uninit()
	d.ctx.Free()
	d.log.Info("playback device closed")
}
