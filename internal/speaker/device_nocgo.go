//go:build !cgo

package speaker

import (
	"fmt"
	"log/slog"

	"github.com/loqalabs/soundcode/internal/player"
)

// Device is unavailable without cgo.
type Device struct {
	*stream
}

func Open(int, *slog.Logger) (*Device, error) {
	return nil, fmt.Errorf("%w: built without cgo", player.ErrNoAudio)
}

func (d *Device) Resume() error { return player.ErrNoAudio }

func (d *Device) Close() {}
