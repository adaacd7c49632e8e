package speaker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/synth"
)

// Exec collects a batch of voices and, on Flush, pipes them as a WAV file
// into an external player such as "aplay -q -".
type Exec struct {
	ctx  context.Context
	cmd  []string
	rate int
	log  *slog.Logger

	mu      sync.Mutex
	pending *synth.Offline
	wg      sync.WaitGroup
}

func NewExec(ctx context.Context, command string, sampleRate int, log *slog.Logger) (*Exec, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse playback command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("playback command empty")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &Exec{
		ctx:     ctx,
		cmd:     args,
		rate:    sampleRate,
		log:     log.With(slog.String("component", "exec-sink")),
		pending: synth.NewOffline(),
	}, nil
}

func (e *Exec) CurrentTime() float64 { return 0 }

func (e *Exec) State() player.State {
	if e.ctx.Err() != nil {
		return player.StateClosed
	}
	return player.StateRunning
}

func (e *Exec) Resume() error { return nil }

func (e *Exec) Schedule(v player.Voice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.Schedule(v)
}

func (e *Exec) Extend(end float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending.Extend(end)
}

// Flush renders the pending voices and starts the command. It does not
// wait for the command to finish.
func (e *Exec) Flush() error {
	e.mu.Lock()
	batch := e.pending
	e.pending = synth.NewOffline()
	e.mu.Unlock()

	if len(batch.Voices()) == 0 {
		return nil
	}
	var wav synth.Buffer
	if err := batch.WriteWAV(&wav, e.rate); err != nil {
		return err
	}

	cmd := exec.CommandContext(e.ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(wav.Bytes())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start playback command: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := cmd.Wait(); err != nil {
			e.log.Warn("playback command failed",
				slog.String("error", err.Error()),
				slog.String("stderr", stderr.String()))
		}
	}()
	return nil
}

// Wait blocks until every started command has exited.
func (e *Exec) Wait() { e.wg.Wait() }
