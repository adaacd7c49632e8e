// Package playback plays tone sequences received on the bus through a local
// audio context.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/soundcode/internal/bus"
	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/protocol"
	"github.com/loqalabs/soundcode/internal/tone"
)

const instrumentationName = "github.com/loqalabs/soundcode/playback"

type Service struct {
	bus    *bus.Client
	player *player.Player
	sub    *nats.Subscription
	// mu keeps two scheduling passes from interleaving on one cursor.
	mu     sync.Mutex
	tracer trace.Tracer
	voices metric.Int64Counter
	spans  metric.Int64Histogram
	logger *slog.Logger
}

func NewService(busClient *bus.Client, audio player.Context, log *slog.Logger) *Service {
	logger := log.With(slog.String("component", "playback-service"))
	s := &Service{
		bus:    busClient,
		player: player.New(audio, logger),
		tracer: otel.Tracer(instrumentationName),
		logger: logger,
	}
	meter := otel.Meter(instrumentationName)
	var err error
	if s.voices, err = meter.Int64Counter("soundcode.playback.voices",
		metric.WithDescription("Oscillator voices scheduled")); err != nil {
		logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	if s.spans, err = meter.Int64Histogram("soundcode.playback.span",
		metric.WithUnit("ms"),
		metric.WithDescription("Device time occupied by scheduled sequences")); err != nil {
		logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return s
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectPlayback, s.handleSequence)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Close returns once sequences already received have been scheduled.
func (s *Service) Close() {
	if err := bus.Drain(s.sub, 5*time.Second); err != nil {
		s.logger.Warn("playback subscription did not drain", slog.String("error", err.Error()))
	}
}

func (s *Service) Healthy() bool { return s.sub != nil && s.sub.IsValid() }

// Play decodes a transported sequence and schedules it. A sequence that
// does not decode in full is not played at all.
func (s *Service) Play(ctx context.Context, data []byte) (player.Summary, error) {
	_, span := s.tracer.Start(ctx, "playback.Play")
	defer span.End()

	seq, err := tone.DecodeSequence(data)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return player.Summary{}, err
	}

	s.mu.Lock()
	sum, err := s.player.Play(seq)
	s.mu.Unlock()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return sum, err
	}
	span.SetAttributes(attribute.Int("voices", sum.Voices))
	if s.voices != nil {
		s.voices.Add(ctx, int64(sum.Voices))
	}
	if s.spans != nil {
		s.spans.Record(ctx, sum.Span().Milliseconds())
	}
	return sum, nil
}

func (s *Service) handleSequence(msg *nats.Msg) {
	status := protocol.PlaybackStatus{}
	sum, err := s.Play(context.Background(), msg.Data)
	if err != nil {
		s.logger.Warn("playback rejected", slog.String("error", err.Error()))
		status.Error = err.Error()
	} else {
		status.Voices = sum.Voices
		status.SpanMS = sum.Span().Milliseconds()
		s.logger.Info("playback scheduled",
			slog.Int("voices", sum.Voices),
			slog.Duration("span", sum.Span()))
	}
	status.Timestamp = time.Now().UTC()
	if err := s.bus.PublishJSON(protocol.SubjectPlaybackDone, status); err != nil {
		s.logger.Warn("failed to publish playback status", slog.String("error", err.Error()))
	}
}
