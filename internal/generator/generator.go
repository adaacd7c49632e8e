// Package generator turns submitted text into a tone sequence plus a status
// message for the caller, and records the outcome.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/soundcode/internal/journal"
	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/tone"
)

// ErrTextRequired is returned when no text, or only whitespace, was
// submitted.
var ErrTextRequired = errors.New("text is required")

// ValidationMessage is shown to users whose request failed with
// ErrTextRequired.
const ValidationMessage = "Please enter some text to generate a sound code."

const instrumentationName = "github.com/loqalabs/soundcode/generator"

// Result is a successful generation.
type Result struct {
	ID      string
	Tones   tone.Sequence
	Tally   tone.Tally
	Span    time.Duration
	Message string
}

type Generator struct {
	journal  *journal.Journal
	log      *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter
	tones    metric.Int64Counter
	dropped  metric.Int64Counter
	spans    metric.Int64Histogram
}

func New(j *journal.Journal, log *slog.Logger) *Generator {
	g := &Generator{
		journal: j,
		log:     log.With(slog.String("component", "generator")),
		tracer:  otel.Tracer(instrumentationName),
	}
	if err := g.initMetrics(); err != nil {
		g.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return g
}

func (g *Generator) initMetrics() error {
	meter := otel.Meter(instrumentationName)
	var err error
	if g.requests, err = meter.Int64Counter("soundcode.encode.requests",
		metric.WithDescription("Generation requests by source and status")); err != nil {
		return err
	}
	if g.tones, err = meter.Int64Counter("soundcode.encode.tones",
		metric.WithDescription("Tone descriptors produced")); err != nil {
		return err
	}
	if g.dropped, err = meter.Int64Counter("soundcode.encode.dropped_chars",
		metric.WithDescription("Input characters without a tone")); err != nil {
		return err
	}
	g.spans, err = meter.Int64Histogram("soundcode.encode.span",
		metric.WithUnit("ms"),
		metric.WithDescription("Playback length of generated sequences"))
	return err
}

// Generate validates and encodes text. A nil or blank text fails with
// ErrTextRequired and produces no sequence.
func (g *Generator) Generate(ctx context.Context, source string, text *string) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "generator.Generate", trace.WithAttributes(attribute.String("source", source)))
	defer span.End()

	if text == nil || strings.TrimSpace(*text) == "" {
		g.record(ctx, journal.Entry{Source: source, Status: journal.StatusInvalid})
		span.SetStatus(codes.Error, ErrTextRequired.Error())
		return Result{}, ErrTextRequired
	}

	seq, tally := tone.EncodeTally(*text)
	res := Result{
		Tones: seq,
		Tally: tally,
		Span:  player.Span(seq),
	}
	res.Message = StatusMessage(tally, res.Span)
	res.ID = g.record(ctx, journal.Entry{
		Source:     source,
		Characters: tally.Characters,
		Tones:      tally.Tones,
		Dropped:    tally.Dropped,
		Status:     journal.StatusOK,
	})

	span.SetAttributes(
		attribute.Int("tones", tally.Tones),
		attribute.Int("dropped", tally.Dropped),
	)
	attrs := metric.WithAttributes(attribute.String("source", source))
	if g.tones != nil {
		g.tones.Add(ctx, int64(tally.Tones), attrs)
	}
	if g.dropped != nil {
		g.dropped.Add(ctx, int64(tally.Dropped), attrs)
	}
	if g.spans != nil {
		g.spans.Record(ctx, res.Span.Milliseconds(), attrs)
	}
	g.log.Debug("generated sound code",
		slog.String("id", res.ID),
		slog.String("source", source),
		slog.Int("tones", tally.Tones),
		slog.Int("dropped", tally.Dropped))
	return res, nil
}

func (g *Generator) record(ctx context.Context, e journal.Entry) string {
	if g.requests != nil {
		g.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", e.Source),
			attribute.String("status", e.Status)))
	}
	e, err := g.journal.Record(ctx, e)
	if err != nil {
		g.log.Warn("failed to journal generation", slog.String("error", err.Error()))
	}
	return e.ID
}

// StatusMessage is the human readable summary shown next to a generated
// sequence.
func StatusMessage(t tone.Tally, span time.Duration) string {
	var b strings.Builder
	if t.Tones == 0 {
		b.WriteString("No playable characters found; nothing to play.")
	} else {
		fmt.Fprintf(&b, "Generated %d %s from %d %s; playback lasts %s.",
			t.Tones, plural(t.Tones, "tone"),
			t.Characters, plural(t.Characters, "character"),
			durafmt.Parse(span).String())
	}
	if t.Dropped > 0 {
		fmt.Fprintf(&b, " %d %s skipped.", t.Dropped, plural(t.Dropped, "character"))
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
