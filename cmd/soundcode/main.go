package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"github.com/loqalabs/soundcode/internal/generator"
	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/speaker"
	"github.com/loqalabs/soundcode/internal/synth"
)

var version = "0.1.0-dev"

// tail keeps the device open until the last release ramp has drained.
const tail = 100 * time.Millisecond

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'encode', 'render', 'play' or 'version'")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	gen := generator.New(nil, logger)

	var err error
	switch os.Args[1] {
	case "encode":
		fs := flag.NewFlagSet("encode", flag.ExitOnError)
		fs.Parse(os.Args[2:])
		err = runEncode(gen, fs.Args())
	case "render":
		var (
			out  string
			rate int
		)
		fs := flag.NewFlagSet("render", flag.ExitOnError)
		fs.StringVar(&out, "o", "soundcode.wav", "Output WAV file")
		fs.IntVar(&rate, "rate", synth.DefaultSampleRate, "Sample rate in Hz")
		fs.Parse(os.Args[2:])
		err = runRender(gen, fs.Args(), out, rate)
	case "play":
		var (
			rate    int
			command string
		)
		fs := flag.NewFlagSet("play", flag.ExitOnError)
		fs.IntVar(&rate, "rate", synth.DefaultSampleRate, "Sample rate in Hz")
		fs.StringVar(&command, "exec", "", "Pipe a WAV into this command instead of the default device")
		fs.Parse(os.Args[2:])
		err = runPlay(gen, fs.Args(), rate, command, logger)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(gen *generator.Generator, args []string) (generator.Result, error) {
	var text *string
	if len(args) > 0 {
		joined := strings.Join(args, " ")
		text = &joined
	}
	res, err := gen.Generate(context.Background(), "cli", text)
	if errors.Is(err, generator.ErrTextRequired) {
		return res, errors.New(generator.ValidationMessage)
	}
	return res, err
}

func runEncode(gen *generator.Generator, args []string) error {
	res, err := generate(gen, args)
	if err != nil {
		return err
	}
	out, err := json.Marshal(res.Tones)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	fmt.Fprintln(os.Stderr, res.Message)
	return nil
}

func runRender(gen *generator.Generator, args []string, path string, rate int) error {
	res, err := generate(gen, args)
	if err != nil {
		return err
	}
	offline := synth.NewOffline()
	if _, err := player.New(offline, nil).Play(res.Tones); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := offline.WriteWAV(f, rate); err != nil {
		f.Close()
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s, %s)\n", path, humanize.Bytes(uint64(info.Size())), durafmt.Parse(res.Span).String())
	return nil
}

func runPlay(gen *generator.Generator, args []string, rate int, command string, logger *slog.Logger) error {
	res, err := generate(gen, args)
	if err != nil {
		return err
	}

	if command != "" {
		sink, err := speaker.NewExec(context.Background(), command, rate, logger)
		if err != nil {
			return err
		}
		if _, err := player.New(sink, logger).Play(res.Tones); err != nil {
			return err
		}
		sink.Wait()
		return nil
	}

	dev, err := speaker.Open(rate, logger)
	if err != nil {
		return err
	}
	defer dev.Close()
	sum, err := player.New(dev, logger).Play(res.Tones)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, res.Message)
	time.Sleep(sum.Span() + tail)
	return nil
}
