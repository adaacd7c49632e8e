package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/soundcode/internal/bus"
	"github.com/loqalabs/soundcode/internal/config"
	"github.com/loqalabs/soundcode/internal/generator"
	"github.com/loqalabs/soundcode/internal/journal"
	"github.com/loqalabs/soundcode/internal/natsserver"
	"github.com/loqalabs/soundcode/internal/playback"
	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/speaker"
	"github.com/loqalabs/soundcode/internal/web"
)

const pruneInterval = time.Hour

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	metricsSrv  *http.Server
	tracerClose func(context.Context) error
	journal     *journal.Journal
	embedded    *natsserver.EmbeddedServer
	bus         *bus.Client
	genService  *generator.Service
	playService *playback.Service
	audioClose  func()
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start runs the service until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := setupTelemetry(ctx, r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = tel.Shutdown
	metricsHandler := tel.metrics

	handler, err := r.setup(ctx, metricsHandler)
	if err != nil {
		r.teardown(context.Background())
		return err
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.serve(r.httpServer, "http")

	if bind := r.cfg.Telemetry.PrometheusBind; bind != "" && metricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metricsHandler)
		r.metricsSrv = &http.Server{Addr: bind, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		r.serve(r.metricsSrv, "metrics")
	}

	if r.journal.Enabled() {
		r.wg.Add(1)
		go r.pruneLoop(ctx)
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	for _, srv := range []*http.Server{r.httpServer, r.metricsSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()
	r.teardown(shutdownCtx)
	return nil
}

// setup opens the journal, bus and audio output and builds the HTTP
// handler.
func (r *Runtime) setup(ctx context.Context, metricsHandler http.Handler) (http.Handler, error) {
	j, err := journal.Open(ctx, r.cfg.Journal, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	r.journal = j

	gen := generator.New(j, r.logger)
	site, err := web.New(gen, r.cfg.HTTP, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build web handlers: %w", err)
	}
	site.Handle(http.MethodGet, "/healthz", http.HandlerFunc(r.handleHealth))
	site.Handle(http.MethodGet, "/readyz", http.HandlerFunc(r.handleReady))
	if metricsHandler != nil {
		site.Handle(http.MethodGet, "/metrics", metricsHandler)
	}

	if r.cfg.Bus.Enabled {
		if err := r.startBus(ctx, gen); err != nil {
			return nil, err
		}
	}
	return site, nil
}

func (r *Runtime) startBus(ctx context.Context, gen *generator.Generator) error {
	busCfg := r.cfg.Bus
	embedded, err := natsserver.Start(busCfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded NATS: %w", err)
	}
	r.embedded = embedded
	if url := embedded.ClientURL(); url != "" {
		busCfg.Servers = []string{url}
	}

	client, err := bus.Connect(ctx, r.cfg.RuntimeName, busCfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	r.bus = client

	r.genService = generator.NewService(ctx, gen, client, busCfg.MaxInflight, r.logger)
	if err := r.genService.Start(); err != nil {
		return fmt.Errorf("failed to start generator service: %w", err)
	}

	if !r.cfg.Playback.Enabled {
		return nil
	}
	audio, closeAudio, err := r.openAudio(ctx)
	if err != nil {
		// Encoding stays available without a local output.
		r.logger.Warn("playback disabled", slog.String("error", err.Error()))
		return nil
	}
	r.audioClose = closeAudio
	r.playService = playback.NewService(client, audio, r.logger)
	if err := r.playService.Start(); err != nil {
		return fmt.Errorf("failed to start playback service: %w", err)
	}
	return nil
}

func (r *Runtime) openAudio(ctx context.Context) (player.Context, func(), error) {
	pc := r.cfg.Playback
	switch pc.Device {
	case "exec":
		sink, err := speaker.NewExec(ctx, pc.Command, pc.SampleRate, r.logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Wait, nil
	default:
		dev, err := speaker.Open(pc.SampleRate, r.logger)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Close, nil
	}
}

func (r *Runtime) teardown(ctx context.Context) {
	if r.playService != nil {
		r.playService.Close()
	}
	if r.genService != nil {
		r.genService.Close()
	}
	if r.audioClose != nil {
		r.audioClose()
	}
	if r.bus != nil {
		r.bus.Close()
	}
	r.embedded.Shutdown()
	var errs []error
	if err := r.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	if r.tracerClose != nil {
		if err := r.tracerClose(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.logger.Error("shutdown error", slog.String("error", err.Error()))
	}
}

func (r *Runtime) serve(srv *http.Server, name string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("server", name), slog.String("error", err.Error()))
		}
	}()
}

func (r *Runtime) pruneLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.journal.Prune(ctx); err != nil {
				r.logger.Warn("journal prune failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.isReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) isReady() bool {
	if !r.ready.Load() {
		return false
	}
	if r.bus != nil && !r.bus.Healthy() {
		return false
	}
	if r.genService != nil && !r.genService.Healthy() {
		return false
	}
	return r.playService == nil || r.playService.Healthy()
}
