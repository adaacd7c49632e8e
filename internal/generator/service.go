package generator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/remeh/sizedwaitgroup"

	"github.com/loqalabs/soundcode/internal/bus"
	"github.com/loqalabs/soundcode/internal/protocol"
)

const drainTimeout = 5 * time.Second

// Service answers encode requests on the bus.
type Service struct {
	gen    *Generator
	bus    *bus.Client
	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	swg    sizedwaitgroup.SizedWaitGroup
	logger *slog.Logger
}

func NewService(parent context.Context, gen *Generator, busClient *bus.Client, maxInflight int, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	if maxInflight <= 0 {
		maxInflight = 1
	}
	return &Service{
		gen:    gen,
		bus:    busClient,
		ctx:    ctx,
		cancel: cancel,
		swg:    sizedwaitgroup.New(maxInflight),
		logger: log.With(slog.String("component", "generator-service")),
	}
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectEncodeRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Close stops taking requests and returns once every accepted request has
// been answered.
func (s *Service) Close() {
	if err := bus.Drain(s.sub, drainTimeout); err != nil {
		s.logger.Warn("encode subscription did not drain", slogError(err))
	}
	s.swg.Wait()
	s.cancel()
}

func (s *Service) Healthy() bool { return s.sub != nil && s.sub.IsValid() }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.EncodeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode encode request", slogError(err))
		s.respond(msg, protocol.EncodeReply{Error: "malformed encode request"})
		return
	}

	// Add blocks while max_inflight requests are running.
	s.swg.Add()
	go func() {
		defer s.swg.Done()
		reply := protocol.EncodeReply{RequestID: req.RequestID}
		res, err := s.gen.Generate(s.ctx, "bus", req.Text)
		if err != nil {
			reply.Error = err.Error()
			if errors.Is(err, ErrTextRequired) {
				reply.Error = ValidationMessage
			} else {
				s.logger.Warn("generation failed", slogError(err))
			}
			s.respond(msg, reply)
			return
		}
		reply.Tones = &res.Tones
		reply.Message = res.Message
		s.respond(msg, reply)

		if req.Play {
			if err := s.bus.PublishJSON(protocol.SubjectPlayback, res.Tones); err != nil {
				s.logger.Warn("failed to publish playback request", slogError(err))
			}
		}
	}()
}

func (s *Service) respond(msg *nats.Msg, reply protocol.EncodeReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to marshal encode reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to send encode reply", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
