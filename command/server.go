package command

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 5 * time.Second
)

var (
	ErrNotStarted = errors.New("command server has not been started")
)

// Subscriber is the part of a NATS connection the server needs.
type Subscriber interface {
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type ServerOptions struct {
	Conn    Subscriber
	Subject string

	// Queue lets several proxies share the command subject. Only one of
	// them answers each request.
	Queue string

	// Timeout bounds a single command, including the write to the gateway.
	Timeout time.Duration

	Gateway *Gateway
	Log     *zap.Logger
}

// Server answers command frames received over NATS request/reply.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn    Subscriber
	subject string
	queue   string
	timeout time.Duration

	gateway *Gateway
	sub     *nats.Subscription

	// respond is replaced in tests.
	respond func(msg *nats.Msg, data []byte) error

	log *zap.Logger
}

func NewServer(options ServerOptions) *Server {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		conn:    options.Conn,
		subject: options.Subject,
		queue:   options.Queue,
		timeout: timeout,
		gateway: options.Gateway,
		respond: func(msg *nats.Msg, data []byte) error { return msg.Respond(data) },
		log:     log,
	}
}

func (s *Server) Start(parentCtx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(parentCtx)

	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, s.handle)
	if err != nil {
		s.cancel()
		return err
	}

	s.sub = sub
	s.log.Info("Listening for commands",
		zap.String("subject", s.subject),
		zap.String("queue", s.queue))

	return nil
}

func (s *Server) Close() error {
	if s.sub == nil {
		return ErrNotStarted
	}

	s.cancel()
	return s.sub.Unsubscribe()
}

func (s *Server) handle(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	reply := s.gateway.HandleRequest(ctx, msg.Reply, msg.Data)

	if msg.Reply == "" {
		s.log.Warn("Command has no reply subject", zap.String("subject", msg.Subject))
		return
	}

	if err := s.respond(msg, reply); err != nil {
		s.log.Warn("Failed to reply to command",
			zap.String("reply", msg.Reply),
			zap.Error(err))
	}
}
