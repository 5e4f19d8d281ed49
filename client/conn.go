// Package client talks to a running proxy over NATS: it sends commands on the
// command subject and decodes messages from the broadcast subject.
package client

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/protocol"
)

const (
	UpdateBufferSize = 255
)

// Conn is the part of a NATS connection the client needs.
type Conn interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type Options struct {
	CommandSubject   string
	BroadcastSubject string

	Log *zap.Logger
}

type Client struct {
	conn    Conn
	options Options

	updateChan chan *protocol.Message

	mu   sync.Mutex
	sub  *nats.Subscription
	stop chan struct{}

	log *zap.Logger
}

func New(conn Conn, options Options) *Client {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		conn:       conn,
		options:    options,
		updateChan: make(chan *protocol.Message, UpdateBufferSize),
		stop:       make(chan struct{}),
		log:        log,
	}
}

// Ping sends an out-of-band NOP. It succeeds whether or not the proxy is
// connected to the gateway.
func (c *Client) Ping(ctx context.Context) error {
	return c.request(ctx, protocol.EncodeControl(protocol.NOP))
}

// Send writes a request to the gateway through the proxy.
func (c *Client) Send(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return protocol.ErrNoFields
	}

	return c.request(ctx, protocol.EncodeFields(fields...))
}

// SendRaw writes pre-encoded bytes to the gateway through the proxy.
func (c *Client) SendRaw(ctx context.Context, data []byte) error {
	return c.request(ctx, data)
}

// Subscribe starts delivering broadcast messages to UpdateChan.
func (c *Client) Subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		return nil
	}

	sub, err := c.conn.Subscribe(c.options.BroadcastSubject, c.handleUpdate)
	if err != nil {
		return err
	}

	c.sub = sub
	return nil
}

func (c *Client) UpdateChan() <-chan *protocol.Message {
	return c.updateChan
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.stop:
		return nil
	default:
		close(c.stop)
	}

	if c.sub == nil {
		return nil
	}

	return c.sub.Unsubscribe()
}

func (c *Client) request(ctx context.Context, data []byte) error {
	msg, err := c.conn.RequestWithContext(ctx, c.options.CommandSubject, data)
	if err != nil {
		return err
	}

	reply, err := protocol.ParseReply(msg.Data)
	if err != nil {
		return err
	}

	return reply.ErrorOrNil()
}

func (c *Client) handleUpdate(m *nats.Msg) {
	msg, err := protocol.DecodeMessage(m.Data)
	if err != nil {
		c.log.Warn("Failed to decode broadcast message",
			zap.String("subject", m.Subject),
			zap.Error(err))
		return
	}

	select {
	case c.updateChan <- msg:
	case <-c.stop:
	}
}
