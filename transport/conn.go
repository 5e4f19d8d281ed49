package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/ibzmq/decoder"
	"github.com/luma/ibzmq/protocol"
)

const (
	WriteQueueSize = 127
)

var (
	ErrConnectionClosed = errors.New("gateway closed the connection")
	ErrClosed           = errors.New("connection is closed")
)

type write struct {
	data []byte
	done chan error
}

// Conn is one session with the gateway. The read loop feeds every field to
// the session's decoder; all writes go through a single write loop so that
// concurrent commands never interleave on the wire.
type Conn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup
	closeOnce  sync.Once

	conn    net.Conn
	decoder *decoder.Decoder

	writeQueue chan *write

	log   *zap.Logger
	trace bool
}

// NewConn wraps conn. The decoder is built from options with the connection
// as its writer.
func NewConn(parentCtx context.Context, conn net.Conn, options decoder.Options, trace bool) (*Conn, error) {
	ctx, cancel := context.WithCancel(parentCtx)

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	c := &Conn{
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		writeQueue: make(chan *write, WriteQueueSize),
		log:        log,
		trace:      trace,
	}

	options.Writer = c

	dec, err := decoder.New(options)
	if err != nil {
		cancel()
		return nil, err
	}

	c.decoder = dec
	return c, nil
}

func (c *Conn) Decoder() *decoder.Decoder {
	return c.decoder
}

// Run performs the handshake and decodes fields until the connection fails,
// the decoder rejects the stream or Close is called. It always returns a
// non-nil error.
func (c *Conn) Run() error {
	c.loopWaiter.Add(1)
	go func() {
		defer c.loopWaiter.Done()
		c.WriteLoop()
	}()

	defer func() {
		c.decoder.ConnectionLost()
		c.Close()
	}()

	if err := c.decoder.ConnectionMade(c.ctx); err != nil {
		return err
	}

	return c.ReadLoop()
}

func (c *Conn) ReadLoop() error {
	log := c.log.Named("readLoop")
	scanner := protocol.NewFieldScanner(c.conn)

	for scanner.Scan() {
		field := scanner.Text()

		if c.trace {
			log.Debug("Field", zap.String("field", field))
		}

		if err := c.decoder.FieldReceived(c.ctx, field); err != nil {
			log.Error("Dropping connection", zap.Error(err))
			return err
		}
	}

	if !c.isRunning() {
		return ErrClosed
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return ErrConnectionClosed
}

func (c *Conn) WriteLoop() {
	log := c.log.Named("writeLoop")

	for {
		select {
		case <-c.ctx.Done():
			log.Debug("Write loop exiting")
			return

		case w := <-c.writeQueue:
			_, err := c.conn.Write(w.data)
			if err != nil {
				log.Error("Failed to write to gateway", zap.Error(err))
			}

			w.done <- err
		}
	}
}

// Write queues data for the write loop and waits until it has been written.
// A write abandoned because ctx ended may still reach the wire, but never
// partially interleaved with another.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	w := &write{data: data, done: make(chan error, 1)}

	select {
	case c.writeQueue <- w:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// Close drops the connection and waits for the write loop to exit.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
		c.loopWaiter.Wait()
	})

	return err
}

// isRunning returns true if Close has not been called
func (c *Conn) isRunning() bool {
	select {
	case <-c.ctx.Done():
		return false

	default:
		return true
	}
}

var _ decoder.Writer = (*Conn)(nil)
