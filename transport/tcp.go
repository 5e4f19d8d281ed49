// Package transport maintains the TCP session with the gateway.
package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/decoder"
)

const (
	DefaultDialTimeout       = 10 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectBackoff  = 500 * time.Millisecond
)

// Upstream keeps a session with the gateway open, dialling again whenever
// the session ends. A new session gets a fresh decoder; nothing carries over
// from the last one.
type Upstream struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr    string
	options Options
	dialer  net.Dialer

	mu      sync.Mutex
	current *Conn
	err     error
	done    chan struct{}

	log *zap.Logger
}

func NewUpstream(options Options) *Upstream {
	if options.DialTimeout <= 0 {
		options.DialTimeout = DefaultDialTimeout
	}

	if options.ReconnectAttempts <= 0 {
		options.ReconnectAttempts = DefaultReconnectAttempts
	}

	if options.ReconnectBackoff <= 0 {
		options.ReconnectBackoff = DefaultReconnectBackoff
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Upstream{
		addr:    net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		options: options,
		dialer:  net.Dialer{Timeout: options.DialTimeout},
		done:    make(chan struct{}),
		log:     log,
	}
}

func (u *Upstream) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	u.cancel = cancel

	u.log.Info("Connecting to gateway", zap.String("addr", u.addr))

	u.stopWaiter.Add(1)
	go func() {
		defer u.stopWaiter.Done()
		defer close(u.done)

		err := u.run(ctx)

		u.mu.Lock()
		u.err = err
		u.mu.Unlock()
	}()

	return nil
}

// Done is closed once the upstream has stopped, either because it was
// closed or because the gateway could not be reached. Err reports which.
func (u *Upstream) Done() <-chan struct{} {
	return u.done
}

func (u *Upstream) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.err
}

// Status reports the active session's decoder, or Disconnected between
// sessions.
func (u *Upstream) Status() decoder.Status {
	u.mu.Lock()
	current := u.current
	u.mu.Unlock()

	if current == nil {
		return decoder.Status{State: string(decoder.Disconnected)}
	}

	return current.Decoder().Status()
}

func (u *Upstream) Close() error {
	u.log.Info("Disconnecting from gateway")

	if u.cancel != nil {
		u.cancel()
	}

	u.mu.Lock()
	current := u.current
	u.mu.Unlock()

	if current != nil {
		current.Close()
	}

	u.stopWaiter.Wait()
	return nil
}

func (u *Upstream) run(ctx context.Context) error {
	for {
		netConn, err := u.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			u.log.Error("Giving up on gateway", zap.String("addr", u.addr), zap.Error(err))
			return err
		}

		conn, err := NewConn(ctx, netConn, u.decoderOptions(), u.options.Trace)
		if err != nil {
			netConn.Close()
			return err
		}

		u.setCurrent(conn)
		err = conn.Run()
		u.setCurrent(nil)

		if ctx.Err() != nil {
			return nil
		}

		u.log.Warn("Gateway session ended", zap.Error(err))
	}
}

func (u *Upstream) dial(ctx context.Context) (net.Conn, error) {
	var conn net.Conn

	r := retrier.New(retrier.ExponentialBackoff(u.options.ReconnectAttempts, u.options.ReconnectBackoff), nil)
	err := r.RunCtx(ctx, func(ctx context.Context) error {
		c, err := u.dialer.DialContext(ctx, "tcp", u.addr)
		if err != nil {
			u.log.Warn("Failed to connect to gateway", zap.String("addr", u.addr), zap.Error(err))
			return err
		}

		conn = c
		return nil
	})

	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (u *Upstream) decoderOptions() decoder.Options {
	return decoder.Options{
		ClientID:      u.options.ClientID,
		ClientVersion: u.options.ClientVersion,
		Registry:      u.options.Registry,
		Publisher:     u.options.Publisher,
		Registrar:     u.options.Registrar,
		Log:           u.log.Named("decoder"),
	}
}

func (u *Upstream) setCurrent(conn *Conn) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.current = conn
}
