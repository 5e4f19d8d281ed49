// Package command routes frames from the command channel. Out-of-band
// control frames are answered by the proxy; everything else is written
// verbatim to the active gateway connection.
package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/ibzmq/protocol"
)

var (
	ErrUnrecognizedControlVerb = errors.New("unrecognized out-of-band control verb")
	ErrNoActiveConnection      = errors.New("no active gateway connection")
)

// Writer is a handle on the gateway connection's outbound side.
type Writer interface {
	WriteMessage(ctx context.Context, data []byte) error
}

// Gateway holds the handle of the active connection. The connection
// registers itself once its handshake completes and unregisters when it is
// lost; commands read the latest handle.
type Gateway struct {
	mu     sync.RWMutex
	active Writer

	log *zap.Logger
}

func NewGateway(log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}

	return &Gateway{log: log}
}

// Register makes w the target of pass-through commands, replacing any
// previous handle.
func (g *Gateway) Register(w Writer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active = w
}

// Unregister clears the active handle if it is still w. A stale connection
// cannot clear its successor.
func (g *Gateway) Unregister(w Writer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active == w {
		g.active = nil
	}
}

func (g *Gateway) Active() (Writer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.active, g.active != nil
}

// Handle processes one command frame.
func (g *Gateway) Handle(ctx context.Context, requestID string, payload []byte) error {
	switch req := protocol.ParseRequest(payload).(type) {
	case *protocol.ControlRequest:
		return g.handleControl(requestID, req)

	case *protocol.PassThroughRequest:
		return g.handlePassThrough(ctx, requestID, req)

	default:
		return fmt.Errorf("unhandled request %T", req)
	}
}

// HandleRequest processes one command frame and returns the reply payload.
func (g *Gateway) HandleRequest(ctx context.Context, requestID string, payload []byte) []byte {
	if err := g.Handle(ctx, requestID, payload); err != nil {
		return protocol.ReplyErr
	}

	return protocol.ReplyOK
}

func (g *Gateway) handleControl(requestID string, req *protocol.ControlRequest) error {
	switch req.Verb {
	case protocol.NOP:
		g.log.Debug("Sending NOP response", zap.String("requestID", requestID))
		return nil

	default:
		g.log.Error("Unrecognized out-of-band message",
			zap.String("requestID", requestID),
			zap.String("verb", string(req.Verb)),
			zap.Strings("args", req.Args))
		return fmt.Errorf("%w: %s", ErrUnrecognizedControlVerb, req.Verb)
	}
}

func (g *Gateway) handlePassThrough(ctx context.Context, requestID string, req *protocol.PassThroughRequest) error {
	w, ok := g.Active()
	if !ok {
		g.log.Warn("Dropping command, no active connection", zap.String("requestID", requestID))
		return ErrNoActiveConnection
	}

	if err := w.WriteMessage(ctx, req.Payload); err != nil {
		g.log.Error("Failed to write command",
			zap.String("requestID", requestID),
			zap.Error(err))
		return err
	}

	if typeID, ok := req.RequestType(); ok {
		g.log.Debug("Forwarded command",
			zap.String("requestID", requestID),
			zap.Int("type", typeID),
			zap.String("name", protocol.RequestName(typeID)))
	}

	return nil
}
