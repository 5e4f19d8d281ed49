// Package decoder turns the gateway's field stream into complete messages.
//
// A Decoder owns one gateway connection's session state. It buffers fields
// until the active state has the number it asked for, then dispatches the
// chunk to that state's handler. Message bodies are handed to the message
// type's continuation until it reports the full tuple, which is published as
// a single message.
//
// A Decoder is driven by exactly one goroutine, the connection's read loop.
// Only WriteMessage and Status may be called from elsewhere.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/ibzmq/command"
	"github.com/luma/ibzmq/continuation"
	"github.com/luma/ibzmq/protocol"
	"github.com/luma/ibzmq/statemachine"
)

var (
	ErrNotConnected             = errors.New("decoder received fields before the connection was made")
	ErrUnimplementedMessageType = errors.New("unimplemented message type")
	ErrFieldCountMismatch       = errors.New("consumed field count does not match the message length")
	ErrInvalidHandshake         = errors.New("gateway handshake is malformed")
	ErrImmediateCompletion      = errors.New("continuation completed without requesting fields")
)

// FieldCountMismatchError reports a message whose final tuple disagrees with
// the number of fields read for it.
type FieldCountMismatchError struct {
	TypeID   int
	Consumed int
	Length   int
}

func (e *FieldCountMismatchError) Error() string {
	return fmt.Sprintf("message %s(%d): consumed %d fields but message has %d",
		protocol.MessageName(e.TypeID), e.TypeID, e.Consumed, e.Length)
}

func (e *FieldCountMismatchError) Is(target error) bool {
	return target == ErrFieldCountMismatch
}

// Writer is the outbound side of the gateway connection. Calls must be
// serialized by the implementation.
type Writer interface {
	Write(ctx context.Context, data []byte) error
}

// Publisher receives every completed message.
type Publisher interface {
	Publish(ctx context.Context, msg *protocol.Message) error
}

// Registrar is told when a decoder becomes the target for pass-through
// commands and when it stops being one.
type Registrar interface {
	Register(w command.Writer)
	Unregister(w command.Writer)
}

type Options struct {
	// ClientID is written once the gateway has answered the handshake.
	ClientID int

	// ClientVersion is written on connect. Defaults to protocol.ClientVersion.
	ClientVersion int

	// Registry defaults to continuation.DefaultRegistry().
	Registry *continuation.Registry

	Writer    Writer
	Publisher Publisher

	// Registrar is optional.
	Registrar Registrar

	Log *zap.Logger
}

// Status is a snapshot of the decoder for health reporting.
type Status struct {
	State          string `json:"state"`
	ServerVersion  int    `json:"serverVersion"`
	ConnectionTime string `json:"connectionTime"`
	Messages       uint64 `json:"messages"`
	Unimplemented  uint64 `json:"unimplemented"`
}

type handler func(ctx context.Context, fields []string) error

type Decoder struct {
	machine  *statemachine.Machine
	handlers map[statemachine.Kind]handler
	buffer   []string

	clientID      int
	clientVersion int

	registry  *continuation.Registry
	writer    Writer
	publisher Publisher
	registrar Registrar

	mu     sync.RWMutex
	status Status

	log *zap.Logger
}

func New(options Options) (*Decoder, error) {
	machine, err := statemachine.NewMachine(Transitions, disconnected{})
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		machine:       machine,
		clientID:      options.ClientID,
		clientVersion: options.ClientVersion,
		registry:      options.Registry,
		writer:        options.Writer,
		publisher:     options.Publisher,
		registrar:     options.Registrar,
		status:        Status{State: string(Disconnected)},
		log:           options.Log,
	}

	if d.clientVersion == 0 {
		d.clientVersion = protocol.ClientVersion
	}

	if d.registry == nil {
		d.registry = continuation.DefaultRegistry()
	}

	if d.log == nil {
		d.log = zap.NewNop()
	}

	d.handlers = map[statemachine.Kind]handler{
		Connecting:            d.handshakeReceived,
		AwaitingMessageHeader: d.headerReceived,
		AwaitingContinuation:  d.bodyReceived,
	}

	return d, nil
}

// ConnectionMade starts the handshake by writing the client version.
func (d *Decoder) ConnectionMade(ctx context.Context) error {
	if err := d.transition(connecting{}); err != nil {
		return err
	}

	return d.writeField(ctx, strconv.Itoa(d.clientVersion))
}

// ConnectionLost stops routing commands to this decoder. The decoder must
// not be used afterwards.
func (d *Decoder) ConnectionLost() {
	if d.registrar != nil {
		d.registrar.Unregister(d)
	}

	d.buffer = nil

	d.mu.Lock()
	d.status.State = string(Disconnected)
	d.mu.Unlock()
}

// FieldReceived consumes one field from the gateway. An error means the
// session can no longer be trusted and the connection should be dropped.
func (d *Decoder) FieldReceived(ctx context.Context, field string) error {
	count, ok := expectedFieldCount(d.machine.State())
	if !ok {
		return ErrNotConnected
	}

	d.buffer = append(d.buffer, field)
	if len(d.buffer) < count {
		return nil
	}

	fields := d.buffer
	d.buffer = nil

	if err := d.dispatch(ctx, fields); err != nil {
		return err
	}

	// A state that wants zero fields must not wait for input that may never
	// come.
	for {
		count, ok := expectedFieldCount(d.machine.State())
		if !ok || count != 0 {
			return nil
		}

		if err := d.dispatch(ctx, []string{}); err != nil {
			return err
		}
	}
}

// WriteMessage writes a raw command to the gateway.
func (d *Decoder) WriteMessage(ctx context.Context, data []byte) error {
	return d.writer.Write(ctx, data)
}

func (d *Decoder) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.status
}

func (d *Decoder) dispatch(ctx context.Context, fields []string) error {
	h, ok := d.handlers[d.machine.State().Kind()]
	if !ok {
		return ErrNotConnected
	}

	return h(ctx, fields)
}

func (d *Decoder) handshakeReceived(ctx context.Context, fields []string) error {
	serverVersion, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("%w: server version '%s'", ErrInvalidHandshake, fields[0])
	}

	d.mu.Lock()
	d.status.ServerVersion = serverVersion
	d.status.ConnectionTime = fields[1]
	d.mu.Unlock()

	d.log.Info("Connected",
		zap.Int("serverVersion", serverVersion),
		zap.String("connectionTime", fields[1]))

	if d.registrar != nil {
		d.registrar.Register(d)
	}

	if err := d.transition(awaitingHeader{}); err != nil {
		return err
	}

	return d.writeField(ctx, strconv.Itoa(d.clientID))
}

func (d *Decoder) headerReceived(ctx context.Context, fields []string) error {
	typeID, version, err := protocol.ParseHeader(fields)
	if err != nil {
		return err
	}

	name := protocol.MessageName(typeID)
	d.log.Debug("Parsing",
		zap.String("name", name),
		zap.Int("type", typeID),
		zap.Int("version", version))

	ctor, ok := d.registry.Lookup(typeID)
	if !ok {
		// The body, if the gateway sends one, will be read as the next
		// header.
		d.log.Error("Unimplemented message type",
			zap.Int("type", typeID),
			zap.Int("version", version),
			zap.Error(ErrUnimplementedMessageType))

		d.mu.Lock()
		d.status.Unimplemented++
		d.mu.Unlock()

		return nil
	}

	c := ctor(typeID, version)

	step, err := c.Next(nil)
	if err != nil {
		return err
	}

	if step.Done {
		return fmt.Errorf("%s(%d): %w", name, typeID, ErrImmediateCompletion)
	}

	return d.transition(awaitingContinuation{
		continuation: c,
		typeID:       typeID,
		version:      version,
		fieldCount:   step.Count,
		consumed:     protocol.HeaderFieldCount,
	})
}

func (d *Decoder) bodyReceived(ctx context.Context, fields []string) error {
	st := d.machine.State().(awaitingContinuation)
	consumed := st.consumed + len(fields)

	step, err := st.continuation.Next(fields)
	if err != nil {
		return d.abort(fmt.Errorf("decoding %s(%d): %w", protocol.MessageName(st.typeID), st.typeID, err))
	}

	if !step.Done {
		st.fieldCount = step.Count
		st.consumed = consumed
		return d.transition(st)
	}

	if consumed != len(step.Fields) {
		return d.abort(&FieldCountMismatchError{
			TypeID:   st.typeID,
			Consumed: consumed,
			Length:   len(step.Fields),
		})
	}

	msg := &protocol.Message{TypeID: st.typeID, Version: st.version, Fields: step.Fields}

	d.log.Info("Message parsed",
		zap.Int("fieldCount", len(msg.Fields)),
		zap.Int("type", msg.TypeID),
		zap.String("name", msg.Name()))

	if err := d.publisher.Publish(ctx, msg); err != nil {
		d.log.Error("Failed to publish message",
			zap.Int("type", msg.TypeID),
			zap.Error(err))
	}

	d.mu.Lock()
	d.status.Messages++
	d.mu.Unlock()

	return d.transition(awaitingHeader{})
}

// abort drops the message being parsed and returns to waiting for a header
// before reporting err.
func (d *Decoder) abort(err error) error {
	if terr := d.transition(awaitingHeader{}); terr != nil {
		return terr
	}

	return err
}

func (d *Decoder) transition(next statemachine.State) error {
	if err := d.machine.Transition(next); err != nil {
		return err
	}

	d.mu.Lock()
	d.status.State = d.machine.StateName()
	d.mu.Unlock()

	return nil
}

func (d *Decoder) writeField(ctx context.Context, field string) error {
	return d.writer.Write(ctx, protocol.EncodeFields(field))
}

var _ command.Writer = (*Decoder)(nil)
