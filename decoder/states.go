package decoder

import (
	"github.com/luma/ibzmq/continuation"
	"github.com/luma/ibzmq/protocol"
	"github.com/luma/ibzmq/statemachine"
)

const (
	Disconnected          statemachine.Kind = "Disconnected"
	Connecting            statemachine.Kind = "Connecting"
	AwaitingMessageHeader statemachine.Kind = "AwaitingMessageHeader"
	AwaitingContinuation  statemachine.Kind = "AwaitingContinuation"
)

// handshakeFieldCount is the size of the gateway's answer to our client
// version: server version and connection time.
const handshakeFieldCount = 2

// Transitions is the session protocol's transition table.
var Transitions = statemachine.MustNewTable(
	[]statemachine.Kind{Disconnected, Connecting, AwaitingMessageHeader, AwaitingContinuation},
	map[statemachine.Kind][]statemachine.Kind{
		Disconnected:          {Connecting},
		Connecting:            {AwaitingMessageHeader},
		AwaitingMessageHeader: {AwaitingContinuation},
		AwaitingContinuation:  {AwaitingContinuation, AwaitingMessageHeader},
	},
)

type disconnected struct{}

func (disconnected) Kind() statemachine.Kind { return Disconnected }

type connecting struct{}

func (connecting) Kind() statemachine.Kind { return Connecting }

type awaitingHeader struct{}

func (awaitingHeader) Kind() statemachine.Kind { return AwaitingMessageHeader }

// awaitingContinuation holds the message being parsed. consumed counts every
// field read for the message so far, header included.
type awaitingContinuation struct {
	continuation continuation.Continuation
	typeID       int
	version      int
	fieldCount   int
	consumed     int
}

func (awaitingContinuation) Kind() statemachine.Kind { return AwaitingContinuation }

// expectedFieldCount is the number of fields a state buffers before it is
// dispatched. Disconnected accepts no fields.
func expectedFieldCount(s statemachine.State) (int, bool) {
	switch st := s.(type) {
	case connecting:
		return handshakeFieldCount, true
	case awaitingHeader:
		return protocol.HeaderFieldCount, true
	case awaitingContinuation:
		return st.fieldCount, true
	default:
		return 0, false
	}
}
