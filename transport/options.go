package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/ibzmq/continuation"
	"github.com/luma/ibzmq/decoder"
)

type Options struct {
	// Host of the gateway
	Host string

	// Port of the gateway
	Port int

	// ClientID is sent to the gateway after the handshake
	ClientID int

	// ClientVersion defaults to protocol.ClientVersion
	ClientVersion int

	// DialTimeout bounds each connection attempt
	DialTimeout time.Duration

	// ReconnectAttempts is the number of dials made before giving up, and
	// ReconnectBackoff the initial delay between them. The delay doubles
	// after each failed attempt.
	ReconnectAttempts int
	ReconnectBackoff  time.Duration

	// Trace logs every field read from the gateway. This is only useful in
	// local debugging
	Trace bool

	Registry  *continuation.Registry
	Publisher decoder.Publisher
	Registrar decoder.Registrar

	Log *zap.Logger
}
