package protocol

import (
	"bytes"
	"strconv"
)

// Request is a frame received on the command channel.
type Request interface {
	IsControl() bool
}

// ControlRequest is an out-of-band frame handled by the proxy itself.
type ControlRequest struct {
	Verb Command
	Args []string
}

func (c *ControlRequest) IsControl() bool {
	return true
}

// PassThroughRequest is written verbatim to the gateway connection.
type PassThroughRequest struct {
	Payload []byte
}

func (p *PassThroughRequest) IsControl() bool {
	return false
}

// RequestType returns the outgoing request id carried in the first field of
// the payload, if it has one.
func (p *PassThroughRequest) RequestType() (int, bool) {
	i := bytes.IndexByte(p.Payload, FieldDelimiter)
	if i < 0 {
		return 0, false
	}

	id, err := strconv.Atoi(string(p.Payload[:i]))
	if err != nil {
		return 0, false
	}

	return id, true
}

var _ Request = (*ControlRequest)(nil)
var _ Request = (*PassThroughRequest)(nil)
