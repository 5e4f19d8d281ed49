package protocol

import "errors"

var (
	ErrRejected = errors.New("Command was rejected by the proxy")
)

// Reply is the proxy's answer to a command frame.
type Reply struct {
	Type ResponseType
}

// ErrorOrNil returns ErrRejected if the reply is ERR. Otherwise it returns nil.
func (r *Reply) ErrorOrNil() error {
	if r.Type == RespErr {
		return ErrRejected
	}

	return nil
}
