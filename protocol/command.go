package protocol

import "errors"

var (
	ErrUnknownReply = errors.New("Unknown reply could not be parsed")

	// PrefixOOB starts every out-of-band control frame.
	PrefixOOB = []byte("OOB\x00")

	ReplyOK  = []byte("OK")
	ReplyErr = []byte("ERR")
)

// Command is an out-of-band control verb.
type Command string

const (
	NOP Command = "NOP"
)

type ResponseType string

const (
	RespOk  ResponseType = "OK"
	RespErr ResponseType = "ERR"
)
