package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	ErrMissingTerminator = errors.New("Message is malformed, it does not end in a field delimiter")
	ErrMessageTooShort   = errors.New("Message is malformed, it is shorter than a message header")
	ErrInvalidHeader     = errors.New("Message header is malformed, type id and version must be integers")
	ErrFieldTooLong      = errors.New("Field exceeds the maximum field size")
)

const (
	// FieldDelimiter terminates every field on the gateway connection.
	FieldDelimiter = '\x00'

	// HeaderFieldCount is the number of fields in a message header.
	HeaderFieldCount = 2

	// MaxFieldSize bounds a single field read from the gateway.
	MaxFieldSize = 64 * 1024
)

// ScanFields is a bufio.SplitFunc that yields NUL terminated fields without
// their terminator. A trailing partial field at EOF is an error, the gateway
// always terminates what it sends.
func ScanFields(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, FieldDelimiter); i >= 0 {
		return i + 1, data[:i], nil
	}

	if len(data) > MaxFieldSize {
		return 0, nil, ErrFieldTooLong
	}

	if atEOF {
		return 0, nil, ErrMissingTerminator
	}

	// Request more data.
	return 0, nil, nil
}

// NewFieldScanner returns a scanner that splits the gateway byte stream into
// fields.
func NewFieldScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxFieldSize+1)
	s.Split(ScanFields)
	return s
}

// SplitFields splits a NUL terminated run of fields. The final delimiter is
// required.
func SplitFields(data []byte) ([]string, error) {
	if len(data) == 0 || data[len(data)-1] != FieldDelimiter {
		return nil, ErrMissingTerminator
	}

	raw := bytes.Split(data[:len(data)-1], []byte{FieldDelimiter})
	fields := make([]string, len(raw))
	for i, f := range raw {
		fields[i] = string(f)
	}

	return fields, nil
}

// DecodeMessage parses one broadcast message.
func DecodeMessage(data []byte) (*Message, error) {
	fields, err := SplitFields(data)
	if err != nil {
		return nil, err
	}

	return NewMessage(fields)
}

// ParseHeader parses the two header fields of an inbound message.
func ParseHeader(fields []string) (typeID int, version int, err error) {
	if len(fields) < HeaderFieldCount {
		return 0, 0, ErrMessageTooShort
	}

	typeID, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("Failed to parse type id '%s': %w", fields[0], ErrInvalidHeader)
	}

	version, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("Failed to parse version '%s': %w", fields[1], ErrInvalidHeader)
	}

	return typeID, version, nil
}

// ParseRequest classifies a command channel payload as either a control
// frame or a pass-through frame.
func ParseRequest(payload []byte) Request {
	if bytes.HasPrefix(payload, PrefixOOB) {
		fields := bytes.Split(payload[len(PrefixOOB):], []byte{FieldDelimiter})

		req := &ControlRequest{Verb: Command(fields[0])}
		for _, arg := range fields[1:] {
			if len(arg) > 0 {
				req.Args = append(req.Args, string(arg))
			}
		}

		return req
	}

	return &PassThroughRequest{Payload: payload}
}

// ParseReply parses the reply to a command frame.
func ParseReply(data []byte) (*Reply, error) {
	switch {
	case bytes.Equal(data, ReplyOK):
		return &Reply{Type: RespOk}, nil

	case bytes.Equal(data, ReplyErr):
		return &Reply{Type: RespErr}, nil

	default:
		return nil, fmt.Errorf("Failed to parse reply '%s': %w", string(data), ErrUnknownReply)
	}
}
