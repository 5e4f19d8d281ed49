package protocol

import (
	"errors"
	"io"
)

var (
	ErrNoFields = errors.New("Cannot write zero fields")
)

// EncodeFields joins fields with the field delimiter and terminates the last
// one.
func EncodeFields(fields ...string) []byte {
	size := len(fields)
	for _, f := range fields {
		size += len(f)
	}

	b := make([]byte, 0, size)
	for _, f := range fields {
		b = append(b, f...)
		b = append(b, FieldDelimiter)
	}

	return b
}

// WriteFields writes fields to w in a single Write call.
func WriteFields(w io.Writer, fields ...string) error {
	if len(fields) == 0 {
		return ErrNoFields
	}

	_, err := w.Write(EncodeFields(fields...))
	return err
}

// EncodeControl builds an out-of-band control frame.
func EncodeControl(verb Command, args ...string) []byte {
	b := append([]byte{}, PrefixOOB...)
	b = append(b, verb...)

	for _, arg := range args {
		b = append(b, FieldDelimiter)
		b = append(b, arg...)
	}

	return b
}
