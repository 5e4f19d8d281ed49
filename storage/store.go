// Package storage keeps decoded messages for the status API and the
// message logger.
package storage

import (
	"context"
	"errors"

	"github.com/luma/ibzmq/protocol"
)

var (
	ErrNotFound = errors.New("no message stored for type")
)

// Update is sent to listeners whenever a message is stored. Key is the path
// of the message in the store and Value its JSON encoding.
type Update struct {
	Key   []byte
	Value []byte
}

type Store interface {
	Append(ctx context.Context, msg *protocol.Message) error
	Latest(ctx context.Context, typeID int) (*protocol.Message, error)

	Close() error
}

// Listener is a Store that streams updates.
type Listener interface {
	ListenToUpdates() <-chan *Update
	Unlisten(ch <-chan *Update)
}
