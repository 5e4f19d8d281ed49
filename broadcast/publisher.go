// Package broadcast fans decoded messages out to subscribers.
package broadcast

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/luma/ibzmq/protocol"
	"github.com/luma/ibzmq/storage"
)

var (
	ErrNoPublishers = errors.New("fanout has no publishers")
)

// Publisher sends one message to its subscribers. Publishing never blocks on
// subscribers being present.
type Publisher interface {
	Publish(ctx context.Context, msg *protocol.Message) error
}

// Fanout publishes to every publisher in turn. A failing publisher does not
// stop the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, msg *protocol.Message) (err error) {
	if len(f) == 0 {
		return ErrNoPublishers
	}

	for _, p := range f {
		err = multierr.Append(err, p.Publish(ctx, msg))
	}

	return err
}

// StorePublisher records messages in a store.
type StorePublisher struct {
	store storage.Store
}

func NewStorePublisher(store storage.Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (s *StorePublisher) Publish(ctx context.Context, msg *protocol.Message) error {
	return s.store.Append(ctx, msg)
}

var _ Publisher = (Fanout)(nil)
var _ Publisher = (*StorePublisher)(nil)
