package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/luma/ibzmq/protocol"
)

const (
	UpdateBufferSize = 255
)

// InmemoryStore holds the latest message of each type, and a count per type,
// in a single JSON document:
//
//	{"latest":{"type_1":{"type":1,...}},"counts":{"type_1":3}}
type InmemoryStore struct {
	valuesMu sync.RWMutex
	values   []byte

	mu          sync.Mutex
	updateChans []chan *Update

	// stop will be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values:      []byte("{}"),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

// LatestKey is the path of the latest message of typeID, as sent in updates.
func LatestKey(typeID int) string {
	return fmt.Sprintf("latest.type_%d", typeID)
}

func countPath(typeID int) string {
	return fmt.Sprintf("counts.type_%d", typeID)
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return nil
	}

	close(i.stop)

	for _, updateChan := range i.updateChans {
		close(updateChan)
	}
	i.updateChans = nil

	return nil
}

func (i *InmemoryStore) Append(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Marshal()
	if err != nil {
		return err
	}

	key := LatestKey(msg.TypeID)

	i.valuesMu.Lock()
	values, err := sjson.SetRawBytes(i.values, key, data)
	if err == nil {
		count := gjson.GetBytes(values, countPath(msg.TypeID)).Int()
		values, err = sjson.SetBytes(values, countPath(msg.TypeID), count+1)
	}
	if err == nil {
		i.values = values
	}
	i.valuesMu.Unlock()

	if err != nil {
		return err
	}

	i.notify(&Update{Key: []byte(key), Value: data})
	return nil
}

func (i *InmemoryStore) Latest(ctx context.Context, typeID int) (*protocol.Message, error) {
	i.valuesMu.RLock()
	result := gjson.GetBytes(i.values, LatestKey(typeID))
	i.valuesMu.RUnlock()

	if !result.Exists() {
		return nil, ErrNotFound
	}

	msg := &protocol.Message{}
	if err := msg.Unmarshal([]byte(result.Raw)); err != nil {
		return nil, err
	}

	return msg, nil
}

// Count returns how many messages of typeID have been stored.
func (i *InmemoryStore) Count(typeID int) int64 {
	i.valuesMu.RLock()
	defer i.valuesMu.RUnlock()

	return gjson.GetBytes(i.values, countPath(typeID)).Int()
}

// ListenToUpdates returns a channel receiving every later Append. Slow
// listeners miss updates rather than block the writer.
func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, UpdateBufferSize)

	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)
	return updateChan
}

func (i *InmemoryStore) Unlisten(ch <-chan *Update) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for n, updateChan := range i.updateChans {
		if updateChan == ch {
			close(updateChan)
			i.updateChans = append(i.updateChans[:n], i.updateChans[n+1:]...)
			return
		}
	}
}

func (i *InmemoryStore) Restore(values []byte) error {
	if !gjson.ValidBytes(values) {
		return protocol.ErrInvalidJSON
	}

	i.valuesMu.Lock()
	defer i.valuesMu.Unlock()

	i.values = append([]byte{}, values...)
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.valuesMu.RLock()
	defer i.valuesMu.RUnlock()

	return append([]byte{}, i.values...), nil
}

func (i *InmemoryStore) notify(update *Update) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:
		default:
		}
	}
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
var _ Listener = (*InmemoryStore)(nil)
