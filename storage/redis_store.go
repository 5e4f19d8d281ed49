package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/sjson"

	"github.com/luma/ibzmq/protocol"
)

// RedisStore appends every message to a capped Redis list, newest first, and
// keeps the latest message of each type in a hash at <key>:latest.
//
// List entries are the message JSON with a "time" field holding the time it
// was stored.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	maxLen int64

	now func() time.Time
}

// NewRedisStore returns a store writing to key. A maxLen of zero leaves the
// list unbounded.
func NewRedisStore(client redis.UniversalClient, key string, maxLen int64) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		maxLen: maxLen,
		now:    time.Now,
	}
}

func (r *RedisStore) latestKey() string {
	return r.key + ":latest"
}

func (r *RedisStore) Append(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Marshal()
	if err != nil {
		return err
	}

	entry, err := sjson.SetBytes(data, "time", r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, entry)
		if r.maxLen > 0 {
			pipe.LTrim(ctx, r.key, 0, r.maxLen-1)
		}
		pipe.HSet(ctx, r.latestKey(), strconv.Itoa(msg.TypeID), data)
		return nil
	})

	return err
}

func (r *RedisStore) Latest(ctx context.Context, typeID int) (*protocol.Message, error) {
	data, err := r.client.HGet(ctx, r.latestKey(), strconv.Itoa(typeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	msg := &protocol.Message{}
	if err := msg.Unmarshal(data); err != nil {
		return nil, err
	}

	return msg, nil
}

// Recent returns up to n of the most recently appended messages, newest first.
func (r *RedisStore) Recent(ctx context.Context, n int64) ([]*protocol.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	entries, err := r.client.LRange(ctx, r.key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]*protocol.Message, 0, len(entries))
	for _, entry := range entries {
		msg := &protocol.Message{}
		if err := msg.Unmarshal([]byte(entry)); err != nil {
			return nil, err
		}

		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
