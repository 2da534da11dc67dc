package presence

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const onlineSetKey = "presence:online"

// Mirror publishes local presence changes to a shared store.
type Mirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
	Close() error
}

type RedisMirror struct {
	client *redis.Client
}

func NewRedisMirror(addr string) *RedisMirror {
	return &RedisMirror{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// NewRedisMirrorFromClient wraps an existing client.
func NewRedisMirrorFromClient(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *RedisMirror) SetOnline(ctx context.Context, userID string) error {
	return m.client.SAdd(ctx, onlineSetKey, userID).Err()
}

func (m *RedisMirror) SetOffline(ctx context.Context, userID string) error {
	return m.client.SRem(ctx, onlineSetKey, userID).Err()
}

func (m *RedisMirror) IsOnline(ctx context.Context, userID string) (bool, error) {
	return m.client.SIsMember(ctx, onlineSetKey, userID).Result()
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
