package presence

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 64

// Conn is a live connection a user can be pushed to.
type Conn interface {
	// SessionID identifies this connection among the user's reconnects.
	SessionID() string
	// Send must not block; it fails when the connection cannot take the frame.
	Send(frame []byte) error
}

// Replayer is implemented by connections that can take a backlog larger
// than their send buffer by waiting for the writer to drain it.
type Replayer interface {
	Replay(frame []byte) error
}

type registryShard struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// Registry maps online user ids to their single live connection.
type Registry struct {
	shards [shardCount]*registryShard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{conns: make(map[string]Conn)}
	}
	return r
}

func shardIndex(userID string) uint64 {
	return xxhash.Sum64String(userID) % shardCount
}

func (r *Registry) shard(userID string) *registryShard {
	return r.shards[shardIndex(userID)]
}

// Register stores conn for userID and returns the connection it replaced.
func (r *Registry) Register(userID string, conn Conn) (Conn, bool) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, replaced := s.conns[userID]
	s.conns[userID] = conn
	return prev, replaced
}

// Unregister removes the entry only while it still belongs to sessionID.
func (r *Registry) Unregister(userID, sessionID string) bool {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.conns[userID]
	if !ok || current.SessionID() != sessionID {
		return false
	}
	delete(s.conns, userID)
	return true
}

func (r *Registry) Get(userID string) (Conn, bool) {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.conns[userID]
	return conn, ok
}

func (r *Registry) Online(userID string) bool {
	_, ok := r.Get(userID)
	return ok
}

func (r *Registry) Count() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		total += len(s.conns)
		s.mu.RUnlock()
	}
	return total
}
