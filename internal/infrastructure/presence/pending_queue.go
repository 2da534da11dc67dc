package presence

import "sync"

// Pending is an encoded frame waiting for its recipient to reconnect.
type Pending struct {
	MessageID string
	Frame     []byte
}

type queueShard struct {
	mu     sync.Mutex
	queues map[string][]Pending
}

// PendingQueue holds a FIFO of undelivered frames per user.
type PendingQueue struct {
	shards [shardCount]*queueShard
}

func NewPendingQueue() *PendingQueue {
	q := &PendingQueue{}
	for i := range q.shards {
		q.shards[i] = &queueShard{queues: make(map[string][]Pending)}
	}
	return q
}

func (q *PendingQueue) shard(userID string) *queueShard {
	return q.shards[shardIndex(userID)]
}

func (q *PendingQueue) Enqueue(userID string, item Pending) {
	s := q.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues[userID] = append(s.queues[userID], item)
}

// Drain removes and returns the whole queue for userID, oldest first.
func (q *PendingQueue) Drain(userID string) []Pending {
	s := q.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.queues[userID]
	delete(s.queues, userID)
	return items
}

// Requeue puts items back in front of anything enqueued since the drain.
func (q *PendingQueue) Requeue(userID string, items []Pending) {
	if len(items) == 0 {
		return
	}

	s := q.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]Pending, 0, len(items)+len(s.queues[userID]))
	merged = append(merged, items...)
	merged = append(merged, s.queues[userID]...)
	s.queues[userID] = merged
}

func (q *PendingQueue) Len(userID string) int {
	s := q.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queues[userID])
}
