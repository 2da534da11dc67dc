package usecase

import (
	"context"

	"marketchat/internal/infrastructure/presence"
	"marketchat/pkg/errors"
	"marketchat/pkg/logger"
)

// Dispatcher pushes frames to online users and parks the rest until the
// recipient's next connect.
type Dispatcher struct {
	registry *presence.Registry
	pending  *presence.PendingQueue
	mirror   presence.Mirror
}

// NewDispatcher builds a dispatcher; mirror may be nil.
func NewDispatcher(registry *presence.Registry, pending *presence.PendingQueue, mirror presence.Mirror) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		pending:  pending,
		mirror:   mirror,
	}
}

// Connect registers conn as the user's live connection and replays the
// user's pending queue oldest first. It returns how many frames were replayed.
func (d *Dispatcher) Connect(ctx context.Context, userID string, conn presence.Conn) (int, error) {
	if userID == "" {
		return 0, errors.Unauthorized("Connection has no authenticated user", nil)
	}

	if prev, replaced := d.registry.Register(userID, conn); replaced {
		logger.Info("Presence: user %s reconnected, session %s replaces %s", userID, conn.SessionID(), prev.SessionID())
	}

	if d.mirror != nil {
		if err := d.mirror.SetOnline(ctx, userID); err != nil {
			logger.Warn("Presence: failed to mirror online state for %s: %v", userID, err)
		}
	}

	return d.flush(userID, conn), nil
}

// flush stops at the first failed send and puts that frame and everything
// after it back at the head of the queue.
func (d *Dispatcher) flush(userID string, conn presence.Conn) int {
	send := conn.Send
	if r, ok := conn.(presence.Replayer); ok {
		send = r.Replay
	}

	items := d.pending.Drain(userID)
	for i, item := range items {
		if err := send(item.Frame); err != nil {
			d.pending.Requeue(userID, items[i:])
			logger.LogDeliveryFailure(userID, item.MessageID, err)
			return i
		}
	}

	if len(items) > 0 {
		logger.Info("Presence: replayed %d pending messages to %s", len(items), userID)
	}
	return len(items)
}

// Disconnect drops the registration if it still belongs to sessionID.
func (d *Dispatcher) Disconnect(ctx context.Context, userID, sessionID string) bool {
	if !d.registry.Unregister(userID, sessionID) {
		logger.Debug("Presence: ignoring stale disconnect of %s session %s", userID, sessionID)
		return false
	}

	if d.mirror != nil {
		if err := d.mirror.SetOffline(ctx, userID); err != nil {
			logger.Warn("Presence: failed to mirror offline state for %s: %v", userID, err)
		}
	}
	return true
}

// Deliver pushes the frame if the user is online, otherwise or on a failed
// push it is queued. It reports whether the push succeeded.
func (d *Dispatcher) Deliver(userID string, item presence.Pending) bool {
	conn, online := d.registry.Get(userID)
	if online {
		err := conn.Send(item.Frame)
		if err == nil {
			return true
		}
		logger.LogDeliveryFailure(userID, item.MessageID, err)
	}

	d.pending.Enqueue(userID, item)

	// a connect may have registered and drained between the lookup and the
	// enqueue; without another flush the frame would wait for the next one
	if !online {
		if conn, ok := d.registry.Get(userID); ok {
			d.flush(userID, conn)
		}
	}
	return false
}

// PushIfOnline sends an ephemeral frame that is dropped when the user is offline.
func (d *Dispatcher) PushIfOnline(userID string, frame []byte) bool {
	conn, ok := d.registry.Get(userID)
	if !ok {
		return false
	}
	if err := conn.Send(frame); err != nil {
		logger.Debug("Presence: dropped ephemeral frame for %s: %v", userID, err)
		return false
	}
	return true
}

// IsOnline consults the local registry first and the mirror after.
func (d *Dispatcher) IsOnline(ctx context.Context, userID string) bool {
	if d.registry.Online(userID) {
		return true
	}
	if d.mirror == nil {
		return false
	}

	online, err := d.mirror.IsOnline(ctx, userID)
	if err != nil {
		logger.Warn("Presence: mirror lookup failed for %s: %v", userID, err)
		return false
	}
	return online
}

func (d *Dispatcher) PendingCount(userID string) int {
	return d.pending.Len(userID)
}
