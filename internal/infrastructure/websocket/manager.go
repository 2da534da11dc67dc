package websocket

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketchat/internal/domain/entity"
	"marketchat/internal/infrastructure/presence"
	"marketchat/internal/infrastructure/ratelimit"
	"marketchat/internal/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	DefaultSendBuffer = 256
)

var (
	ErrClientClosed   = errors.New("websocket client closed")
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Client is one authenticated socket. It satisfies presence.Conn and
// presence.Replayer.
type Client struct {
	UserID    string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		UserID:    userID,
		sessionID: uuid.New().String(),
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send queues a frame for the write pump without blocking.
func (c *Client) Send(frame []byte) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Replay queues a backlog frame, waiting up to writeWait for the write pump
// to make room.
func (c *Client) Replay(frame []byte) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-timer.C:
		return ErrSendBufferFull
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

type Presence interface {
	Connect(ctx context.Context, userID string, conn presence.Conn) (int, error)
	Disconnect(ctx context.Context, userID, sessionID string) bool
}

type MessageService interface {
	Ingest(ctx context.Context, input usecase.IngestInput) (*entity.Message, error)
	Typing(ctx context.Context, roomID, userID string, typing bool) error
}

type ReadService interface {
	MarkRead(ctx context.Context, roomID, recipientID string) (int, error)
}

// Manager runs the socket lifecycle and routes inbound frames to the chat use cases.
type Manager struct {
	presence   Presence
	messages   MessageService
	reads      ReadService
	limiter    *ratelimit.RateLimiter
	sendBuffer int
}

func NewManager(dispatcher Presence, messages MessageService, reads ReadService, limiter *ratelimit.RateLimiter, sendBuffer int) *Manager {
	if limiter == nil {
		limiter = ratelimit.NewRateLimiter()
	}
	return &Manager{
		presence:   dispatcher,
		messages:   messages,
		reads:      reads,
		limiter:    limiter,
		sendBuffer: sendBuffer,
	}
}

// Serve owns conn until it closes. userID must already be authenticated.
func (m *Manager) Serve(ctx context.Context, userID string, conn *websocket.Conn) error {
	client := NewClient(userID, conn, m.sendBuffer)

	go client.WritePump()

	replayed, err := m.presence.Connect(ctx, userID, client)
	if err != nil {
		client.Close()
		return err
	}
	log.Printf("WebSocket: client %s connected (session %s, replayed %d)", userID, client.SessionID(), replayed)

	client.ReadPump(func(raw []byte) {
		m.HandleClientMessage(ctx, client, raw)
	})

	m.presence.Disconnect(context.Background(), userID, client.SessionID())
	client.Close()
	log.Printf("WebSocket: client %s disconnected (session %s)", userID, client.SessionID())
	return nil
}

// ReadPump reads frames until the peer goes away.
func (c *Client) ReadPump(handle func([]byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket: read error for %s: %v", c.UserID, err)
			}
			return
		}
		handle(message)
	}
}

// WritePump writes one frame per websocket message and keeps the peer alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket: write error for %s: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
