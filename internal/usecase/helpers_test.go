package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	memrepo "marketchat/internal/adapter/repository"
	"marketchat/internal/domain/entity"
	"marketchat/internal/infrastructure/events"
	"marketchat/internal/infrastructure/presence"
)

var testCtx = context.Background()

const (
	sellerID  = "seller-1"
	buyerID   = "buyer-1"
	buyer2ID  = "buyer-2"
	adminID   = "admin-1"
	productID = "product-1"
)

type fakeConn struct {
	session string

	mu     sync.Mutex
	frames [][]byte
	// failAt makes the Nth send (zero based) and every later one fail; -1 never fails.
	failAt int
}

func newFakeConn(session string) *fakeConn {
	return &fakeConn{session: session, failAt: -1}
}

func (c *fakeConn) SessionID() string { return c.session }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt >= 0 && len(c.frames) >= c.failAt {
		return fmt.Errorf("connection %s closed", c.session)
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []decodedFrame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]decodedFrame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f decodedFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

type decodedFrame struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id"`
	Data   json.RawMessage `json:"data"`
}

func (f decodedFrame) message(t *testing.T) entity.Message {
	t.Helper()
	var m entity.Message
	require.NoError(t, json.Unmarshal(f.Data, &m))
	return m
}

type counterSeq struct{ n int64 }

func (s *counterSeq) Generate() int64 { return atomic.AddInt64(&s.n, 1) }

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
}

func (p *recordingPublisher) Publish(_ context.Context, event events.MessageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event.MessageID)
	return nil
}

type fixture struct {
	store      *memrepo.MemoryStore
	registry   *presence.Registry
	pending    *presence.PendingQueue
	dispatcher *Dispatcher
	rooms      *ChatRoomUseCase
	notifier   *Notifier
	messages   *ChatMessageUseCase
	history    *HistoryUseCase
	publisher  *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memrepo.NewMemoryStore()
	store.PutUser(&entity.User{ID: sellerID, Username: "seller", Role: entity.RoleUser})
	store.PutUser(&entity.User{ID: buyerID, Username: "buyer", Role: entity.RoleUser})
	store.PutUser(&entity.User{ID: buyer2ID, Username: "buyer2", Role: entity.RoleUser})
	store.PutUser(&entity.User{ID: adminID, Username: "admin", Role: entity.RoleAdmin})
	store.PutProduct(&entity.Product{ID: productID, SellerID: sellerID, Title: "Keyboard", Status: entity.ProductNew})

	registry := presence.NewRegistry()
	pending := presence.NewPendingQueue()
	dispatcher := NewDispatcher(registry, pending, nil)
	seq := &counterSeq{}
	publisher := &recordingPublisher{}
	notifier := NewNotifier(store.Chats(), store.Users(), dispatcher, seq)

	return &fixture{
		store:      store,
		registry:   registry,
		pending:    pending,
		dispatcher: dispatcher,
		rooms:      NewChatRoomUseCase(store.Chats(), store.Products(), store.Users(), dispatcher),
		notifier:   notifier,
		messages:   NewChatMessageUseCase(store.Chats(), store.Users(), dispatcher, notifier, publisher, seq),
		history:    NewHistoryUseCase(store.Chats(), store.Transactions()),
		publisher:  publisher,
	}
}

func (f *fixture) openRoom(t *testing.T) *entity.ChatRoom {
	t.Helper()
	room, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyerID})
	require.NoError(t, err)
	return room
}

func (f *fixture) connect(t *testing.T, userID string) *fakeConn {
	t.Helper()
	conn := newFakeConn(userID + "-session")
	_, err := f.dispatcher.Connect(testCtx, userID, conn)
	require.NoError(t, err)
	return conn
}
