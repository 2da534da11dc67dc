package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/pkg/errors"
)

// MemoryStore keeps every collection in process memory. It backs
// STORE_DRIVER=memory and the tests.
type MemoryStore struct {
	mu           sync.RWMutex
	rooms        map[string]*entity.ChatRoom
	participants map[string]map[string]*entity.Participant
	messages     map[string][]*entity.Message
	notices      []*entity.Message
	transactions map[string]*entity.Transaction
	products     map[string]*entity.Product
	users        map[string]*entity.User
	userOrder    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:        make(map[string]*entity.ChatRoom),
		participants: make(map[string]map[string]*entity.Participant),
		messages:     make(map[string][]*entity.Message),
		transactions: make(map[string]*entity.Transaction),
		products:     make(map[string]*entity.Product),
		users:        make(map[string]*entity.User),
	}
}

type memoryChatRepository struct{ s *MemoryStore }
type memoryTransactionRepository struct{ s *MemoryStore }
type memoryProductRepository struct{ s *MemoryStore }
type memoryUserRepository struct{ s *MemoryStore }

func (s *MemoryStore) Chats() repository.ChatRepository { return &memoryChatRepository{s} }
func (s *MemoryStore) Transactions() repository.TransactionRepository {
	return &memoryTransactionRepository{s}
}
func (s *MemoryStore) Products() repository.ProductRepository { return &memoryProductRepository{s} }
func (s *MemoryStore) Users() repository.UserRepository       { return &memoryUserRepository{s} }

// Chat rooms

func (r *memoryChatRepository) CreateRoom(ctx context.Context, room *entity.ChatRoom, participants []*entity.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.rooms[room.ID]; exists {
		return errors.Conflict("Chat room already exists")
	}

	stored := *room
	stored.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	r.s.rooms[room.ID] = &stored

	rows := make(map[string]*entity.Participant, len(participants))
	for _, p := range participants {
		cp := *p
		rows[p.UserID] = &cp
	}
	r.s.participants[room.ID] = rows
	return nil
}

func (r *memoryChatRepository) GetRoom(ctx context.Context, id string) (*entity.ChatRoom, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok {
		return nil, errors.NotFound("Chat room", nil)
	}
	cp := *room
	return &cp, nil
}

func (r *memoryChatRepository) FindRoom(ctx context.Context, subjectID, userA, userB string) (*entity.ChatRoom, error) {
	// a room always pairs two distinct users
	if userA == userB {
		return nil, errors.NotFound("Chat room", nil)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, room := range r.s.rooms {
		if room.SubjectID == subjectID && room.HasParticipant(userA) && room.HasParticipant(userB) {
			cp := *room
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Chat room", nil)
}

func (r *memoryChatRepository) ListRoomsByUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rooms []*entity.ChatRoom
	for _, room := range r.s.rooms {
		if room.HasParticipant(userID) {
			cp := *room
			rooms = append(rooms, &cp)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	return rooms, nil
}

func (r *memoryChatRepository) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	room, ok := r.s.rooms[roomID]
	if !ok {
		return errors.NotFound("Chat room", nil)
	}
	room.LastMessageAt = at
	return nil
}

func (r *memoryChatRepository) ListParticipants(ctx context.Context, roomID string) ([]*entity.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, ok := r.s.participants[roomID]
	if !ok {
		return nil, errors.NotFound("Chat room", nil)
	}

	participants := make([]*entity.Participant, 0, len(rows))
	for _, p := range rows {
		cp := *p
		participants = append(participants, &cp)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].UserID < participants[j].UserID
	})
	return participants, nil
}

func (r *memoryChatRepository) UpdateParticipantStatus(ctx context.Context, roomID, userID string, status entity.ParticipantStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.participants[roomID][userID]
	if !ok {
		return errors.NotFound("Participant", nil)
	}
	p.Status = status
	return nil
}

func (r *memoryChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *message
	if message.RoomID == "" {
		r.s.notices = append(r.s.notices, &cp)
		return nil
	}
	if _, ok := r.s.rooms[message.RoomID]; !ok {
		return errors.NotFound("Chat room", nil)
	}
	r.s.messages[message.RoomID] = append(r.s.messages[message.RoomID], &cp)
	return nil
}

func (r *memoryChatRepository) ListMessages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.messages[roomID]
	messages := make([]*entity.Message, len(stored))
	for i, m := range stored {
		cp := *m
		messages[i] = &cp
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].Seq < messages[j].Seq
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (r *memoryChatRepository) LastMessage(ctx context.Context, roomID string) (*entity.Message, error) {
	messages, err := r.ListMessages(ctx, roomID)
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	return messages[len(messages)-1], nil
}

func (r *memoryChatRepository) HasUnread(ctx context.Context, roomID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, m := range r.s.messages[roomID] {
		if m.SenderID != userID && !m.Read {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryChatRepository) MarkRoomRead(ctx context.Context, roomID, recipientID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rooms[roomID]; !ok {
		return 0, errors.NotFound("Chat room", nil)
	}

	updated := 0
	for _, m := range r.s.messages[roomID] {
		if m.SenderID != recipientID && !m.Read {
			m.Read = true
			updated++
		}
	}
	return updated, nil
}

// Notices returns room-less notices in insertion order.
func (s *MemoryStore) Notices() []*entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*entity.Message(nil), s.notices...)
}

// Transactions

func (s *MemoryStore) PutTransaction(tx *entity.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.ID] = &cp
}

func (r *memoryTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, errors.NotFound("Transaction", nil)
	}
	cp := *tx
	return &cp, nil
}

func (r *memoryTransactionRepository) FindBySubject(ctx context.Context, productID, buyerID, sellerID string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *entity.Transaction
	for _, tx := range r.s.transactions {
		if tx.ProductID != productID || tx.BuyerID != buyerID || tx.SellerID != sellerID {
			continue
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, errors.NotFound("Transaction", nil)
	}
	cp := *latest
	return &cp, nil
}

// Products

func (s *MemoryStore) PutProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

func (r *memoryProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	cp := *p
	return &cp, nil
}

// Users

func (s *MemoryStore) PutUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; !exists {
		s.userOrder = append(s.userOrder, u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepository) ListIDs(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]string(nil), r.s.userOrder...), nil
}
