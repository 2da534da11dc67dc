package usecase

import (
	"context"
	"log"
	"time"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/pkg/errors"
	"marketchat/pkg/utils"
)

type ChatRoomUseCase struct {
	chatRepo    repository.ChatRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	dispatcher  *Dispatcher
	now         func() time.Time
}

func NewChatRoomUseCase(
	chatRepo repository.ChatRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	dispatcher *Dispatcher,
) *ChatRoomUseCase {
	return &ChatRoomUseCase{
		chatRepo:    chatRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type FindOrCreateInput struct {
	SubjectID   string
	InitiatorID string
	// CounterpartID lets a subject owner reopen the room with one specific buyer.
	CounterpartID string
}

// FindOrCreate returns the room for the subject between its owner and the
// initiator, creating it with both users ACTIVE when none exists yet.
func (uc *ChatRoomUseCase) FindOrCreate(ctx context.Context, input FindOrCreateInput) (*entity.ChatRoom, bool, error) {
	product, err := uc.productRepo.GetByID(ctx, input.SubjectID)
	if err != nil {
		return nil, false, err
	}
	if _, err := uc.userRepo.GetByID(ctx, input.InitiatorID); err != nil {
		return nil, false, err
	}

	ownerID := product.SellerID
	otherID := input.InitiatorID
	if input.InitiatorID == ownerID {
		if input.CounterpartID == "" || input.CounterpartID == ownerID {
			return nil, false, errors.Forbidden("Seller must name the buyer to reopen a chat on their own product", nil)
		}
		otherID = input.CounterpartID
	}

	room, err := uc.chatRepo.FindRoom(ctx, product.ID, ownerID, otherID)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, false, err
	}

	if input.InitiatorID == ownerID {
		return nil, false, errors.Forbidden("Seller cannot start a new chat on their own product", nil)
	}

	now := uc.now()
	room = &entity.ChatRoom{
		ID:             entity.RoomIDFor(product.ID, ownerID, input.InitiatorID),
		SubjectID:      product.ID,
		ParticipantIDs: []string{ownerID, input.InitiatorID},
		CreatedAt:      now,
		LastMessageAt:  now,
	}
	participants := []*entity.Participant{
		{RoomID: room.ID, UserID: ownerID, JoinedAt: now, Status: entity.ParticipantActive},
		{RoomID: room.ID, UserID: input.InitiatorID, JoinedAt: now, Status: entity.ParticipantActive},
	}

	if err := uc.chatRepo.CreateRoom(ctx, room, participants); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			// lost a creation race; the winner's room is the answer
			existing, getErr := uc.chatRepo.GetRoom(ctx, room.ID)
			return existing, false, getErr
		}
		log.Printf("FindOrCreate Error: failed to create room for product %s: %v", product.ID, err)
		return nil, false, err
	}

	return room, true, nil
}

// Leave marks the user EXITED. It is refused while the subject is reserved.
func (uc *ChatRoomUseCase) Leave(ctx context.Context, roomID, userID string) error {
	room, err := uc.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	participants, err := uc.chatRepo.ListParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	var self *entity.Participant
	for _, p := range participants {
		if p.UserID == userID {
			self = p
			break
		}
	}
	if self == nil {
		return errors.NotFound("Participant", nil)
	}

	product, err := uc.productRepo.GetByID(ctx, room.SubjectID)
	if err != nil {
		return err
	}
	if product.IsLocked() {
		return errors.Forbidden("Cannot leave the chat while the product is reserved", nil)
	}

	if !self.IsActive() {
		return nil
	}
	return uc.chatRepo.UpdateParticipantStatus(ctx, roomID, userID, entity.ParticipantExited)
}

func (uc *ChatRoomUseCase) ActiveParticipants(ctx context.Context, roomID string) ([]string, error) {
	if _, err := uc.chatRepo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return activeParticipantIDs(ctx, uc.chatRepo, roomID)
}

// MarkRead flips every message from the other side to read and, when
// anything changed, tells the online counterpart.
func (uc *ChatRoomUseCase) MarkRead(ctx context.Context, roomID, recipientID string) (int, error) {
	room, err := uc.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !room.HasParticipant(recipientID) {
		return 0, errors.Forbidden("User is not a participant in this chat", nil)
	}

	updated, err := uc.chatRepo.MarkRoomRead(ctx, roomID, recipientID)
	if err != nil {
		return 0, err
	}
	if updated == 0 {
		return 0, nil
	}

	active, err := activeParticipantIDs(ctx, uc.chatRepo, roomID)
	if err != nil {
		log.Printf("MarkRead Error: read receipts for room %s not sent: %v", roomID, err)
		return updated, nil
	}

	frame, err := encodeFrame(FrameMessagesRead, roomID, ReadConfirmation{
		ChatID:   roomID,
		ReaderID: recipientID,
		Count:    updated,
	})
	if err != nil {
		return updated, nil
	}
	for _, counterpart := range without(active, recipientID) {
		uc.dispatcher.PushIfOnline(counterpart, frame)
	}

	return updated, nil
}

// ListRooms returns one page of the user's rooms, most recently active first.
func (uc *ChatRoomUseCase) ListRooms(ctx context.Context, userID string, page utils.PaginationParams) ([]*entity.RoomSummary, int64, error) {
	all, err := uc.chatRepo.ListRoomsByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	// rooms the user has left drop out of their list
	rooms := make([]*entity.ChatRoom, 0, len(all))
	for _, room := range all {
		active, err := activeParticipantIDs(ctx, uc.chatRepo, room.ID)
		if err != nil {
			return nil, 0, err
		}
		if containsString(active, userID) {
			rooms = append(rooms, room)
		}
	}

	start, end := page.Window(len(rooms))
	summaries := make([]*entity.RoomSummary, 0, end-start)
	for _, room := range rooms[start:end] {
		last, err := uc.chatRepo.LastMessage(ctx, room.ID)
		if err != nil {
			return nil, 0, err
		}
		unread, err := uc.chatRepo.HasUnread(ctx, room.ID, userID)
		if err != nil {
			return nil, 0, err
		}

		summary := &entity.RoomSummary{
			Room:          room,
			CounterpartID: room.Counterpart(userID),
			LastMessage:   previewText(last),
			LastMessageAt: room.LastMessageAt,
			HasUnread:     unread,
		}
		if last != nil {
			summary.LastMessageAt = last.CreatedAt
		}
		summaries = append(summaries, summary)
	}

	return summaries, int64(len(rooms)), nil
}
