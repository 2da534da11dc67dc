package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/internal/infrastructure/events"
	"marketchat/internal/infrastructure/presence"
	"marketchat/pkg/errors"
	"marketchat/pkg/logger"
)

const maxContentLength = 2000

type ChatMessageUseCase struct {
	chatRepo   repository.ChatRepository
	userRepo   repository.UserRepository
	dispatcher *Dispatcher
	notifier   *Notifier
	publisher  EventPublisher
	seq        SequenceGenerator
	now        func() time.Time
}

func NewChatMessageUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	dispatcher *Dispatcher,
	notifier *Notifier,
	publisher EventPublisher,
	seq SequenceGenerator,
) *ChatMessageUseCase {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ChatMessageUseCase{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		notifier:   notifier,
		publisher:  publisher,
		seq:        seq,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type IngestInput struct {
	RoomID string
	// SenderID comes from the authenticated connection.
	SenderID string
	// ClaimedSenderID is whatever the client put in the frame. Never used.
	ClaimedSenderID string
	Content         string
	ImageURL        string
}

// Ingest persists a message from a room participant and fans it out to the
// room's other active participants.
func (uc *ChatMessageUseCase) Ingest(ctx context.Context, input IngestInput) (*entity.Message, error) {
	room, err := uc.chatRepo.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	sender, err := uc.userRepo.GetByID(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}

	if input.ClaimedSenderID != "" && input.ClaimedSenderID != sender.ID {
		logger.Warn("Ingest: ignoring claimed sender %s on connection of %s", input.ClaimedSenderID, sender.ID)
	}

	content := strings.TrimSpace(input.Content)
	if len(content) > maxContentLength {
		return nil, errors.BadRequest("Message is too long", nil)
	}

	if sender.IsAdmin() {
		if content == "" {
			return nil, errors.BadRequest("Notice content is required", nil)
		}
		result, err := uc.notifier.Notify(ctx, Notification{
			Scope:    ScopeAll,
			RoomID:   room.ID,
			SenderID: sender.ID,
			Type:     entity.MessageNotice,
			Content:  content,
		})
		if err != nil {
			return nil, err
		}
		uc.publish(ctx, result.Message)
		return result.Message, nil
	}

	active, err := activeParticipantIDs(ctx, uc.chatRepo, room.ID)
	if err != nil {
		return nil, err
	}
	if !containsString(active, sender.ID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	message := &entity.Message{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		SenderID:  sender.ID,
		Type:      entity.MessageText,
		Content:   content,
		Seq:       uc.seq.Generate(),
		CreatedAt: uc.now(),
	}
	switch {
	case input.ImageURL != "":
		message.Type = entity.MessageImage
		message.Content = entity.ImageContent
		message.ImageURL = input.ImageURL
	case content == "":
		return nil, errors.BadRequest("Message content is required", nil)
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		log.Printf("Ingest Error: failed to persist message in room %s: %v", room.ID, err)
		return nil, err
	}
	if err := uc.chatRepo.TouchRoom(ctx, room.ID, message.CreatedAt); err != nil {
		logger.Warn("Ingest: failed to update last message time of room %s: %v", room.ID, err)
	}

	uc.fanOut(message, without(active, sender.ID))
	uc.publish(ctx, message)

	return message, nil
}

func (uc *ChatMessageUseCase) fanOut(message *entity.Message, recipients []string) {
	frame, err := encodeFrame(FrameMessage, message.RoomID, message)
	if err != nil {
		logger.Error("Ingest: failed to encode message %s: %v", message.ID, err)
		return
	}

	for _, userID := range recipients {
		uc.dispatcher.Deliver(userID, presence.Pending{MessageID: message.ID, Frame: frame})
	}
}

func (uc *ChatMessageUseCase) publish(ctx context.Context, message *entity.Message) {
	err := uc.publisher.Publish(ctx, events.MessageEvent{
		Type:        events.TypeMessageCreated,
		RoomID:      message.RoomID,
		MessageID:   message.ID,
		SenderID:    message.SenderID,
		MessageType: string(message.Type),
		Seq:         message.Seq,
		CreatedAt:   message.CreatedAt,
	})
	if err != nil {
		logger.Warn("Ingest: failed to publish event for message %s: %v", message.ID, err)
	}
}

// Typing relays a typing indicator to the room's other online participants.
func (uc *ChatMessageUseCase) Typing(ctx context.Context, roomID, userID string, typing bool) error {
	active, err := activeParticipantIDs(ctx, uc.chatRepo, roomID)
	if err != nil {
		return err
	}
	if !containsString(active, userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	frame, err := encodeFrame(FrameTyping, roomID, TypingEvent{ChatID: roomID, UserID: userID, Typing: typing})
	if err != nil {
		return errors.Internal("Failed to encode typing event", err)
	}
	for _, other := range without(active, userID) {
		uc.dispatcher.PushIfOnline(other, frame)
	}
	return nil
}
