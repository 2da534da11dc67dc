package repository

import (
	"context"
	"time"

	"marketchat/internal/domain/entity"
)

type ChatRepository interface {
	// CreateRoom stores the room and its participants. It returns a CONFLICT
	// AppError when a room with the same id already exists.
	CreateRoom(ctx context.Context, room *entity.ChatRoom, participants []*entity.Participant) error
	GetRoom(ctx context.Context, id string) (*entity.ChatRoom, error)
	FindRoom(ctx context.Context, subjectID, userA, userB string) (*entity.ChatRoom, error)
	ListRoomsByUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error)
	TouchRoom(ctx context.Context, roomID string, at time.Time) error

	ListParticipants(ctx context.Context, roomID string) ([]*entity.Participant, error)
	UpdateParticipantStatus(ctx context.Context, roomID, userID string, status entity.ParticipantStatus) error

	// CreateMessage appends to the room log. A message without a room is
	// stored as a room-less notice.
	CreateMessage(ctx context.Context, message *entity.Message) error
	// ListMessages returns the room log oldest first, ties ordered by Seq.
	ListMessages(ctx context.Context, roomID string) ([]*entity.Message, error)
	LastMessage(ctx context.Context, roomID string) (*entity.Message, error)
	HasUnread(ctx context.Context, roomID, userID string) (bool, error)
	// MarkRoomRead flips read on every message not sent by recipientID and
	// returns how many changed.
	MarkRoomRead(ctx context.Context, roomID, recipientID string) (int, error)
}
