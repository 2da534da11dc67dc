package repository

import (
	"context"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/pkg/errors"
)

const (
	chatRoomsCollection    = "chatRooms"
	participantsCollection = "participants"
	messagesCollection     = "messages"
	noticesCollection      = "notices"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) rooms() *firestore.CollectionRef {
	return r.client.Collection(chatRoomsCollection)
}

func (r *firestoreChatRepository) messages(roomID string) *firestore.CollectionRef {
	return r.rooms().Doc(roomID).Collection(messagesCollection)
}

func (r *firestoreChatRepository) participants(roomID string) *firestore.CollectionRef {
	return r.rooms().Doc(roomID).Collection(participantsCollection)
}

func (r *firestoreChatRepository) CreateRoom(ctx context.Context, room *entity.ChatRoom, participants []*entity.Participant) error {
	roomRef := r.rooms().Doc(room.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(roomRef, room); err != nil {
			return err
		}
		for _, p := range participants {
			if err := tx.Create(r.participants(room.ID).Doc(p.UserID), p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat room already exists")
		}
		return errors.Internal("Failed to create chat room", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetRoom(ctx context.Context, id string) (*entity.ChatRoom, error) {
	doc, err := r.rooms().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat room", err)
		}
		return nil, errors.Internal("Failed to get chat room", err)
	}

	var room entity.ChatRoom
	if err := doc.DataTo(&room); err != nil {
		return nil, errors.Internal("Failed to parse chat room data", err)
	}
	return &room, nil
}

func (r *firestoreChatRepository) FindRoom(ctx context.Context, subjectID, userA, userB string) (*entity.ChatRoom, error) {
	if userA == userB {
		return nil, errors.NotFound("Chat room", nil)
	}

	iter := r.rooms().
		Where("subjectId", "==", subjectID).
		Where("participantIds", "array-contains", userA).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while looking up room for subject %s: %v", subjectID, err)
			return nil, errors.Internal("Failed to find chat room", err)
		}

		var room entity.ChatRoom
		if err := doc.DataTo(&room); err != nil {
			return nil, errors.Internal("Failed to parse chat room data", err)
		}
		if room.HasParticipant(userB) {
			return &room, nil
		}
	}

	return nil, errors.NotFound("Chat room", nil)
}

func (r *firestoreChatRepository) ListRoomsByUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	docs, err := r.rooms().Where("participantIds", "array-contains", userID).Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while listing rooms for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to list chat rooms", err)
	}

	rooms := make([]*entity.ChatRoom, 0, len(docs))
	for _, doc := range docs {
		var room entity.ChatRoom
		if err := doc.DataTo(&room); err != nil {
			return nil, errors.Internal("Failed to parse chat room data", err)
		}
		rooms = append(rooms, &room)
	}

	// ordered here to avoid a composite index on (participantIds, lastMessageAt)
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	return rooms, nil
}

func (r *firestoreChatRepository) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	_, err := r.rooms().Doc(roomID).Update(ctx, []firestore.Update{
		{Path: "lastMessageAt", Value: at},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat room", err)
		}
		return errors.Internal("Failed to update chat room", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListParticipants(ctx context.Context, roomID string) ([]*entity.Participant, error) {
	docs, err := r.participants(roomID).OrderBy("userId", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list participants", err)
	}
	if len(docs) == 0 {
		return nil, errors.NotFound("Chat room", nil)
	}

	participants := make([]*entity.Participant, 0, len(docs))
	for _, doc := range docs {
		var p entity.Participant
		if err := doc.DataTo(&p); err != nil {
			return nil, errors.Internal("Failed to parse participant data", err)
		}
		participants = append(participants, &p)
	}
	return participants, nil
}

func (r *firestoreChatRepository) UpdateParticipantStatus(ctx context.Context, roomID, userID string, participantStatus entity.ParticipantStatus) error {
	_, err := r.participants(roomID).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "status", Value: participantStatus},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Participant", err)
		}
		return errors.Internal("Failed to update participant", err)
	}
	return nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	ref := r.client.Collection(noticesCollection).Doc(message.ID)
	if message.RoomID != "" {
		ref = r.messages(message.RoomID).Doc(message.ID)
	}

	if _, err := ref.Set(ctx, message); err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	iter := r.messages(roomID).
		OrderBy("createdAt", firestore.Asc).
		OrderBy("seq", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while iterating messages for room %s: %v", roomID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			log.Printf("Error parsing message data for room %s: %v", roomID, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreChatRepository) LastMessage(ctx context.Context, roomID string) (*entity.Message, error) {
	docs, err := r.messages(roomID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy("seq", firestore.Desc).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to get last message", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var message entity.Message
	if err := docs[0].DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreChatRepository) HasUnread(ctx context.Context, roomID, userID string) (bool, error) {
	iter := r.messages(roomID).Where("read", "==", false).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return false, nil
		}
		if err != nil {
			return false, errors.Internal("Failed to check unread messages", err)
		}

		senderID, err := doc.DataAt("senderId")
		if err != nil {
			continue
		}
		if senderID != userID {
			return true, nil
		}
	}
}

func (r *firestoreChatRepository) MarkRoomRead(ctx context.Context, roomID, recipientID string) (int, error) {
	updated := 0
	query := r.messages(roomID).Where("read", "==", false)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		updated = 0
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}

		for _, doc := range docs {
			senderID, err := doc.DataAt("senderId")
			if err != nil || senderID == recipientID {
				continue
			}
			if err := tx.Update(doc.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Internal("Failed to mark messages as read", err)
	}

	return updated, nil
}
