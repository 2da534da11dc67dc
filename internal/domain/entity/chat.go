package entity

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "ACTIVE"
	ParticipantExited ParticipantStatus = "EXITED"
)

// ChatRoom is the conversation between a subject's owner and one other user.
type ChatRoom struct {
	ID             string    `json:"id" firestore:"id"`
	SubjectID      string    `json:"subject_id" firestore:"subjectId"`
	ParticipantIDs []string  `json:"participant_ids" firestore:"participantIds"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
	LastMessageAt  time.Time `json:"last_message_at" firestore:"lastMessageAt"`
}

type Participant struct {
	RoomID   string            `json:"room_id" firestore:"roomId"`
	UserID   string            `json:"user_id" firestore:"userId"`
	JoinedAt time.Time         `json:"joined_at" firestore:"joinedAt"`
	Status   ParticipantStatus `json:"status" firestore:"status"`
}

func (p *Participant) IsActive() bool {
	return p.Status == ParticipantActive
}

// HasParticipant reports whether userID is one of the room's pair, active or not.
func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other user of the pair.
func (r *ChatRoom) Counterpart(userID string) string {
	for _, id := range r.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// PairKey orders two user ids so (a, b) and (b, a) share one key.
func PairKey(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

// RoomIDFor derives the id of the room for a subject and an unordered pair,
// so concurrent creators of the same conversation collide on one document.
func RoomIDFor(subjectID, userA, userB string) string {
	key := subjectID + "|" + strings.Join(PairKey(userA, userB), "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("chatroom:"+key)).String()
}

// RoomSummary is a row of a user's room list.
type RoomSummary struct {
	Room          *ChatRoom `json:"room"`
	CounterpartID string    `json:"counterpart_id"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	HasUnread     bool      `json:"has_unread"`
}
