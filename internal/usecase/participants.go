package usecase

import (
	"context"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
)

func activeParticipantIDs(ctx context.Context, chatRepo repository.ChatRepository, roomID string) ([]string, error) {
	participants, err := chatRepo.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.IsActive() {
			ids = append(ids, p.UserID)
		}
	}
	return ids, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func without(values []string, skip string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != skip {
			out = append(out, v)
		}
	}
	return out
}

func previewText(m *entity.Message) string {
	if m == nil {
		return ""
	}
	switch {
	case m.Type == entity.MessageImage:
		return entity.ImageContent
	case m.Type.IsWorkflow():
		return "transaction update"
	default:
		return m.Content
	}
}
