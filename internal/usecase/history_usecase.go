package usecase

import (
	"context"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/pkg/errors"
)

type HistoryUseCase struct {
	chatRepo        repository.ChatRepository
	transactionRepo repository.TransactionRepository
}

func NewHistoryUseCase(chatRepo repository.ChatRepository, transactionRepo repository.TransactionRepository) *HistoryUseCase {
	return &HistoryUseCase{
		chatRepo:        chatRepo,
		transactionRepo: transactionRepo,
	}
}

// History renders the room log for requesterID against the transaction
// currently linked to the room's subject.
func (uc *HistoryUseCase) History(ctx context.Context, roomID, requesterID string) ([]entity.HistoryEntry, error) {
	room, err := uc.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(requesterID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	messages, err := uc.chatRepo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	tx, err := uc.linkedTransaction(ctx, room)
	if err != nil {
		return nil, err
	}

	return RenderHistory(messages, tx, requesterID), nil
}

// linkedTransaction tries both buyer/seller orientations of the pair; a room
// without a transaction yields nil.
func (uc *HistoryUseCase) linkedTransaction(ctx context.Context, room *entity.ChatRoom) (*entity.Transaction, error) {
	if len(room.ParticipantIDs) != 2 {
		return nil, nil
	}
	a, b := room.ParticipantIDs[0], room.ParticipantIDs[1]

	var latest *entity.Transaction
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		tx, err := uc.transactionRepo.FindBySubject(ctx, room.SubjectID, pair[0], pair[1])
		if errors.Is(err, errors.CodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}
	return latest, nil
}
