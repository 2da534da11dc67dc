package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/internal/infrastructure/presence"
	"marketchat/pkg/errors"
	"marketchat/pkg/logger"
)

// SystemSenderID authors workflow messages addressed to the whole room.
const SystemSenderID = "system"

type DeliveryScope string

const (
	ScopeUser DeliveryScope = "user"
	ScopeRoom DeliveryScope = "room"
	ScopeAll  DeliveryScope = "all"
)

type Notification struct {
	Scope DeliveryScope
	// RoomID is required for user and room scopes and optional for all.
	RoomID      string
	RecipientID string
	// ExcludeID is skipped by room scope, usually the originator.
	ExcludeID string
	SenderID  string
	Type      entity.MessageType
	Content   string
}

type NotifyResult struct {
	Message   *entity.Message `json:"message"`
	Delivered int             `json:"delivered"`
	Queued    int             `json:"queued"`
}

type Notifier struct {
	chatRepo   repository.ChatRepository
	userRepo   repository.UserRepository
	dispatcher *Dispatcher
	seq        SequenceGenerator
	now        func() time.Time
}

func NewNotifier(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	dispatcher *Dispatcher,
	seq SequenceGenerator,
) *Notifier {
	return &Notifier{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		seq:        seq,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Notify persists the message once, then pushes or queues it for every
// recipient the scope selects.
func (n *Notifier) Notify(ctx context.Context, notification Notification) (*NotifyResult, error) {
	if err := validateNotification(&notification); err != nil {
		return nil, err
	}

	if notification.RoomID != "" {
		if _, err := n.chatRepo.GetRoom(ctx, notification.RoomID); err != nil {
			return nil, err
		}
	}

	recipients, err := n.recipients(ctx, notification)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ID:        uuid.New().String(),
		RoomID:    notification.RoomID,
		SenderID:  notification.SenderID,
		Type:      notification.Type,
		Content:   notification.Content,
		Seq:       n.seq.Generate(),
		CreatedAt: n.now(),
	}
	if err := n.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	if message.RoomID != "" {
		if err := n.chatRepo.TouchRoom(ctx, message.RoomID, message.CreatedAt); err != nil {
			logger.Warn("Notifier: failed to update last message time of room %s: %v", message.RoomID, err)
		}
	}

	frameType := FrameMessage
	if notification.Scope == ScopeAll {
		frameType = FrameNotice
	}
	frame, err := encodeFrame(frameType, message.RoomID, message)
	if err != nil {
		return nil, errors.Internal("Failed to encode notification", err)
	}

	result := &NotifyResult{Message: message}
	for _, userID := range recipients {
		if n.dispatcher.Deliver(userID, presence.Pending{MessageID: message.ID, Frame: frame}) {
			result.Delivered++
		} else {
			result.Queued++
		}
	}

	logger.Info("Notifier: %s %s delivered=%d queued=%d", notification.Scope, message.Type, result.Delivered, result.Queued)
	return result, nil
}

func validateNotification(notification *Notification) error {
	switch notification.Scope {
	case ScopeUser:
		if notification.RecipientID == "" || notification.RoomID == "" {
			return errors.BadRequest("Targeted notifications need a room and a recipient", nil)
		}
	case ScopeRoom:
		if notification.RoomID == "" {
			return errors.BadRequest("Room notifications need a room", nil)
		}
	case ScopeAll:
		if notification.Type == "" {
			notification.Type = entity.MessageNotice
		}
	default:
		return errors.BadRequest("Unknown delivery scope", nil)
	}

	if notification.Type == "" {
		return errors.BadRequest("Notification type is required", nil)
	}
	if notification.SenderID == "" {
		notification.SenderID = SystemSenderID
	}
	return nil
}

func (n *Notifier) recipients(ctx context.Context, notification Notification) ([]string, error) {
	switch notification.Scope {
	case ScopeUser:
		return []string{notification.RecipientID}, nil
	case ScopeRoom:
		active, err := activeParticipantIDs(ctx, n.chatRepo, notification.RoomID)
		if err != nil {
			return nil, err
		}
		if notification.ExcludeID != "" {
			active = without(active, notification.ExcludeID)
		}
		return active, nil
	default:
		return n.userRepo.ListIDs(ctx)
	}
}

type WorkflowInput struct {
	SubjectID     string
	BuyerID       string
	SellerID      string
	TransactionID string
	Type          entity.MessageType
}

// NotifyWorkflow posts the prompt for one step of the purchase workflow into
// the buyer/seller room, addressed the way that step expects.
func (n *Notifier) NotifyWorkflow(ctx context.Context, input WorkflowInput) (*NotifyResult, error) {
	if !input.Type.IsWorkflow() {
		return nil, errors.BadRequest("Not a workflow message type", nil)
	}

	room, err := n.chatRepo.FindRoom(ctx, input.SubjectID, input.BuyerID, input.SellerID)
	if err != nil {
		return nil, err
	}

	content, err := json.Marshal(map[string]string{"transactionId": input.TransactionID})
	if err != nil {
		return nil, errors.Internal("Failed to encode workflow payload", err)
	}

	notification := Notification{
		RoomID:  room.ID,
		Type:    input.Type,
		Content: string(content),
	}

	switch input.Type {
	case entity.MessageTransactionRequest, entity.MessageShippingInfoRequest:
		notification.Scope = ScopeUser
		notification.RecipientID = input.SellerID
		notification.SenderID = input.BuyerID
	case entity.MessageCashPaymentSelected, entity.MessageReviewRequest:
		notification.Scope = ScopeRoom
		notification.SenderID = SystemSenderID
	default:
		notification.Scope = ScopeUser
		notification.RecipientID = input.BuyerID
		notification.SenderID = input.SellerID
	}

	return n.Notify(ctx, notification)
}
