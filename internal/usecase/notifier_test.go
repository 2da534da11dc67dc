package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/domain/entity"
	"marketchat/pkg/errors"
)

func TestNotifyTargetedReachesOnlyRecipient(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)
	sellerConn := f.connect(t, sellerID)

	result, err := f.notifier.Notify(testCtx, Notification{
		Scope:       ScopeUser,
		RoomID:      room.ID,
		RecipientID: sellerID,
		Type:        entity.MessageTransactionRequest,
		Content:     `{"transactionId":"tx-1"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 0, result.Queued)
	assert.Equal(t, SystemSenderID, result.Message.SenderID)
	assert.Len(t, sellerConn.envelopes(t), 1)
	assert.Equal(t, 0, f.dispatcher.PendingCount(buyerID))

	stored, err := f.store.Chats().ListMessages(testCtx, room.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, result.Message.ID, stored[0].ID)
}

func TestNotifyRoomExcludesOriginator(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)

	result, err := f.notifier.Notify(testCtx, Notification{
		Scope:     ScopeRoom,
		RoomID:    room.ID,
		ExcludeID: buyerID,
		Type:      entity.MessageCashPaymentSelected,
		Content:   "{}",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, 1, f.dispatcher.PendingCount(sellerID))
	assert.Equal(t, 0, f.dispatcher.PendingCount(buyerID))
}

func TestNotifyGlobalWithoutRoomIsStoredAsNotice(t *testing.T) {
	f := newFixture(t)
	adminConn := f.connect(t, adminID)

	result, err := f.notifier.Notify(testCtx, Notification{Scope: ScopeAll, SenderID: adminID, Content: "Welcome"})
	require.NoError(t, err)

	assert.Equal(t, entity.MessageNotice, result.Message.Type)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 3, result.Queued)
	require.Len(t, adminConn.envelopes(t), 1)
	assert.Equal(t, FrameNotice, adminConn.envelopes(t)[0].Type)

	notices := f.store.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "Welcome", notices[0].Content)
}

func TestNotifyValidation(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)

	tests := []struct {
		name         string
		notification Notification
		code         string
	}{
		{"unknown scope", Notification{Scope: "planet", RoomID: room.ID, Type: entity.MessageText}, errors.CodeBadRequest},
		{"user scope needs recipient", Notification{Scope: ScopeUser, RoomID: room.ID, Type: entity.MessageText}, errors.CodeBadRequest},
		{"room scope needs room", Notification{Scope: ScopeRoom, Type: entity.MessageText}, errors.CodeBadRequest},
		{"type required", Notification{Scope: ScopeRoom, RoomID: room.ID}, errors.CodeBadRequest},
		{"unknown room", Notification{Scope: ScopeRoom, RoomID: "missing", Type: entity.MessageText}, errors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.notifier.Notify(testCtx, tt.notification)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestNotifyWorkflowAddressing(t *testing.T) {
	tests := []struct {
		msgType  entity.MessageType
		sender   string
		toSeller bool
		toBuyer  bool
	}{
		{entity.MessageTransactionRequest, buyerID, true, false},
		{entity.MessageShippingInfoRequest, buyerID, true, false},
		{entity.MessageTransactionTypeSelect, sellerID, false, true},
		{entity.MessagePaymentMethodSelect, sellerID, false, true},
		{entity.MessageItemReceivedCheck, sellerID, false, true},
		{entity.MessagePurchaseConfirmRequest, sellerID, false, true},
		{entity.MessageCashPaymentSelected, SystemSenderID, true, true},
		{entity.MessageReviewRequest, SystemSenderID, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.msgType), func(t *testing.T) {
			f := newFixture(t)
			room := f.openRoom(t)

			result, err := f.notifier.NotifyWorkflow(testCtx, WorkflowInput{
				SubjectID:     productID,
				BuyerID:       buyerID,
				SellerID:      sellerID,
				TransactionID: "tx-1",
				Type:          tt.msgType,
			})
			require.NoError(t, err)

			assert.Equal(t, room.ID, result.Message.RoomID)
			assert.Equal(t, tt.sender, result.Message.SenderID)
			assert.JSONEq(t, `{"transactionId":"tx-1"}`, result.Message.Content)
			assert.Equal(t, tt.toSeller, f.dispatcher.PendingCount(sellerID) == 1)
			assert.Equal(t, tt.toBuyer, f.dispatcher.PendingCount(buyerID) == 1)
		})
	}
}

func TestNotifyWorkflowRejectsPlainTypesAndMissingRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.notifier.NotifyWorkflow(testCtx, WorkflowInput{SubjectID: productID, BuyerID: buyerID, SellerID: sellerID, Type: entity.MessageText})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.notifier.NotifyWorkflow(testCtx, WorkflowInput{SubjectID: productID, BuyerID: buyerID, SellerID: sellerID, Type: entity.MessageReviewRequest})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
