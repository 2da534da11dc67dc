package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/domain/entity"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func workflowMessage(id string, t entity.MessageType, at time.Time) *entity.Message {
	return &entity.Message{ID: id, RoomID: "room-1", SenderID: buyerID, Type: t, Content: `{"transactionId":"tx-1"}`, CreatedAt: at}
}

func txWithStatus(status entity.TransactionStatus) *entity.Transaction {
	return &entity.Transaction{ID: "tx-1", ProductID: productID, BuyerID: buyerID, SellerID: sellerID, Status: status, CreatedAt: base}
}

func TestRenderHistoryRuleTable(t *testing.T) {
	tests := []struct {
		name      string
		msgType   entity.MessageType
		status    entity.TransactionStatus
		requester string
		shown     bool
		synthetic string
	}{
		{"request seen by seller while requested", entity.MessageTransactionRequest, entity.TransactionRequested, sellerID, true, ""},
		{"request hidden from buyer while requested", entity.MessageTransactionRequest, entity.TransactionRequested, buyerID, false, ""},
		{"request becomes approved text for buyer", entity.MessageTransactionRequest, entity.TransactionApproved, buyerID, false, TextSellerApproved},
		{"request becomes approved text for seller", entity.MessageTransactionRequest, entity.TransactionApproved, sellerID, false, TextSellerApproved},
		{"request becomes rejected text", entity.MessageTransactionRequest, entity.TransactionRejected, buyerID, false, TextSellerRejected},
		{"request omitted once paid", entity.MessageTransactionRequest, entity.TransactionPaid, sellerID, false, ""},
		{"type select for buyer when approved", entity.MessageTransactionTypeSelect, entity.TransactionApproved, buyerID, true, ""},
		{"type select hidden from seller", entity.MessageTransactionTypeSelect, entity.TransactionApproved, sellerID, false, ""},
		{"payment method for buyer when approved", entity.MessagePaymentMethodSelect, entity.TransactionApproved, buyerID, true, ""},
		{"payment method gone once paid", entity.MessagePaymentMethodSelect, entity.TransactionPaid, buyerID, false, ""},
		{"shipping info for seller when paid", entity.MessageShippingInfoRequest, entity.TransactionPaid, sellerID, true, ""},
		{"shipping info hidden from buyer", entity.MessageShippingInfoRequest, entity.TransactionPaid, buyerID, false, ""},
		{"cash payment for seller when paid", entity.MessageCashPaymentSelected, entity.TransactionPaid, sellerID, true, ""},
		{"cash payment hidden before paid", entity.MessageCashPaymentSelected, entity.TransactionApproved, sellerID, false, ""},
		{"item received for buyer when paid", entity.MessageItemReceivedCheck, entity.TransactionPaid, buyerID, true, ""},
		{"item received hidden from seller", entity.MessageItemReceivedCheck, entity.TransactionPaid, sellerID, false, ""},
		{"purchase confirm for buyer when paid", entity.MessagePurchaseConfirmRequest, entity.TransactionPaid, buyerID, true, ""},
		{"purchase confirm gone once confirmed", entity.MessagePurchaseConfirmRequest, entity.TransactionConfirmed, buyerID, false, ""},
		{"review for buyer when confirmed", entity.MessageReviewRequest, entity.TransactionConfirmed, buyerID, true, ""},
		{"review for seller when confirmed", entity.MessageReviewRequest, entity.TransactionConfirmed, sellerID, true, ""},
		{"review hidden while paid", entity.MessageReviewRequest, entity.TransactionPaid, buyerID, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := workflowMessage("m1", tt.msgType, base)
			entries := RenderHistory([]*entity.Message{msg}, txWithStatus(tt.status), tt.requester)

			switch {
			case tt.shown:
				require.Len(t, entries, 1)
				assert.Equal(t, "m1", entries[0].MessageID)
				assert.Equal(t, tt.msgType, entries[0].Type)
				assert.False(t, entries[0].Synthetic)
			case tt.synthetic != "":
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Synthetic)
				assert.Equal(t, entity.MessageSystem, entries[0].Type)
				assert.Equal(t, tt.synthetic, entries[0].Content)
				assert.Empty(t, entries[0].MessageID)
				assert.True(t, entries[0].CreatedAt.After(msg.CreatedAt))
			default:
				assert.Empty(t, entries)
			}
		})
	}
}

func TestRenderHistoryWithoutTransactionSkipsWorkflow(t *testing.T) {
	messages := []*entity.Message{
		{ID: "m1", Type: entity.MessageText, Content: "hi", CreatedAt: base},
		workflowMessage("m2", entity.MessageTransactionRequest, base.Add(time.Second)),
		{ID: "m3", Type: entity.MessageImage, Content: entity.ImageContent, ImageURL: "https://img/1.png", CreatedAt: base.Add(2 * time.Second)},
	}

	entries := RenderHistory(messages, nil, sellerID)

	require.Len(t, entries, 2)
	assert.Equal(t, "m1", entries[0].MessageID)
	assert.Equal(t, "m3", entries[1].MessageID)
	assert.Equal(t, "https://img/1.png", entries[1].ImageURL)
}

func TestRenderHistoryAppendsPaymentCompleted(t *testing.T) {
	paidAt := base.Add(5 * time.Minute)
	tx := txWithStatus(entity.TransactionPaid)
	tx.PaidAt = &paidAt

	messages := []*entity.Message{
		{ID: "m1", Type: entity.MessageText, Content: "hi", CreatedAt: base},
		{ID: "m2", Type: entity.MessageText, Content: "later", CreatedAt: base.Add(10 * time.Minute)},
	}

	entries := RenderHistory(messages, tx, buyerID)

	require.Len(t, entries, 3)
	assert.Equal(t, "m1", entries[0].MessageID)
	assert.Equal(t, TextPaymentCompleted, entries[1].Content)
	assert.Equal(t, paidAt, entries[1].CreatedAt)
	assert.Equal(t, "m2", entries[2].MessageID)
}

func TestRenderHistoryAppendsTransactionCompleted(t *testing.T) {
	confirmedAt := base.Add(time.Hour)
	tx := txWithStatus(entity.TransactionConfirmed)
	tx.ConfirmedAt = &confirmedAt

	entries := RenderHistory(nil, tx, sellerID)

	require.Len(t, entries, 1)
	assert.Equal(t, TextTransactionCompleted, entries[0].Content)
	assert.True(t, entries[0].Synthetic)
}

func TestRenderHistoryConfirmedWithoutTimeSortsLast(t *testing.T) {
	messages := []*entity.Message{
		{ID: "m1", Type: entity.MessageText, Content: "thanks", CreatedAt: base},
	}

	entries := RenderHistory(messages, txWithStatus(entity.TransactionConfirmed), buyerID)

	require.Len(t, entries, 2)
	assert.Equal(t, "m1", entries[0].MessageID)
	assert.Equal(t, TextTransactionCompleted, entries[1].Content)
	assert.True(t, entries[1].CreatedAt.IsZero())
}

func TestRenderHistoryPaidWithoutTimeAddsNothing(t *testing.T) {
	entries := RenderHistory(nil, txWithStatus(entity.TransactionPaid), buyerID)
	assert.Empty(t, entries)
}

func TestRenderHistoryIsNonDecreasingWithZeroTimesLast(t *testing.T) {
	messages := []*entity.Message{
		{ID: "undated", Type: entity.MessageText, Content: "?"},
		workflowMessage("req", entity.MessageTransactionRequest, base),
		{ID: "m1", Type: entity.MessageText, Content: "a", CreatedAt: base},
		{ID: "m2", Type: entity.MessageText, Content: "b", CreatedAt: base.Add(time.Second)},
	}

	entries := RenderHistory(messages, txWithStatus(entity.TransactionApproved), buyerID)

	require.Len(t, entries, 4)
	assert.Equal(t, "m1", entries[0].MessageID)
	assert.Equal(t, TextSellerApproved, entries[1].Content)
	assert.Equal(t, "m2", entries[2].MessageID)
	assert.Equal(t, "undated", entries[3].MessageID)

	for i := 1; i < len(entries)-1; i++ {
		assert.False(t, entries[i].CreatedAt.Before(entries[i-1].CreatedAt))
	}
}

func TestRenderHistoryDoesNotMutateLog(t *testing.T) {
	msg := workflowMessage("m1", entity.MessageTransactionRequest, base)
	before := *msg

	RenderHistory([]*entity.Message{msg}, txWithStatus(entity.TransactionApproved), buyerID)

	assert.Equal(t, before, *msg)
}
