package entity

import "time"

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"

	MessageTransactionRequest     MessageType = "TRANSACTION_REQUEST"
	MessageTransactionTypeSelect  MessageType = "TRANSACTION_TYPE_SELECT"
	MessagePaymentMethodSelect    MessageType = "PAYMENT_METHOD_SELECT"
	MessageShippingInfoRequest    MessageType = "SHIPPING_INFO_REQUEST"
	MessageCashPaymentSelected    MessageType = "CASH_PAYMENT_SELECTED"
	MessageItemReceivedCheck      MessageType = "ITEM_RECEIVED_CHECK"
	MessagePurchaseConfirmRequest MessageType = "PURCHASE_CONFIRM_REQUEST"
	MessageReviewRequest          MessageType = "REVIEW_REQUEST"

	MessageNotice MessageType = "NOTICE"

	// Only ever produced when rendering history.
	MessageSystem MessageType = "SYSTEM"
)

// ImageContent is stored as the content of IMAGE messages.
const ImageContent = "photo"

// IsWorkflow reports whether the type is one of the transaction workflow prompts.
func (t MessageType) IsWorkflow() bool {
	switch t {
	case MessageTransactionRequest, MessageTransactionTypeSelect, MessagePaymentMethodSelect,
		MessageShippingInfoRequest, MessageCashPaymentSelected, MessageItemReceivedCheck,
		MessagePurchaseConfirmRequest, MessageReviewRequest:
		return true
	}
	return false
}

// Message is immutable after creation apart from Read.
type Message struct {
	ID        string      `json:"id" firestore:"id"`
	RoomID    string      `json:"chat_id" firestore:"roomId"`
	SenderID  string      `json:"sender_id" firestore:"senderId"`
	Type      MessageType `json:"type" firestore:"type"`
	Content   string      `json:"content" firestore:"content"`
	ImageURL  string      `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	Read      bool        `json:"read" firestore:"read"`
	Seq       int64       `json:"seq" firestore:"seq"`
	CreatedAt time.Time   `json:"created_at" firestore:"createdAt"`
}

// HistoryEntry is one rendered line of a room history.
type HistoryEntry struct {
	MessageID string      `json:"message_id,omitempty"`
	SenderID  string      `json:"sender_id,omitempty"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"image_url,omitempty"`
	Read      bool        `json:"read"`
	Synthetic bool        `json:"synthetic"`
	CreatedAt time.Time   `json:"created_at"`
}
