package usecase

import (
	"encoding/json"
	"time"
)

// Outbound frame types.
const (
	FrameMessage      = "message"
	FrameNotice       = "notice"
	FrameMessagesRead = "messages_read"
	FrameTyping       = "typing"
)

// Envelope is the JSON frame written to a websocket connection.
type Envelope struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func encodeFrame(frameType, chatID string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      frameType,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type ReadConfirmation struct {
	ChatID   string `json:"chat_id"`
	ReaderID string `json:"reader_id"`
	Count    int    `json:"count"`
}

type TypingEvent struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Typing bool   `json:"typing"`
}
