package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"marketchat/internal/infrastructure/ratelimit"
	"marketchat/internal/usecase"
	"marketchat/pkg/errors"
)

// WebSocket Message Types
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSendMessage = "send_message"
	MessageTypeSent        = "sent"
	MessageTypeMarkRead    = "mark_read"
	MessageTypeTyping      = "typing"
	MessageTypeError       = "error"
)

// WSMessage is the frame shape in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type outbound struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type SendMessageData struct {
	TempID   string `json:"temp_id"`
	ChatID   string `json:"chat_id"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
	// SenderID is accepted for compatibility and never trusted.
	SenderID string `json:"sender_id"`
}

type MarkReadData struct {
	ChatID string `json:"chat_id"`
}

type TypingData struct {
	ChatID string `json:"chat_id"`
	Typing bool   `json:"typing"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}

// HandleClientMessage processes one inbound frame from client.
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, raw []byte) {
	var frame WSMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendError(client, "", errors.BadRequest("Invalid message format", err))
		return
	}

	switch frame.Type {
	case MessageTypePing:
		m.sendToClient(client, MessageTypePong, "", map[string]string{"status": "alive"})
	case MessageTypeSendMessage:
		m.handleSendMessage(ctx, client, frame)
	case MessageTypeMarkRead:
		m.handleMarkRead(ctx, client, frame)
	case MessageTypeTyping:
		m.handleTyping(ctx, client, frame)
	default:
		log.Printf("WebSocket: Unknown message type '%s' from client %s", frame.Type, client.UserID)
		m.sendError(client, "", errors.BadRequest("Unknown message type", nil))
	}
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, frame WSMessage) {
	var data SendMessageData
	if err := decodeData(frame, &data); err != nil {
		m.sendError(client, "", err)
		return
	}
	if data.ChatID == "" {
		data.ChatID = frame.ChatID
	}
	if data.ChatID == "" {
		m.sendError(client, data.TempID, errors.BadRequest("chat_id is required", nil))
		return
	}

	if !m.allow(client, ratelimit.ActionSendMessage, data.TempID) {
		return
	}

	message, err := m.messages.Ingest(ctx, usecase.IngestInput{
		RoomID:          data.ChatID,
		SenderID:        client.UserID,
		ClaimedSenderID: data.SenderID,
		Content:         data.Content,
		ImageURL:        data.ImageURL,
	})
	if err != nil {
		m.sendError(client, data.TempID, err)
		return
	}

	m.sendToClient(client, MessageTypeSent, message.RoomID, map[string]interface{}{
		"temp_id": data.TempID,
		"message": message,
	})
}

func (m *Manager) handleMarkRead(ctx context.Context, client *Client, frame WSMessage) {
	var data MarkReadData
	if err := decodeData(frame, &data); err != nil {
		m.sendError(client, "", err)
		return
	}
	if data.ChatID == "" {
		data.ChatID = frame.ChatID
	}

	if !m.allow(client, ratelimit.ActionMarkRead, "") {
		return
	}

	if _, err := m.reads.MarkRead(ctx, data.ChatID, client.UserID); err != nil {
		m.sendError(client, "", err)
	}
}

func (m *Manager) handleTyping(ctx context.Context, client *Client, frame WSMessage) {
	var data TypingData
	if err := decodeData(frame, &data); err != nil {
		m.sendError(client, "", err)
		return
	}
	if data.ChatID == "" {
		data.ChatID = frame.ChatID
	}

	// typing floods are dropped without telling the client
	if ok, _ := m.limiter.Allow(client.UserID, ratelimit.ActionTyping); !ok {
		return
	}

	if err := m.messages.Typing(ctx, data.ChatID, client.UserID, data.Typing); err != nil {
		m.sendError(client, "", err)
	}
}

func (m *Manager) allow(client *Client, action, tempID string) bool {
	ok, retryAfter := m.limiter.Allow(client.UserID, action)
	if !ok {
		m.sendError(client, tempID, errors.TooManyRequests("Slow down", retryAfter))
	}
	return ok
}

func decodeData(frame WSMessage, out interface{}) error {
	if len(frame.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(frame.Data, out); err != nil {
		return errors.BadRequest("Invalid "+frame.Type+" data", err)
	}
	return nil
}

func (m *Manager) sendToClient(client *Client, frameType, chatID string, data interface{}) {
	messageBytes, err := json.Marshal(outbound{
		Type:      frameType,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("WebSocket: Failed to marshal %s frame for client %s: %v", frameType, client.UserID, err)
		return
	}

	if err := client.Send(messageBytes); err != nil {
		log.Printf("WebSocket: dropped %s frame for client %s: %v", frameType, client.UserID, err)
	}
}

func (m *Manager) sendError(client *Client, tempID string, err error) {
	data := ErrorData{Code: errors.CodeInternal, Message: "Something went wrong", TempID: tempID}

	if appErr, ok := errors.As(err); ok {
		data.Code = appErr.Code
		data.Message = appErr.Message
	} else {
		log.Printf("WebSocket: unexpected error for client %s: %v", client.UserID, err)
	}

	m.sendToClient(client, MessageTypeError, "", data)
}
