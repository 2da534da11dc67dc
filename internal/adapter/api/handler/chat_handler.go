package handler

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/usecase"
	"marketchat/pkg/response"
	"marketchat/pkg/utils"
)

type ChatHandler struct {
	roomUseCase    *usecase.ChatRoomUseCase
	messageUseCase *usecase.ChatMessageUseCase
	historyUseCase *usecase.HistoryUseCase
}

func NewChatHandler(roomUseCase *usecase.ChatRoomUseCase, messageUseCase *usecase.ChatMessageUseCase, historyUseCase *usecase.HistoryUseCase) *ChatHandler {
	return &ChatHandler{
		roomUseCase:    roomUseCase,
		messageUseCase: messageUseCase,
		historyUseCase: historyUseCase,
	}
}

type openRoomRequest struct {
	SubjectID string `json:"subject_id" validate:"required"`
	// CounterpartID is only meaningful when the subject owner reopens a room.
	CounterpartID string `json:"counterpart_id"`
}

type sendMessageRequest struct {
	Content  string `json:"content" validate:"required_without=ImageURL,max=2000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
	// SenderID is ignored; the token decides who is sending.
	SenderID string `json:"sender_id"`
}

// OpenRoom finds or creates the room for a subject between its owner and the caller.
func (h *ChatHandler) OpenRoom(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req openRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	room, created, err := h.roomUseCase.FindOrCreate(c.Request().Context(), usecase.FindOrCreateInput{
		SubjectID:     req.SubjectID,
		InitiatorID:   userID,
		CounterpartID: req.CounterpartID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, room)
	}
	return response.Success(c, room)
}

func (h *ChatHandler) ListRooms(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	rooms, total, err := h.roomUseCase.ListRooms(c.Request().Context(), userID, pagination)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, rooms, total, pagination.Page, pagination.PageSize)
}

// GetMessages returns the room history as the caller should see it.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	entries, err := h.historyUseCase.History(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, entries)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.Ingest(c.Request().Context(), usecase.IngestInput{
		RoomID:          c.Param("id"),
		SenderID:        userID,
		ClaimedSenderID: req.SenderID,
		Content:         req.Content,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	updated, err := h.roomUseCase.MarkRead(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"updated": updated})
}

func (h *ChatHandler) Leave(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.roomUseCase.Leave(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "left"})
}
