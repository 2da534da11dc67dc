package handler

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/usecase"
	"marketchat/pkg/response"
)

type PresenceHandler struct {
	dispatcher *usecase.Dispatcher
}

func NewPresenceHandler(dispatcher *usecase.Dispatcher) *PresenceHandler {
	return &PresenceHandler{
		dispatcher: dispatcher,
	}
}

func (h *PresenceHandler) GetPresence(c echo.Context) error {
	userID := c.Param("userId")

	return response.Success(c, map[string]interface{}{
		"user_id": userID,
		"online":  h.dispatcher.IsOnline(c.Request().Context(), userID),
	})
}
