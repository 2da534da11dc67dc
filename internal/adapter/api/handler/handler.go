package handler

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/usecase"
	"marketchat/pkg/errors"
)

var (
	chatHandler         *ChatHandler
	notificationHandler *NotificationHandler
	presenceHandler     *PresenceHandler
)

func Setup(
	roomUseCase *usecase.ChatRoomUseCase,
	messageUseCase *usecase.ChatMessageUseCase,
	historyUseCase *usecase.HistoryUseCase,
	notifier *usecase.Notifier,
	dispatcher *usecase.Dispatcher,
) {
	chatHandler = NewChatHandler(roomUseCase, messageUseCase, historyUseCase)
	notificationHandler = NewNotificationHandler(notifier)
	presenceHandler = NewPresenceHandler(dispatcher)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}

func GetPresenceHandler() *PresenceHandler {
	return presenceHandler
}

// currentUserID reads the uid set by the auth middleware.
func currentUserID(c echo.Context) (string, error) {
	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}
