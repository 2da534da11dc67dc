package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"marketchat/internal/infrastructure/storage"
	"marketchat/internal/usecase"
	"marketchat/pkg/errors"
	"marketchat/pkg/logger"
	"marketchat/pkg/response"
)

const maxImageSize = 5 * 1024 * 1024

// ImageUploader stores a chat image and returns its public URL.
type ImageUploader interface {
	UploadChatImage(ctx context.Context, roomID string, file io.Reader, contentType string) (string, error)
}

type FileHandler struct {
	uploader    ImageUploader
	roomUseCase *usecase.ChatRoomUseCase
	maxFileSize int64
}

var fileHandler *FileHandler

func NewFileHandler(uploader ImageUploader, roomUseCase *usecase.ChatRoomUseCase) *FileHandler {
	return &FileHandler{
		uploader:    uploader,
		roomUseCase: roomUseCase,
		maxFileSize: maxImageSize,
	}
}

func SetupFileHandler(uploader ImageUploader, roomUseCase *usecase.ChatRoomUseCase) {
	fileHandler = NewFileHandler(uploader, roomUseCase)
}

func GetFileHandler() *FileHandler {
	return fileHandler
}

// UploadChatImage stores the image and returns the URL to put in a send_message frame.
func (h *FileHandler) UploadChatImage(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}
	if h.uploader == nil {
		return response.Error(c, errors.New("SERVICE_UNAVAILABLE", "Image storage is not configured", http.StatusServiceUnavailable, nil))
	}

	roomID := c.FormValue("chat_id")
	if roomID == "" {
		return response.Error(c, errors.BadRequest("chat_id is required", nil))
	}

	active, err := h.roomUseCase.ActiveParticipants(c.Request().Context(), roomID)
	if err != nil {
		return response.Error(c, err)
	}
	if !contains(active, userID) {
		return response.Error(c, errors.Forbidden("User is not a participant in this chat", nil))
	}

	file, err := c.FormFile("file")
	if err != nil {
		logger.Error("Error getting file from form: %v", err)
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}
	if file.Size > h.maxFileSize {
		return response.Error(c, errors.BadRequest("File is too large", nil))
	}

	contentType := file.Header.Get("Content-Type")
	if !storage.IsSupportedImage(contentType) {
		return response.Error(c, errors.BadRequest("Unsupported image type", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read file", err))
	}
	defer src.Close()

	url, err := h.uploader.UploadChatImage(c.Request().Context(), roomID, src, contentType)
	if err != nil {
		logger.Error("Chat image upload failed for room %s: %v", roomID, err)
		return response.Error(c, errors.Internal("Failed to upload image", err))
	}

	return response.Created(c, map[string]string{"image_url": url})
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
