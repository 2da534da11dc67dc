package handler

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/domain/repository"
	"marketchat/internal/infrastructure/auth"
	"marketchat/pkg/errors"
	"marketchat/pkg/response"
)

// DevTokenHandler mints tokens for seeded users. Development only.
type DevTokenHandler struct {
	jwtManager *auth.JWTManager
	userRepo   repository.UserRepository
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(jwtManager *auth.JWTManager, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		jwtManager: jwtManager,
		userRepo:   userRepo,
	}
}

func SetupDevTokenHandler(jwtManager *auth.JWTManager, userRepo repository.UserRepository) {
	devTokenHandler = NewDevTokenHandler(jwtManager, userRepo)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	user, err := h.userRepo.GetByID(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to sign token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
