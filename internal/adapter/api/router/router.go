package router

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/adapter/api/middleware"
	"marketchat/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, limiter *ratelimit.RateLimiter) {
	SetupChatRouter(e, authMiddleware, limiter)
	SetupNotificationRouter(e, authMiddleware, adminMiddleware)
	SetupPresenceRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
