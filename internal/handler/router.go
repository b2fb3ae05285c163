package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/eacrag/internal/middleware"
)

type RouterDeps struct {
	Chat          *ChatHandler
	Health        *HealthHandler
	RefreshWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/chat", deps.Chat.Chat)
	api.POST("/refresh", middleware.RateLimit(deps.RefreshWindow), deps.Chat.Refresh)
	api.GET("/healthz", deps.Health.Health)
}
