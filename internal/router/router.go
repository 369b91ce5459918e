package router

import (
	"github.com/gin-gonic/gin"

	"github.com/apexoai/careerchat/internal/handler"
	"github.com/apexoai/careerchat/internal/middleware"
	"github.com/apexoai/careerchat/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Auth 认证
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/logout", middleware.RequireAuth(svc), h.Auth.Logout)
			authGroup.GET("/me", middleware.RequireAuth(svc), h.Auth.Me)
		}

		// Chat 聊天
		chatGroup := v1.Group("/chat")
		chatGroup.Use(middleware.RequireAuth(svc))
		{
			chatGroup.POST("/sessions", h.Chat.CreateSession)
			chatGroup.GET("/sessions", h.Chat.ListSessions)
			chatGroup.GET("/sessions/:id", h.Chat.GetSession)
			chatGroup.PATCH("/sessions/:id", h.Chat.UpdateSession)
			chatGroup.DELETE("/sessions/:id", h.Chat.DeleteSession)
			chatGroup.POST("/sessions/:id/messages", h.Chat.SendMessage)
			chatGroup.GET("/sessions/:id/messages", h.Chat.GetMessages)
			chatGroup.POST("/sessions/:id/title", h.Chat.GenerateTitle)
			chatGroup.POST("/quick", h.Chat.QuickChat)
		}
	}

	return r
}
