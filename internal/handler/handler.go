package handler

import (
	"github.com/apexoai/careerchat/internal/database"
	"github.com/apexoai/careerchat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth   *AuthHandler
	Chat   *ChatHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, db *database.DB) *Handlers {
	return &Handlers{
		Auth:   NewAuthHandler(svc),
		Chat:   NewChatHandler(svc),
		System: NewSystemHandler(svc, db),
	}
}
