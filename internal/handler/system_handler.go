package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/apexoai/careerchat/internal/database"
	"github.com/apexoai/careerchat/internal/service"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
	db  *database.DB
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services, db *database.DB) *SystemHandler {
	return &SystemHandler{svc: svc, db: db}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			status = "degraded"
		}
	}

	c.JSON(200, gin.H{
		"status":  status,
		"name":    h.svc.Config.App.Name,
		"version": h.svc.Config.App.Version,
	})
}
