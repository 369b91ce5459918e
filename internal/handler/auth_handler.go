package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apexoai/careerchat/internal/middleware"
	"github.com/apexoai/careerchat/internal/service"
	"github.com/apexoai/careerchat/internal/service/auth"
	"github.com/apexoai/careerchat/internal/service/types"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register 注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	resp, err := h.svc.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, resp)
}

// Login 登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, resp)
}

// Logout 登出，撤销当前令牌
func (h *AuthHandler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	if err := h.svc.Auth.RevokeToken(c.Request.Context(), token); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"message": "Logged out successfully"})
}

// Me 当前用户信息（含积分余额）
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	success(c, user.ToUserInfo())
}
