package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apexoai/careerchat/internal/middleware"
	"github.com/apexoai/careerchat/internal/service"
	"github.com/apexoai/careerchat/internal/service/chat"
	"github.com/apexoai/careerchat/internal/service/types"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateSession 创建会话
func (h *ChatHandler) CreateSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	var req chat.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	session, err := h.svc.Chat.CreateSession(c.Request.Context(), userID, &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, session)
}

// ListSessions 列出会话
func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	page, limit := getPagination(c)

	sessions, total, err := h.svc.Chat.ListSessions(c.Request.Context(), userID, &chat.ListSessionsRequest{
		Status: c.DefaultQuery("status", "active"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"items": sessions,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetSession 获取会话及完整消息历史
func (h *ChatHandler) GetSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	session, err := h.svc.Chat.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, session)
}

// UpdateSession 更新会话标题或状态
func (h *ChatHandler) UpdateSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	var req chat.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	session, err := h.svc.Chat.UpdateSession(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, session)
}

// DeleteSession 软删除会话
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	if err := h.svc.Chat.DeleteSession(c.Request.Context(), userID, c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"message": "Chat session deleted successfully"})
}

// SendMessage 发送消息并以 SSE 流式返回助手回复
// 流开始前的错误用 HTTP 状态码，流开始后的错误作为带内 error 事件
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	var req chat.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	events, err := h.svc.Chat.SendMessage(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	// 设置 SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	for event := range events {
		select {
		case <-c.Request.Context().Done():
			// 客户端断开，上游取消由服务层的流注册处理
			return
		default:
			c.SSEvent("", event)
			c.Writer.Flush()
		}

		if event.Type == types.EventDone || event.Type == types.EventError {
			return
		}
	}
}

// GetMessages 获取会话消息
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	session, err := h.svc.Chat.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"messages": session.Messages})
}

// QuickChat 无会话的一次性问答
func (h *ChatHandler) QuickChat(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	var req chat.QuickChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Message: err.Error()})
		return
	}

	resp, err := h.svc.Chat.QuickChat(c.Request.Context(), userID, &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, resp)
}

// GenerateTitle 生成会话标题
func (h *ChatHandler) GenerateTitle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errorResponse(c, types.ErrUnauthorized)
		return
	}

	title, err := h.svc.Chat.GenerateTitle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"title": title})
}
