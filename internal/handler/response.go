package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apexoai/careerchat/internal/service/types"
)

// Response 统一响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// success 成功响应
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// created 创建成功响应
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// errorResponse 错误响应，按服务层错误分类映射状态码
// 生产环境不向客户端泄漏内部错误细节
func errorResponse(c *gin.Context, err error) {
	status := statusForError(err)

	message := err.Error()
	if status == http.StatusInternalServerError && gin.Mode() == gin.ReleaseMode {
		message = "internal server error"
	}

	c.JSON(status, Response{Code: -1, Message: message})
}

// statusForError 服务层错误到 HTTP 状态码的映射
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, types.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// getPagination 获取分页参数
func getPagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return
}
