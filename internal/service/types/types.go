// Package types 提供各服务共享的类型与错误定义，避免循环导入
package types

import "errors"

// 服务层统一错误分类，handler 层据此映射 HTTP 状态码
var (
	// ErrUnauthorized 缺少或无效的请求主体
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound 会话不存在或不属于调用者
	ErrNotFound = errors.New("not found")
	// ErrValidation 请求参数非法
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientCredits 积分余额不足
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrServiceUnavailable AI 网关未配置
	ErrServiceUnavailable = errors.New("ai service unavailable")
	// ErrUpstream AI 网关调用失败
	ErrUpstream = errors.New("upstream ai error")
)

// 流式事件类型
const (
	EventContent = "content"
	EventCredits = "credits"
	EventDone    = "done"
	EventError   = "error"
)

// StreamEvent SSE 流式事件
// Remaining 用指针区分「未携带」与「余额为 0」
type StreamEvent struct {
	Type      string `json:"type"` // content, credits, done, error
	Chunk     string `json:"chunk,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
	Message   string `json:"message,omitempty"`
}
