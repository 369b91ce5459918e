// Package chat 提供会话生命周期与多轮对话编排
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/apexoai/careerchat/internal/config"
	"github.com/apexoai/careerchat/internal/model"
	"github.com/apexoai/careerchat/internal/service/ai"
	"github.com/apexoai/careerchat/internal/service/credit"
	"github.com/apexoai/careerchat/internal/service/prompt"
	"github.com/apexoai/careerchat/internal/service/session"
	"github.com/apexoai/careerchat/internal/service/types"
)

// SessionStore 会话持久化接口
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.ChatSession) error
	GetSessionByID(ctx context.Context, userID, id string) (*model.ChatSession, error)
	ListSessions(ctx context.Context, userID, status string, offset, limit int) ([]*model.ChatSession, int64, error)
	UpdateSession(ctx context.Context, session *model.ChatSession) error
	SoftDeleteSession(ctx context.Context, userID, id string) error
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// UserStore 用户读取接口
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Service 聊天服务
type Service struct {
	store   SessionStore
	users   UserStore
	gateway ai.Gateway
	credits *credit.Service
	hot     *session.Manager
	cfg     config.ChatConfig
}

// NewService 创建聊天服务
func NewService(store SessionStore, users UserStore, gateway ai.Gateway, credits *credit.Service, hot *session.Manager, cfg config.ChatConfig) *Service {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60
	}
	return &Service{
		store:   store,
		users:   users,
		gateway: gateway,
		credits: credits,
		hot:     hot,
		cfg:     cfg,
	}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title       string            `json:"title"`
	ContextType model.ContextType `json:"context_type"`
}

// CreateSession 创建会话
func (s *Service) CreateSession(ctx context.Context, userID string, req *CreateSessionRequest) (*model.ChatSession, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = model.DefaultSessionTitle
	}
	contextType := req.ContextType
	if !model.ValidContextType(contextType) {
		contextType = model.ContextGeneral
	}

	sess := &model.ChatSession{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        title,
		ContextType:  contextType,
		Status:       model.SessionStatusActive,
		LastActivity: time.Now(),
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// ListSessionsRequest 列出会话请求
type ListSessionsRequest struct {
	Status string `json:"status"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// ListSessions 列出会话，永不返回已删除的会话
func (s *Service) ListSessions(ctx context.Context, userID string, req *ListSessionsRequest) ([]*model.ChatSession, int64, error) {
	if userID == "" {
		return nil, 0, types.ErrUnauthorized
	}

	status := req.Status
	if status == "" {
		status = model.SessionStatusActive
	}
	if status != model.SessionStatusActive && status != model.SessionStatusArchived {
		return nil, 0, fmt.Errorf("%w: invalid status filter %q", types.ErrValidation, status)
	}

	page := req.Page
	limit := req.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	sessions, total, err := s.store.ListSessions(ctx, userID, status, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

// GetSession 获取会话及其全部消息
func (s *Service) GetSession(ctx context.Context, userID, id string) (*model.ChatSession, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}
	return s.store.GetSessionByID(ctx, userID, id)
}

// UpdateSessionRequest 更新会话请求
type UpdateSessionRequest struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// UpdateSession 更新标题或状态
// active <-> archived 可逆，deleted 终态不可恢复
func (s *Service) UpdateSession(ctx context.Context, userID, id string, req *UpdateSessionRequest) (*model.ChatSession, error) {
	sess, err := s.store.GetSessionByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		sess.Title = title
	}
	if req.Status != "" && req.Status != sess.Status {
		if !model.ValidStatusTransition(sess.Status, req.Status) {
			return nil, fmt.Errorf("%w: cannot transition session from %s to %s",
				types.ErrValidation, sess.Status, req.Status)
		}
		sess.Status = req.Status
	}

	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return sess, nil
}

// DeleteSession 软删除会话
func (s *Service) DeleteSession(ctx context.Context, userID, id string) error {
	if err := s.store.SoftDeleteSession(ctx, userID, id); err != nil {
		return err
	}
	s.hot.Invalidate(ctx, id)
	s.hot.CancelStream(id)
	return nil
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Message      string                 `json:"message" binding:"required"`
	ExtraContext map[string]interface{} `json:"context"`
}

// SendMessage 发送用户消息并流式返回助手回复
// 积分检查在任何网关调用之前；校验或授权失败不产生副作用。
// 上游失败或客户端断开时，已生成的部分内容带 truncated 标记落库且该回合不扣费
func (s *Service) SendMessage(ctx context.Context, userID, sessionID string, req *SendMessageRequest) (<-chan types.StreamEvent, error) {
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return nil, fmt.Errorf("%w: message is required", types.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, types.ErrUnauthorized
	}

	sess, err := s.store.GetSessionByID(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	// 余额不足在调用网关之前拒绝
	cost := s.credits.CostForTurn()
	if err := s.credits.Check(user, cost); err != nil {
		return nil, err
	}

	history, err := s.contextWindow(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	userMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	s.hot.AppendTurn(ctx, sessionID, userMsg)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(prompt.BuildSystemPrompt(sess.ContextType, req.ExtraContext)))
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(content))

	streamCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.RequestTimeout)*time.Second)
	stream := s.hot.RegisterStream(sessionID, cancel)

	events := make(chan types.StreamEvent, 10)
	go s.runTurn(streamCtx, cancel, stream, user, sessionID, messages, events)

	return events, nil
}

// runTurn 执行一次助手回合：流式生成、落库、扣费、发事件
func (s *Service) runTurn(ctx context.Context, cancel context.CancelFunc, stream *session.ActiveStream, user *model.User, sessionID string, messages []*schema.Message, events chan<- types.StreamEvent) {
	defer close(events)
	defer cancel()
	defer s.hot.UnregisterStream(stream)

	result, streamErr := s.gateway.ChatStream(ctx, messages, func(chunk string) {
		select {
		case events <- types.StreamEvent{Type: types.EventContent, Chunk: chunk}:
		case <-ctx.Done():
		}
	}, &ai.Options{
		Temperature: float32(s.cfg.Temperature),
		MaxTokens:   s.cfg.MaxTokens,
	})

	// 请求上下文可能已取消，落库用独立的短超时上下文
	persistCtx, persistCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer persistCancel()

	if streamErr != nil {
		// 部分输出仍然落库并打上 truncated 标记，该回合不扣费
		if result != nil && result.Content != "" {
			if err := s.persistAssistant(persistCtx, sessionID, result, true); err != nil {
				log.Printf("failed to persist partial assistant message for session %s: %v", sessionID, err)
			}
		}
		s.emit(ctx, events, types.StreamEvent{Type: types.EventError, Message: userFacingError(streamErr)})
		return
	}

	// 落库失败视为回合失败：不扣费，对客户端报错
	if err := s.persistAssistant(persistCtx, sessionID, result, false); err != nil {
		log.Printf("failed to persist assistant message for session %s: %v", sessionID, err)
		s.emit(ctx, events, types.StreamEvent{Type: types.EventError, Message: "failed to save the response"})
		return
	}

	// 成功完成后才扣费
	cost := s.credits.CostForUsage(result.PromptTokens, result.CompletionTokens)
	remaining, err := s.credits.Deduct(persistCtx, user, cost)
	if err == nil && remaining >= 0 {
		s.emit(ctx, events, types.StreamEvent{Type: types.EventCredits, Remaining: &remaining})
	}

	s.emit(ctx, events, types.StreamEvent{Type: types.EventDone})
}

// emit 发送事件，客户端已断开（头部取消）时丢弃，避免写满缓冲后永久阻塞
func (s *Service) emit(ctx context.Context, events chan<- types.StreamEvent, event types.StreamEvent) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}

// persistAssistant 落库助手消息并同步窗口缓存
func (s *Service) persistAssistant(ctx context.Context, sessionID string, result *ai.Result, truncated bool) error {
	tokens := result.PromptTokens + result.CompletionTokens
	if tokens == 0 {
		tokens = ai.EstimateTokens(result.Content)
	}

	msg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   result.Content,
		Model:     s.gateway.ModelName(),
		TokenUsed: tokens,
		Truncated: truncated,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	s.hot.AppendTurn(ctx, sessionID, msg)
	return nil
}

// contextWindow 取最近 N 回合作为上下文，优先读缓存
func (s *Service) contextWindow(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	if cached, ok := s.hot.Window(ctx, sessionID); ok {
		return cached, nil
	}

	recent, err := s.store.GetRecentMessages(ctx, sessionID, s.cfg.HistoryTurns*2)
	if err != nil {
		return nil, err
	}
	s.hot.Prime(ctx, sessionID, recent)

	messages := make([]*schema.Message, 0, len(recent))
	for _, msg := range recent {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		case model.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		}
	}
	return messages, nil
}

// QuickChatRequest 一次性快速问答请求
type QuickChatRequest struct {
	Message      string                 `json:"message" binding:"required"`
	ExtraContext map[string]interface{} `json:"context"`
}

// QuickChatResponse 快速问答响应
type QuickChatResponse struct {
	Content   string     `json:"response"`
	Usage     *ai.Result `json:"usage,omitempty"`
	Remaining int        `json:"remaining_credits"`
}

// QuickChat 无会话的一次性问答，不持久化任何消息
func (s *Service) QuickChat(ctx context.Context, userID string, req *QuickChatRequest) (*QuickChatResponse, error) {
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return nil, fmt.Errorf("%w: message is required", types.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, types.ErrUnauthorized
	}

	cost := s.credits.CostForTurn()
	if err := s.credits.Check(user, cost); err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(prompt.BuildSystemPrompt(model.ContextGeneral, req.ExtraContext)),
		schema.UserMessage(content),
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.RequestTimeout)*time.Second)
	defer cancel()

	result, err := s.gateway.Chat(callCtx, messages, &ai.Options{
		Temperature: float32(s.cfg.Temperature),
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	remaining, err := s.credits.Deduct(ctx, user, s.credits.CostForUsage(result.PromptTokens, result.CompletionTokens))
	if err != nil {
		return nil, err
	}

	return &QuickChatResponse{
		Content:   result.Content,
		Usage:     result,
		Remaining: remaining,
	}, nil
}

// GenerateTitle 根据首个交换生成简短的会话标题，不计扣积分
func (s *Service) GenerateTitle(ctx context.Context, userID, sessionID string) (string, error) {
	sess, err := s.store.GetSessionByID(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	if len(sess.Messages) == 0 {
		return "", fmt.Errorf("%w: session has no messages", types.ErrValidation)
	}

	first := sess.Messages[0].Content
	if len(first) > 500 {
		first = first[:500]
	}

	messages := []*schema.Message{
		schema.SystemMessage("You summarize conversations into short titles. Reply with a title of at most six words, no quotes, no punctuation at the end."),
		schema.UserMessage(first),
	}

	result, err := s.gateway.Chat(ctx, messages, &ai.Options{Temperature: 0.3, MaxTokens: 24})
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(strings.Trim(result.Content, `"`))
	if title == "" {
		return "", fmt.Errorf("%w: empty title from model", types.ErrUpstream)
	}

	sess.Title = title
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to save title: %w", err)
	}
	return title, nil
}

// userFacingError 流中断时展示给客户端的文案，不泄漏内部细节
func userFacingError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "response timed out"
	case errors.Is(err, context.Canceled):
		return "generation cancelled"
	}
	return "the assistant is temporarily unavailable"
}
