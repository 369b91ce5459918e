// Package session 维护会话的热状态：最近上下文窗口缓存与活跃流登记
// 持久化真值始终在数据库，这里只是读路径的加速层
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/apexoai/careerchat/internal/model"
)

const (
	// 窗口缓存在 Redis 中的过期时间（24小时）
	windowTTL = 24 * time.Hour
	// Redis key 前缀
	windowKeyPrefix = "chat:window:"
)

// Manager 会话热状态管理器
type Manager struct {
	mu            sync.RWMutex
	activeStreams map[string]*ActiveStream
	redis         *redis.Client
	maxMessages   int64
}

// ActiveStream 活跃流，客户端断开时通过 CancelFunc 终止上游生成
type ActiveStream struct {
	SessionID  string
	CancelFunc context.CancelFunc
	StartedAt  time.Time
}

// messageData 消息数据（用于 Redis 存储）
type messageData struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewManager 创建管理器
// maxTurns 为缓存的回合数上限，每回合两条消息
func NewManager(redisClient *redis.Client, maxTurns int) *Manager {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Manager{
		activeStreams: make(map[string]*ActiveStream),
		redis:         redisClient,
		maxMessages:   int64(maxTurns * 2),
	}
}

// Window 读取缓存的上下文窗口
// 缓存未命中或 Redis 不可用时返回 ok=false，调用方回退到数据库
func (m *Manager) Window(ctx context.Context, sessionID string) ([]*schema.Message, bool) {
	if m.redis == nil {
		return nil, false
	}

	raw, err := m.redis.LRange(ctx, windowKeyPrefix+sessionID, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	messages := make([]*schema.Message, 0, len(raw))
	for _, item := range raw {
		var data messageData
		if err := json.Unmarshal([]byte(item), &data); err != nil {
			// 缓存损坏，丢弃整个窗口
			m.Invalidate(ctx, sessionID)
			return nil, false
		}
		messages = append(messages, &schema.Message{
			Role:    roleToSchema(data.Role),
			Content: data.Content,
		})
	}
	return messages, true
}

// AppendTurn 把新消息追加进窗口缓存并裁剪到上限
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, messages ...*model.ChatMessage) {
	if m.redis == nil || len(messages) == 0 {
		return
	}

	key := windowKeyPrefix + sessionID
	pipe := m.redis.TxPipeline()
	for _, msg := range messages {
		data, err := json.Marshal(messageData{Role: msg.Role, Content: msg.Content})
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, -m.maxMessages, -1)
	pipe.Expire(ctx, key, windowTTL)
	// 缓存写失败不影响请求，窗口下次从数据库重建
	_, _ = pipe.Exec(ctx)
}

// Prime 用数据库读出的消息重建窗口缓存
func (m *Manager) Prime(ctx context.Context, sessionID string, messages []*model.ChatMessage) {
	if m.redis == nil {
		return
	}
	m.Invalidate(ctx, sessionID)
	m.AppendTurn(ctx, sessionID, messages...)
}

// Invalidate 丢弃窗口缓存
func (m *Manager) Invalidate(ctx context.Context, sessionID string) {
	if m.redis == nil {
		return
	}
	_ = m.redis.Del(ctx, windowKeyPrefix+sessionID).Err()
}

// RegisterStream 登记活跃流并返回登记项，同一会话已有流时先取消旧流
func (m *Manager) RegisterStream(sessionID string, cancel context.CancelFunc) *ActiveStream {
	stream := &ActiveStream{
		SessionID:  sessionID,
		CancelFunc: cancel,
		StartedAt:  time.Now(),
	}

	m.mu.Lock()
	prev, ok := m.activeStreams[sessionID]
	m.activeStreams[sessionID] = stream
	m.mu.Unlock()

	if ok && prev.CancelFunc != nil {
		prev.CancelFunc()
	}
	return stream
}

// UnregisterStream 注销活跃流
// 仅当登记表里仍是同一项时删除，迟到的注销不会挤掉后继流
func (m *Manager) UnregisterStream(stream *ActiveStream) {
	if stream == nil {
		return
	}
	m.mu.Lock()
	if current, ok := m.activeStreams[stream.SessionID]; ok && current == stream {
		delete(m.activeStreams, stream.SessionID)
	}
	m.mu.Unlock()
}

// StreamCount 当前登记的活跃流数量
func (m *Manager) StreamCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeStreams)
}

// CancelStream 取消会话的活跃流，返回是否存在
func (m *Manager) CancelStream(sessionID string) bool {
	m.mu.Lock()
	stream, ok := m.activeStreams[sessionID]
	delete(m.activeStreams, sessionID)
	m.mu.Unlock()

	if ok && stream.CancelFunc != nil {
		stream.CancelFunc()
	}
	return ok
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case model.RoleSystem:
		return schema.System
	case model.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}
