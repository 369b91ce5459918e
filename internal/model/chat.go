package model

import "time"

// ContextType 会话语境类型，决定系统提示词的角色设定
type ContextType string

const (
	ContextGeneral       ContextType = "general"
	ContextResume        ContextType = "resume_building"
	ContextCoverLetter   ContextType = "cover_letter"
	ContextJobSearch     ContextType = "job_search"
	ContextInterviewPrep ContextType = "interview_prep"
	ContextCareerAdvice  ContextType = "career_advice"
)

// 会话状态
const (
	SessionStatusActive   = "active"
	SessionStatusArchived = "archived"
	SessionStatusDeleted  = "deleted"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultSessionTitle 新会话默认标题
const DefaultSessionTitle = "New Conversation"

// ChatSession 聊天会话
type ChatSession struct {
	ID           string        `gorm:"primaryKey;size:36" json:"id"`
	UserID       string        `gorm:"index:idx_sessions_owner;size:36;not null" json:"user_id"`
	Title        string        `gorm:"size:255" json:"title"`
	ContextType  ContextType   `gorm:"size:32;default:general" json:"context_type"`
	Status       string        `gorm:"index:idx_sessions_owner;size:20;default:active" json:"status"`
	MessageCount int           `gorm:"default:0" json:"message_count"`
	LastActivity time.Time     `gorm:"index" json:"last_activity"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	Messages     []ChatMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

// ChatMessage 聊天消息，按 Seq 追加排序，写入后不可变
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"uniqueIndex:idx_messages_seq;size:36;not null" json:"session_id"`
	Seq       int       `gorm:"uniqueIndex:idx_messages_seq;not null" json:"seq"`
	Role      string    `gorm:"size:20" json:"role"` // user, assistant, system
	Content   string    `gorm:"type:text" json:"content"`
	Model     string    `gorm:"size:64" json:"model,omitempty"`
	TokenUsed int       `gorm:"default:0" json:"token_used,omitempty"`
	Truncated bool      `gorm:"default:false" json:"truncated,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ValidContextType 检查语境类型是否在枚举内
func ValidContextType(ct ContextType) bool {
	switch ct {
	case ContextGeneral, ContextResume, ContextCoverLetter,
		ContextJobSearch, ContextInterviewPrep, ContextCareerAdvice:
		return true
	}
	return false
}

// ValidStatusTransition 检查会话状态迁移是否合法
// active <-> archived 可逆，deleted 为终态
func ValidStatusTransition(from, to string) bool {
	switch from {
	case SessionStatusActive:
		return to == SessionStatusArchived || to == SessionStatusDeleted
	case SessionStatusArchived:
		return to == SessionStatusActive || to == SessionStatusDeleted
	}
	return false
}
