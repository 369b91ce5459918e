package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apexoai/careerchat/internal/model"
	"github.com/apexoai/careerchat/internal/service/types"
)

// ChatRepository 聊天数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建聊天仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession 创建会话
func (r *ChatRepository) CreateSession(ctx context.Context, session *model.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetSessionByID 获取会话及其全部消息（按 seq 升序）
// 会话不属于 userID 时同样返回 NotFound，不暴露存在性
func (r *ChatRepository) GetSessionByID(ctx context.Context, userID, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, model.SessionStatusDeleted).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions 列出会话（不含消息体），按最近活跃倒序
func (r *ChatRepository) ListSessions(ctx context.Context, userID, status string, offset, limit int) ([]*model.ChatSession, int64, error) {
	var sessions []*model.ChatSession
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("user_id = ? AND status = ?", userID, status)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("last_activity DESC").Offset(offset).Limit(limit).Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// UpdateSession 更新会话元数据
// 只写 title 与 status，message_count/last_activity 归加锁的追加事务所有，
// 整行回写会把并发追加后的计数冲回旧值
func (r *ChatRepository) UpdateSession(ctx context.Context, session *model.ChatSession) error {
	result := r.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"title":  session.Title,
			"status": session.Status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SoftDeleteSession 软删除：状态翻转为 deleted，消息保留
func (r *ChatRepository) SoftDeleteSession(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, model.SessionStatusDeleted).
		Update("status", model.SessionStatusDeleted)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// AppendMessage 追加消息
// 单事务内对会话行加 FOR UPDATE 锁，再按 message_count+1 分配 seq 并插入，
// 同一会话的并发追加由行锁串行化，消息列表只增不改
func (r *ChatRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.ChatSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.SessionID).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNotFound
			}
			return err
		}

		msg.Seq = session.MessageCount + 1
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		return tx.Model(&model.ChatSession{}).
			Where("id = ?", msg.SessionID).
			Updates(map[string]interface{}{
				"message_count": gorm.Expr("message_count + 1"),
				"last_activity": time.Now(),
			}).Error
	})
}

// GetRecentMessages 获取会话最近的 N 条消息，按 seq 升序返回
func (r *ChatRepository) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// 倒序取出后还原时间顺序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
