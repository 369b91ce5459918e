package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/apexoai/careerchat/internal/model"
	"github.com/apexoai/careerchat/internal/service/types"
)

// UserRepository 用户数据访问
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 获取用户
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 按邮箱获取用户
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update 更新用户
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// DeductCredits 原子扣减积分
// 单条带余额下限守卫的 UPDATE，两个并发请求不会把余额扣成负数；
// 余额不足时不产生任何副作用
func (r *UserRepository) DeductCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deduct amount must be positive", types.ErrValidation)
	}

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deduct credits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// 用户不存在或余额不足，区分两种情况
		user, err := r.GetByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		return user.Credits, types.ErrInsufficientCredits
	}

	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// SaveToken 保存令牌记录
func (r *UserRepository) SaveToken(ctx context.Context, token *model.AuthToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetTokenByValue 按令牌值查找记录
func (r *UserRepository) GetTokenByValue(ctx context.Context, value string) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.WithContext(ctx).Where("token = ?", value).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// RevokeToken 撤销令牌
func (r *UserRepository) RevokeToken(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.AuthToken{}).
		Where("id = ?", id).
		Update("is_revoked", true).Error
}

// AddCredits 充值积分
func (r *UserRepository) AddCredits(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: add amount must be positive", types.ErrValidation)
	}
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to add credits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}
