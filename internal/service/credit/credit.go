// Package credit 积分计量：先尝试后扣费，付费套餐直通
package credit

import (
	"context"

	"github.com/apexoai/careerchat/internal/config"
	"github.com/apexoai/careerchat/internal/model"
	"github.com/apexoai/careerchat/internal/service/types"
)

// Ledger 积分账本操作，由 UserRepository 提供原子实现
type Ledger interface {
	DeductCredits(ctx context.Context, userID string, amount int) (int, error)
	AddCredits(ctx context.Context, userID string, amount int) error
}

// Service 积分计量服务
type Service struct {
	ledger Ledger
	cfg    config.CreditConfig
}

// NewService 创建积分服务
func NewService(ledger Ledger, cfg config.CreditConfig) *Service {
	return &Service{ledger: ledger, cfg: cfg}
}

// Check 前置检查
// 付费套餐直接放行；余额不足返回 InsufficientCredits 且无任何副作用，
// 真正的扣减守卫在 Deduct 的原子 UPDATE 里，这里只做快速拒绝
func (s *Service) Check(user *model.User, required int) error {
	if user == nil {
		return types.ErrUnauthorized
	}
	if user.HasUnlimitedCredits() {
		return nil
	}
	if user.Credits < required {
		return types.ErrInsufficientCredits
	}
	return nil
}

// Deduct 扣减积分，返回新余额
// 仅在助手回合成功完成后调用；付费套餐不扣减，返回 -1 表示无限额度
func (s *Service) Deduct(ctx context.Context, user *model.User, amount int) (int, error) {
	if user.HasUnlimitedCredits() {
		return -1, nil
	}
	return s.ledger.DeductCredits(ctx, user.ID, amount)
}

// CostForTurn 每回合固定成本
func (s *Service) CostForTurn() int {
	if s.cfg.CostPerTurn <= 0 {
		return 1
	}
	return s.cfg.CostPerTurn
}

// CostForUsage 按 token 用量计费
// 未启用 token 计价时回落到固定每回合成本；启用时向上取整且至少一分
func (s *Service) CostForUsage(promptTokens, completionTokens int) int {
	if !s.cfg.TokenPricing || s.cfg.TokensPerCredit <= 0 {
		return s.CostForTurn()
	}
	total := promptTokens + completionTokens
	cost := (total + s.cfg.TokensPerCredit - 1) / s.cfg.TokensPerCredit
	if cost < 1 {
		cost = 1
	}
	return cost
}
