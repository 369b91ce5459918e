package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"

	"github.com/apexoai/careerchat/internal/config"
	"github.com/apexoai/careerchat/internal/repository"
	"github.com/apexoai/careerchat/internal/service/ai"
	"github.com/apexoai/careerchat/internal/service/auth"
	"github.com/apexoai/careerchat/internal/service/chat"
	"github.com/apexoai/careerchat/internal/service/credit"
	"github.com/apexoai/careerchat/internal/service/session"
)

// Services 服务集合
type Services struct {
	Auth   *auth.Service
	Chat   *chat.Service
	Credit *credit.Service

	// 配置
	Config *config.Config

	// 热状态管理
	SessionMgr *session.Manager

	// AI 网关
	Gateway ai.Gateway
}

// NewServices 创建所有服务
// 进程启动时构建一次，显式注入各层，不使用包级单例
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 创建 ChatModel，未配置 API Key 时网关降级为 ServiceUnavailable
	chatModel, modelName, err := newChatModel(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create chat model: %v", err)
	}
	gateway := ai.NewModelGateway(chatModel, modelName)

	sessionMgr := session.NewManager(redisClient, cfg.Chat.HistoryTurns)
	creditSvc := credit.NewService(repo.User, cfg.Credit)

	return &Services{
		Auth:       auth.NewService(repo.User, cfg.Credit.InitialBalance),
		Chat:       chat.NewService(repo.Chat, repo.User, gateway, creditSvc, sessionMgr, cfg.Chat),
		Credit:     creditSvc,
		Config:     cfg,
		SessionMgr: sessionMgr,
		Gateway:    gateway,
	}, nil
}

// newChatModel 创建 ChatModel
func newChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, string, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.Alibaba.Model
	default:
		return nil, "", fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	if apiKey == "" {
		return nil, modelName, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, modelName, err
	}
	return chatModel, modelName, nil
}
