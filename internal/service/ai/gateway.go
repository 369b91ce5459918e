// Package ai 封装对外部补全服务的访问
// 网关不裁剪历史，上下文窗口由调用方限定
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/apexoai/careerchat/internal/service/types"
)

// Options 单次调用参数
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Result 补全结果
type Result struct {
	Content          string `json:"content"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Gateway AI 网关接口
// ChatStream 按到达顺序回调 onChunk，流中断时连同错误返回已收到的部分内容
type Gateway interface {
	Chat(ctx context.Context, messages []*schema.Message, opts *Options) (*Result, error)
	ChatStream(ctx context.Context, messages []*schema.Message, onChunk func(chunk string), opts *Options) (*Result, error)
	ModelName() string
}

// ModelGateway 基于 eino ChatModel 的网关实现
type ModelGateway struct {
	chatModel model.ChatModel
	modelName string
}

// NewModelGateway 创建网关
// chatModel 为 nil 时网关可构建但调用返回 ServiceUnavailable
func NewModelGateway(chatModel model.ChatModel, modelName string) *ModelGateway {
	return &ModelGateway{chatModel: chatModel, modelName: modelName}
}

// ModelName 当前模型名
func (g *ModelGateway) ModelName() string {
	return g.modelName
}

// Chat 单次补全
func (g *ModelGateway) Chat(ctx context.Context, messages []*schema.Message, opts *Options) (*Result, error) {
	if g.chatModel == nil {
		return nil, types.ErrServiceUnavailable
	}

	resp, err := g.chatModel.Generate(ctx, messages, buildOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrUpstream, err)
	}

	result := &Result{Content: resp.Content}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		result.PromptTokens = resp.ResponseMeta.Usage.PromptTokens
		result.CompletionTokens = resp.ResponseMeta.Usage.CompletionTokens
	}
	return result, nil
}

// ChatStream 流式补全
func (g *ModelGateway) ChatStream(ctx context.Context, messages []*schema.Message, onChunk func(chunk string), opts *Options) (*Result, error) {
	if g.chatModel == nil {
		return nil, types.ErrServiceUnavailable
	}

	reader, err := g.chatModel.Stream(ctx, messages, buildOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrUpstream, err)
	}
	defer reader.Close()

	var full strings.Builder
	result := &Result{}

	for {
		chunk, err := reader.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// 中断时把已累积的内容一并交还给调用方
			result.Content = full.String()
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			return result, fmt.Errorf("%w: %v", types.ErrUpstream, err)
		}

		if chunk.Content != "" {
			full.WriteString(chunk.Content)
			if onChunk != nil {
				onChunk(chunk.Content)
			}
		}
		if chunk.ResponseMeta != nil && chunk.ResponseMeta.Usage != nil {
			result.PromptTokens = chunk.ResponseMeta.Usage.PromptTokens
			result.CompletionTokens = chunk.ResponseMeta.Usage.CompletionTokens
		}
	}

	result.Content = full.String()
	return result, nil
}

// buildOptions 转换为 eino 调用参数
func buildOptions(opts *Options) []model.Option {
	if opts == nil {
		return nil
	}
	var einoOpts []model.Option
	if opts.Temperature > 0 {
		einoOpts = append(einoOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		einoOpts = append(einoOpts, model.WithMaxTokens(opts.MaxTokens))
	}
	return einoOpts
}

// EstimateTokens 粗略估算文本 token 数（约 4 字符一个 token）
// 上游未返回用量元数据时的兜底
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
