package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyCompletion 模型没有返回文本
var ErrEmptyCompletion = errors.New("gemini returned no content")

// Prompt 一次生成请求
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// Completion 生成结果
type Completion struct {
	Text        string
	TotalTokens int
}

// GeminiClient 基于官方 genai SDK 的文本生成客户端
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient 创建客户端，apiKey 为空时报错
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

// Generate 发送系统指令 + 用户文本，返回拼接后的文本与 token 用量
func (g *GeminiClient) Generate(ctx context.Context, p Prompt) (*Completion, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.Temperature),
	}
	if p.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: p.User}}}},
		cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyCompletion
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	out := &Completion{Text: text}
	if resp.UsageMetadata != nil {
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}
