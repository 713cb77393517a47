package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"marketmind/internal/logger"
)

// 中文说明：
// LLM 评述客户端。输出只作为叙述文本附加在信号推理里，
// 永远不参与 action/confidence/position_size 的计算。

const systemPrompt = "You are a financial analysis assistant. Provide a concise, factual commentary on the given analysis. Do not give financial advice."

// Config LLM 接入配置。BaseURL 兼容 OpenAI 协议的任意服务。
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = openai.GPT3Dot5Turbo
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 512
	}
	return c
}

// Client 实现 agent.Commentator。
type Client struct {
	client *openai.Client
	cfg    Config
}

func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return &Client{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// Summarize 请求一段分析评述，自带超时。
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	logger.LogLLMRequest(c.cfg.Model, prompt)
	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	logger.LogLLMResponse(c.cfg.Model, text)
	return text, nil
}
