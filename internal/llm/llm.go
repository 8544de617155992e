package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/research_report/internal/config"
	"github.com/iWorld-y/research_report/internal/logger"
)

// Completer 单轮文本补全：输入一段 Prompt，返回模型的文本输出
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewChatModel 初始化 OpenAI 兼容协议的 Eino ChatModel
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return chatModel, nil
}

// NewLimiter 根据 RPM/QPS 创建限流器：Limit 为 RPM/60，Burst 为 QPS；RPM 未配置时不限流
func NewLimiter(cfg config.ConcurrencyConfig) *rate.Limiter {
	if cfg.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), burst)
}

// Client 带限流与 429 重试的 Completer 实现
type Client struct {
	cm         model.BaseChatModel
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	system     string
}

// Option Client 选项
type Option func(*Client)

// WithLimiter 设置限流器
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry 设置 429 重试次数与初始退避时间
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// WithSystemPrompt 为每次调用附加 system 消息
func WithSystemPrompt(s string) Option {
	return func(c *Client) { c.system = s }
}

// NewClient 创建 Client
func NewClient(cm model.BaseChatModel, opts ...Option) *Client {
	c := &Client{
		cm:         cm,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		maxRetries: config.DefaultMaxRetries,
		baseDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Completer = (*Client)(nil)

// Complete 调用模型。遇到 429 限流时按指数退避重试，其他错误直接返回。
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if c.system != "" {
		messages = append(messages, schema.SystemMessage(c.system))
	}
	messages = append(messages, schema.UserMessage(prompt))

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		// 等待限流令牌
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("limiter wait error: %w", err)
		}

		resp, err := c.cm.Generate(ctx, messages)
		if err == nil {
			return resp.Content, nil
		}
		if !IsRateLimited(err) {
			return "", err
		}

		lastErr = err
		if i == c.maxRetries {
			break
		}
		delay := c.baseDelay * time.Duration(1<<i) // 指数退避
		logger.Log.Warnf("触发 429 限流，等待 %v 后重试 (%d/%d)...", delay, i+1, c.maxRetries)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// IsRateLimited 判断是否为 429 / too many requests 错误
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// ErrEmptyJSON 清理后的输出为空
var ErrEmptyJSON = errors.New("empty model output")

// CleanJSON 去掉模型输出中可能包裹的 markdown 代码块标记
func CleanJSON(s string) (string, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", ErrEmptyJSON
	}
	return clean, nil
}
