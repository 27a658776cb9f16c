package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"room-advisor/pkg/config"
	"room-advisor/pkg/metrics"

	"github.com/Role1776/gigago"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string
	Content string
}

// ChatCompleter sends one chat-completion request and returns the text of
// the first choice.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// NewChatCompleter builds the completer for the configured provider. It
// returns config.ErrMissingAPIKey when no credential is set.
func NewChatCompleter(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (ChatCompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, config.ErrMissingAPIKey
	}
	switch cfg.Provider {
	case "gigachat":
		return NewGigaChatCompleter(ctx, cfg, logger)
	default:
		return NewOpenAICompleter(cfg, logger), nil
	}
}

type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

func NewOpenAICompleter(cfg *config.LLMConfig, logger *zap.Logger) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.UpstreamDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in chat completion response")
	}

	c.logger.Debug("Chat completion received",
		zap.String("model", c.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// GigaChatCompleter talks to GigaChat. The system instruction is set on the
// model; the rest of the conversation is flattened into one user message.
type GigaChatCompleter struct {
	client *gigago.Client
	logger *zap.Logger
	name   string
}

func NewGigaChatCompleter(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (*GigaChatCompleter, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.GigaChatScope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	name := cfg.Model
	if name == "" || strings.HasPrefix(name, "gpt-") {
		name = "GigaChat"
	}
	logger.Info("Using GigaChat model", zap.String("model", name))

	return &GigaChatCompleter{client: client, logger: logger, name: name}, nil
}

func (c *GigaChatCompleter) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	model := c.client.GenerativeModel(c.name)
	model.Temperature = 0.4

	var convo strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			model.SystemInstruction = m.Content
		case RoleAssistant:
			convo.WriteString("Your previous reply:\n")
			convo.WriteString(m.Content)
			convo.WriteString("\n\n")
		default:
			convo.WriteString(m.Content)
			convo.WriteString("\n\n")
		}
	}

	start := time.Now()
	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: strings.TrimSpace(convo.String())},
	})
	metrics.UpstreamDuration.WithLabelValues("gigachat").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("gigachat generate failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from GigaChat")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *GigaChatCompleter) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
