package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mgiraudo/gastosbot/internal/pkg/config"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client talks to the Groq API through its OpenAI-compatible endpoint. One
// client serves every model the bot uses: text, vision and Whisper.
type Client struct {
	api          *openai.Client
	model        string
	visionModel  string
	whisperModel string
	logger       *zap.Logger
}

func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:          openai.NewClientWithConfig(oc),
		model:        cfg.Model,
		visionModel:  cfg.VisionModel,
		whisperModel: cfg.WhisperModel,
		logger:       logger,
	}
}

// chat runs a single system+user completion and returns the trimmed answer.
func (c *Client) chat(ctx context.Context, model, system, user string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Complete exposes a plain text-model completion for callers outside this
// package, the statement enricher among them.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	return c.chat(ctx, c.model, system, user, temperature, maxTokens)
}

var reCodeFence = regexp.MustCompile("(?m)^```(?:json)?\\s*|\\s*```$")

// stripFences removes the markdown code fences some models wrap JSON answers in.
func stripFences(raw string) string {
	return strings.TrimSpace(reCodeFence.ReplaceAllString(raw, ""))
}
