package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/prompts"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel      = "gemini-3-flash-preview"
	DefaultGeminiImageModel = "gemini-3-pro-image-preview"

	defaultGeminiTemperature = float32(0.8)
)

// GeminiConfig は GeminiClient の設定です。
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	// Attempts は一時的なエラーに対する試行回数です。0 なら既定値を使います。
	Attempts   uint
	RetryDelay time.Duration
}

// GeminiClient は Gemini API で本文と画像を生成します。
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	attempts   uint
	retryDelay time.Duration
}

// NewGeminiClient は GeminiClient を初期化します。
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultGeminiModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultGeminiImageModel
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultGeminiAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultGeminiRetryDelay
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
	}
	return &GeminiClient{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// GenerateStoryText は物語の本文を生成します。
func (c *GeminiClient) GenerateStoryText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, "story", c.textModel, prompt, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompts.StorySystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(defaultGeminiTemperature),
		MaxOutputTokens:   DefaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini generate content: %w", ErrEmptyResponse)
	}
	return text, nil
}

// GenerateIllustration は画像を生成し、最初の画像パートを data URI で返します。
func (c *GeminiClient) GenerateIllustration(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, "illustration", c.imageModel, prompt, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return "", fmt.Errorf("gemini image generation: %w", err)
	}
	return firstInlineImage(resp)
}

func (c *GeminiClient) generate(ctx context.Context, op, model, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return withRetry(ctx, "gemini "+op, c.attempts, c.retryDelay, func() (*genai.GenerateContentResponse, error) {
		return c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	})
}

// firstInlineImage はレスポンスから最初のインライン画像を取り出します。
func firstInlineImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("gemini image generation: %w", ErrEmptyResponse)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			return asset.EncodeDataURI(part.InlineData.MIMEType, part.InlineData.Data), nil
		}
	}
	return "", fmt.Errorf("gemini image generation: %w", ErrEmptyResponse)
}
