package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/prompts"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAITextModel   = "gpt-4o-mini"
	DefaultOpenAIImageModel  = "gpt-image-1"
	DefaultOpenAISpeechModel = "tts-1"
	DefaultOpenAIVoice       = "coral"
	DefaultSpeechSpeed       = 0.85
	DefaultMaxTokens         = 2000

	defaultOpenAIRetries = 2
	defaultOpenAITimeout = 180 * time.Second
)

// imagePromptHeader は画像プロンプトの先頭に付ける画風の指示です。
const imagePromptHeader = "Children's book watercolor illustration. Soft brushstrokes, delicate watercolor style."

// OpenAIConfig は OpenAIClient の設定です。
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	SpeechModel string
	Voice       string
	Speed       float64
	MaxTokens   int64
	// MaxRetries は SDK のリトライ回数です。0 なら既定値、負の値ならリトライしません。
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient は OpenAI 公式 SDK を使って本文・画像・音声を生成します。
type OpenAIClient struct {
	client      openai.Client
	textModel   string
	imageModel  string
	speechModel string
	voice       string
	speed       float64
	maxTokens   int64
}

// NewOpenAIClient は OpenAIClient を生成します。
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultOpenAITextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultOpenAIImageModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultOpenAISpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultOpenAIVoice
	}
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeechSpeed
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = defaultOpenAIRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultOpenAITimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		speechModel: cfg.SpeechModel,
		voice:       cfg.Voice,
		speed:       cfg.Speed,
		maxTokens:   cfg.MaxTokens,
	}
}

// GenerateStoryText は Chat Completions で物語の本文を生成します。
func (c *OpenAIClient) GenerateStoryText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.textModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.StorySystemPrompt),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", mapOpenAIError("chat completion", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai chat completion: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateIllustration は画像を生成し、data URI またはリモート URL を返します。
func (c *OpenAIClient) GenerateIllustration(ctx context.Context, prompt string) (string, error) {
	slog.Debug("OpenAI で画像を生成します", "model", c.imageModel, "prompt_chars", len(prompt))

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:  imagePromptHeader + "\n\n" + prompt,
		Model:   openai.ImageModel(c.imageModel),
		Size:    openai.ImageGenerateParamsSize1024x1024,
		Quality: openai.ImageGenerateParamsQualityMedium,
	})
	if err != nil {
		return "", mapOpenAIError("image generation", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("openai image generation: %w", ErrEmptyResponse)
	}

	img := resp.Data[0]
	switch {
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	case img.URL != "":
		return img.URL, nil
	default:
		return "", fmt.Errorf("openai image generation: %w", ErrEmptyResponse)
	}
}

// GenerateSpeech はテキストを朗読した mp3 を返します。
func (c *OpenAIClient) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.speechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(c.speed),
	})
	if err != nil {
		return nil, mapOpenAIError("speech", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading openai audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech: %w", ErrEmptyResponse)
	}
	return audio, nil
}

// SpeechFormat は GenerateSpeech の出力形式の拡張子です。
func (c *OpenAIClient) SpeechFormat() string {
	return ".mp3"
}
