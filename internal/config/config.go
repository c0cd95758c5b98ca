package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultProvider            = ProviderOpenAI
	DefaultCacheTTL            = time.Hour
	DefaultCacheMaxItems       = 256
	DefaultMaxConcurrentImages = 5
	DefaultHTTPTimeout         = 60 * time.Second
	DefaultDownloadRetries     = 3
	DefaultReviewDir           = "output/review"
	DefaultOutputDir           = "output"
	DefaultLogLevel            = "info"

	// CacheNone を CACHE_URL に指定するとキャッシュを無効にします。
	CacheNone = "none"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル、並列度）を保持します。
type Config struct {
	Provider string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAITextModel   string
	OpenAIImageModel  string
	OpenAISpeechModel string
	OpenAIVoice       string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	CacheURL      string
	CacheTTL      time.Duration
	CacheMaxItems int

	MaxConcurrentImages int
	ImageRateInterval   time.Duration
	HTTPTimeout         time.Duration
	DownloadRetries     uint

	ReviewDir  string
	Serverless bool
	LogLevel   string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返します。
// 数値や真偽値として解釈できない値は既定値になり、期間だけは警告を出して既定値を使います。
func LoadConfig() *Config {
	cfg := &Config{
		Provider: strings.ToLower(envutil.GetEnv("PROVIDER", DefaultProvider)),

		OpenAIAPIKey:      envutil.GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     envutil.GetEnv("OPENAI_BASE_URL", ""),
		OpenAITextModel:   envutil.GetEnv("OPENAI_TEXT_MODEL", ""),
		OpenAIImageModel:  envutil.GetEnv("OPENAI_IMAGE_MODEL", ""),
		OpenAISpeechModel: envutil.GetEnv("OPENAI_TTS_MODEL", ""),
		OpenAIVoice:       envutil.GetEnv("OPENAI_TTS_VOICE", ""),

		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", ""),
		GeminiImageModel: envutil.GetEnv("GEMINI_IMAGE_MODEL", ""),

		CacheURL:      envutil.GetEnv("CACHE_URL", ""),
		CacheTTL:      durationEnv("CACHE_TTL", DefaultCacheTTL),
		CacheMaxItems: envutil.GetEnvAsInt("CACHE_MAX_ITEMS", DefaultCacheMaxItems),

		MaxConcurrentImages: envutil.GetEnvAsInt("MAX_CONCURRENT_IMAGES", DefaultMaxConcurrentImages),
		ImageRateInterval:   durationEnv("IMAGE_RATE_INTERVAL", 0),
		HTTPTimeout:         durationEnv("HTTP_TIMEOUT", DefaultHTTPTimeout),
		DownloadRetries:     uint(max(envutil.GetEnvAsInt("DOWNLOAD_RETRIES", DefaultDownloadRetries), 1)),

		ReviewDir:  envutil.GetEnv("REVIEW_DIR", DefaultReviewDir),
		Serverless: envutil.GetEnvAsBool("SERVERLESS", false),
		LogLevel:   envutil.GetEnv("LOG_LEVEL", DefaultLogLevel),
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	return cfg
}

// Validate はプロバイダーに必要な認証情報が揃っているかを確認します。
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY が設定されていません")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY が設定されていません")
		}
	default:
		return fmt.Errorf("未対応のプロバイダーです: %q", c.Provider)
	}
	return nil
}

// ReviewEnabled はレビュー用アーカイブを保存するかどうかを返します。
func (c *Config) ReviewEnabled() bool {
	return !c.Serverless && !c.Options.NoReview && c.ReviewDir != ""
}

// SlogLevel は LOG_LEVEL を slog.Level に変換します。
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータです。
type GenerateOptions struct {
	ChildFile string // --child
	MoralID   string // --moral
	Setting   string // --setting
	Theme     string // --theme
	PageCount int    // --pages (0 なら年齢帯の既定値)
	OutputDir string // --output

	Narrate  bool // --narrate
	NoReview bool // --no-review
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("期間として解釈できない環境変数を無視しました", "key", key, "value", raw)
		return def
	}
	return v
}
