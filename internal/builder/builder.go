package builder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/runner"
	"github.com/shouni/go-storybook-kit/pkg/adapters"
	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/cache"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/illustrator"
	"github.com/shouni/go-storybook-kit/pkg/publisher"

	"golang.org/x/time/rate"
)

// Clients はプロバイダーごとに生成したモデルクライアントの組です。
type Clients struct {
	Text   generator.TextGenerator
	Image  illustrator.ImageGenerator
	Speech runner.SpeechGenerator // 未対応のプロバイダーでは nil
}

// BuildStoryRunner は物語生成を担当する Runner を構築します。
func BuildStoryRunner(ctx context.Context, appCtx *AppContext, clients Clients, progress generator.ProgressFunc) (runner.StoryRunner, error) {
	if clients.Text == nil || clients.Image == nil {
		return nil, fmt.Errorf("テキストと画像のクライアントが必要です")
	}

	pipeline := BuildIllustrator(appCtx, clients.Image)

	opts := []generator.Option{
		generator.WithLogger(appCtx.Logger),
	}
	if progress != nil {
		opts = append(opts, generator.WithProgress(progress))
	}
	if appCtx.Config.ReviewEnabled() {
		opts = append(opts, generator.WithReviewSink(publisher.NewReviewArchive(appCtx.Writer, appCtx.Config.ReviewDir)))
	} else {
		appCtx.Logger.DebugContext(ctx, "レビュー用アーカイブは無効です")
	}

	gen := generator.NewStoryGenerator(clients.Text, pipeline, opts...)
	return runner.NewDefaultStoryRunner(appCtx.Options, gen), nil
}

// BuildIllustrator はダウンローダーとレートリミッターを組み込んだ画像パイプラインを構築します。
func BuildIllustrator(appCtx *AppContext, imgGen illustrator.ImageGenerator) *illustrator.Pipeline {
	cfg := appCtx.Config
	downloader := asset.NewDownloader(
		asset.WithFetcher(appCtx.httpClient),
		asset.WithCache(appCtx.Cache),
	)

	opts := []illustrator.Option{
		illustrator.WithMaxConcurrent(cfg.MaxConcurrentImages),
		illustrator.WithLogger(appCtx.Logger),
	}
	if cfg.ImageRateInterval > 0 {
		opts = append(opts, illustrator.WithRateLimiter(rate.NewLimiter(rate.Every(cfg.ImageRateInterval), 1)))
	}
	return illustrator.NewPipeline(imgGen, downloader, opts...)
}

// BuildPublisherRunner はコンテンツ保存と朗読を行う Runner を構築します。
func BuildPublisherRunner(appCtx *AppContext, speech runner.SpeechGenerator) runner.PublisherRunner {
	return runner.NewDefaultPublisherRunner(appCtx.Options, publisher.NewStoryPublisher(appCtx.Writer), appCtx.Writer, speech)
}

// InitializeClients は設定されたプロバイダーのクライアントを初期化します。
// Gemini には音声合成がないため、OPENAI_API_KEY があれば朗読だけ OpenAI を使います。
func InitializeClients(ctx context.Context, appCtx *AppContext) (Clients, error) {
	cfg := appCtx.Config
	if err := cfg.Validate(); err != nil {
		return Clients{}, err
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		gc, err := adapters.NewGeminiClient(ctx, adapters.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			TextModel:  cfg.GeminiModel,
			ImageModel: cfg.GeminiImageModel,
			HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		})
		if err != nil {
			return Clients{}, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
		}
		clients := Clients{Text: gc, Image: gc}
		if cfg.OpenAIAPIKey != "" {
			clients.Speech = newOpenAIClient(cfg)
		}
		return clients, nil
	default:
		oc := newOpenAIClient(cfg)
		return Clients{Text: oc, Image: oc, Speech: oc}, nil
	}
}

func newOpenAIClient(cfg *config.Config) *adapters.OpenAIClient {
	return adapters.NewOpenAIClient(adapters.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		TextModel:   cfg.OpenAITextModel,
		ImageModel:  cfg.OpenAIImageModel,
		SpeechModel: cfg.OpenAISpeechModel,
		Voice:       cfg.OpenAIVoice,
	})
}

// InitializeCache は CACHE_URL に応じてキャッシュを選びます。
// 空ならメモリ、redis:// なら Redis、none ならキャッシュなし。
func InitializeCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func() error, error) {
	switch u := strings.TrimSpace(cfg.CacheURL); {
	case u == "":
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxItems), nil, nil
	case strings.EqualFold(u, config.CacheNone):
		return cache.Nop{}, nil, nil
	case strings.HasPrefix(u, "redis://"), strings.HasPrefix(u, "rediss://"):
		rc, err := cache.NewRedis(ctx, u, cfg.CacheTTL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("Redisキャッシュの初期化に失敗しました: %w", err)
		}
		return rc, rc.Close, nil
	default:
		return nil, nil, fmt.Errorf("未対応の CACHE_URL です: %q", u)
	}
}
