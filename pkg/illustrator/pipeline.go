package illustrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
	"github.com/shouni/go-storybook-kit/pkg/taskrunner"

	"golang.org/x/time/rate"
)

// DefaultMaxConcurrent は画像生成とダウンロードそれぞれの同時実行数の既定値です。
const DefaultMaxConcurrent = 5

// ErrInvalidImageReference は画像モデルが受け入れられない参照を返した場合のエラーです。
var ErrInvalidImageReference = errors.New("invalid image reference")

// Option は Pipeline の設定を変更します。
type Option func(*Pipeline)

// WithMaxConcurrent は生成フェーズの同時実行数を設定します。
func WithMaxConcurrent(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxGenerate = n
		}
	}
}

// WithMaxDownloads はダウンロードフェーズの同時実行数を設定します。
func WithMaxDownloads(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxDownload = n
		}
	}
}

// WithRateLimiter は画像生成リクエストの前に待機するリミッターを設定します。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline はページごとのイラストを2段階（生成 → ダウンロード）で用意します。
// 状態を持たないので、複数の物語から同時に使えます。
type Pipeline struct {
	generator   ImageGenerator
	downloader  ImageDownloader
	limiter     *rate.Limiter
	maxGenerate int
	maxDownload int
	logger      *slog.Logger
}

// NewPipeline は Pipeline を生成します。
func NewPipeline(gen ImageGenerator, dl ImageDownloader, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator:   gen,
		downloader:  dl,
		maxGenerate: DefaultMaxConcurrent,
		maxDownload: DefaultMaxConcurrent,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request は Illustrate への入力です。
type Request struct {
	Story        domain.ParsedStory
	CharacterRef string
	StyleRef     string
	ChildName    string
	// OnPage は生成フェーズで1ページ終わるたびに呼ばれます（任意）。
	OnPage PageCallback
}

type generated struct {
	index int
	ref   string
}

// Illustrate は全ページの画像を生成し、埋め込み形式に変換してページ順に返します。
//
// 生成に失敗したページはプレースホルダーに、ダウンロードに失敗したページは元の参照になり、
// ページが欠けることはありません。ページ単位の失敗はログに残してここで吸収します。
func (p *Pipeline) Illustrate(ctx context.Context, req Request) []domain.StoryPage {
	pages := req.Story.Pages
	total := len(pages)
	start := time.Now()

	// --- Phase A: 生成 ---
	p.logger.Info("イラストの並列生成を開始します", "pages", total, "max_concurrent", p.maxGenerate)
	var completed atomic.Int32
	genResults := taskrunner.Run(ctx, pages, func(ctx context.Context, page domain.ParsedPage) (string, error) {
		ref, err := p.generateOne(ctx, req, page, total)
		if req.OnPage != nil {
			req.OnPage(page, int(completed.Add(1)), total)
		}
		return ref, err
	}, p.maxGenerate)
	generationTime := time.Since(start)

	var succeeded []generated
	var failedPages []int
	for i, r := range genResults {
		if r.OK() {
			succeeded = append(succeeded, generated{index: i, ref: r.Value})
			continue
		}
		failedPages = append(failedPages, pages[i].PageNumber)
		p.logger.Error("イラストの生成に失敗しました", "page", pages[i].PageNumber, "error", r.Err)
	}
	if len(failedPages) > 0 {
		p.logger.Warn("一部のページでイラストを生成できませんでした", "pages", failedPages)
	}

	// --- Phase B: ダウンロード ---
	downloadStart := time.Now()
	p.logger.Info("イラストの並列ダウンロードを開始します", "images", len(succeeded))
	dlResults := taskrunner.Run(ctx, succeeded, func(ctx context.Context, g generated) (string, error) {
		return p.downloader.DownloadImageAsBase64(ctx, g.ref)
	}, p.maxDownload)
	downloadTime := time.Since(downloadStart)

	// --- Merge: プレースホルダー → 元の参照 → 埋め込み の順に上書き ---
	out := make([]domain.StoryPage, total)
	for i, page := range pages {
		out[i] = domain.StoryPage{
			PageNumber: page.PageNumber,
			Text:       page.Text,
			ImageURL:   domain.PlaceholderImage,
		}
	}
	for _, g := range succeeded {
		out[g.index].ImageURL = g.ref
	}
	for i, r := range dlResults {
		g := succeeded[i]
		if !r.OK() {
			p.logger.Error("イラストのダウンロードに失敗しました", "page", pages[g.index].PageNumber, "error", r.Err)
			continue
		}
		out[g.index].ImageBase64 = r.Value
	}

	p.logger.Info("イラストの準備が完了しました",
		"pages", total,
		"generated", len(succeeded),
		"total_time", time.Since(start),
		"generation_time", generationTime,
		"download_time", downloadTime)
	return out
}

// generateOne は1ページ分のプロンプトを組み立てて画像を生成し、参照を検証します。
func (p *Pipeline) generateOne(ctx context.Context, req Request, page domain.ParsedPage, total int) (string, error) {
	logger := p.logger.With("page", page.PageNumber, "total", total)

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("リミッター待機中にエラーが発生しました: %w", err)
		}
	}

	prompt := prompts.BuildIllustrationPrompt(prompts.IllustrationInput{
		CharacterRef: req.CharacterRef,
		StyleRef:     req.StyleRef,
		Page:         page,
		TotalPages:   total,
		ChildName:    req.ChildName,
	})

	logger.Info("イラストを生成中...")
	t := time.Now()
	ref, err := p.generator.GenerateIllustration(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("page %d generation failed: %w", page.PageNumber, err)
	}
	if !asset.IsAcceptedReference(ref) {
		return "", fmt.Errorf("page %d: %w: %q", page.PageNumber, ErrInvalidImageReference, preview(ref))
	}
	logger.Info("イラストを生成しました", "duration", time.Since(t), "embedded", asset.IsDataURI(ref))
	return ref, nil
}

func preview(ref string) string {
	const limit = 30
	if len(ref) > limit {
		return ref[:limit]
	}
	return ref
}
