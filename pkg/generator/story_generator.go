package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/illustrator"
	"github.com/shouni/go-storybook-kit/pkg/parser"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
)

// ErrTextGeneration はテキスト生成に失敗した場合に返されます。物語全体の生成が失敗します。
var ErrTextGeneration = errors.New("story text generation failed")

// Option は StoryGenerator の設定を変更します。
type Option func(*StoryGenerator)

// WithThemePicker はテーマ選択の関数を差し替えます。
func WithThemePicker(picker prompts.ThemePicker) Option {
	return func(g *StoryGenerator) { g.prompts = prompts.NewStoryPromptBuilder(picker) }
}

// WithReviewSink はレビュー用の保存先を設定します。
func WithReviewSink(sink ReviewSink) Option {
	return func(g *StoryGenerator) { g.review = sink }
}

// WithProgress は進捗通知の関数を設定します。イラスト生成中は複数のゴルーチンから呼ばれます。
func WithProgress(fn ProgressFunc) Option {
	return func(g *StoryGenerator) { g.progress = fn }
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) Option {
	return func(g *StoryGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// Plan は1回の生成で使う解決済みのパラメータとプロンプトです。
type Plan struct {
	Moral     domain.Moral
	Settings  domain.AgeSettings
	PageCount int
	Prompt    string
}

// StoryGenerator はプロンプト構築、本文生成、パース、イラスト生成を順に実行して物語を組み立てます。
// 呼び出し間で状態を共有しないため、異なるリクエストに対して並行に呼び出せます。
type StoryGenerator struct {
	text        TextGenerator
	illustrator Illustrator
	prompts     *prompts.StoryPromptBuilder
	review      ReviewSink
	progress    ProgressFunc
	logger      *slog.Logger
}

// NewStoryGenerator は StoryGenerator を生成します。
func NewStoryGenerator(text TextGenerator, ill Illustrator, opts ...Option) *StoryGenerator {
	g := &StoryGenerator{
		text:        text,
		illustrator: ill,
		prompts:     prompts.NewStoryPromptBuilder(nil),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateStory は子どものプロフィールと教訓から挿絵付きの物語を生成します。
//
// 不正な教訓IDやページ数は外部呼び出しの前にエラーになります。
// テキスト生成の失敗だけが致命的で、画像の失敗はページごとにプレースホルダーへ置き換えられます。
func (g *StoryGenerator) GenerateStory(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedStory, error) {
	plan, err := g.Plan(req)
	if err != nil {
		return nil, err
	}
	moral, settings, pageCount := plan.Moral, plan.Settings, plan.PageCount

	logger := g.logger.With("child", req.Child.Name, "moral", moral.ID, "pages", pageCount)
	start := time.Now()
	g.report(domain.Progress{Stage: domain.StagePrompt, Total: pageCount})

	g.report(domain.Progress{Stage: domain.StageText, Total: pageCount})
	logger.Info("物語の本文を生成しています", "age_group", settings.Group)
	textStart := time.Now()
	raw, err := g.text.GenerateStoryText(ctx, plan.Prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTextGeneration, err)
	}
	if strings.TrimSpace(raw) == "" {
		logger.Warn("本文が空でした。すべてのページが補完テキストになります")
	}
	logger.Info("物語の本文を生成しました", "duration", time.Since(textStart))

	parsed := parser.Parse(raw, pageCount)
	g.report(domain.Progress{Stage: domain.StageParsed, Total: pageCount})
	logger.Info("本文を解析しました", "title", parsed.Title)

	pages := g.illustrator.Illustrate(ctx, illustrator.Request{
		Story:        parsed,
		CharacterRef: prompts.BuildCharacterReference(req.Child),
		StyleRef:     prompts.BuildStyleReference(),
		ChildName:    req.Child.Name,
		OnPage: func(_ domain.ParsedPage, completed, total int) {
			g.report(domain.Progress{Stage: domain.StageIllustrating, Current: completed, Total: total})
		},
	})

	story := &domain.GeneratedStory{Title: parsed.Title, Pages: pages}

	if g.review != nil {
		if err := g.review.SaveForReview(ctx, ReviewBundle{
			Title:     story.Title,
			ChildName: req.Child.Name,
			Moral:     moral.Label,
			Pages:     pages,
		}); err != nil {
			logger.Warn("レビュー用画像の保存をスキップしました", "error", err)
		}
	}

	g.report(domain.Progress{Stage: domain.StageDone, Current: pageCount, Total: pageCount})
	logger.Info("物語の生成が完了しました", "title", story.Title, "duration", time.Since(start))
	return story, nil
}

// Plan は外部呼び出しを行わずに、教訓・年齢設定・ページ数を解決してプロンプトを組み立てます。
func (g *StoryGenerator) Plan(req domain.GenerationRequest) (Plan, error) {
	moral, err := domain.LookupMoral(req.MoralID)
	if err != nil {
		return Plan{}, err
	}
	if req.PageCount != 0 {
		if err := domain.ValidatePageCount(req.PageCount); err != nil {
			return Plan{}, err
		}
	}

	settings := domain.SettingsForAge(req.Child.Age)
	pageCount := req.PageCount
	if pageCount == 0 {
		pageCount = settings.PageCount
	}

	storyPrompt, err := g.prompts.Build(prompts.StoryInput{
		Child:         req.Child,
		Moral:         moral,
		Settings:      settings,
		CustomSetting: req.CustomSetting,
		CustomTheme:   req.CustomTheme,
		PageCount:     pageCount,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("ストーリープロンプトの構築に失敗しました: %w", err)
	}

	return Plan{Moral: moral, Settings: settings, PageCount: pageCount, Prompt: storyPrompt}, nil
}

func (g *StoryGenerator) report(p domain.Progress) {
	if g.progress != nil {
		g.progress(p)
	}
}
