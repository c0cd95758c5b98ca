package runner

import (
	"context"
	"fmt"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// StoryGenerator は物語を1冊分生成するコンポーネントなのだ。
type StoryGenerator interface {
	GenerateStory(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedStory, error)
}

// StoryRunner は CLI の入力から物語を生成するためのインターフェースなのだ。
type StoryRunner interface {
	Run(ctx context.Context) (*domain.GeneratedStory, domain.GenerationRequest, error)
}

// DefaultStoryRunner は子どものプロフィールファイルを読み込んで生成を依頼する標準実装なのだ。
type DefaultStoryRunner struct {
	options   config.GenerateOptions
	generator StoryGenerator
}

// NewDefaultStoryRunner は DefaultStoryRunner を生成するのだ。
func NewDefaultStoryRunner(options config.GenerateOptions, gen StoryGenerator) *DefaultStoryRunner {
	return &DefaultStoryRunner{options: options, generator: gen}
}

// Run はプロフィールの読み込み、リクエストの組み立て、生成を順に行うのだ。
func (sr *DefaultStoryRunner) Run(ctx context.Context) (*domain.GeneratedStory, domain.GenerationRequest, error) {
	req, err := BuildRequest(sr.options)
	if err != nil {
		return nil, req, err
	}

	story, err := sr.generator.GenerateStory(ctx, req)
	if err != nil {
		return nil, req, fmt.Errorf("物語の生成に失敗したのだ: %w", err)
	}
	return story, req, nil
}

// BuildRequest は CLI のオプションから GenerationRequest を組み立てるのだ。
func BuildRequest(opts config.GenerateOptions) (domain.GenerationRequest, error) {
	child, err := domain.LoadChildProfile(opts.ChildFile)
	if err != nil {
		return domain.GenerationRequest{}, fmt.Errorf("プロフィール '%s' の読み込みに失敗したのだ: %w", opts.ChildFile, err)
	}
	return domain.GenerationRequest{
		Child:         child,
		MoralID:       opts.MoralID,
		CustomSetting: opts.Setting,
		CustomTheme:   opts.Theme,
		PageCount:     opts.PageCount,
	}, nil
}
