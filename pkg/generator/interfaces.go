package generator

import (
	"context"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/illustrator"
)

// TextGenerator はプロンプトから物語の本文を1回の呼び出しで生成します。
type TextGenerator interface {
	GenerateStoryText(ctx context.Context, prompt string) (string, error)
}

// Illustrator はパース済みの物語に画像を付けます。ページ単位の失敗は内部で吸収されます。
type Illustrator interface {
	Illustrate(ctx context.Context, req illustrator.Request) []domain.StoryPage
}

// ReviewBundle は目視確認用に保存する生成結果です。
type ReviewBundle struct {
	Title     string
	ChildName string
	Moral     string
	Pages     []domain.StoryPage
}

// ReviewSink は生成された画像をレビュー用に保存します。失敗しても物語の生成には影響しません。
type ReviewSink interface {
	SaveForReview(ctx context.Context, bundle ReviewBundle) error
}

// ProgressFunc は生成の進捗を受け取ります。
type ProgressFunc func(domain.Progress)
