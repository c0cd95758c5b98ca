package illustrator

import (
	"context"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// ImageGenerator はプロンプトから画像を生成します。
// 戻り値はリモート参照（http...）か data URI で、失敗時は空文字ではなくエラーを返します。
type ImageGenerator interface {
	GenerateIllustration(ctx context.Context, prompt string) (string, error)
}

// ImageDownloader は画像参照を埋め込み可能な data URI に変換します。
// data URI が渡された場合はそのまま返します。
type ImageDownloader interface {
	DownloadImageAsBase64(ctx context.Context, ref string) (string, error)
}

// PageCallback はページの処理（生成フェーズ）が1件完了するたびに呼ばれます。
// 並列に呼ばれる可能性があるため、実装はゴルーチンセーフである必要があります。
type PageCallback func(page domain.ParsedPage, completed, total int)
