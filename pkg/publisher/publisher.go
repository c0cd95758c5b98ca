package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// Metadata は物語と一緒に保存する実行情報です。
type Metadata struct {
	RunID      string              `json:"run_id"`
	Child      domain.ChildProfile `json:"child"`
	ChildName  string              `json:"child_name"`
	MoralID    string              `json:"moral_id"`
	MoralLabel string              `json:"moral_label"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	Dir          string
	JSONPath     string
	MarkdownPath string
	ImagePaths   []string // ページ順。画像を保存できなかったページは空文字
}

type storyDocument struct {
	Metadata
	Story domain.GeneratedStory `json:"story"`
}

// StoryPublisher は生成結果の永続化とフォーマット変換を担います。
type StoryPublisher struct {
	writer OutputWriter
}

// NewStoryPublisher は StoryPublisher を生成します。
func NewStoryPublisher(writer OutputWriter) *StoryPublisher {
	return &StoryPublisher{writer: writer}
}

// Publish は画像、story.json、story.md を <OutputDir>/<フォルダ名>/ に保存します。
func (p *StoryPublisher) Publish(ctx context.Context, story domain.GeneratedStory, meta Metadata, opts Options) (PublishResult, error) {
	result := PublishResult{}

	dir, err := asset.ResolveOutputPath(opts.OutputDir, asset.StoryFolderName(story.Title, meta.ChildName))
	if err != nil {
		return result, err
	}
	result.Dir = dir

	// 1. 画像の保存
	result.ImagePaths, err = p.saveImages(ctx, story.Pages, dir)
	if err != nil {
		return result, fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}

	// 2. JSON の保存
	result.JSONPath, err = asset.ResolveOutputPath(dir, asset.DefaultStoryJSON)
	if err != nil {
		return result, err
	}
	doc, err := json.MarshalIndent(storyDocument{Metadata: meta, Story: story}, "", "  ")
	if err != nil {
		return result, fmt.Errorf("物語のエンコードに失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, result.JSONPath, bytes.NewReader(doc), "application/json"); err != nil {
		return result, fmt.Errorf("JSONファイルの書き込みに失敗しました: %w", err)
	}

	// 3. Markdown の保存（画像は相対パスで参照する）
	relative := make([]string, len(result.ImagePaths))
	for i, fp := range result.ImagePaths {
		if fp != "" {
			relative[i] = asset.RelativeImagePath(fp)
		}
	}
	result.MarkdownPath, err = asset.ResolveOutputPath(dir, asset.DefaultStoryMarkdown)
	if err != nil {
		return result, err
	}
	content := BuildMarkdown(story, meta, relative)
	if err := p.writer.Write(ctx, result.MarkdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	slog.Info("物語を保存しました", "dir", dir, "title", story.Title)
	return result, nil
}

// saveImages は埋め込み画像を持つページの画像をデコードして保存します。
func (p *StoryPublisher) saveImages(ctx context.Context, pages []domain.StoryPage, dir string) ([]string, error) {
	paths := make([]string, len(pages))
	for i, page := range pages {
		if page.ImageBase64 == "" {
			continue
		}
		contentType, data, err := asset.DecodeDataURI(page.ImageBase64)
		if err != nil {
			slog.Warn("画像データを解釈できないため保存をスキップしました", "page", page.PageNumber, "error", err)
			continue
		}

		fullPath, err := asset.ResolveOutputPath(dir, asset.DefaultImageDir, asset.PageFileName(page.PageNumber, asset.ExtensionFor(contentType)))
		if err != nil {
			return nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), contentType); err != nil {
			return nil, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		paths[i] = fullPath
	}
	return paths, nil
}
