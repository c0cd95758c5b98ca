package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/taskrunner"
)

const reviewConcurrency = 5

type reviewMetadata struct {
	Title     string    `json:"title"`
	ChildName string    `json:"child_name"`
	Moral     string    `json:"moral"`
	SavedAt   time.Time `json:"saved_at"`
}

// ReviewArchive は生成された画像を目視確認用のフォルダに保存します。
type ReviewArchive struct {
	writer  OutputWriter
	baseDir string
}

// NewReviewArchive は ReviewArchive を生成します。
func NewReviewArchive(writer OutputWriter, baseDir string) *ReviewArchive {
	return &ReviewArchive{writer: writer, baseDir: baseDir}
}

// SaveForReview は埋め込み画像を持つページを <baseDir>/<フォルダ名>/page_n.<ext> に保存します。
// 1ページ目と一緒に metadata.json を保存します。失敗したページがあればまとめてエラーを返します。
func (a *ReviewArchive) SaveForReview(ctx context.Context, bundle generator.ReviewBundle) error {
	dir, err := asset.ResolveOutputPath(a.baseDir, asset.StoryFolderName(bundle.Title, bundle.ChildName))
	if err != nil {
		return err
	}

	pages := bundle.Pages[:0:0]
	for _, p := range bundle.Pages {
		if p.ImageBase64 != "" {
			pages = append(pages, p)
		}
	}
	slog.Info("レビュー用に画像を保存します", "dir", dir, "images", len(pages))

	results := taskrunner.Run(ctx, pages, func(ctx context.Context, page domain.StoryPage) (struct{}, error) {
		contentType, data, err := asset.DecodeDataURI(page.ImageBase64)
		if err != nil {
			return struct{}{}, fmt.Errorf("page %d: %w", page.PageNumber, err)
		}
		imgPath, err := asset.ResolveOutputPath(dir, asset.PageFileName(page.PageNumber, asset.ExtensionFor(contentType)))
		if err != nil {
			return struct{}{}, err
		}
		if err := a.writer.Write(ctx, imgPath, bytes.NewReader(data), contentType); err != nil {
			return struct{}{}, fmt.Errorf("page %d: %w", page.PageNumber, err)
		}

		if page.PageNumber == 1 {
			meta, err := json.MarshalIndent(reviewMetadata{
				Title:     bundle.Title,
				ChildName: bundle.ChildName,
				Moral:     bundle.Moral,
				SavedAt:   time.Now(),
			}, "", "  ")
			if err != nil {
				return struct{}{}, err
			}
			metaPath, err := asset.ResolveOutputPath(dir, asset.DefaultMetadataName)
			if err != nil {
				return struct{}{}, err
			}
			if err := a.writer.Write(ctx, metaPath, bytes.NewReader(meta), "application/json"); err != nil {
				return struct{}{}, fmt.Errorf("metadata: %w", err)
			}
		}
		return struct{}{}, nil
	}, reviewConcurrency)

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
