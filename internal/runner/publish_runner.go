package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
	"github.com/shouni/go-storybook-kit/pkg/taskrunner"
)

// narrationConcurrency は音声合成の同時実行数なのだ。
const narrationConcurrency = 3

// SpeechGenerator はページ本文を読み上げ音声に変換するのだ。
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, text string) ([]byte, error)
	SpeechFormat() string
}

// Publisher は物語を保存するコンポーネントなのだ。
type Publisher interface {
	Publish(ctx context.Context, story domain.GeneratedStory, meta publisher.Metadata, opts publisher.Options) (publisher.PublishResult, error)
}

// PublishResult は保存結果と音声ファイルの一覧なのだ。
type PublishResult struct {
	publisher.PublishResult
	AudioPaths []string // ページ順。合成に失敗したページは空文字
}

// PublisherRunner はパブリッシュ処理のインターフェースです。
type PublisherRunner interface {
	Run(ctx context.Context, story domain.GeneratedStory, meta publisher.Metadata) (PublishResult, error)
}

// DefaultPublisherRunner は pkg/publisher を利用した標準実装です。
type DefaultPublisherRunner struct {
	options   config.GenerateOptions
	publisher Publisher
	writer    publisher.OutputWriter
	speech    SpeechGenerator // nil の場合は朗読しない
}

// NewDefaultPublisherRunner は DefaultPublisherRunner を生成するのだ。
func NewDefaultPublisherRunner(options config.GenerateOptions, pub Publisher, writer publisher.OutputWriter, speech SpeechGenerator) *DefaultPublisherRunner {
	return &DefaultPublisherRunner{
		options:   options,
		publisher: pub,
		writer:    writer,
		speech:    speech,
	}
}

// Run は物語を保存し、--narrate が指定されていればページごとの音声も書き出すのだ。
func (pr *DefaultPublisherRunner) Run(ctx context.Context, story domain.GeneratedStory, meta publisher.Metadata) (PublishResult, error) {
	outDir := pr.options.OutputDir
	if outDir == "" {
		outDir = config.DefaultOutputDir
	}

	res, err := pr.publisher.Publish(ctx, story, meta, publisher.Options{OutputDir: outDir})
	if err != nil {
		return PublishResult{}, err
	}
	result := PublishResult{PublishResult: res}

	if !pr.options.Narrate {
		return result, nil
	}
	if pr.speech == nil {
		slog.WarnContext(ctx, "音声合成に対応したクライアントがないため朗読をスキップするのだ")
		return result, nil
	}

	result.AudioPaths = pr.narrate(ctx, story.Pages, res.Dir)
	return result, nil
}

// narrate はページごとに音声を合成して audio/page_n.<ext> に保存するのだ。
// 失敗したページはログに残して空文字のままにするのだ。
func (pr *DefaultPublisherRunner) narrate(ctx context.Context, pages []domain.StoryPage, dir string) []string {
	slog.InfoContext(ctx, "朗読音声を生成するのだ", "pages", len(pages))

	results := taskrunner.Run(ctx, pages, func(ctx context.Context, page domain.StoryPage) (string, error) {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			return "", fmt.Errorf("page %d has no text", page.PageNumber)
		}
		audio, err := pr.speech.GenerateSpeech(ctx, text)
		if err != nil {
			return "", err
		}
		path, err := asset.ResolveOutputPath(dir, asset.DefaultAudioDir, asset.PageFileName(page.PageNumber, pr.speech.SpeechFormat()))
		if err != nil {
			return "", err
		}
		if err := pr.writer.Write(ctx, path, bytes.NewReader(audio), "audio/mpeg"); err != nil {
			return "", err
		}
		return path, nil
	}, narrationConcurrency)

	paths := make([]string, len(results))
	for i, r := range results {
		if r.Err != nil {
			slog.WarnContext(ctx, "朗読音声の生成に失敗したのだ", "page", pages[i].PageNumber, "error", r.Err)
			continue
		}
		paths[i] = r.Value
	}
	return paths
}
