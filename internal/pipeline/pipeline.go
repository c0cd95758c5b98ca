package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shouni/go-storybook-kit/internal/builder"
	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/runner"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/publisher"

	"github.com/google/uuid"
)

// Execute は物語の生成から保存までを一気に実行し、結果のサマリーを out に書き出すのだ。
func Execute(ctx context.Context, cfg *config.Config, out io.Writer) error {
	runID := newRunID()
	logger := slog.Default().With("run_id", runID)
	start := time.Now()

	appCtx, err := builder.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := appCtx.Close(); err != nil {
			logger.Warn("リソースの解放に失敗したのだ", "error", err)
		}
	}()

	clients, err := builder.InitializeClients(ctx, appCtx)
	if err != nil {
		return err
	}

	// --- Phase 1: Story Phase (本文と挿絵の生成) ---
	story, req, err := runStoryStep(ctx, appCtx, clients, logger)
	if err != nil {
		return err
	}

	// --- Phase 2: Publish Phase (保存と朗読) ---
	moral, _ := domain.LookupMoral(req.MoralID)
	meta := publisher.Metadata{
		RunID:      runID,
		Child:      req.Child,
		ChildName:  req.Child.Name,
		MoralID:    moral.ID,
		MoralLabel: moral.Label,
		CreatedAt:  time.Now().UTC(),
	}
	result, err := runPublishStep(ctx, appCtx, clients, *story, meta)
	if err != nil {
		return err
	}

	logger.Info("すべての工程が完了したのだ！", "dir", result.Dir, "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(out, RenderSummary(runID, *story, result))
	return nil
}

// runStoryStep は StoryRunner を使って物語を生成するのだ
func runStoryStep(ctx context.Context, appCtx *builder.AppContext, clients builder.Clients, logger *slog.Logger) (*domain.GeneratedStory, domain.GenerationRequest, error) {
	logger.Info("Phase 1: 物語の生成を開始するのだ...", "provider", appCtx.Config.Provider, "moral", appCtx.Options.MoralID)

	storyRunner, err := builder.BuildStoryRunner(ctx, appCtx, clients, progressLogger(logger))
	if err != nil {
		return nil, domain.GenerationRequest{}, fmt.Errorf("StoryRunnerの構築に失敗したのだ: %w", err)
	}
	return storyRunner.Run(ctx)
}

// runPublishStep は PublisherRunner を使って最終成果物を保存するのだ
func runPublishStep(ctx context.Context, appCtx *builder.AppContext, clients builder.Clients, story domain.GeneratedStory, meta publisher.Metadata) (runner.PublishResult, error) {
	appCtx.Logger.Info("Phase 2: 保存処理を開始するのだ...", "narrate", appCtx.Options.Narrate)

	result, err := builder.BuildPublisherRunner(appCtx, clients.Speech).Run(ctx, story, meta)
	if err != nil {
		return result, fmt.Errorf("保存処理に失敗したのだ: %w", err)
	}
	return result, nil
}

// progressLogger は進捗をログに流す ProgressFunc を返すのだ。
func progressLogger(logger *slog.Logger) func(domain.Progress) {
	return func(p domain.Progress) {
		if p.Total > 0 {
			logger.Info("進捗", "stage", p.Stage, "current", p.Current, "total", p.Total)
			return
		}
		logger.Info("進捗", "stage", p.Stage)
	}
}

// newRunID は時刻順に並ぶ UUIDv7 を返すのだ。失敗したら v4 にするのだ。
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
