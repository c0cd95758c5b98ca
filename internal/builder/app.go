package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/cache"

	"cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-utils/urlpath"
)

// defaultS3Region は AWS の設定にリージョンがない場合に使うリージョンです。
const defaultS3Region = "ap-northeast-1"

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options    config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です。
	Writer     remoteio.OutputWriter  // Writerは、生成された内容を保存するための出力先です（ローカル、gs://、s3://）。
	Cache      cache.Cache            // Cacheは、ダウンロード済み画像のキャッシュです。
	Logger     *slog.Logger           // Loggerは、実行IDなどを付与したロガーです。
	httpClient httpkit.HTTPClient     // httpClient は画像の取得に使う共通クライアント
	closers    []func() error
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.HTTPClient,
	writer remoteio.OutputWriter,
	c cache.Cache,
	logger *slog.Logger,
) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Writer:     writer,
		Cache:      c,
		Logger:     logger,
		httpClient: httpClient,
	}
}

// Setup は設定から HTTP クライアント、キャッシュ、Writer を初期化して AppContext を返します。
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AppContext, error) {
	httpClient := httpkit.New(cfg.HTTPTimeout, httpkit.WithMaxRetries(uint64(cfg.DownloadRetries)))

	writer, writerCloser, err := InitializeWriter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, cacheCloser, err := InitializeCache(ctx, cfg, logger)
	if err != nil {
		if writerCloser != nil {
			_ = writerCloser()
		}
		return nil, err
	}

	appCtx := NewAppContext(cfg, httpClient, writer, c, logger)
	for _, closer := range []func() error{writerCloser, cacheCloser} {
		if closer != nil {
			appCtx.closers = append(appCtx.closers, closer)
		}
	}
	return appCtx, nil
}

// InitializeWriter は出力先に応じて GCS / S3 のクライアントを用意し、書き込み先を振り分ける Writer を返します。
// ローカルだけに書き込む場合はクラウドの認証情報を必要としません。
func InitializeWriter(ctx context.Context, cfg *config.Config) (remoteio.OutputWriter, func() error, error) {
	targets := []string{cfg.Options.OutputDir}
	if cfg.ReviewEnabled() {
		targets = append(targets, cfg.ReviewDir)
	}

	var gcsClient *storage.Client
	if slices.ContainsFunc(targets, urlpath.IsGCSURI) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("GCSクライアントの初期化に失敗しました: %w", err)
		}
		gcsClient = client
	}

	var s3Client *s3.Client
	if slices.ContainsFunc(targets, urlpath.IsS3URI) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			if gcsClient != nil {
				_ = gcsClient.Close()
			}
			return nil, nil, fmt.Errorf("AWS設定のロードに失敗しました: %w", err)
		}
		if awsCfg.Region == "" {
			awsCfg.Region = defaultS3Region
		}
		s3Client = s3.NewFromConfig(awsCfg)
	}

	var closer func() error
	if gcsClient != nil {
		closer = gcsClient.Close
	}
	return remoteio.NewUniversalIOWriter(gcsClient, s3Client), closer, nil
}

// Close は保持しているリソースを解放します。
func (a *AppContext) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
