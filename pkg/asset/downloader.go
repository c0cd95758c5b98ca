package asset

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/cache"

	"github.com/shouni/go-http-kit/httpkit"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultHTTPTimeout = 60 * time.Second
	DefaultMaxRetries  = 3
)

// Fetcher は URL の本文をバイト列として取得します。httpkit.Client が満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// DownloaderOption は Downloader の設定を変更します。
type DownloaderOption func(*Downloader)

// WithFetcher は取得に使うクライアントを差し替えます。
func WithFetcher(f Fetcher) DownloaderOption {
	return func(d *Downloader) {
		if f != nil {
			d.fetcher = f
		}
	}
}

// WithCache はダウンロード結果のキャッシュを設定します。
func WithCache(c cache.Cache) DownloaderOption {
	return func(d *Downloader) {
		if c != nil {
			d.cache = c
		}
	}
}

// Downloader は画像の参照を埋め込み可能な data URI に変換します。
type Downloader struct {
	fetcher Fetcher
	cache   cache.Cache
	group   singleflight.Group
}

// NewDownloader は Downloader を生成します。
// 既定では SSRF 対策とリトライを備えた httpkit のクライアントを使います。
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		cache: cache.Nop{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fetcher == nil {
		d.fetcher = httpkit.New(DefaultHTTPTimeout, httpkit.WithMaxRetries(DefaultMaxRetries))
	}
	return d
}

// DownloadImageAsBase64 は参照を data URI に変換します。
// data URI はそのまま返し、リモート参照は取得して中身から判定した Content-Type 付きの data URI にします。
func (d *Downloader) DownloadImageAsBase64(ctx context.Context, ref string) (string, error) {
	if IsDataURI(ref) {
		return ref, nil
	}
	if cached, ok := d.cache.Get(ctx, ref); ok {
		slog.Debug("画像キャッシュにヒットしました", "url", shorten(ref))
		return cached, nil
	}

	// 同じ URL への同時リクエストは1回にまとめる。
	// 共有された取得は呼び出し元のキャンセルに左右されないよう、キャンセルを切り離した ctx で行う
	ch := d.group.DoChan(ref, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if cached, ok := d.cache.Get(fetchCtx, ref); ok {
			return cached, nil
		}
		encoded, err := d.fetch(fetchCtx, ref)
		if err != nil {
			return nil, err
		}
		d.cache.Set(fetchCtx, ref, encoded)
		return encoded, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		encoded, ok := res.Val.(string)
		if !ok {
			return "", fmt.Errorf("unexpected return type from singleflight: %T", res.Val)
		}
		if res.Shared {
			slog.Debug("同時ダウンロードを共有しました", "url", shorten(ref))
		}
		return encoded, nil
	}
}

func (d *Downloader) fetch(ctx context.Context, ref string) (string, error) {
	body, err := d.fetcher.FetchBytes(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", shorten(ref), err)
	}
	return EncodeDataURI(sniffImageType(body), body), nil
}

// sniffImageType は本文の先頭から画像の MIME タイプを判定します。画像でなければ既定値を返します。
func sniffImageType(body []byte) string {
	ct := http.DetectContentType(body)
	if !strings.HasPrefix(ct, "image/") {
		return DefaultContentType
	}
	return ct
}

// shorten はログ用に長い参照を切り詰めます。
func shorten(ref string) string {
	const limit = 80
	if len(ref) <= limit {
		return ref
	}
	return ref[:limit] + "..."
}
