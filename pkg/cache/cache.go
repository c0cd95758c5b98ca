// Package cache は派生データ（ダウンロード済み画像など）のキャッシュを提供します。
// 呼び出し側に明示的に注入して使い、パッケージレベルの状態は持ちません。
package cache

import "context"

// Cache は文字列値のキャッシュです。
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Nop は何も保存しないキャッシュです。
type Nop struct{}

// Get は常にミスを返します。
func (Nop) Get(context.Context, string) (string, bool) { return "", false }

// Set は何もしません。
func (Nop) Set(context.Context, string, string) {}
