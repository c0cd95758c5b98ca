package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTTL      = time.Hour
	DefaultMaxItems = 256
)

// Memory は go-cache を使ったプロセス内キャッシュです。
// TTL に加えて件数の上限を持ち、上限に達すると期限切れを掃除し、
// それでも空きがなければ最も早く期限が切れる（最も古い）エントリを追い出します。
type Memory struct {
	mu       sync.Mutex
	store    *gocache.Cache
	maxItems int
}

// NewMemory は Memory を生成します。0 以下の値は既定値に置き換えます。
func NewMemory(ttl time.Duration, maxItems int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Memory{
		store:    gocache.New(ttl, ttl*2),
		maxItems: maxItems,
	}
}

// Get はキーに対応する値を返します。
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set は既定の TTL で値を保存します。
func (m *Memory) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store.Get(key); !exists && m.store.ItemCount() >= m.maxItems {
		m.store.DeleteExpired()
		for m.store.ItemCount() >= m.maxItems && m.evictOldest() {
		}
	}
	m.store.SetDefault(key, value)
}

// evictOldest は期限が最も早いエントリを削除します。削除できるものがなければ false を返します。
func (m *Memory) evictOldest() bool {
	var (
		oldestKey string
		oldestExp int64
		found     bool
	)
	for k, item := range m.store.Items() {
		if !found || item.Expiration < oldestExp {
			oldestKey, oldestExp, found = k, item.Expiration, true
		}
	}
	if !found {
		return false
	}
	m.store.Delete(oldestKey)
	return true
}

// Len は保存されている件数を返します。期限切れでまだ掃除されていないものも含みます。
func (m *Memory) Len() int {
	return m.store.ItemCount()
}
