package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/text"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/pkg/common"
)

// DefaultTTL 搜尋結果的預設存活時間
const DefaultTTL = time.Hour

// ComputeFunc 快取未命中時執行的搜尋
type ComputeFunc func(ctx context.Context) ([]recipe.Recipe, error)

// ResultCache 以正規化查詢字串為鍵的搜尋結果快取
type ResultCache interface {
	GetOrCompute(ctx context.Context, query string, fn ComputeFunc) ([]recipe.Recipe, error)
}

// Purger 支援清空的快取（目錄清空後呼叫）
type Purger interface {
	Purge(ctx context.Context) error
}

// Key 產生快取鍵，"Bolo" 與 "bolo " 會得到相同的鍵
func Key(query string) string {
	return "search:" + text.Normalize(query)
}

// Option Manager 選項
type Option func(*Manager)

// WithClock 注入時鐘（測試用）
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager 記憶體快取管理器
type Manager struct {
	ttl             time.Duration
	maxSize         int
	cleanupInterval time.Duration
	now             func() time.Time

	mu    sync.Mutex
	store map[string]cacheEntry
	stats cacheStats
	group singleflight.Group

	stop     chan struct{}
	stopOnce sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	value       []recipe.Recipe
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// Stats 快取統計快照
type Stats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

// NewManager 創建新的緩存管理器
func NewManager(cfg *config.CacheConfig, opts ...Option) *Manager {
	m := &Manager{
		ttl:             DefaultTTL,
		maxSize:         1000,
		cleanupInterval: 10 * time.Minute,
		now:             time.Now,
		store:           make(map[string]cacheEntry),
		stop:            make(chan struct{}),
	}
	if cfg != nil {
		if cfg.TTL > 0 {
			m.ttl = cfg.TTL
		}
		if cfg.MaxSize > 0 {
			m.maxSize = cfg.MaxSize
		}
		if cfg.CleanupInterval > 0 {
			m.cleanupInterval = cfg.CleanupInterval
		}
	}
	for _, opt := range opts {
		opt(m)
	}

	// 啟動清理過期緩存的協程
	go m.startCleanup()

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", m.maxSize),
		zap.Duration("存活時間", m.ttl),
		zap.Duration("清理間隔", m.cleanupInterval),
	)

	return m
}

// GetOrCompute 命中時回傳快取結果；否則執行 fn 並儲存。fn 的錯誤不會被快取。
// 同一個鍵同時間只會有一個 fn 在執行。
func (m *Manager) GetOrCompute(ctx context.Context, query string, fn ComputeFunc) ([]recipe.Recipe, error) {
	key := Key(query)

	if value, ok := m.get(key); ok {
		common.LogCacheHit("memory", key)
		return value, nil
	}
	common.LogCacheMiss("memory", key)

	// 共享的計算不隨第一個呼叫者取消而中斷，每個呼叫者只等待自己的 ctx
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		if value, ok := m.peek(key); ok {
			return value, nil
		}
		value, err := fn(shared)
		if err != nil {
			return nil, err
		}
		m.set(key, value)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]recipe.Recipe)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) get(key string) ([]recipe.Recipe, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists {
		m.stats.misses++
		return nil, false
	}

	now := m.now()
	if !now.Before(entry.expiresAt) {
		delete(m.store, key)
		m.stats.evictions++
		m.stats.misses++
		common.LogDebug("快取已過期", zap.String("鍵", key))
		return nil, false
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[key] = entry
	m.stats.hits++
	return clone(entry.value), true
}

// peek 不更新統計的查詢（等待中的呼叫可能已由其他協程填入）
func (m *Manager) peek(key string) ([]recipe.Recipe, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists || !m.now().Before(entry.expiresAt) {
		return nil, false
	}
	return clone(entry.value), true
}

func (m *Manager) set(key string, value []recipe.Recipe) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		// 先清理過期項目，仍然超過則淘汰最少使用的項目
		if evicted := m.cleanupLocked(); evicted > 0 {
			common.LogDebug("快取清理執行", zap.Int("清理數量", evicted))
		}
		for len(m.store) >= m.maxSize {
			m.evictLRU()
		}
	}

	now := m.now()
	m.store[key] = cacheEntry{
		value:      clone(value),
		expiresAt:  now.Add(m.ttl),
		createdAt:  now,
		lastAccess: now,
	}
}

// startCleanup 啟動清理過期緩存的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanupLocked()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanupLocked 清理過期的緩存，呼叫端需持有鎖
func (m *Manager) cleanupLocked() int {
	now := m.now()
	count := 0

	for key, entry := range m.store {
		if !now.Before(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}

	return count
}

// evictLRU 淘汰存取次數最少、最久未存取的項目
func (m *Manager) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// Purge 清空所有項目
func (m *Manager) Purge(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.store)
	m.store = make(map[string]cacheEntry)
	m.stats.evictions += int64(n)
	common.LogInfo("搜尋快取已清空", zap.Int("清除數量", n))
	return nil
}

// Stats 獲取緩存統計信息
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Size:      len(m.store),
		MaxSize:   m.maxSize,
		Hits:      m.stats.hits,
		Misses:    m.stats.misses,
		Evictions: m.stats.evictions,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

// Close 停止清理協程並清空緩存
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}

func clone(in []recipe.Recipe) []recipe.Recipe {
	if in == nil {
		return nil
	}
	out := make([]recipe.Recipe, len(in))
	for i, r := range in {
		r.Ingredients = cloneStrings(r.Ingredients)
		r.Steps = cloneStrings(r.Steps)
		r.Tips = cloneStrings(r.Tips)
		r.FunctionalBenefits = cloneStrings(r.FunctionalBenefits)
		out[i] = r
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
