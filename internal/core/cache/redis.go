package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/pkg/common"
)

// RedisCache 以 Redis 儲存的搜尋結果快取，多個實例可共用。
// Redis 讀寫失敗時退化為直接執行搜尋。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 建立 Redis 快取並測試連線
func NewRedisCache(ctx context.Context, cfg *config.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return NewRedisCacheWithClient(client, cfg.TTL), nil
}

// NewRedisCacheWithClient 使用既有的 client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// GetOrCompute 實作 ResultCache
func (s *RedisCache) GetOrCompute(ctx context.Context, query string, fn ComputeFunc) ([]recipe.Recipe, error) {
	key := Key(query)

	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var value []recipe.Recipe
		if err := json.Unmarshal(data, &value); err == nil {
			common.LogCacheHit("redis", key)
			return value, nil
		}
		common.LogWarn("快取內容無法解析，重新搜尋", zap.String("鍵", key))
	case errors.Is(err, redis.Nil):
		common.LogCacheMiss("redis", key)
	default:
		common.LogWarn("Redis 讀取失敗", zap.String("鍵", key), zap.Error(err))
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(value)
	if err != nil {
		common.LogWarn("failed to marshal search result", zap.Error(err))
		return value, nil
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		common.LogWarn("Redis 寫入失敗", zap.String("鍵", key), zap.Error(err))
	}
	return value, nil
}

// Purge 刪除所有搜尋快取鍵
func (s *RedisCache) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, "search:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	common.LogInfo("搜尋快取已清空", zap.Int("清除數量", len(keys)))
	return nil
}

// Close 關閉連線
func (s *RedisCache) Close() error {
	return s.client.Close()
}
