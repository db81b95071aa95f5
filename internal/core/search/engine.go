package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"recipe-catalog/internal/core/cache"
	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/retry"
	"recipe-catalog/internal/core/text"
	"recipe-catalog/internal/infrastructure/store"
	"recipe-catalog/internal/pkg/common"
)

// DefaultLimit 單次搜尋回傳的最大筆數
const DefaultLimit = 10

// fieldPriority 依序嘗試的欄位，第一個有結果的欄位即停止
var fieldPriority = []string{recipe.FieldTitle, recipe.FieldIngredients, recipe.FieldDescription}

// Engine 食譜搜尋
type Engine struct {
	store store.Store
	retry retry.Policy
	cache cache.ResultCache
	limit int
}

// Option Engine 選項
type Option func(*Engine)

// WithCache 以 ResultCache 記住搜尋結果
func WithCache(c cache.ResultCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithRetry 設定儲存層重試策略
func WithRetry(p retry.Policy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithLimit 設定結果上限
func WithLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// NewEngine 創建搜尋引擎
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		retry: retry.DefaultPolicy(),
		limit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search 搜尋食譜。空查詢回傳整個目錄（受上限限制）。
// 儲存層失敗在重試用盡後視為沒有結果，永遠不回傳錯誤，失敗的結果也不會進入快取。
func (e *Engine) Search(ctx context.Context, rawQuery string) []recipe.Recipe {
	var (
		results []recipe.Recipe
		err     error
	)
	if e.cache != nil {
		results, err = e.cache.GetOrCompute(ctx, rawQuery, func(ctx context.Context) ([]recipe.Recipe, error) {
			return e.lookup(ctx, rawQuery)
		})
	} else {
		results, err = e.lookup(ctx, rawQuery)
	}
	if err != nil {
		common.LogError("搜尋失敗，回傳空結果", zap.String("query", rawQuery), zap.Error(err))
		return []recipe.Recipe{}
	}
	return results
}

// SearchSummaries 搜尋並轉為列表預覽
func (e *Engine) SearchSummaries(ctx context.Context, rawQuery string) []recipe.Summary {
	return recipe.SummarizeAll(e.Search(ctx, rawQuery))
}

func (e *Engine) lookup(ctx context.Context, rawQuery string) ([]recipe.Recipe, error) {
	if strings.TrimSpace(rawQuery) == "" {
		var rows []recipe.StorageRecord
		err := e.retry.Do(ctx, "select_all", func(ctx context.Context) error {
			var err error
			rows, err = e.store.SelectAll(ctx, e.limit)
			return err
		})
		if err != nil {
			return nil, err
		}
		return e.adapt(rows), nil
	}

	query := text.CleanQuery(rawQuery)
	for _, field := range fieldPriority {
		var rows []recipe.StorageRecord
		err := e.retry.Do(ctx, "select_by_"+field, func(ctx context.Context) error {
			var err error
			rows, err = e.store.SelectByFieldPattern(ctx, field, query)
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			results := e.adapt(rows)
			common.LogDebug("搜尋完成",
				zap.String("query", query),
				zap.String("field", field),
				zap.Int("hits", len(rows)),
				zap.Int("results", len(results)),
			)
			return results, nil
		}
	}
	return []recipe.Recipe{}, nil
}

// adapt 依 id 去重並保留儲存順序，轉換失敗的紀錄直接略過
func (e *Engine) adapt(rows []recipe.StorageRecord) []recipe.Recipe {
	seen := make(map[string]struct{}, len(rows))
	out := make([]recipe.Recipe, 0, min(len(rows), e.limit))
	for _, rec := range rows {
		r, ok := recipe.ToDomain(rec)
		if !ok {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, *r)
		if len(out) == e.limit {
			break
		}
	}
	return out
}
