package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-catalog/internal/core/cache"
	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/retry"
	"recipe-catalog/internal/core/text"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/infrastructure/store"
	"recipe-catalog/internal/pkg/common"
)

// memStore 以切片保存紀錄的 Store
type memStore struct {
	mu      sync.Mutex
	records []recipe.StorageRecord
	calls   map[string]int
	failAll error
}

func newMemStore(records ...recipe.StorageRecord) *memStore {
	return &memStore{records: records, calls: map[string]int{}}
}

func (m *memStore) count(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *memStore) Insert(ctx context.Context, rec recipe.StorageRecord) (string, error) {
	m.count("insert")
	id := fmt.Sprint(len(m.records) + 1)
	rec[recipe.FieldID] = id
	m.records = append(m.records, rec)
	return id, nil
}

func (m *memStore) SelectAll(ctx context.Context, limit int) ([]recipe.StorageRecord, error) {
	m.count("select_all")
	if m.failAll != nil {
		return nil, m.failAll
	}
	if limit > 0 && limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *memStore) SelectByFieldPattern(ctx context.Context, field, pattern string) ([]recipe.StorageRecord, error) {
	m.count("select_by_" + field)
	if m.failAll != nil {
		return nil, m.failAll
	}
	var out []recipe.StorageRecord
	for _, rec := range m.records {
		value := text.Normalize(fmt.Sprint(rec[field]))
		match := true
		for _, term := range strings.Fields(text.Normalize(pattern)) {
			if !strings.Contains(value, term) {
				match = false
			}
		}
		if match {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) SelectByID(ctx context.Context, id string) (recipe.StorageRecord, error) {
	return nil, store.ErrNotFound
}

func (m *memStore) DeleteAll(ctx context.Context) error { return nil }

func (m *memStore) Ping(ctx context.Context) error { return nil }

func fastRetry() Option {
	return WithRetry(retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
}

func titles(rs []recipe.Recipe) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Title)
	}
	return out
}

func TestSearchTitleMatchShortCircuits(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore(
		recipe.StorageRecord{"id": "1", "titulo": "Torta de Frango", "ingredientes": "massa\nrequeijão"},
		recipe.StorageRecord{"id": "2", "titulo": "Salada", "ingredientes": "alface\nfrango desfiado"},
	)
	e := NewEngine(s, fastRetry())

	got := e.Search(context.Background(), "Quero uma receita de frango")
	assert.Equal(t, []string{"TORTA DE FRANGO"}, titles(got))
	assert.Equal(t, 0, s.calls["select_by_ingredientes"])
}

func TestSearchFallsBackToIngredientsThenDescription(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore(
		recipe.StorageRecord{"id": "1", "titulo": "Salada", "ingredientes": "alface\nfrango desfiado"},
		recipe.StorageRecord{"id": "2", "titulo": "Sopa", "descricao": "Receita da vovó com mandioquinha"},
	)
	e := NewEngine(s, fastRetry())

	assert.Equal(t, []string{"SALADA"}, titles(e.Search(context.Background(), "frango")))
	assert.Equal(t, []string{"SOPA"}, titles(e.Search(context.Background(), "vovo")))
	assert.Equal(t, []recipe.Recipe{}, e.Search(context.Background(), "lasanha"))
}

func TestSearchDeduplicatesAndDropsInvalid(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore(
		recipe.StorageRecord{"id": "1", "titulo": "Bolo de milho"},
		recipe.StorageRecord{"id": 1, "titulo": "Bolo de milho (cópia)"},
		recipe.StorageRecord{"titulo": "Bolo sem id"},
		recipe.StorageRecord{"id": "3", "titulo": "Bolo de fubá"},
	)
	got := NewEngine(s, fastRetry()).Search(context.Background(), "bolo")
	assert.Equal(t, []string{"BOLO DE MILHO", "BOLO DE FUBÁ"}, titles(got))
}

func TestSearchCapsResults(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore()
	for i := 0; i < 15; i++ {
		s.records = append(s.records, recipe.StorageRecord{"id": fmt.Sprint(i), "titulo": fmt.Sprintf("Pão %d", i)})
	}
	e := NewEngine(s, fastRetry())

	got := e.Search(context.Background(), "pão")
	require.Len(t, got, DefaultLimit)
	assert.Equal(t, "PÃO 0", got[0].Title)

	assert.Len(t, e.Search(context.Background(), "   "), DefaultLimit)
	assert.Len(t, NewEngine(s, fastRetry(), WithLimit(3)).Search(context.Background(), ""), 3)
}

func TestSearchRetryExhaustionReturnsEmpty(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore()
	s.failAll = errors.New("connection refused")
	e := NewEngine(s, fastRetry())

	got := e.Search(context.Background(), "cenoura")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 3, s.calls["select_by_titulo"])
	assert.Equal(t, 0, s.calls["select_by_ingredientes"])

	assert.Empty(t, e.Search(context.Background(), ""))
	assert.Equal(t, 3, s.calls["select_all"])
}

func TestSearchUsesCacheButNeverCachesFailures(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore(recipe.StorageRecord{"id": "1", "titulo": "Bolo"})
	m := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Hour, CleanupInterval: time.Hour})
	t.Cleanup(func() { _ = m.Close() })
	e := NewEngine(s, fastRetry(), WithCache(m))

	assert.Len(t, e.Search(context.Background(), "Bolo"), 1)
	assert.Len(t, e.Search(context.Background(), "bolo "), 1)
	assert.Equal(t, 1, s.calls["select_by_titulo"])

	s.failAll = errors.New("down")
	assert.Empty(t, e.Search(context.Background(), "torta"))
	s.failAll = nil
	s.records = append(s.records, recipe.StorageRecord{"id": "2", "titulo": "Torta"})
	assert.Len(t, e.Search(context.Background(), "torta"), 1)
}

func TestSearchSummaries(t *testing.T) {
	common.InitNopLogger()
	s := newMemStore(recipe.StorageRecord{"id": "1", "titulo": "Lasanha", "ingredientes": "massa\nmolho\nqueijo\npresunto"})
	got := NewEngine(s, fastRetry()).SearchSummaries(context.Background(), "lasanha")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"massa", "molho", "queijo", recipe.Ellipsis}, got[0].PreviewIngredients)
}

func TestSearchEndToEndWithGormStore(t *testing.T) {
	common.InitNopLogger()
	db, err := store.Open(&config.StoreConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r, ok := recipe.FromRecord(recipe.StorageRecord{
		"titulo":       "Bolo de Cenoura",
		"ingredientes": []any{"2 cenouras", "3 ovos"},
		"modo_preparo": []any{"Bata tudo", "Asse 40min"},
	})
	require.True(t, ok)
	_, err = db.Insert(context.Background(), recipe.ToStorage(r))
	require.NoError(t, err)

	got := NewEngine(db, fastRetry()).Search(context.Background(), "cenoura")
	require.Len(t, got, 1)
	assert.Equal(t, "BOLO DE CENOURA", got[0].Title)
	assert.Equal(t, []string{"2 cenouras", "3 ovos"}, got[0].Ingredients)
	assert.NotEmpty(t, got[0].ID)
}
