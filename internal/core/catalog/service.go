package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recipe-catalog/internal/core/ai"
	"recipe-catalog/internal/core/cache"
	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/retry"
	"recipe-catalog/internal/infrastructure/store"
	"recipe-catalog/internal/pkg/common"
)

var (
	// ErrNotFound 食譜不存在或紀錄無法轉換
	ErrNotFound = errors.New("catalog: recipe not found")
	// ErrWriteFailed 寫入在重試用盡後仍失敗，與「沒有結果」不同
	ErrWriteFailed = errors.New("catalog: write failed")
)

// DefaultListLimit 列表預設筆數
const DefaultListLimit = 100

// Generator 食譜生成器
type Generator interface {
	Generate(ctx context.Context, prompt string, existingTitles []string) (*recipe.Recipe, error)
	Enabled() bool
}

// Service 食譜目錄服務：寫入、查詢、匯出、清空與生成
type Service struct {
	store     store.Store
	retry     retry.Policy
	purger    cache.Purger
	generator Generator
	listLimit int
}

// Option Service 選項
type Option func(*Service)

// WithRetry 設定儲存層重試策略
func WithRetry(p retry.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// WithPurger 目錄清空後一併清空搜尋快取
func WithPurger(p cache.Purger) Option {
	return func(s *Service) { s.purger = p }
}

// WithGenerator 設定 LLM 食譜生成器
func WithGenerator(g Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithListLimit 設定列表筆數上限
func WithListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.listLimit = limit
		}
	}
}

// NewService 創建目錄服務
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		retry:     retry.DefaultPolicy(),
		listLimit: DefaultListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRecipe 驗證並寫入食譜，回傳儲存層指派的 id
func (s *Service) AddRecipe(ctx context.Context, r *recipe.Recipe) (string, error) {
	if err := recipe.Validate(r); err != nil {
		return "", err
	}

	// id 在重試前指派一次，重試時可辨認前一次已提交的寫入
	rec := recipe.ToStorage(r)
	id := common.GenerateUUID()
	rec[recipe.FieldID] = id

	err := s.retry.Do(ctx, "insert", func(ctx context.Context) error {
		_, err := s.store.Insert(ctx, rec)
		if err == nil {
			return nil
		}
		if _, lookupErr := s.store.SelectByID(ctx, id); lookupErr == nil {
			common.LogWarn("寫入回應遺失，紀錄已存在", zap.String("id", id), zap.Error(err))
			return nil
		}
		return err
	})
	if err != nil {
		common.LogError("食譜寫入失敗", zap.String("titulo", rec[recipe.FieldTitle].(string)), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	common.LogInfo("食譜已寫入", zap.String("id", id), zap.String("titulo", rec[recipe.FieldTitle].(string)))
	return id, nil
}

// GetRecipe 依 id 取得食譜
func (s *Service) GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	var rec recipe.StorageRecord
	err := s.retry.Do(ctx, "select_by_id", func(ctx context.Context) error {
		var err error
		rec, err = s.store.SelectByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return retry.Permanent(err)
		}
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %s: %w", id, err)
	}

	r, ok := recipe.ToDomain(rec)
	if !ok {
		common.LogWarn("紀錄無法轉換為食譜", zap.String("id", id))
		return nil, ErrNotFound
	}
	return r, nil
}

// ListSummaries 列出目錄預覽；limit <= 0 使用預設上限
func (s *Service) ListSummaries(ctx context.Context, limit int) ([]recipe.Summary, error) {
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	recipes, err := s.selectAll(ctx, limit)
	if err != nil {
		return nil, err
	}
	return recipe.SummarizeAll(recipes), nil
}

// Export 匯出整個目錄
func (s *Service) Export(ctx context.Context) ([]recipe.Recipe, error) {
	return s.selectAll(ctx, 0)
}

// Titles 目錄中前 n 個食譜名稱
func (s *Service) Titles(ctx context.Context, n int) ([]string, error) {
	recipes, err := s.selectAll(ctx, n)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(recipes))
	for _, r := range recipes {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

func (s *Service) selectAll(ctx context.Context, limit int) ([]recipe.Recipe, error) {
	var rows []recipe.StorageRecord
	err := s.retry.Do(ctx, "select_all", func(ctx context.Context) error {
		var err error
		rows, err = s.store.SelectAll(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	out := make([]recipe.Recipe, 0, len(rows))
	for _, rec := range rows {
		if r, ok := recipe.ToDomain(rec); ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Clear 清空目錄並清除搜尋快取
func (s *Service) Clear(ctx context.Context) error {
	err := s.retry.Do(ctx, "delete_all", func(ctx context.Context) error {
		return s.store.DeleteAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if s.purger != nil {
		if err := s.purger.Purge(ctx); err != nil {
			common.LogWarn("搜尋快取清除失敗", zap.Error(err))
		}
	}
	return nil
}

// GenerateAndSave 產生新食譜並寫入目錄。生成成功但寫入失敗時仍回傳食譜與 ErrWriteFailed，
// 呼叫端可以只展示食譜而不保存。
func (s *Service) GenerateAndSave(ctx context.Context, prompt string) (*recipe.Recipe, string, error) {
	if s.generator == nil || !s.generator.Enabled() {
		return nil, "", ai.ErrDisabled
	}

	titles, err := s.Titles(ctx, ai.MaxReferenceTitles)
	if err != nil {
		common.LogWarn("無法取得既有食譜作為參考", zap.Error(err))
	}

	r, err := s.generator.Generate(ctx, prompt, titles)
	if err != nil {
		return nil, "", err
	}

	id, err := s.AddRecipe(ctx, r)
	if err != nil {
		return r, "", err
	}
	r.ID = id
	return r, id, nil
}

// ImportMarkdown 解析 markdown 食譜並寫入
func (s *Service) ImportMarkdown(ctx context.Context, name, content string) (string, error) {
	r, err := recipe.ParseMarkdown(content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	id, err := s.AddRecipe(ctx, r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return id, nil
}

// MigrationReport 舊資料遷移結果
type MigrationReport struct {
	Total    int      `json:"total"`
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// MigrateLegacy 將舊版匯出格式的紀錄轉換後寫入。
// 無法轉換或驗證失敗的紀錄略過；寫入失敗的紀錄計入 Failed 並繼續處理下一筆。
func (s *Service) MigrateLegacy(ctx context.Context, records []map[string]any) MigrationReport {
	report := MigrationReport{Total: len(records)}
	for i, raw := range records {
		r, ok := recipe.FromRecord(recipe.ConvertLegacy(raw))
		if !ok {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("#%d: missing title", i))
			continue
		}
		if _, err := s.AddRecipe(ctx, r); err != nil {
			if common.IsValidationError(err) {
				report.Skipped++
			} else {
				report.Failed++
			}
			report.Errors = append(report.Errors, fmt.Sprintf("#%d %s: %v", i, r.Title, err))
			continue
		}
		report.Inserted++
	}

	common.LogInfo("舊資料遷移完成",
		zap.Int("total", report.Total),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report
}
