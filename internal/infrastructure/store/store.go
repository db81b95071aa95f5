package store

import (
	"context"
	"errors"

	"recipe-catalog/internal/core/recipe"
)

var (
	// ErrNotFound 查無紀錄
	ErrNotFound = errors.New("store: record not found")
	// ErrInvalidField 欄位不支援模糊搜尋
	ErrInvalidField = errors.New("store: field is not searchable")
)

// SearchableFields 支援 SelectByFieldPattern 的欄位
var SearchableFields = []string{recipe.FieldTitle, recipe.FieldIngredients, recipe.FieldDescription}

// Store 食譜目錄的持久層。紀錄為欄位名稱對應值的扁平結構，
// 結構化欄位（營養資訊、小技巧、功能性益處）以 JSON 字串回傳。
type Store interface {
	// Insert 新增一筆紀錄並回傳儲存層指派的 id
	Insert(ctx context.Context, rec recipe.StorageRecord) (string, error)
	// SelectAll 依儲存順序回傳最多 limit 筆；limit <= 0 表示不限制
	SelectAll(ctx context.Context, limit int) ([]recipe.StorageRecord, error)
	// SelectByFieldPattern 不分大小寫與重音的子字串比對，pattern 中每個詞都必須出現
	SelectByFieldPattern(ctx context.Context, field, pattern string) ([]recipe.StorageRecord, error)
	// SelectByID 查無資料時回傳 ErrNotFound
	SelectByID(ctx context.Context, id string) (recipe.StorageRecord, error)
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
}
