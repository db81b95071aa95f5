package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/text"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/pkg/common"
)

// recipeRow receitas 資料表。*_busca 欄位保存正規化後的文字，供不分重音的比對使用
type recipeRow struct {
	ID                      string `gorm:"primaryKey;type:varchar(36)"`
	Titulo                  string `gorm:"not null"`
	Descricao               string
	Ingredientes            string
	ModoPreparo             string
	TempoPreparo            string
	Porcoes                 string
	Dificuldade             string
	Utensilios              string
	Harmonizacao            string
	InformacoesNutricionais datatypes.JSON
	Dicas                   datatypes.JSON
	BeneficiosFuncionais    datatypes.JSON
	TituloBusca             string
	IngredientesBusca       string
	DescricaoBusca          string
	CreatedAt               time.Time `gorm:"index"`
}

func (recipeRow) TableName() string {
	return "receitas"
}

// BeforeCreate 由儲存層指派 id
func (r *recipeRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = common.GenerateUUID()
	}
	return nil
}

// GormStore 以 gorm 實作的 Store，支援 sqlite（內嵌）與 postgres（託管）
type GormStore struct {
	db *gorm.DB
}

// Open 依設定連線並建立資料表
func Open(cfg *config.StoreConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	switch {
	case cfg.Driver == "sqlite" && isMemoryDSN(cfg.DSN):
		// 每個連線都是獨立的記憶體資料庫
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &GormStore{db: db}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	common.LogInfo("儲存層已連線",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return s, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

// Migrate 建立或更新 receitas 資料表
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&recipeRow{}); err != nil {
		return fmt.Errorf("failed to migrate receitas: %w", err)
	}
	return nil
}

// Insert 實作 Store
func (s *GormStore) Insert(ctx context.Context, rec recipe.StorageRecord) (string, error) {
	row, err := rowFromRecord(rec)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", fmt.Errorf("failed to insert recipe: %w", err)
	}
	return row.ID, nil
}

// SelectAll 實作 Store
func (s *GormStore) SelectAll(ctx context.Context, limit int) ([]recipe.StorageRecord, error) {
	q := s.ordered(ctx)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []recipeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to select recipes: %w", err)
	}
	return toRecords(rows), nil
}

// SelectByFieldPattern 實作 Store
func (s *GormStore) SelectByFieldPattern(ctx context.Context, field, pattern string) ([]recipe.StorageRecord, error) {
	column, ok := searchColumn(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	q := s.ordered(ctx)
	for _, term := range strings.Fields(text.Normalize(pattern)) {
		q = q.Where(column+` LIKE ? ESCAPE '\'`, "%"+escapeLike(term)+"%")
	}

	var rows []recipeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to select recipes by %s: %w", field, err)
	}
	return toRecords(rows), nil
}

// SelectByID 實作 Store
func (s *GormStore) SelectByID(ctx context.Context, id string) (recipe.StorageRecord, error) {
	var row recipeRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select recipe %s: %w", id, err)
	}
	return toRecord(row), nil
}

// DeleteAll 實作 Store
func (s *GormStore) DeleteAll(ctx context.Context) error {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&recipeRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete recipes: %w", res.Error)
	}
	common.LogInfo("目錄已清空", zap.Int64("deleted", res.RowsAffected))
	return nil
}

// Ping 檢查連線
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) ordered(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
}

func searchColumn(field string) (string, bool) {
	switch field {
	case recipe.FieldTitle:
		return "titulo_busca", true
	case recipe.FieldIngredients:
		return "ingredientes_busca", true
	case recipe.FieldDescription:
		return "descricao_busca", true
	default:
		return "", false
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func rowFromRecord(rec recipe.StorageRecord) (*recipeRow, error) {
	if rec == nil {
		return nil, fmt.Errorf("store: nil record")
	}
	nutrition, err := jsonColumn(rec[recipe.FieldNutrition], `{}`)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", recipe.FieldNutrition, err)
	}
	tips, err := jsonColumn(rec[recipe.FieldTips], `[]`)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", recipe.FieldTips, err)
	}
	benefits, err := jsonColumn(rec[recipe.FieldBenefits], `[]`)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", recipe.FieldBenefits, err)
	}

	row := &recipeRow{
		Titulo:                  textColumn(rec[recipe.FieldTitle]),
		Descricao:               textColumn(rec[recipe.FieldDescription]),
		Ingredientes:            textColumn(rec[recipe.FieldIngredients]),
		ModoPreparo:             textColumn(rec[recipe.FieldSteps]),
		TempoPreparo:            textColumn(rec[recipe.FieldPrepTime]),
		Porcoes:                 textColumn(rec[recipe.FieldServings]),
		Dificuldade:             textColumn(rec[recipe.FieldDifficulty]),
		Utensilios:              textColumn(rec[recipe.FieldUtensils]),
		Harmonizacao:            textColumn(rec[recipe.FieldPairing]),
		InformacoesNutricionais: nutrition,
		Dicas:                   tips,
		BeneficiosFuncionais:    benefits,
	}
	if id, ok := recipe.ResolveID(rec[recipe.FieldID]); ok {
		row.ID = id
	}
	row.TituloBusca = text.Normalize(row.Titulo)
	row.IngredientesBusca = text.Normalize(row.Ingredientes)
	row.DescricaoBusca = text.Normalize(row.Descricao)
	return row, nil
}

func textColumn(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, "\n")
	default:
		return fmt.Sprint(x)
	}
}

// jsonColumn 已編碼的 JSON 字串原樣保存，其他值重新編碼
func jsonColumn(v any, empty string) (datatypes.JSON, error) {
	switch x := v.(type) {
	case nil:
		return datatypes.JSON(empty), nil
	case string:
		if json.Valid([]byte(x)) {
			return datatypes.JSON(x), nil
		}
		data, err := json.Marshal(x)
		return datatypes.JSON(data), err
	case []byte:
		if json.Valid(x) {
			return datatypes.JSON(x), nil
		}
		return datatypes.JSON(empty), nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(data), nil
	}
}

func toRecords(rows []recipeRow) []recipe.StorageRecord {
	out := make([]recipe.StorageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out
}

func toRecord(row recipeRow) recipe.StorageRecord {
	return recipe.StorageRecord{
		recipe.FieldID:          row.ID,
		recipe.FieldTitle:       row.Titulo,
		recipe.FieldDescription: row.Descricao,
		recipe.FieldIngredients: row.Ingredientes,
		recipe.FieldSteps:       row.ModoPreparo,
		recipe.FieldPrepTime:    row.TempoPreparo,
		recipe.FieldServings:    row.Porcoes,
		recipe.FieldDifficulty:  row.Dificuldade,
		recipe.FieldUtensils:    row.Utensilios,
		recipe.FieldPairing:     row.Harmonizacao,
		recipe.FieldNutrition:   string(row.InformacoesNutricionais),
		recipe.FieldTips:        string(row.Dicas),
		recipe.FieldBenefits:    string(row.BeneficiosFuncionais),
	}
}

// zapWriter 將 gorm 的日誌導向 zap
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	common.LogDebug("gorm", zap.String("sql", fmt.Sprintf(format, args...)))
}

func newGormLogger(level string) gormLogger.Interface {
	lvl := gormLogger.Warn
	switch strings.ToLower(level) {
	case "silent":
		lvl = gormLogger.Silent
	case "error":
		lvl = gormLogger.Error
	case "info", "debug":
		lvl = gormLogger.Info
	}
	return gormLogger.New(zapWriter{}, gormLogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
