package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"recipe-catalog/internal/core/catalog"
	"recipe-catalog/internal/core/retry"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/infrastructure/store"
	"recipe-catalog/internal/pkg/common"
)

func main() {
	file := flag.String("file", "receitas.json", "legacy JSON export (array of recipes)")
	reset := flag.Bool("clear", false, "delete the current catalog before migrating")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	common.InitConsoleLogger(cfg.LogLevel)
	defer common.Sync()

	records, err := loadLegacy(*file)
	if err != nil {
		common.LogFatal("無法讀取舊資料", zap.String("file", *file), zap.Error(err))
	}

	db, err := store.Open(&cfg.Store)
	if err != nil {
		common.LogFatal("Failed to open store", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	svc := catalog.NewService(db, catalog.WithRetry(retry.FromConfig(&cfg.Retry)))

	if *reset {
		if err := svc.Clear(ctx); err != nil {
			common.LogFatal("Failed to clear catalog", zap.Error(err))
		}
		fmt.Println("Catalog cleared")
	}

	report := svc.MigrateLegacy(ctx, records)
	for _, msg := range report.Errors {
		fmt.Println("  -", msg)
	}
	fmt.Printf("total=%d inserted=%d skipped=%d failed=%d\n",
		report.Total, report.Inserted, report.Skipped, report.Failed)

	if report.Failed > 0 {
		os.Exit(1)
	}
}

// loadLegacy 讀取 JSON 陣列；數字保留為 json.Number，整數 id 不會失去精度
func loadLegacy(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []map[string]any
	if err := common.DecodeJSON(f, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
