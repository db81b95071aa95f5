package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe-catalog/internal/core/catalog"
	"recipe-catalog/internal/core/retry"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/infrastructure/store"
	"recipe-catalog/internal/pkg/common"
)

type result struct {
	file string
	id   string
	err  error
}

func main() {
	dir := flag.String("dir", "receitas", "directory containing markdown recipes")
	workers := flag.Int("workers", 4, "number of files imported concurrently")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	common.InitConsoleLogger(cfg.LogLevel)
	defer common.Sync()

	files, err := findMarkdown(*dir)
	if err != nil {
		common.LogFatal("無法讀取目錄", zap.String("dir", *dir), zap.Error(err))
	}
	if len(files) == 0 {
		fmt.Printf("No markdown files found in %s\n", *dir)
		return
	}

	db, err := store.Open(&cfg.Store)
	if err != nil {
		common.LogFatal("Failed to open store", zap.Error(err))
	}
	defer db.Close()

	svc := catalog.NewService(db, catalog.WithRetry(retry.FromConfig(&cfg.Retry)))
	results := importAll(context.Background(), svc, files, *workers)

	imported := 0
	for _, r := range results {
		if r.err != nil {
			fmt.Printf("FAIL %s: %v\n", r.file, r.err)
			continue
		}
		imported++
		fmt.Printf("OK   %s -> %s\n", r.file, r.id)
	}
	fmt.Printf("\n%d/%d recipes imported\n", imported, len(results))

	if imported < len(results) {
		os.Exit(1)
	}
}

// findMarkdown 遞迴尋找 .md 檔，依路徑排序
func findMarkdown(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// importAll 並行匯入；單一檔案失敗不影響其他檔案
func importAll(ctx context.Context, svc *catalog.Service, files []string, workers int) []result {
	results := make([]result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = result{file: file}
			content, err := os.ReadFile(file)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].id, results[i].err = svc.ImportMarkdown(ctx, filepath.Base(file), string(content))
			return nil
		})
	}
	_ = g.Wait()
	return results
}
