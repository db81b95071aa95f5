package recipe

import "strings"

// Summarize 由儲存紀錄產生列表預覽；缺少 id 或標題時回傳 false
func Summarize(rec StorageRecord) (*Summary, bool) {
	r, ok := ToDomain(rec)
	if !ok {
		return nil, false
	}
	return SummarizeRecipe(r)
}

// SummarizeRecipe 由領域模型產生列表預覽。沒有 id 的食譜無法再查詢詳細內容，因此不產生預覽。
func SummarizeRecipe(r *Recipe) (*Summary, bool) {
	if r == nil {
		return nil, false
	}
	id := strings.TrimSpace(r.ID)
	title := canonicalTitle(r.Title)
	if id == "" || title == "" {
		return nil, false
	}

	n := len(r.Ingredients)
	if n > PreviewSize {
		n = PreviewSize
	}
	preview := make([]string, 0, n+1)
	preview = append(preview, r.Ingredients[:n]...)
	if len(r.Ingredients) > PreviewSize {
		preview = append(preview, Ellipsis)
	}

	return &Summary{
		ID:                 id,
		Title:              title,
		Description:        strings.TrimSpace(r.Description),
		PreviewIngredients: preview,
	}, true
}

// SummarizeAll 轉換多筆食譜並略過無效項目
func SummarizeAll(recipes []Recipe) []Summary {
	out := make([]Summary, 0, len(recipes))
	for i := range recipes {
		if s, ok := SummarizeRecipe(&recipes[i]); ok {
			out = append(out, *s)
		}
	}
	return out
}
