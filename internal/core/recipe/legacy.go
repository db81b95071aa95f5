package recipe

import (
	"strings"
	"unicode"
)

// legacyNutritionKeys 舊版匯出把營養資訊放在最外層
var legacyNutritionKeys = []string{"calorias", "proteinas", "carboidratos", "gorduras", "fibras"}

// ConvertLegacy 將舊版 JSON 匯出（食材為 {quantidade,item} 物件、步驟夾雜獨立編號、營養資訊攤平）
// 轉為目前的儲存格式
func ConvertLegacy(raw map[string]any) StorageRecord {
	rec := StorageRecord{}
	for k, v := range raw {
		rec[k] = v
	}

	var ingredients []string
	if items, ok := raw[FieldIngredients].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				ingredients = append(ingredients, legacyIngredient(m))
				continue
			}
			ingredients = append(ingredients, toText(item))
		}
		rec[FieldIngredients] = joinLines(ingredients)
	}

	if steps, ok := raw[FieldSteps].([]any); ok {
		kept := make([]string, 0, len(steps))
		for _, step := range steps {
			s := toText(step)
			if s == "" || isDigits(s) {
				continue
			}
			kept = append(kept, s)
		}
		rec[FieldSteps] = joinLines(kept)
	}

	if _, ok := raw[FieldNutrition]; !ok {
		flat := make(map[string]any, len(legacyNutritionKeys))
		for _, key := range legacyNutritionKeys {
			flat[key] = raw[key]
			delete(rec, key)
		}
		rec[FieldNutrition] = nutritionFromMap(flat)
	}

	rec[FieldServings] = toText(raw[FieldServings])
	return rec
}

func isDigits(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
