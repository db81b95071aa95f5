package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ToDomain 將儲存紀錄轉為領域模型。缺少 id 或標題時回傳 false，呼叫端應略過該筆紀錄。
// 任何格式錯誤的欄位都回退為預設值，不會 panic。
func ToDomain(rec StorageRecord) (*Recipe, bool) {
	if rec == nil {
		return nil, false
	}
	id, ok := ResolveID(rec[FieldID])
	if !ok {
		return nil, false
	}
	r, ok := FromRecord(rec)
	if !ok {
		return nil, false
	}
	r.ID = id
	return r, true
}

// FromRecord 與 ToDomain 相同的正規化規則，但不要求 id（匯入與 LLM 生成的食譜尚未有 id）
func FromRecord(rec StorageRecord) (*Recipe, bool) {
	if rec == nil {
		return nil, false
	}
	title := canonicalTitle(toText(rec[FieldTitle]))
	if title == "" {
		return nil, false
	}

	r := &Recipe{
		Title:              title,
		Description:        toText(rec[FieldDescription]),
		Ingredients:        toList(rec[FieldIngredients], true),
		Steps:              toList(rec[FieldSteps], true),
		PrepTime:           toText(rec[FieldPrepTime]),
		Servings:           toText(rec[FieldServings]),
		Difficulty:         toText(rec[FieldDifficulty]),
		Utensils:           toText(rec[FieldUtensils]),
		Pairing:            toText(rec[FieldPairing]),
		Nutrition:          toNutrition(rec[FieldNutrition]),
		Tips:               toList(rec[FieldTips], false),
		FunctionalBenefits: toList(rec[FieldBenefits], false),
	}
	if id, ok := ResolveID(rec[FieldID]); ok {
		r.ID = id
	}
	return r, true
}

// ToStorage 將領域模型轉為儲存紀錄。營養資訊保持結構化，是否編碼為 JSON 字串由持久層決定。
func ToStorage(r *Recipe) StorageRecord {
	if r == nil {
		return nil
	}
	rec := StorageRecord{
		FieldTitle:       canonicalTitle(r.Title),
		FieldDescription: strings.TrimSpace(r.Description),
		FieldIngredients: joinLines(r.Ingredients),
		FieldSteps:       joinLines(r.Steps),
		FieldPrepTime:    strings.TrimSpace(r.PrepTime),
		FieldServings:    strings.TrimSpace(r.Servings),
		FieldDifficulty:  strings.TrimSpace(r.Difficulty),
		FieldUtensils:    strings.TrimSpace(r.Utensils),
		FieldPairing:     strings.TrimSpace(r.Pairing),
		FieldNutrition:   fillNutrition(r.Nutrition),
		FieldTips:        cleanList(r.Tips, false),
		FieldBenefits:    cleanList(r.FunctionalBenefits, false),
	}
	if id := strings.TrimSpace(r.ID); id != "" {
		rec[FieldID] = id
	}
	return rec
}

// ResolveID 將各種歷史版本的 id（整數、浮點、UUID、字串）統一為字串
func ResolveID(v any) (string, bool) {
	var id string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		id = x
	case []byte:
		id = string(x)
	case json.Number:
		id = x.String()
	case int:
		id = strconv.Itoa(x)
	case int32:
		id = strconv.FormatInt(int64(x), 10)
	case int64:
		id = strconv.FormatInt(x, 10)
	case uint:
		id = strconv.FormatUint(uint64(x), 10)
	case uint32:
		id = strconv.FormatUint(uint64(x), 10)
	case uint64:
		id = strconv.FormatUint(x, 10)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return "", false
		}
		id = strconv.FormatFloat(x, 'f', -1, 64)
	case uuid.UUID:
		if x == uuid.Nil {
			return "", false
		}
		id = x.String()
	case fmt.Stringer:
		id = x.String()
	default:
		return "", false
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

func canonicalTitle(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// toText 純量欄位：nil 為空字串，數字轉為不帶多餘小數的文字
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any, []string:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// toList 清單欄位。splitLines 為 true 時字串以換行切分（食材、步驟）；
// 否則字串視為 JSON 陣列（小技巧、功能性益處）；非陣列文字以 '|' 切分，
// 毀損的 JSON 陣列則為空清單。
func toList(v any, splitLines bool) []string {
	var items []string
	switch x := v.(type) {
	case nil:
		return []string{}
	case string:
		items = stringToItems(x, splitLines)
	case []byte:
		items = stringToItems(string(x), splitLines)
	case json.RawMessage:
		items = stringToItems(string(x), splitLines)
	case []string:
		items = x
	case []any:
		items = make([]string, 0, len(x))
		for _, item := range x {
			if m, ok := item.(map[string]any); ok {
				items = append(items, legacyIngredient(m))
				continue
			}
			items = append(items, toText(item))
		}
	default:
		return []string{}
	}
	return cleanList(items, splitLines)
}

func stringToItems(s string, splitLines bool) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if splitLines {
		return strings.Split(s, "\n")
	}
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		if strings.HasPrefix(s, "[") {
			return nil
		}
		var text string
		if json.Unmarshal([]byte(s), &text) == nil {
			s = text
		}
		// 舊資料庫以 GROUP_CONCAT(dica, '|') 串接
		return strings.Split(s, "|")
	}
	items := make([]string, 0, len(raw))
	for _, item := range raw {
		items = append(items, toText(item))
	}
	return items
}

// legacyIngredient 舊版匯出格式的食材物件 {"quantidade": "2 xícaras", "item": "farinha"}
func legacyIngredient(m map[string]any) string {
	qty := toText(m["quantidade"])
	item := toText(m["item"])
	switch {
	case qty != "" && item != "":
		return qty + " de " + item
	case item != "":
		return item
	default:
		return qty
	}
}

// cleanList 去除空白、空項目與重複項目，保留第一次出現的順序；永遠回傳非 nil
func cleanList(items []string, splitLines bool) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, item := range items {
		if splitLines {
			for _, line := range strings.Split(item, "\n") {
				add(line)
			}
			continue
		}
		add(item)
	}
	return out
}

func joinLines(items []string) string {
	return strings.Join(cleanList(items, true), "\n")
}

func toNutrition(v any) Nutrition {
	switch x := v.(type) {
	case Nutrition:
		return fillNutrition(x)
	case *Nutrition:
		if x == nil {
			return ZeroNutrition()
		}
		return fillNutrition(*x)
	case map[string]any:
		return nutritionFromMap(x)
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = val
		}
		return nutritionFromMap(m)
	case string:
		return nutritionFromJSON([]byte(x))
	case []byte:
		return nutritionFromJSON(x)
	case json.RawMessage:
		return nutritionFromJSON(x)
	default:
		return ZeroNutrition()
	}
}

func nutritionFromJSON(data []byte) Nutrition {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ZeroNutrition()
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return ZeroNutrition()
	}
	return nutritionFromMap(m)
}

func nutritionFromMap(m map[string]any) Nutrition {
	return fillNutrition(Nutrition{
		Calories: toText(m["calorias"]),
		Protein:  toText(m["proteinas"]),
		Carbs:    toText(m["carboidratos"]),
		Fat:      toText(m["gorduras"]),
		Fiber:    toText(m["fibras"]),
	})
}

func fillNutrition(n Nutrition) Nutrition {
	fill := func(s string) string {
		if s = strings.TrimSpace(s); s == "" {
			return "0"
		}
		return s
	}
	return Nutrition{
		Calories: fill(n.Calories),
		Protein:  fill(n.Protein),
		Carbs:    fill(n.Carbs),
		Fat:      fill(n.Fat),
		Fiber:    fill(n.Fiber),
	}
}
