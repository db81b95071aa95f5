package recipe

import (
	"strings"

	"recipe-catalog/internal/pkg/common"
)

// Validate 寫入前的必要欄位檢查：標題、至少一項食材、至少一個步驟
func Validate(r *Recipe) error {
	if r == nil {
		return common.NewValidationError("recipe is nil")
	}
	if strings.TrimSpace(r.Title) == "" {
		return common.NewFieldValidationError(FieldTitle, "must not be empty")
	}
	if len(cleanList(r.Ingredients, true)) == 0 {
		return common.NewFieldValidationError(FieldIngredients, "at least one ingredient is required")
	}
	if len(cleanList(r.Steps, true)) == 0 {
		return common.NewFieldValidationError(FieldSteps, "at least one step is required")
	}
	return nil
}

// FromGenerated 解析 LLM 回傳的 JSON 物件。缺少標題、食材或步驟時拒絕；任何 id 都會被忽略，由儲存層指派。
func FromGenerated(payload string) (*Recipe, error) {
	obj, ok := common.ExtractJSONObject(payload)
	if !ok {
		return nil, common.NewValidationError("generated content has no JSON object")
	}

	var rec StorageRecord
	if err := common.ParseJSON(obj, &rec); err != nil {
		if err := common.ParseJSON(common.QuoteJSONKeys(obj), &rec); err != nil {
			return nil, common.NewValidationError("generated content is not valid JSON: " + err.Error())
		}
	}
	delete(rec, FieldID)

	r, ok := FromRecord(rec)
	if !ok {
		return nil, common.NewFieldValidationError(FieldTitle, "must not be empty")
	}
	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}
