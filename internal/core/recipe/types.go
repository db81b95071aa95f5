package recipe

// 儲存欄位名稱（同時也是 LLM 回傳 JSON 的欄位名稱）
const (
	FieldID          = "id"
	FieldTitle       = "titulo"
	FieldDescription = "descricao"
	FieldIngredients = "ingredientes"
	FieldSteps       = "modo_preparo"
	FieldPrepTime    = "tempo_preparo"
	FieldServings    = "porcoes"
	FieldDifficulty  = "dificuldade"
	FieldUtensils    = "utensilios"
	FieldPairing     = "harmonizacao"
	FieldNutrition   = "informacoes_nutricionais"
	FieldTips        = "dicas"
	FieldBenefits    = "beneficios_funcionais"
)

// PreviewSize 摘要中保留的食材數量
const PreviewSize = 3

// Ellipsis 食材超過 PreviewSize 時附加的標記
const Ellipsis = "..."

// StorageRecord 持久層的扁平紀錄：清單以換行串接，營養與清單欄位可能是 JSON 字串
type StorageRecord map[string]any

// Nutrition 營養資訊，數值以字串保存
type Nutrition struct {
	Calories string `json:"calorias"`
	Protein  string `json:"proteinas"`
	Carbs    string `json:"carboidratos"`
	Fat      string `json:"gorduras"`
	Fiber    string `json:"fibras"`
}

// ZeroNutrition 缺失或格式錯誤時使用的預設值
func ZeroNutrition() Nutrition {
	return Nutrition{Calories: "0", Protein: "0", Carbs: "0", Fat: "0", Fiber: "0"}
}

// Recipe 領域模型
type Recipe struct {
	ID                 string    `json:"id"`
	Title              string    `json:"titulo"`
	Description        string    `json:"descricao"`
	Ingredients        []string  `json:"ingredientes"`
	Steps              []string  `json:"modo_preparo"`
	PrepTime           string    `json:"tempo_preparo"`
	Servings           string    `json:"porcoes"`
	Difficulty         string    `json:"dificuldade"`
	Utensils           string    `json:"utensilios"`
	Pairing            string    `json:"harmonizacao"`
	Nutrition          Nutrition `json:"informacoes_nutricionais"`
	Tips               []string  `json:"dicas"`
	FunctionalBenefits []string  `json:"beneficios_funcionais"`
}

// Summary 列表用的精簡預覽
type Summary struct {
	ID                 string   `json:"id"`
	Title              string   `json:"titulo"`
	Description        string   `json:"descricao"`
	PreviewIngredients []string `json:"preview_ingredientes"`
}
