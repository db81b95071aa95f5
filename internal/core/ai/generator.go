package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/pkg/common"
)

// MaxReferenceTitles 提示詞中作為風格參考的既有食譜數量上限
const MaxReferenceTitles = 20

// Completer LLM 對話介面
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Generator 透過 LLM 產生新食譜
type Generator struct {
	llm Completer
}

// NewGenerator 創建食譜生成器；llm 為 nil 時 Generate 回傳 ErrDisabled
func NewGenerator(llm Completer) *Generator {
	return &Generator{llm: llm}
}

// Enabled 是否可以生成
func (g *Generator) Enabled() bool {
	return g != nil && g.llm != nil
}

const systemPrompt = `Você é uma chef profissional especializada em criar receitas detalhadas e práticas.
Crie uma NOVA receita atendendo ao pedido do usuário, sem repetir exatamente as receitas existentes.
Responda SOMENTE com um objeto JSON com os campos:
"titulo" (texto), "descricao" (texto), "ingredientes" (lista com quantidades precisas),
"modo_preparo" (lista de passos), "tempo_preparo", "porcoes", "dificuldade" (fácil/médio/difícil),
"utensilios", "harmonizacao", "informacoes_nutricionais" (objeto com "calorias", "proteinas",
"carboidratos", "gorduras", "fibras"), "dicas" (lista com 2 a 3 dicas),
"beneficios_funcionais" (lista).`

// Generate 依使用者需求產生食譜。existingTitles 為目錄中既有的食譜名稱，作為風格參考。
// 回傳的食譜尚未有 id，缺少標題、食材或步驟時回傳 ValidationError。
func (g *Generator) Generate(ctx context.Context, prompt string, existingTitles []string) (*recipe.Recipe, error) {
	if !g.Enabled() {
		return nil, ErrDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, common.NewFieldValidationError("prompt", "must not be empty")
	}

	content, err := g.llm.Complete(ctx, buildMessages(prompt, existingTitles))
	if err != nil {
		return nil, fmt.Errorf("failed to generate recipe: %w", err)
	}

	r, err := recipe.FromGenerated(content)
	if err != nil {
		common.LogWarn("LLM 回傳的食譜不完整",
			zap.String("content", common.Truncate(content, 200)),
			zap.Error(err),
		)
		return nil, err
	}

	common.LogInfo("食譜已生成", zap.String("titulo", r.Title))
	return r, nil
}

func buildMessages(prompt string, existingTitles []string) []Message {
	system := systemPrompt
	if len(existingTitles) > 0 {
		if len(existingTitles) > MaxReferenceTitles {
			existingTitles = existingTitles[:MaxReferenceTitles]
		}
		system += "\n\nReceitas existentes (referência de estilo):\n- " + strings.Join(existingTitles, "\n- ")
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}
}
