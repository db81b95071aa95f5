package recipe

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() StorageRecord {
	return StorageRecord{
		"id":                       "7c1c6a3e-1111-4c7e-9d7b-0a5f5a1e2b3c",
		"titulo":                   "  Bolo de Cenoura ",
		"descricao":                " Fofinho ",
		"ingredientes":             "2 cenouras\n3 ovos\n\n 2 cenouras \n1 xícara de óleo",
		"modo_preparo":             "Bata tudo\nAsse 40min",
		"tempo_preparo":            "50 minutos",
		"porcoes":                  8,
		"informacoes_nutricionais": `{"calorias": 250, "proteinas": "4g"}`,
		"dicas":                    `["Use forma untada", "Use forma untada"]`,
		"beneficios_funcionais":    []any{"Rico em vitamina A"},
	}
}

func TestToDomainNormalizesFields(t *testing.T) {
	r, ok := ToDomain(sampleRecord())
	require.True(t, ok)

	assert.Equal(t, "7c1c6a3e-1111-4c7e-9d7b-0a5f5a1e2b3c", r.ID)
	assert.Equal(t, "BOLO DE CENOURA", r.Title)
	assert.Equal(t, "Fofinho", r.Description)
	assert.Equal(t, []string{"2 cenouras", "3 ovos", "1 xícara de óleo"}, r.Ingredients)
	assert.Equal(t, []string{"Bata tudo", "Asse 40min"}, r.Steps)
	assert.Equal(t, "8", r.Servings)
	assert.Equal(t, "", r.Difficulty)
	assert.Equal(t, Nutrition{Calories: "250", Protein: "4g", Carbs: "0", Fat: "0", Fiber: "0"}, r.Nutrition)
	assert.Equal(t, []string{"Use forma untada"}, r.Tips)
	assert.Equal(t, []string{"Rico em vitamina A"}, r.FunctionalBenefits)
}

func TestToDomainDedupPreservesOrder(t *testing.T) {
	r, ok := ToDomain(StorageRecord{
		"id":           "1",
		"titulo":       "x",
		"ingredientes": []any{"a", "a", "b", "a"},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, r.Ingredients)
	assert.Equal(t, []string{}, r.Steps)
}

func TestToDomainRejectsMissingIDOrTitle(t *testing.T) {
	cases := []StorageRecord{
		nil,
		{"titulo": "Sem id"},
		{"id": "", "titulo": "Id vazio"},
		{"id": "   ", "titulo": "Id em branco"},
		{"id": 1.5, "titulo": "Id fracionário"},
		{"id": uuid.Nil, "titulo": "Id nulo"},
		{"id": "1"},
		{"id": "1", "titulo": "   "},
		{"id": "1", "titulo": nil},
	}
	for i, rec := range cases {
		r, ok := ToDomain(rec)
		assert.False(t, ok, "case %d", i)
		assert.Nil(t, r, "case %d", i)
	}
}

func TestResolveIDLegacyEncodings(t *testing.T) {
	u := uuid.New()
	cases := []struct {
		in   any
		want string
	}{
		{int64(42), "42"},
		{42, "42"},
		{float64(7), "7"},
		{json.Number("15"), "15"},
		{u, u.String()},
		{" abc ", "abc"},
	}
	for _, c := range cases {
		got, ok := ResolveID(c.in)
		assert.True(t, ok, "%v", c.in)
		assert.Equal(t, c.want, got)
	}
}

func TestToDomainMalformedStructuredFieldsFallBackToDefaults(t *testing.T) {
	r, ok := ToDomain(StorageRecord{
		"id":                       "1",
		"titulo":                   "Torta",
		"informacoes_nutricionais": "{not json",
		"dicas":                    "[\"unterminated",
		"beneficios_funcionais":    42,
		"porcoes":                  nil,
	})
	require.True(t, ok)
	assert.Equal(t, ZeroNutrition(), r.Nutrition)
	assert.Equal(t, []string{}, r.Tips)
	assert.Equal(t, []string{}, r.FunctionalBenefits)
	assert.Equal(t, "", r.Servings)
}

func TestToDomainPipeDelimitedTips(t *testing.T) {
	r, ok := ToDomain(StorageRecord{
		"id":                    "1",
		"titulo":                "Bolo",
		"dicas":                 "Use forma untada| Asse em forno médio ||Use forma untada",
		"beneficios_funcionais": "Fonte de energia",
	})
	require.True(t, ok)
	assert.Equal(t, []string{"Use forma untada", "Asse em forno médio"}, r.Tips)
	assert.Equal(t, []string{"Fonte de energia"}, r.FunctionalBenefits)
}

func TestToDomainNutritionEncodings(t *testing.T) {
	native := map[string]any{"calorias": 120.5, "fibras": 3.0}
	r, ok := ToDomain(StorageRecord{"id": "1", "titulo": "t", "informacoes_nutricionais": native})
	require.True(t, ok)
	assert.Equal(t, Nutrition{Calories: "120.5", Protein: "0", Carbs: "0", Fat: "0", Fiber: "3"}, r.Nutrition)

	structured := Nutrition{Calories: "10"}
	r, ok = ToDomain(StorageRecord{"id": "1", "titulo": "t", "informacoes_nutricionais": &structured})
	require.True(t, ok)
	assert.Equal(t, "10", r.Nutrition.Calories)
	assert.Equal(t, "0", r.Nutrition.Fat)

	r, ok = ToDomain(StorageRecord{"id": "1", "titulo": "t", "informacoes_nutricionais": `[1,2]`})
	require.True(t, ok)
	assert.Equal(t, ZeroNutrition(), r.Nutrition)
}

func TestToDomainLegacyIngredientObjects(t *testing.T) {
	r, ok := ToDomain(StorageRecord{
		"id":     "1",
		"titulo": "Pão",
		"ingredientes": []any{
			map[string]any{"quantidade": "2 xícaras", "item": "farinha"},
			map[string]any{"item": "sal"},
			"água",
		},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"2 xícaras de farinha", "sal", "água"}, r.Ingredients)
}

func TestToStorageFlattensLists(t *testing.T) {
	rec := ToStorage(&Recipe{
		ID:          "abc",
		Title:       " pudim ",
		Ingredients: []string{" leite ", "ovos", ""},
		Steps:       nil,
		Nutrition:   Nutrition{Calories: "300"},
		Tips:        nil,
	})

	assert.Equal(t, "abc", rec[FieldID])
	assert.Equal(t, "PUDIM", rec[FieldTitle])
	assert.Equal(t, "leite\novos", rec[FieldIngredients])
	assert.Equal(t, "", rec[FieldSteps])
	assert.Equal(t, Nutrition{Calories: "300", Protein: "0", Carbs: "0", Fat: "0", Fiber: "0"}, rec[FieldNutrition])
	assert.Equal(t, []string{}, rec[FieldTips])
	assert.Equal(t, []string{}, rec[FieldBenefits])
	assert.Nil(t, ToStorage(nil))
}

func TestRoundTripIsIdempotent(t *testing.T) {
	records := []StorageRecord{
		sampleRecord(),
		{"id": 3, "titulo": "a", "ingredientes": []any{"x\ny", "x"}, "modo_preparo": "  um \n dois"},
		{"id": "9", "titulo": "Só título"},
	}
	for _, x := range records {
		first, ok := ToDomain(x)
		require.True(t, ok)
		second, ok := ToDomain(ToStorage(first))
		require.True(t, ok)
		assert.Equal(t, first, second)
	}
}
