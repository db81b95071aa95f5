package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/pkg/common"
)

type stubCompleter struct {
	content  string
	err      error
	messages []Message
}

func (s *stubCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	s.messages = messages
	return s.content, s.err
}

const generatedRecipe = `Aqui está a sua receita:
{"titulo": "Escondidinho de Mandioca", "ingredientes": ["1kg de mandioca", "500g de carne seca"],
 "modo_preparo": ["Cozinhe a mandioca", "Monte em camadas", "Leve ao forno"],
 "porcoes": 6, "dicas": ["Use queijo coalho"]}`

func TestGenerateParsesAndValidates(t *testing.T) {
	common.InitNopLogger()
	llm := &stubCompleter{content: generatedRecipe}
	g := NewGenerator(llm)

	r, err := g.Generate(context.Background(), "algo com mandioca", []string{"BOLO DE CENOURA"})
	require.NoError(t, err)
	assert.Equal(t, "ESCONDIDINHO DE MANDIOCA", r.Title)
	assert.Equal(t, "6", r.Servings)
	assert.Len(t, r.Steps, 3)

	require.Len(t, llm.messages, 2)
	assert.Contains(t, llm.messages[0].Content, "BOLO DE CENOURA")
	assert.Equal(t, "algo com mandioca", llm.messages[1].Content)
}

func TestGenerateRejectsIncompleteOutput(t *testing.T) {
	common.InitNopLogger()
	g := NewGenerator(&stubCompleter{content: `{"titulo": "Só o nome"}`})
	_, err := g.Generate(context.Background(), "qualquer", nil)
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}

func TestGenerateErrors(t *testing.T) {
	common.InitNopLogger()
	_, err := NewGenerator(nil).Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrDisabled)

	boom := errors.New("timeout")
	_, err = NewGenerator(&stubCompleter{err: boom}).Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, boom)

	_, err = NewGenerator(&stubCompleter{}).Generate(context.Background(), "  ", nil)
	assert.True(t, common.IsValidationError(err))
}

func TestBuildMessagesCapsReferenceTitles(t *testing.T) {
	titles := make([]string, 30)
	for i := range titles {
		titles[i] = fmt.Sprintf("RECEITA %02d", i)
	}
	msgs := buildMessages("pedido", titles)
	assert.Contains(t, msgs[0].Content, "RECEITA 19")
	assert.NotContains(t, msgs[0].Content, "RECEITA 20")

	assert.NotContains(t, buildMessages("pedido", nil)[0].Content, "Receitas existentes")
}

func TestClientComplete(t *testing.T) {
	common.InitNopLogger()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		assert.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "gen-1", "choices": [{"message": {"role": "assistant", "content": "olá"}}], "usage": {"total_tokens": 12}}`))
	}))
	defer srv.Close()

	c := NewClient(&config.OpenRouterConfig{APIKey: "test-key", Model: "test-model", MaxTokens: 500, BaseURL: srv.URL, Timeout: time.Second})
	out, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "oi"}})
	require.NoError(t, err)
	assert.Equal(t, "olá", out)
	assert.Equal(t, "test-model", c.Model())
}

func TestClientCompleteErrors(t *testing.T) {
	common.InitNopLogger()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "invalid key", "code": 401}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	_, err := NewClient(&config.OpenRouterConfig{APIKey: "bad", BaseURL: srv.URL}).Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
	assert.Contains(t, err.Error(), "401")

	_, err = NewClient(&config.OpenRouterConfig{APIKey: "ok", BaseURL: srv.URL}).Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
