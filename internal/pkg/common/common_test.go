package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONKeepsNumbers(t *testing.T) {
	var v map[string]any
	require.NoError(t, ParseJSON(`{"id": 12345678901234567}`, &v))
	assert.Equal(t, json.Number("12345678901234567"), v["id"])

	assert.Error(t, ParseJSON(`{"a": 1} {"b": 2}`, &v))
	assert.Error(t, DecodeJSON(strings.NewReader(`{`), &v))
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject("Aqui está:\n```json\n{\"a\": {\"b\": 1}}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, obj)

	_, ok = ExtractJSONObject("sem objeto")
	assert.False(t, ok)
}

func TestQuoteJSONKeys(t *testing.T) {
	assert.Equal(t, `{"titulo": "x", "dicas": ["a"]}`, QuoteJSONKeys(`{titulo: "x", dicas: ["a"]}`))
}

func TestCustomErrorWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrWriteFailed.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Nil(t, ErrWriteFailed.Err)
	assert.Equal(t, "disk full", err.Response(true).Details)
	assert.Empty(t, err.Response(false).Details)
}

func TestValidationError(t *testing.T) {
	err := NewFieldValidationError("titulo", "must not be empty")
	assert.True(t, IsValidationError(err))
	assert.True(t, IsValidationError(errors.Join(errors.New("x"), err)))
	assert.False(t, IsValidationError(errors.New("x")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "açú...", Truncate("açúcar", 3))
	assert.Equal(t, "ovo", Truncate("ovo", 3))
	assert.Len(t, GenerateUUID(), 36)
}
