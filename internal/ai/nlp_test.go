package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
	assert.Equal(t, "null", stripFences("```\nnull\n```"))
}

func TestNormalizeParsed(t *testing.T) {
	const today = "2026-02-15"

	t.Run("complete answer", func(t *testing.T) {
		parsed := normalizeParsed(`{"amount": 500.0, "type": "expense", "category": "alimentación", "description": "pizza", "date": "2026-02-14"}`, today)
		require.NotNil(t, parsed)
		assert.Equal(t, 500.0, parsed.Amount)
		assert.Equal(t, "expense", parsed.Type)
		assert.Equal(t, "alimentación", parsed.Category)
		assert.Equal(t, "2026-02-14", parsed.Date)
	})

	t.Run("null answer", func(t *testing.T) {
		assert.Nil(t, normalizeParsed("null", today))
		assert.Nil(t, normalizeParsed("NULL", today))
		assert.Nil(t, normalizeParsed("```\nnull\n```", today))
	})

	t.Run("fenced json", func(t *testing.T) {
		parsed := normalizeParsed("```json\n{\"amount\": 100, \"type\": \"income\", \"category\": \"salario\"}\n```", today)
		require.NotNil(t, parsed)
		assert.Equal(t, "income", parsed.Type)
	})

	t.Run("negative amount forced positive", func(t *testing.T) {
		parsed := normalizeParsed(`{"amount": -250, "type": "expense"}`, today)
		require.NotNil(t, parsed)
		assert.Equal(t, 250.0, parsed.Amount)
	})

	t.Run("unknown type coerced to expense", func(t *testing.T) {
		parsed := normalizeParsed(`{"amount": 100, "type": "transfer"}`, today)
		require.NotNil(t, parsed)
		assert.Equal(t, "expense", parsed.Type)
	})

	t.Run("missing date defaults to today", func(t *testing.T) {
		parsed := normalizeParsed(`{"amount": 100, "type": "expense"}`, today)
		require.NotNil(t, parsed)
		assert.Equal(t, today, parsed.Date)
	})

	t.Run("garbage", func(t *testing.T) {
		assert.Nil(t, normalizeParsed("no es json", today))
		assert.Nil(t, normalizeParsed(`{"type": "expense"}`, today))
	})
}
