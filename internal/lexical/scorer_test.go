package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "splits on japanese punctuation",
			input:    "ゴミの収集日について。粗大ごみは？",
			expected: []string{"ゴミの収集日について", "粗大ごみは"},
		},
		{
			name:     "splits on whitespace and newlines",
			input:    "道路 陥没\n危険です",
			expected: []string{"道路", "陥没", "危険です"},
		},
		{
			name:     "drops single rune tokens",
			input:    "あ 水道 い",
			expected: []string{"水道"},
		},
		{
			name:     "empty text",
			input:    "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.input))
		})
	}
}

func TestScore(t *testing.T) {
	t.Run("full containment scores one", func(t *testing.T) {
		assert.Equal(t, 1.0, Score("粗大ごみ 申込", "粗大ごみの申込方法のご案内"))
	})

	t.Run("partial containment", func(t *testing.T) {
		// 1 of 2 tokens contained.
		assert.Equal(t, 0.5, Score("粗大ごみ 騒音", "粗大ごみの出し方"))
	})

	t.Run("no overlap scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Score("水道 断水", "公園の遊具について"))
	})

	t.Run("empty query scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Score("", "なんらかの本文"))
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		// 1 of 3 tokens contained: 0.333... rounds to 0.33.
		got := Score("水道 騒音 公園", "水道料金の案内")
		assert.Equal(t, 0.33, got)
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.67, Round(2.0/3.0))
	assert.Equal(t, 0.5, Round(0.5))
	assert.Equal(t, 0.0, Round(0))
}
