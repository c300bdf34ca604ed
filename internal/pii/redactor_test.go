package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "email address",
			input:    "連絡先は taro.yamada@example.com です",
			expected: "連絡先は [EMAIL] です",
		},
		{
			name:     "hyphenated phone number",
			input:    "電話番号は 03-1234-5678 まで",
			expected: "電話番号は [PHONE] まで",
		},
		{
			name:     "mobile number without hyphens",
			input:    "09012345678に電話してください",
			expected: "[PHONE]に電話してください",
		},
		{
			name:     "postal code with mark",
			input:    "〒123-4567 市役所前",
			expected: "[POSTAL] 市役所前",
		},
		{
			name:     "postal code without mark",
			input:    "住所は123-4567です",
			expected: "住所は[POSTAL]です",
		},
		{
			name:     "twelve digit national id",
			input:    "番号は 123456789012 です",
			expected: "番号は [MYNUMBER] です",
		},
		{
			name:     "multiple kinds in one text",
			input:    "a@b.jp / 090-1234-5678 / 〒100-0001",
			expected: "[EMAIL] / [PHONE] / [POSTAL]",
		},
		{
			name:     "no pii is untouched",
			input:    "ゴミの収集日を教えてください",
			expected: "ゴミの収集日を教えてください",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Redact(tt.input))
		})
	}
}

func TestRedactMobileBeforeNationalID(t *testing.T) {
	// An 11-digit mobile number must not be partially consumed by the
	// 12-digit rule.
	assert.Equal(t, "[PHONE]", Redact("08012345678"))
}
