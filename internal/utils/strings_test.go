package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "simple words",
			input:    "Alpha Strategy",
			expected: "alpha-strategy",
		},
		{
			name:     "punctuation runs collapse",
			input:    "Gold & Silver -- FX!!",
			expected: "gold-silver-fx",
		},
		{
			name:     "leading and trailing separators",
			input:    "  --Top 10--  ",
			expected: "top-10",
		},
		{
			name:     "non ascii dropped",
			input:    "Zürich Fund",
			expected: "z-rich-fund",
		},
		{
			name:     "only symbols",
			input:    "$$$",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("alpha-1"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("Alpha"))
	assert.False(t, ValidSlug("alpha_1"))
	assert.False(t, ValidSlug(strings.Repeat("a", MaxSlugLength+1)))
	assert.True(t, ValidSlug(strings.Repeat("a", MaxSlugLength)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("ab-cd", 3))
	assert.Equal(t, "abcd", Truncate("abcdef", 4))
}
