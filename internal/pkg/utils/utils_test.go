package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.2345", FormatAmount(decimal.RequireFromString("1.234500000"), 8))
	assert.Equal(t, "0.33333333", FormatAmount(decimal.NewFromInt(1).Div(decimal.NewFromInt(3)), 8))
	assert.Equal(t, "2", FormatAmount(decimal.RequireFromString("2.0"), 8))
}

func TestBatchStrings(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, BatchStrings([]string{"a", "b", "c"}, 2))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, BatchStrings([]string{"a", "b", "c"}, 0))
	assert.Empty(t, BatchStrings(nil, 3))
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"ethereum", "solana"}, UniqueSorted([]string{"solana", "", "ethereum", "solana"}))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}
