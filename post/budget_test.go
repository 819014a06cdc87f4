package post

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// wordCounter counts whitespace separated words.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func TestFitBlocks(t *testing.T) {
	blocks := []string{"a b c", "d e", "f g h i"}

	tests := []struct {
		name      string
		maxTokens int
		wantKept  int
	}{
		{name: "unlimited", maxTokens: 0, wantKept: 3},
		{name: "fits all", maxTokens: 9, wantKept: 3},
		{name: "drops tail", maxTokens: 6, wantKept: 2},
		{name: "keeps first block even when oversized", maxTokens: 1, wantKept: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, stats := FitBlocks(blocks, "\n\n", tt.maxTokens, wordCounter{})
			assert.Len(t, kept, tt.wantKept)
			assert.Equal(t, tt.wantKept, stats.Kept)
			assert.Equal(t, blocks[:tt.wantKept], kept)
		})
	}
}

func TestApproxCounter(t *testing.T) {
	assert.Equal(t, 0, ApproxCounter{}.CountTokens(""))
	assert.Equal(t, 1, ApproxCounter{}.CountTokens("abcd"))
	assert.Equal(t, 2, ApproxCounter{}.CountTokens("abcde"))
}
