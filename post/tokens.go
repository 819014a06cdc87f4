package post

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/childsafe-za/childsafe-rag/common/logger"
)

const defaultEncoding = "cl100k_base"

// TokenCounter counts tokens the way the budget is measured.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts BPE tokens with tiktoken-go.
type TiktokenCounter struct {
	tke *tiktoken.Tiktoken
}

func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

// ApproxCounter estimates four characters per token. It is used when the
// BPE ranks cannot be loaded.
type ApproxCounter struct{}

func (ApproxCounter) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

var (
	counterMu sync.Mutex
	counters  = map[string]TokenCounter{}
)

// NewTokenCounter returns a counter for encoding, falling back to the
// approximate counter when the encoding is unavailable. Counters are shared
// per encoding.
func NewTokenCounter(encoding string) TokenCounter {
	if encoding == "" {
		encoding = defaultEncoding
	}
	counterMu.Lock()
	defer counterMu.Unlock()
	if c, ok := counters[encoding]; ok {
		return c
	}

	var c TokenCounter
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(encoding)
	}
	if err != nil {
		logger.Warnf("post: tiktoken encoding %q unavailable, using approximate counts: %v", encoding, err)
		c = ApproxCounter{}
	} else {
		c = &TiktokenCounter{tke: tke}
	}
	counters[encoding] = c
	return c
}
