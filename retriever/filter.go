package retriever

import (
	"strings"

	"github.com/childsafe-za/childsafe-rag/schema"
)

var defaultKeywords = []string{"childsafe", "child safe south africa"}

// RelevanceFilter keeps articles that mention the organisation in their
// title or snippet.
type RelevanceFilter struct {
	Keywords []string
}

func NewRelevanceFilter(keywords []string) *RelevanceFilter {
	if len(keywords) == 0 {
		keywords = defaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &RelevanceFilter{Keywords: lowered}
}

// Matches reports whether text mentions any keyword.
func (f *RelevanceFilter) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, k := range f.Keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Filter returns the relevant articles in their original order.
func (f *RelevanceFilter) Filter(articles []schema.Article) []schema.Article {
	out := make([]schema.Article, 0, len(articles))
	for _, a := range articles {
		if f.Matches(a.Title + a.Snippet) {
			out = append(out, a)
		}
	}
	return out
}
