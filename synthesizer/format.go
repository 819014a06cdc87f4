package synthesizer

import (
	"fmt"
	"strconv"

	"github.com/childsafe-za/childsafe-rag/schema"
)

const (
	blockSeparator  = "\n\n"
	snippetMaxRunes = 300
)

// PassageBlock renders one report passage with its citation header.
func PassageBlock(p schema.Passage) string {
	year := p.Metadata.ReportYear
	if year == "" {
		year = "unknown report"
	}
	page := "?"
	if p.Metadata.Page != nil {
		page = strconv.Itoa(*p.Metadata.Page)
	}
	return fmt.Sprintf("[Report: %s, Page %s]\n%s", year, page, p.Text)
}

// ArticleBlock renders one web article for the summary prompt.
func ArticleBlock(a schema.Article) string {
	title := a.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("- Title: %s\n  URL: %s\n  Content: %s...", title, a.URL, truncateRunes(a.Snippet, snippetMaxRunes))
}

func PassageBlocks(passages []schema.Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = PassageBlock(p)
	}
	return out
}

func ArticleBlocks(articles []schema.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = ArticleBlock(a)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
