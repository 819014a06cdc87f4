package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/schema"
)

// Fixed notices returned in place of articles.
const (
	NoticeUnconfigured   = "No search API keys configured. Please set SERPAPI_API_KEY or TAVILY_API_KEY."
	NoticeNoArticles     = "No relevant articles found."
	NoticeNoSearchResult = "No search results found."
	noticeErrorPrefix    = "Search error: "
)

// SearchOutcome is the direct-caller view of a web search: the relevant
// articles and a markdown digest of them, or a notice.
type SearchOutcome struct {
	Query    string           `json:"query"`
	Answer   string           `json:"answer"`
	Articles []schema.Article `json:"articles"`
}

// WebSearcher wraps the configured backend with query augmentation, error
// conversion and the relevance filter.
type WebSearcher struct {
	Backend Backend // nil when no credentials are configured
	Filter  *RelevanceFilter
	// DomainContext is appended to queries that do not mention the organisation.
	DomainContext string
	Augment       bool
}

// NewWebSearcher builds a searcher for the configured mode.
func NewWebSearcher(cfg config.SearchConfig, client *httpx.Client) *WebSearcher {
	w := &WebSearcher{
		Filter:        NewRelevanceFilter(cfg.Keywords),
		DomainContext: cfg.DomainContext,
		Augment:       cfg.AugmentQuery,
	}
	if b := NewBackend(cfg, client); b != nil {
		w.Backend = b
		logger.Infof("web: using %s search backend", b.Name())
	} else {
		logger.Warnf("web: search mode %q has no credentials, web queries will return a notice", cfg.Mode)
	}
	return w
}

func (w *WebSearcher) Type() string { return "web" }

// BackendName names the active search backend, or "none".
func (w *WebSearcher) BackendName() string {
	if w.Backend == nil {
		return "none"
	}
	return w.Backend.Name()
}

// AugmentQuery appends the domain context unless the query already
// mentions the organisation.
func (w *WebSearcher) AugmentQuery(query string) string {
	if !w.Augment || w.DomainContext == "" {
		return query
	}
	if w.filter().Matches(query) {
		return query
	}
	return strings.TrimSpace(query) + " " + w.DomainContext
}

var defaultFilter = NewRelevanceFilter(nil)

func (w *WebSearcher) filter() *RelevanceFilter {
	if w.Filter == nil {
		return defaultFilter
	}
	return w.Filter
}

// Fetch returns unfiltered backend results. Failures never escape as errors;
// they are reported through notice.
func (w *WebSearcher) Fetch(ctx context.Context, query string, limit int) ([]schema.Article, string) {
	if w.Backend == nil {
		logger.Warnf("web: no search backend configured")
		return []schema.Article{}, NoticeUnconfigured
	}
	q := w.AugmentQuery(query)
	articles, err := w.Backend.Search(ctx, q, limit)
	if err != nil {
		notice := noticeFor(err)
		logger.Warnf("web: %s search for %q failed: %v", w.Backend.Name(), q, err)
		return []schema.Article{}, notice
	}
	logger.Debugf("web: %s returned %d results for %q", w.Backend.Name(), len(articles), q)
	return articles, ""
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, ErrNoArticles):
		return NoticeNoArticles
	case errors.Is(err, ErrNoOrganicResults):
		return NoticeNoSearchResult
	default:
		return noticeErrorPrefix + err.Error()
	}
}

// Search fetches, filters and formats results for callers that do not want
// a synthesised summary.
func (w *WebSearcher) Search(ctx context.Context, query string, limit int) *SearchOutcome {
	out := &SearchOutcome{Query: query, Articles: []schema.Article{}}
	articles, notice := w.Fetch(ctx, query, limit)
	if notice != "" {
		out.Answer = notice
		return out
	}
	relevant := w.filter().Filter(articles)
	if len(relevant) == 0 {
		out.Answer = schema.FallbackWeb
		return out
	}
	out.Articles = relevant
	out.Answer = w.formatDigest(relevant)
	return out
}

func (w *WebSearcher) formatDigest(articles []schema.Article) string {
	_, tavily := w.Backend.(*TavilyBackend)
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		title := a.Title
		if title == "" {
			title = "Untitled"
		}
		if tavily {
			parts = append(parts, fmt.Sprintf("**%s**\n%s...\n[Read more](%s)", title, truncateRunes(a.Snippet, 200), a.URL))
		} else {
			parts = append(parts, fmt.Sprintf("**%s**\n%s\n[Read more](%s)", title, a.Snippet, a.URL))
		}
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
