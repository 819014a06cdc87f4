package retriever

import (
	"context"

	"github.com/childsafe-za/childsafe-rag/schema"
)

// PassageRetriever searches the indexed annual reports.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, k int) *LocalResult
}

// ArticleFetcher fetches raw web results for a query. A non-empty notice
// explains why no articles were returned.
type ArticleFetcher interface {
	Fetch(ctx context.Context, query string, limit int) (articles []schema.Article, notice string)
}
