package crag

import (
	"context"
	"strings"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/llm"
)

// QueryRewriter rewrites queries to be more precise for document search.
type QueryRewriter struct {
	LM llm.Invoker
}

func NewQueryRewriter(lm llm.Invoker) *QueryRewriter {
	return &QueryRewriter{LM: lm}
}

// Rewrite returns the rewritten query, or the original when the model fails
// or returns nothing.
func (r *QueryRewriter) Rewrite(ctx context.Context, originalQuery string) string {
	if r.LM == nil {
		logger.Warnf("QueryRewriter: no LLM provider, returning original query")
		return originalQuery
	}

	response, err := r.LM.Invoke(ctx, llm.KindRewrite, map[string]string{"query": originalQuery})
	if err != nil {
		logger.Warnf("QueryRewriter: failed to rewrite query: %v, using original", err)
		return originalQuery
	}

	rewritten := strings.TrimSpace(response)
	if rewritten == "" {
		logger.Warnf("QueryRewriter: empty rewrite, using original")
		return originalQuery
	}

	logger.Infof("QueryRewriter: '%s' -> '%s'", originalQuery, rewritten)
	return rewritten
}
