// Package synthesizer turns retrieved context into a prompt-grounded answer.
package synthesizer

import (
	"context"
	"strings"

	"github.com/childsafe-za/childsafe-rag/llm"
	"github.com/childsafe-za/childsafe-rag/post"
	"github.com/childsafe-za/childsafe-rag/schema"
)

// Synthesizer renders context blocks within the token budget and asks the
// language model for an answer. Model errors are returned unchanged.
type Synthesizer struct {
	LM        llm.Invoker
	Counter   post.TokenCounter
	MaxTokens int
}

func New(lm llm.Invoker, counter post.TokenCounter, maxTokens int) *Synthesizer {
	return &Synthesizer{LM: lm, Counter: counter, MaxTokens: maxTokens}
}

// ReportContext builds the passages section of the answer prompt.
func (s *Synthesizer) ReportContext(passages []schema.Passage) string {
	blocks, _ := post.FitBlocks(PassageBlocks(passages), blockSeparator, s.MaxTokens, s.Counter)
	return strings.Join(blocks, blockSeparator)
}

// ArticleContext builds the articles section of the summary prompt.
func (s *Synthesizer) ArticleContext(articles []schema.Article) string {
	blocks, _ := post.FitBlocks(ArticleBlocks(articles), blockSeparator, s.MaxTokens, s.Counter)
	return strings.Join(blocks, blockSeparator)
}

// AnswerFromReports answers query strictly from the given passages.
func (s *Synthesizer) AnswerFromReports(ctx context.Context, query string, passages []schema.Passage) (string, error) {
	answer, err := s.LM.Invoke(ctx, llm.KindAnswer, map[string]string{
		"query": query,
		"docs":  s.ReportContext(passages),
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

// SummarizeArticles summarises the relevant web articles.
func (s *Synthesizer) SummarizeArticles(ctx context.Context, query string, articles []schema.Article) (string, error) {
	answer, err := s.LM.Invoke(ctx, llm.KindSummary, map[string]string{
		"query":    query,
		"articles": s.ArticleContext(articles),
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}
