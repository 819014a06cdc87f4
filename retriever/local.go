package retriever

import (
	"context"
	"errors"
	"math"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/embedding"
	"github.com/childsafe-za/childsafe-rag/schema"
	"github.com/childsafe-za/childsafe-rag/vectordb"
)

// LocalResult is the outcome of a report search. Error is set instead of
// returning a Go error so that store problems degrade the response.
type LocalResult struct {
	Query     string           `json:"query"`
	Passages  []schema.Passage `json:"-"`
	TotalDocs int              `json:"total_docs"`
	Error     string           `json:"error,omitempty"`
}

// Documents returns the passage texts in rank order.
func (r *LocalResult) Documents() []string {
	out := make([]string, len(r.Passages))
	for i, p := range r.Passages {
		out[i] = p.Text
	}
	return out
}

func (r *LocalResult) Metadatas() []schema.PassageMetadata {
	out := make([]schema.PassageMetadata, len(r.Passages))
	for i, p := range r.Passages {
		out[i] = p.Metadata
	}
	return out
}

func (r *LocalResult) Scores() []float64 {
	out := make([]float64, len(r.Passages))
	for i, p := range r.Passages {
		out[i] = p.Score
	}
	return out
}

func (r *LocalResult) IDs() []string {
	out := make([]string, len(r.Passages))
	for i, p := range r.Passages {
		out[i] = p.ID
	}
	return out
}

// LocalRetriever embeds the query and searches the vector store.
type LocalRetriever struct {
	Embed embedding.Provider
	Store vectordb.VectorStoreProvider
}

func (r *LocalRetriever) Type() string { return "local" }

func (r *LocalRetriever) Retrieve(ctx context.Context, query string, k int) *LocalResult {
	res := &LocalResult{Query: query, Passages: []schema.Passage{}}
	if k <= 0 {
		return res
	}

	count, err := r.Store.Count(ctx)
	if err != nil {
		if errors.Is(err, vectordb.ErrCollectionNotFound) {
			logger.Warnf("retriever: collection not found")
		} else {
			logger.Warnf("retriever: count failed: %v", err)
		}
		res.Error = err.Error()
		return res
	}
	res.TotalDocs = count
	if count == 0 {
		res.Error = "No documents in collection"
		return res
	}
	if k > count {
		k = count
	}

	vec, err := r.Embed.GetEmbedding(ctx, query)
	if err != nil {
		logger.Warnf("retriever: embedding failed: %v", err)
		res.Error = err.Error()
		return res
	}

	qr, err := r.Store.Query(ctx, vec, k)
	if err != nil {
		logger.Warnf("retriever: %s query failed: %v", r.Store.GetProviderType(), err)
		res.Error = err.Error()
		return res
	}

	for i := 0; i < qr.Len(); i++ {
		p := schema.Passage{Text: qr.Documents[i]}
		if i < len(qr.IDs) {
			p.ID = qr.IDs[i]
		}
		if i < len(qr.Metadatas) {
			p.Metadata = schema.MetadataFromMap(qr.Metadatas[i])
		}
		if i < len(qr.Distances) {
			p.Score = ScoreFromDistance(qr.Distances[i])
		}
		res.Passages = append(res.Passages, p)
	}
	logger.Debugf("retriever: %d/%d passages for %q", len(res.Passages), count, query)
	return res
}

// ScoreFromDistance maps a store distance to a similarity in [0, 1].
func ScoreFromDistance(d float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	s := 1 - math.Min(d, 1)
	if s > 1 {
		return 1
	}
	return s
}
