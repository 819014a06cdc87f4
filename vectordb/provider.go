package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/config"
)

// ErrCollectionNotFound is returned when the configured collection does not exist.
var ErrCollectionNotFound = errors.New("vectordb: collection not found")

// QueryResult holds the nearest neighbours of one query vector, in
// ascending distance order. All slices have the same length.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]any
	Distances []float64
}

func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Documents)
}

// VectorStoreProvider is the read side used by retrieval.
type VectorStoreProvider interface {
	GetProviderType() string
	Count(ctx context.Context) (int, error)
	Query(ctx context.Context, vector []float32, k int) (*QueryResult, error)
	Close() error
}

// Record is one chunk to index.
type Record struct {
	ID        string
	Document  string
	Embedding []float32
	Metadata  map[string]any
}

// Indexer is the write side used by ingestion.
type Indexer interface {
	Reset(ctx context.Context) error
	Add(ctx context.Context, records []Record) error
}

const (
	ProviderChroma = "chroma"
	ProviderMilvus = "milvus"
	ProviderQdrant = "qdrant"
)

// NewVectorDBProvider opens the store named by cfg.Provider. client is used
// by REST-based stores and may be nil.
func NewVectorDBProvider(ctx context.Context, cfg *config.VectorDBConfig, client *httpx.Client) (VectorStoreProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderChroma, "":
		return NewChromaStore(cfg, client), nil
	case ProviderMilvus:
		return NewMilvusStore(ctx, cfg)
	case ProviderQdrant:
		return NewQdrantStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported vectordb provider: %s", cfg.Provider)
	}
}
