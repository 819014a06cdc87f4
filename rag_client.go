package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/crag"
	"github.com/childsafe-za/childsafe-rag/embedding"
	"github.com/childsafe-za/childsafe-rag/ingest"
	"github.com/childsafe-za/childsafe-rag/llm"
	"github.com/childsafe-za/childsafe-rag/metrics"
	"github.com/childsafe-za/childsafe-rag/orchestrator"
	"github.com/childsafe-za/childsafe-rag/post"
	"github.com/childsafe-za/childsafe-rag/retriever"
	"github.com/childsafe-za/childsafe-rag/router"
	"github.com/childsafe-za/childsafe-rag/schema"
	"github.com/childsafe-za/childsafe-rag/synthesizer"
	"github.com/childsafe-za/childsafe-rag/vectordb"
)

// RAGClient owns the providers and the query pipeline.
type RAGClient struct {
	config            *config.Config
	httpClient        *httpx.Client
	llmProvider       llm.Provider
	embeddingProvider embedding.Provider
	vectordbProvider  vectordb.VectorStoreProvider
	local             *retriever.LocalRetriever
	web               *retriever.WebSearcher
	orch              *orchestrator.Orchestrator
}

// NewRAGClient creates the providers described by cfg and wires the
// pipeline.
func NewRAGClient(ctx context.Context, cfg *config.Config) (*RAGClient, error) {
	c := &RAGClient{
		config:     cfg,
		httpClient: httpx.NewFromConfig(&cfg.HTTP),
	}

	llmProvider, err := llm.NewLLMProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider failed, err: %w", err)
	}
	c.llmProvider = llmProvider

	embeddingProvider, err := embedding.NewEmbeddingProvider(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}
	c.embeddingProvider = embedding.WithCache(embeddingProvider, cfg.Cache)

	store, err := vectordb.NewVectorDBProvider(ctx, &cfg.VectorDB, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("create vector store provider failed, err: %w", err)
	}
	c.vectordbProvider = store

	invoker := llm.NewPromptInvoker(llmProvider, llm.MustPrompts())
	invoker.Observe = func(kind llm.PromptKind, _ time.Duration, err error) {
		metrics.IncLMCall(string(kind), err)
	}

	routerProvider, err := router.NewRouter(cfg.Router, invoker)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create router failed, err: %w", err)
	}

	c.local = &retriever.LocalRetriever{Embed: c.embeddingProvider, Store: store}
	// Search backends use their own client and circuit state.
	c.web = retriever.NewWebSearcher(cfg.Search, httpx.NewFromConfig(&cfg.HTTP))

	c.orch = &orchestrator.Orchestrator{
		Router:        routerProvider,
		Rewriter:      crag.NewQueryRewriter(invoker),
		Local:         c.local,
		Web:           c.web,
		Filter:        c.web.Filter,
		Synth:         synthesizer.New(invoker, post.NewTokenCounter(cfg.RAG.TokenEncoding), cfg.RAG.MaxContextTokens),
		Validator:     crag.NewValidator(),
		MaxWebResults: cfg.Search.MaxResults,
		MaxTopK:       cfg.RAG.MaxTopK,
	}

	logger.Infof("rag: llm=%s embedding=%s vectordb=%s search=%s router=%s",
		llmProvider.GetProviderType(), embeddingProvider.GetProviderType(), store.GetProviderType(), cfg.Search.Mode, cfg.Router.Provider)
	return c, nil
}

// Query runs the full pipeline.
func (c *RAGClient) Query(ctx context.Context, query string, topK int) (schema.Response, error) {
	return c.orch.Run(ctx, query, topK)
}

// SearchReports returns the raw passages for query without synthesis.
func (c *RAGClient) SearchReports(ctx context.Context, query string, topK int) *retriever.LocalResult {
	if limit := c.config.RAG.MaxTopK; limit > 0 && topK > limit {
		topK = limit
	}
	return c.local.Retrieve(ctx, query, topK)
}

// SearchArticles returns the filtered web results and a markdown digest.
func (c *RAGClient) SearchArticles(ctx context.Context, query string) *retriever.SearchOutcome {
	return c.web.Search(ctx, query, c.config.Search.MaxResults)
}

// NewIndexer builds the ingestion indexer for the configured store without
// creating a language model client. The caller closes the returned store.
func NewIndexer(ctx context.Context, cfg *config.Config) (*ingest.Indexer, vectordb.VectorStoreProvider, error) {
	embeddingProvider, err := embedding.NewEmbeddingProvider(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}
	store, err := vectordb.NewVectorDBProvider(ctx, &cfg.VectorDB, httpx.NewFromConfig(&cfg.HTTP))
	if err != nil {
		return nil, nil, fmt.Errorf("create vector store provider failed, err: %w", err)
	}
	w, ok := store.(vectordb.Indexer)
	if !ok {
		store.Close()
		return nil, nil, fmt.Errorf("vector store %s does not support ingestion", store.GetProviderType())
	}
	return ingest.NewIndexer(embeddingProvider, w, cfg.RAG.Splitter, cfg.Ingest.MinChunkChars), store, nil
}

// NewDownloader returns a report downloader using the outbound HTTP settings.
func NewDownloader(cfg *config.Config) *ingest.Downloader {
	return ingest.NewDownloader(httpx.NewFromConfig(&cfg.HTTP), cfg.Ingest.DataDir)
}

func (c *RAGClient) Close() error {
	if c.vectordbProvider == nil {
		return nil
	}
	return c.vectordbProvider.Close()
}
