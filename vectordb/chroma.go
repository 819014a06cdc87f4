package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/config"
)

// ChromaStore talks to a Chroma server through its v2 REST API.
type ChromaStore struct {
	client     *httpx.Client
	baseURL    string
	tenant     string
	database   string
	collection string

	mu           sync.Mutex
	collectionID string
}

func NewChromaStore(cfg *config.VectorDBConfig, client *httpx.Client) *ChromaStore {
	if client == nil {
		client = httpx.NewFromConfig(nil)
	}
	base := strings.TrimRight(cfg.Host, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if cfg.Port > 0 {
		if u, err := url.Parse(base); err == nil && u.Port() == "" {
			u.Host = fmt.Sprintf("%s:%d", u.Hostname(), cfg.Port)
			base = u.String()
		}
	}
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "default_tenant"
	}
	database := cfg.Database
	if database == "" {
		database = "default_database"
	}
	return &ChromaStore{
		client:     client,
		baseURL:    base,
		tenant:     tenant,
		database:   database,
		collection: cfg.Collection,
	}
}

func (c *ChromaStore) GetProviderType() string { return ProviderChroma }

func (c *ChromaStore) collectionsPath() string {
	return fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections",
		url.PathEscape(c.tenant), url.PathEscape(c.database))
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// resolveID returns the collection id, looking it up by name when nothing is
// cached. cached reports whether the id came from a previous lookup.
func (c *ChromaStore) resolveID(ctx context.Context) (id string, cached bool, err error) {
	c.mu.Lock()
	id = c.collectionID
	c.mu.Unlock()
	if id != "" {
		return id, true, nil
	}
	var col chromaCollection
	if err := c.do(ctx, http.MethodGet, c.collectionsPath()+"/"+url.PathEscape(c.collection), nil, &col); err != nil {
		return "", false, err
	}
	c.setID(col.ID)
	return col.ID, false, nil
}

func (c *ChromaStore) setID(id string) {
	c.mu.Lock()
	c.collectionID = id
	c.mu.Unlock()
}

// forgetID drops the cached id if it is still stale.
func (c *ChromaStore) forgetID(stale string) {
	c.mu.Lock()
	if c.collectionID == stale {
		c.collectionID = ""
	}
	c.mu.Unlock()
}

// withCollection runs fn against the collection id. A cached id that the
// server no longer knows, because the collection was recreated by another
// process, is looked up again by name once.
func (c *ChromaStore) withCollection(ctx context.Context, fn func(id string) error) error {
	id, cached, err := c.resolveID(ctx)
	if err != nil {
		return err
	}
	err = fn(id)
	if !cached || !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	c.forgetID(id)
	if id, _, err = c.resolveID(ctx); err != nil {
		return err
	}
	return fn(id)
}

func (c *ChromaStore) Count(ctx context.Context) (int, error) {
	var n int
	err := c.withCollection(ctx, func(id string) error {
		return c.do(ctx, http.MethodGet, c.collectionsPath()+"/"+id+"/count", nil, &n)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]*float64       `json:"distances"`
}

func (c *ChromaStore) Query(ctx context.Context, vector []float32, k int) (*QueryResult, error) {
	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        k,
		Include:         []string{"documents", "metadatas", "distances"},
	}
	var resp chromaQueryResponse
	err := c.withCollection(ctx, func(id string) error {
		resp = chromaQueryResponse{}
		return c.do(ctx, http.MethodPost, c.collectionsPath()+"/"+id+"/query", req, &resp)
	})
	if err != nil {
		return nil, err
	}

	out := &QueryResult{}
	if len(resp.IDs) == 0 {
		return out, nil
	}
	ids := resp.IDs[0]
	for i := range ids {
		out.IDs = append(out.IDs, ids[i])
		out.Documents = append(out.Documents, nestedString(resp.Documents, i))
		out.Metadatas = append(out.Metadatas, nestedMap(resp.Metadatas, i))
		out.Distances = append(out.Distances, nestedFloat(resp.Distances, i))
	}
	return out, nil
}

// Reset drops the collection if present and creates it empty.
func (c *ChromaStore) Reset(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, c.collectionsPath()+"/"+url.PathEscape(c.collection), nil, nil)
	if err != nil && !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	c.setID("")

	var col chromaCollection
	body := map[string]any{"name": c.collection, "get_or_create": true}
	if err := c.do(ctx, http.MethodPost, c.collectionsPath(), body, &col); err != nil {
		return err
	}
	c.setID(col.ID)
	return nil
}

func (c *ChromaStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	body := struct {
		IDs        []string         `json:"ids"`
		Embeddings [][]float32      `json:"embeddings"`
		Documents  []string         `json:"documents"`
		Metadatas  []map[string]any `json:"metadatas"`
	}{}
	for _, r := range records {
		body.IDs = append(body.IDs, r.ID)
		body.Embeddings = append(body.Embeddings, r.Embedding)
		body.Documents = append(body.Documents, r.Document)
		body.Metadatas = append(body.Metadatas, r.Metadata)
	}
	return c.withCollection(ctx, func(id string) error {
		return c.do(ctx, http.MethodPost, c.collectionsPath()+"/"+id+"/add", body, nil)
	})
}

func (c *ChromaStore) Close() error { return nil }

func (c *ChromaStore) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chroma: marshal request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("chroma: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma: request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("chroma: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrCollectionNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && (apiErr.Error != "" || apiErr.Message != "") {
			return fmt.Errorf("chroma: %s (%d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("chroma: request failed with status %d", resp.StatusCode)
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("chroma: decode response: %w", err)
		}
	}
	return nil
}

func nestedString(v [][]*string, i int) string {
	if len(v) == 0 || i >= len(v[0]) || v[0][i] == nil {
		return ""
	}
	return *v[0][i]
}

func nestedMap(v [][]map[string]any, i int) map[string]any {
	if len(v) == 0 || i >= len(v[0]) {
		return nil
	}
	return v[0][i]
}

func nestedFloat(v [][]*float64, i int) float64 {
	if len(v) == 0 || i >= len(v[0]) || v[0][i] == nil {
		return 1
	}
	return *v[0][i]
}
