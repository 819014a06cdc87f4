package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/childsafe-za/childsafe-rag/config"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

func newTestStore(t *testing.T, h http.Handler) *ChromaStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewChromaStore(&config.VectorDBConfig{Host: srv.URL, Collection: "childsafe_reports"}, nil)
}

func TestChromaStoreQuery(t *testing.T) {
	var queryBody chromaQueryRequest
	mux := http.NewServeMux()
	mux.HandleFunc(collectionsPath+"/childsafe_reports", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "c-1", "name": "childsafe_reports"})
	})
	mux.HandleFunc(collectionsPath+"/c-1/count", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("42"))
	})
	mux.HandleFunc(collectionsPath+"/c-1/query", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&queryBody))
		_, _ = w.Write([]byte(`{
			"ids": [["2019-2020-4-0", "2019-2020-4-1"]],
			"documents": [["ChildSafe was founded", null]],
			"metadatas": [[{"report_year": "2019-2020", "page": 4}, null]],
			"distances": [[0.12, 0.4]]
		}`))
	})
	store := newTestStore(t, mux)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	res, err := store.Query(context.Background(), []float32{0.1, 0.2}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, queryBody.NResults)
	assert.Equal(t, []string{"documents", "metadatas", "distances"}, queryBody.Include)

	require.Equal(t, 2, res.Len())
	assert.Equal(t, "ChildSafe was founded", res.Documents[0])
	assert.Equal(t, "", res.Documents[1])
	assert.Equal(t, "2019-2020", res.Metadatas[0]["report_year"])
	assert.Nil(t, res.Metadatas[1])
	assert.InDelta(t, 0.12, res.Distances[0], 1e-9)
}

func TestChromaStoreMissingCollection(t *testing.T) {
	store := newTestStore(t, http.NotFoundHandler())
	_, err := store.Count(context.Background())
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromaStoreRecreatedCollection(t *testing.T) {
	var current atomic.Value
	current.Store("c-1")
	mux := http.NewServeMux()
	mux.HandleFunc(collectionsPath+"/childsafe_reports", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": current.Load(), "name": "childsafe_reports"})
	})
	count := func(id, n string) {
		mux.HandleFunc(collectionsPath+"/"+id+"/count", func(w http.ResponseWriter, r *http.Request) {
			if current.Load() != id {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(n))
		})
	}
	count("c-1", "10")
	count("c-2", "7")
	mux.HandleFunc(collectionsPath+"/c-2/query", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ids": [["2019-2020-4-0"]], "documents": [["ChildSafe"]], "distances": [[0.2]]}`))
	})
	store := newTestStore(t, mux)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	current.Store("c-2")

	for i := 0; i < 2; i++ {
		n, err = store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	}
	res, err := store.Query(context.Background(), []float32{0.1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
}

func TestChromaStoreReset(t *testing.T) {
	var calls []string
	var added struct {
		IDs       []string         `json:"ids"`
		Metadatas []map[string]any `json:"metadatas"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc(collectionsPath+"/childsafe_reports", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" name")
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc(collectionsPath, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" collections")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "childsafe_reports", body["name"])
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "c-2"})
	})
	mux.HandleFunc(collectionsPath+"/c-2/add", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" add")
		_ = json.NewDecoder(r.Body).Decode(&added)
		w.WriteHeader(http.StatusCreated)
	})
	store := newTestStore(t, mux)

	require.NoError(t, store.Reset(context.Background()))
	require.NoError(t, store.Add(context.Background(), []Record{{
		ID:        "2019-2020-0-0",
		Document:  "text",
		Embedding: []float32{1},
		Metadata:  map[string]any{"report_year": "2019-2020"},
	}}))

	assert.Equal(t, []string{"DELETE name", "POST collections", "POST add"}, calls)
	assert.Equal(t, []string{"2019-2020-0-0"}, added.IDs)
}

func TestNewChromaStoreBaseURL(t *testing.T) {
	s := NewChromaStore(&config.VectorDBConfig{Host: "chroma", Port: 8000}, nil)
	assert.Equal(t, "http://chroma:8000", s.baseURL)

	s = NewChromaStore(&config.VectorDBConfig{Host: "http://localhost:8000/"}, nil)
	assert.Equal(t, "http://localhost:8000", s.baseURL)
}
