package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseJSONShape(t *testing.T) {
	t.Run("Should never emit articles for local responses", func(t *testing.T) {
		page := 5
		data, err := json.Marshal(LocalResponse{
			Query:     "who is childsafe",
			Answer:    "According to the 2019-2020 report (page 5) ChildSafe ...",
			Rewritten: "ChildSafe South Africa organisation overview",
			Documents: []string{"ChildSafe was founded ..."},
			Metadatas: []PassageMetadata{{ReportYear: "2019-2020", Page: &page}},
		})
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, "local", raw["mode"])
		assert.Contains(t, raw, "documents")
		assert.Contains(t, raw, "metadatas")
		assert.NotContains(t, raw, "articles")
		assert.NotContains(t, raw, "message")
	})

	t.Run("Should never emit documents for web responses", func(t *testing.T) {
		data, err := json.Marshal(WebResponse{Query: "latest news", Answer: FallbackWeb})
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, "web", raw["mode"])
		assert.Equal(t, []any{}, raw["articles"])
		assert.NotContains(t, raw, "documents")
		assert.NotContains(t, raw, "metadatas")
		assert.NotContains(t, raw, "rewritten")
	})

	t.Run("Should encode through the interface", func(t *testing.T) {
		var r Response = WebResponse{Query: "q", Answer: "a"}
		data, err := json.Marshal(map[string]Response{"results": r})
		require.NoError(t, err)
		assert.JSONEq(t, `{"results":{"query":"q","mode":"web","answer":"a","articles":[]}}`, string(data))
	})
}

func TestDecodeResponse(t *testing.T) {
	in := LocalResponse{Query: "q", Answer: FallbackLocal, Message: "No documents in collection"}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := DecodeResponse(data)
	require.NoError(t, err)
	local, ok := out.(LocalResponse)
	require.True(t, ok)
	assert.Equal(t, IntentLocal, local.Mode())
	assert.Equal(t, "No documents in collection", local.Message)

	_, err = DecodeResponse([]byte(`{"mode":"hybrid"}`))
	assert.Error(t, err)
}

func TestMetadataFromMap(t *testing.T) {
	md := MetadataFromMap(map[string]any{
		"source":      "data/2019-2020.pdf",
		"report_year": "2019-2020",
		"page":        float64(12),
		"chunk_size":  int64(800),
		"chunk_index": "3",
	})
	require.NotNil(t, md.Page)
	assert.Equal(t, 12, *md.Page)
	assert.Equal(t, 800, md.ChunkSize)
	assert.Equal(t, 3, md.ChunkIndex)
	assert.Equal(t, "2019-2020", md.ReportYear)

	empty := MetadataFromMap(nil)
	assert.Nil(t, empty.Page)
	assert.Empty(t, empty.ReportYear)

	assert.Equal(t, 12, md.Map()["page"])
}
