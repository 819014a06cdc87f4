package schema

import (
	"fmt"
	"strconv"
)

// Fixed answers returned when no usable grounding exists.
const (
	FallbackLocal = "No relevant information found in ChildSafe reports."
	FallbackWeb   = "No relevant ChildSafe South Africa information found."
)

// Intent is the branch selected for a query.
type Intent string

const (
	IntentLocal Intent = "local"
	IntentWeb   Intent = "web"
)

func (i Intent) String() string { return string(i) }

// PassageMetadata is the provenance stored with every indexed chunk.
type PassageMetadata struct {
	Source     string `json:"source,omitempty"`
	ReportYear string `json:"report_year,omitempty"`
	Page       *int   `json:"page,omitempty"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

// Passage is one retrieved report chunk.
type Passage struct {
	ID       string          `json:"id,omitempty"`
	Text     string          `json:"text"`
	Metadata PassageMetadata `json:"metadata"`
	Score    float64         `json:"score"`
}

// Article is one web search result, normalised across backends.
type Article struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Snippet    string  `json:"snippet"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// MetadataFromMap reads provenance from a vector store payload. Numeric
// fields may arrive as int, int64, float64 or string.
func MetadataFromMap(m map[string]any) PassageMetadata {
	var md PassageMetadata
	if m == nil {
		return md
	}
	if v, ok := m["source"]; ok && v != nil {
		md.Source = fmt.Sprint(v)
	}
	if v, ok := m["report_year"]; ok && v != nil {
		md.ReportYear = fmt.Sprint(v)
	}
	if n, ok := toInt(m["page"]); ok {
		md.Page = &n
	}
	if n, ok := toInt(m["chunk_size"]); ok {
		md.ChunkSize = n
	}
	if n, ok := toInt(m["chunk_index"]); ok {
		md.ChunkIndex = n
	}
	return md
}

// Map is the inverse of MetadataFromMap, used when indexing.
func (m PassageMetadata) Map() map[string]any {
	out := map[string]any{
		"source":      m.Source,
		"report_year": m.ReportYear,
		"chunk_size":  m.ChunkSize,
		"chunk_index": m.ChunkIndex,
	}
	if m.Page != nil {
		out["page"] = *m.Page
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
