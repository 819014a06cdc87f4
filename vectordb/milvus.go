package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/childsafe-za/childsafe-rag/config"
)

// MilvusStore searches a pre-built Milvus collection. Ingestion into Milvus
// is not supported; the collection is populated out of band.
type MilvusStore struct {
	client     client.Client
	collection string
	mapping    config.MappingConfig
	metric     entity.MetricType
}

func NewMilvusStore(ctx context.Context, cfg *config.VectorDBConfig) (*MilvusStore, error) {
	addr := cfg.Host
	if cfg.Port > 0 && !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, cfg.Port)
	}
	c, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", addr, err)
	}
	return &MilvusStore{
		client:     c,
		collection: cfg.Collection,
		mapping:    cfg.Mapping,
		metric:     milvusMetric(cfg.Mapping.MetricType),
	}, nil
}

func milvusMetric(s string) entity.MetricType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}

func (m *MilvusStore) GetProviderType() string { return ProviderMilvus }

func (m *MilvusStore) Count(ctx context.Context) (int, error) {
	ok, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return 0, fmt.Errorf("milvus has collection: %w", err)
	}
	if !ok {
		return 0, ErrCollectionNotFound
	}
	stats, err := m.client.GetCollectionStatistics(ctx, m.collection)
	if err != nil {
		return 0, fmt.Errorf("milvus collection statistics: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("milvus row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func (m *MilvusStore) Query(ctx context.Context, vector []float32, k int) (*QueryResult, error) {
	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, err
	}
	outputFields := []string{m.mapping.ContentField}
	if m.mapping.MetadataField != "" {
		outputFields = append(outputFields, m.mapping.MetadataField)
	}
	results, err := m.client.Search(ctx, m.collection, nil, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)}, m.mapping.VectorField, m.metric, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	out := &QueryResult{}
	if len(results) == 0 {
		return out, nil
	}
	res := results[0]
	content := res.Fields.GetColumn(m.mapping.ContentField)
	var meta entity.Column
	if m.mapping.MetadataField != "" {
		meta = res.Fields.GetColumn(m.mapping.MetadataField)
	}
	for i := 0; i < res.ResultCount; i++ {
		id := ""
		if res.IDs != nil {
			if v, err := res.IDs.Get(i); err == nil {
				id = fmt.Sprint(v)
			}
		}
		doc := ""
		if content != nil {
			doc, _ = content.GetAsString(i)
		}
		var md map[string]any
		if meta != nil {
			if v, err := meta.Get(i); err == nil {
				md = decodeJSONMetadata(v)
			}
		}
		out.IDs = append(out.IDs, id)
		out.Documents = append(out.Documents, doc)
		out.Metadatas = append(out.Metadatas, md)
		dist := 1.0
		if i < len(res.Scores) {
			dist = m.distance(res.Scores[i])
		}
		out.Distances = append(out.Distances, dist)
	}
	return out, nil
}

// distance converts a milvus score into "smaller is closer" form.
func (m *MilvusStore) distance(score float32) float64 {
	if m.metric == entity.L2 {
		return float64(score)
	}
	return 1 - float64(score)
}

func (m *MilvusStore) Close() error {
	return m.client.Close()
}

func decodeJSONMetadata(v any) map[string]any {
	var raw []byte
	switch t := v.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	case map[string]any:
		return t
	default:
		return nil
	}
	var md map[string]any
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil
	}
	return md
}
