package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/childsafe-za/childsafe-rag/config"
)

// QdrantStore searches a Qdrant collection over gRPC. Points carry the
// chunk text under the content field and provenance as flat payload keys.
type QdrantStore struct {
	conn       *grpc.ClientConn
	points     qdrant.PointsClient
	collection string
	content    string
}

func NewQdrantStore(cfg *config.VectorDBConfig) (*QdrantStore, error) {
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.Host, "http://"), "https://")
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	addr := host
	if !strings.Contains(host, ":") {
		addr = fmt.Sprintf("%s:%d", host, port)
	}
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}
	content := cfg.Mapping.ContentField
	if content == "" {
		content = "content"
	}
	return &QdrantStore{
		conn:       conn,
		points:     qdrant.NewPointsClient(conn),
		collection: cfg.Collection,
		content:    content,
	}, nil
}

func (q *QdrantStore) GetProviderType() string { return ProviderQdrant }

func (q *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := q.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, ErrCollectionNotFound
		}
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (q *QdrantStore) Query(ctx context.Context, vector []float32, k int) (*QueryResult, error) {
	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	out := &QueryResult{}
	for _, point := range resp.GetResult() {
		md := make(map[string]any, len(point.Payload))
		doc := ""
		for key, val := range point.Payload {
			if key == q.content {
				doc = val.GetStringValue()
				continue
			}
			if v := payloadValue(val); v != nil {
				md[key] = v
			}
		}
		out.IDs = append(out.IDs, pointID(point.GetId()))
		out.Documents = append(out.Documents, doc)
		out.Metadatas = append(out.Metadatas, md)
		out.Distances = append(out.Distances, 1-float64(point.GetScore()))
	}
	return out, nil
}

func (q *QdrantStore) Close() error {
	return q.conn.Close()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprint(id.GetNum())
}

func payloadValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}
