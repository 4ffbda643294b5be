package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// DefaultCollection is the Qdrant collection used for the post mirror.
const DefaultCollection = "campus_posts"

// pointNamespace derives stable point UUIDs from document ids.
var pointNamespace = uuid.MustParse("6f1c3a52-9a4e-4c1f-9d55-2b7d8c1e0a41")

// QdrantMirror keeps a copy of an artifact in Qdrant so search can run there
// instead of in-process. It uses Euclid distance to rank like FlatIndex.
type QdrantMirror struct {
	client     *qdrant.Client
	host       string
	port       int
	collection string
}

// NewQdrantMirror creates a Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantMirror(host string, port int, collection string) (*QdrantMirror, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	mirror := &QdrantMirror{
		client:     client,
		host:       host,
		port:       port,
		collection: collection,
	}

	if err := mirror.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return mirror, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (m *QdrantMirror) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return m.Health(ctx)
	}, backoff.WithContext(newBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (m *QdrantMirror) Health(ctx context.Context) error {
	result, err := m.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Collection returns the collection name.
func (m *QdrantMirror) Collection() string { return m.collection }

// EnsureCollection creates the collection for dim-sized vectors if it does not exist.
// Idempotent - safe to call multiple times.
func (m *QdrantMirror) EnsureCollection(ctx context.Context, dim int) error {
	collections, err := m.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == m.collection {
			return nil
		}
	}

	err = m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"doc_id", "source_url"} {
		_, err := m.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: m.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection. The mirror is always
// rebuilt wholesale, never updated incrementally.
func (m *QdrantMirror) ClearCollection(ctx context.Context, dim int) error {
	if err := m.client.DeleteCollection(ctx, m.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return m.EnsureCollection(ctx, dim)
}

// Close closes the Qdrant client connection.
func (m *QdrantMirror) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

func (m *QdrantMirror) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	return backoff.Retry(func() error {
		_, err := m.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: m.collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(newBackOff(), ctx))
}

// PointID returns the deterministic Qdrant id for a document id.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// Upsert copies every document and vector of the artifact, in batches of 100.
func (m *QdrantMirror) Upsert(ctx context.Context, a *Artifact) error {
	const batchSize = 100

	for i := 0; i < a.Len(); i += batchSize {
		end := min(i+batchSize, a.Len())

		points := make([]*qdrant.PointStruct, 0, end-i)
		for pos := i; pos < end; pos++ {
			doc := a.Documents[pos]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointID(doc.ID)),
				Vectors: qdrant.NewVectors(a.Index.Vector(pos)...),
				Payload: qdrant.NewValueMap(map[string]any{
					"position":      pos,
					"doc_id":        doc.ID,
					"text":          doc.Text,
					"source_url":    doc.Metadata.SourceURL,
					"title":         doc.Metadata.Title,
					"likes":         doc.Metadata.Likes,
					"comment_count": doc.Metadata.CommentCount,
					"scrap_count":   doc.Metadata.ScrapCount,
					"timestamp":     doc.Metadata.Timestamp,
					"comment_total": doc.Metadata.CommentTotal,
				}),
			})
		}

		if err := m.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Search queries the mirror. Qdrant reports Euclid distance; it is squared
// here so results are interchangeable with Artifact.Search.
func (m *QdrantMirror) Search(ctx context.Context, query []float32, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return []ScoredDocument{}, nil
	}

	points, err := m.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: m.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}

	results := make([]ScoredDocument, 0, len(points))
	for _, p := range points {
		payload := p.Payload
		results = append(results, ScoredDocument{
			Position: int(payload["position"].GetIntegerValue()),
			Document: Document{
				ID:   payload["doc_id"].GetStringValue(),
				Text: payload["text"].GetStringValue(),
				Metadata: Metadata{
					SourceURL:    payload["source_url"].GetStringValue(),
					Title:        payload["title"].GetStringValue(),
					Likes:        payload["likes"].GetStringValue(),
					CommentCount: payload["comment_count"].GetStringValue(),
					ScrapCount:   payload["scrap_count"].GetStringValue(),
					Timestamp:    payload["timestamp"].GetStringValue(),
					CommentTotal: int(payload["comment_total"].GetIntegerValue()),
				},
			},
			Distance: p.Score * p.Score,
		})
	}
	return results, nil
}

// Count returns the number of points in the collection.
func (m *QdrantMirror) Count(ctx context.Context) (uint64, error) {
	info, err := m.client.GetCollectionInfo(ctx, m.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}
	return info.GetPointsCount(), nil
}
