package vectorcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/sanitize"
)

const (
	qdrantCacheCollectionPrefix = "retrieval_cache_"
	qdrantCacheVectorSize       = 1
)

// QdrantStore is the shared-across-replicas cache backend: a single Qdrant
// collection addressed by a deterministic point ID derived from the cache
// key, so every replica hits the same point. Ranking is irrelevant here;
// lookups go through a payload filter on "key", exactly like the chromem
// backend's metadata where-filter.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// QdrantConfig configures the shared cache backend. Collection, if set,
// overrides the name derived from RepositoryID.
type QdrantConfig struct {
	Host         string
	Port         int
	UseTLS       bool
	RepositoryID string
	Collection   string
}

// NewQdrantStore connects to Qdrant and ensures the cache collection
// exists, creating it with a throwaway single-dimension vector config
// since this store never ranks by similarity. The collection is scoped
// to RepositoryID (sanitized the same way vector store collection names
// are) so that replicas caching different repositories never collide.
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = qdrantCacheCollectionPrefix + sanitize.Identifier(cfg.RepositoryID)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	store := &QdrantStore{client: client, collection: collection, logger: logger}
	if err := store.ensureCollection(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	if _, err := s.client.GetCollectionInfo(ctx, s.collection); err == nil {
		return nil
	}
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     qdrantCacheVectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating retrieval cache collection: %w", err)
	}
	return nil
}

// pointID derives a deterministic UUID from the cache key so repeated
// Get/Put calls, possibly from different replicas, address the same point.
func pointID(key string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewMD5(uuid.Nil, []byte(key)).String())
}

func (s *QdrantStore) Get(key string) (*Entry, bool, error) {
	ctx := context.Background()

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(make([]float32, qdrantCacheVectorSize)...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   "key",
							Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: key}},
						},
					},
				},
			},
		},
	})
	if err != nil || len(results) == 0 {
		return nil, false, nil
	}

	payload := results[0].Payload
	expiresAt, parseErr := strconv.ParseInt(stringValue(payload["expiresAt"]), 10, 64)
	if parseErr == nil && time.Now().Unix() > expiresAt {
		_ = s.delete(ctx, key)
		return nil, false, nil
	}

	entry, err := unmarshalEntry([]byte(stringValue(payload["content"])))
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached entry: %w", err)
	}
	return entry, true, nil
}

func (s *QdrantStore) Put(key string, entry *Entry, ttl time.Duration) error {
	ctx := context.Background()

	payload, err := marshalEntry(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      pointID(key),
		Vectors: qdrant.NewVectors(make([]float32, qdrantCacheVectorSize)...),
		Payload: map[string]*qdrant.Value{
			"key":       {Kind: &qdrant.Value_StringValue{StringValue: key}},
			"content":   {Kind: &qdrant.Value_StringValue{StringValue: string(payload)}},
			"expiresAt": {Kind: &qdrant.Value_StringValue{StringValue: strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)}},
		},
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

func (s *QdrantStore) delete(ctx context.Context, key string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{pointID(key)}},
			},
		},
	})
	return err
}

// Clear drops and recreates the cache collection; there is no bulk
// delete-all-points call on this client, and dropping the collection
// achieves the same full reset.
func (s *QdrantStore) Clear() error {
	ctx := context.Background()
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("clearing retrieval cache: %w", err)
	}
	return s.ensureCollection(ctx)
}

func stringValue(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
		return sv.StringValue
	}
	return ""
}
