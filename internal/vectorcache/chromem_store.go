package vectorcache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const chromemCollectionName = "retrieval_cache"

// dummyVector is handed to every document and every query: lookups are
// always routed through the "key" metadata filter, never similarity
// ranking, so the vector's direction never matters.
var dummyVector = []float32{1}

// ChromemStore is the default, zero-external-dependency cache backend: an
// in-process chromem-go collection, with exact-key lookups done through
// Query's metadata where-filter rather than general similarity search.
type ChromemStore struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewChromemStore constructs an in-memory (non-persistent) chromem-go
// backed cache. Losing the cache on restart is acceptable: it is never a
// source of truth.
func NewChromemStore(logger *zap.Logger) (*ChromemStore, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(chromemCollectionName, nil, dummyEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("creating retrieval cache collection: %w", err)
	}
	return &ChromemStore{db: db, collection: collection, logger: logger}, nil
}

func dummyEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return dummyVector, nil
}

func (s *ChromemStore) Get(key string) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection.Count() == 0 {
		return nil, false, nil
	}

	results, err := s.collection.Query(context.Background(), "", 1, map[string]string{"key": key}, nil)
	if err != nil || len(results) == 0 {
		return nil, false, nil
	}

	doc := results[0]
	expiresAt, parseErr := strconv.ParseInt(doc.Metadata["expiresAt"], 10, 64)
	if parseErr == nil && time.Now().Unix() > expiresAt {
		_ = s.collection.Delete(context.Background(), nil, nil, doc.ID)
		return nil, false, nil
	}

	entry, err := unmarshalEntry([]byte(doc.Content))
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached entry: %w", err)
	}
	return entry, true, nil
}

func (s *ChromemStore) Put(key string, entry *Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := marshalEntry(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	// chromem-go documents are immutable once added; drop any existing
	// entry under this key before re-adding.
	_ = s.collection.Delete(context.Background(), nil, nil, key)

	doc := chromem.Document{
		ID:      key,
		Content: string(payload),
		Metadata: map[string]string{
			"key":       key,
			"expiresAt": strconv.FormatInt(time.Now().Add(ttl).Unix(), 10),
		},
		Embedding: dummyVector,
	}
	if err := s.collection.AddDocuments(context.Background(), []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

func (s *ChromemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(chromemCollectionName); err != nil {
		return fmt.Errorf("clearing retrieval cache: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(chromemCollectionName, nil, dummyEmbeddingFunc)
	if err != nil {
		return fmt.Errorf("recreating retrieval cache collection: %w", err)
	}
	s.collection = collection
	return nil
}
