package vectorcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChromemStore_PutThenGet_ReturnsEntry(t *testing.T) {
	s, err := NewChromemStore(zap.NewNop())
	require.NoError(t, err)

	entry := &Entry{Hits: []Hit{{Rank: 1, DocumentID: "doc-1", ChunkText: "hello world", Score: 0.8}}, CachedAt: time.Now()}
	key := Key("hello", "filter-a", 5, 0.5)

	require.NoError(t, s.Put(key, entry, time.Minute))

	got, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Hits, got.Hits)
}

func TestChromemStore_Get_MissingKeyIsNotFoundNotError(t *testing.T) {
	s, err := NewChromemStore(zap.NewNop())
	require.NoError(t, err)

	_, ok, err := s.Get(Key("nothing here", "filter-a", 5, 0.5))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChromemStore_Get_ExpiredEntryIsNotFound(t *testing.T) {
	s, err := NewChromemStore(zap.NewNop())
	require.NoError(t, err)

	key := Key("stale query", "filter-a", 5, 0.5)
	require.NoError(t, s.Put(key, &Entry{Hits: []Hit{{Rank: 1}}}, -time.Minute))

	_, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChromemStore_Clear_RemovesAllEntries(t *testing.T) {
	s, err := NewChromemStore(zap.NewNop())
	require.NoError(t, err)

	key := Key("clearable", "filter-a", 5, 0.5)
	require.NoError(t, s.Put(key, &Entry{Hits: []Hit{{Rank: 1}}}, time.Minute))

	require.NoError(t, s.Clear())

	_, ok, err := s.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}
