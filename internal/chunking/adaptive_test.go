package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveChunk_EmptyText(t *testing.T) {
	assert.Empty(t, AdaptiveChunk("   ", "node1", DefaultConfig(), nil))
}

func TestAdaptiveChunk_SingleSmallSection(t *testing.T) {
	chunks := AdaptiveChunk("Just a short paragraph of text.", "node1", DefaultConfig(), nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "node1", chunks[0].NodeID)
}

func TestAdaptiveChunk_SplitsAtHeadings(t *testing.T) {
	text := "# Introduction\nSome intro text.\n\n# Conclusion\nSome concluding text."
	cfg := Config{MinChunkSize: 1, MaxChunkSize: 40}
	chunks := AdaptiveChunk(text, "node1", cfg, nil)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), cfg.MaxChunkSize)
	}
}

func TestAdaptiveChunk_NeverExceedsMaxChunkSize(t *testing.T) {
	text := strings.Repeat("abcdefghij", 500) // one giant unbroken word
	cfg := Config{MinChunkSize: 50, MaxChunkSize: 100}
	chunks := AdaptiveChunk(text, "node1", cfg, nil)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), cfg.MaxChunkSize)
	}
}

func TestAdaptiveChunk_IndicesAreMonotonic(t *testing.T) {
	text := strings.Repeat("One sentence here. Another sentence follows. ", 100)
	cfg := Config{MinChunkSize: 100, MaxChunkSize: 300}
	chunks := AdaptiveChunk(text, "node1", cfg, nil)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestAdaptiveChunk_OffsetsAreWithinBounds(t *testing.T) {
	text := "Paragraph one has some words.\n\nParagraph two has more words here."
	chunks := AdaptiveChunk(text, "node1", DefaultConfig(), nil)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.StartOffset, 0)
		assert.LessOrEqual(t, c.EndOffset, len(text))
		assert.Less(t, c.StartOffset, c.EndOffset)
	}
}
