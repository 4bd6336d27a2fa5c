package chunking

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

// FixedWindowChunker splits text into overlapping fixed-size windows. It
// is the fallback used when adaptive splitting is not wanted (e.g. content
// with no natural sentence/paragraph structure, such as source code or
// log dumps).
type FixedWindowChunker struct {
	chunkSize int
	overlap   int
}

// NewFixedWindowChunker constructs a chunker. overlap must be strictly
// less than chunkSize: an equal or larger overlap would make start never
// advance, looping forever.
func NewFixedWindowChunker(chunkSize, overlap int) (*FixedWindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunkSize must be > 0")
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be >= 0")
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be < chunkSize to avoid infinite loops: overlap=%d chunkSize=%d", overlap, chunkSize)
	}
	return &FixedWindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into fixed windows, snapping each window's end to
// the nearest preceding space so words aren't split when avoidable.
func (c *FixedWindowChunker) Chunk(text, nodeID string) []model.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []model.Chunk
	start := 0
	index := 0

	for start < len(text) {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			if lastSpace := strings.LastIndex(text[start:end], " "); lastSpace >= 0 {
				candidate := start + lastSpace
				if candidate > start {
					end = candidate
				}
			}
		}

		chunkText := strings.TrimSpace(text[start:end])
		if chunkText != "" {
			chunks = append(chunks, model.Chunk{
				NodeID:      nodeID,
				Text:        chunkText,
				Index:       index,
				StartOffset: start,
				EndOffset:   end,
			})
			index++
		}

		next := end - c.overlap
		if len(chunks) > 0 && next <= chunks[len(chunks)-1].StartOffset {
			next = end
		}
		start = next
	}

	return chunks
}
