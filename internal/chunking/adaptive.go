package chunking

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

// Config bounds the adaptive chunker's output chunk sizes, in characters
// of the (noise-reduced) source text.
type Config struct {
	MinChunkSize int
	MaxChunkSize int
}

const (
	defaultMinChunkSize = 200
	defaultMaxChunkSize = 2000
)

// DefaultConfig returns the chunking defaults used when the caller does
// not override them.
func DefaultConfig() Config {
	return Config{MinChunkSize: defaultMinChunkSize, MaxChunkSize: defaultMaxChunkSize}
}

// AdaptiveChunk splits text into chunks of at most cfg.MaxChunkSize
// characters, preferring to break on section, then paragraph, then
// sentence boundaries before falling back to a hard character split.
// No chunk will ever exceed MaxChunkSize, even for pathological input
// (e.g. one giant word with no whitespace).
func AdaptiveChunk(text, nodeID string, cfg Config, logger *zap.Logger) []model.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	segments := splitSections(text)
	if hasOversizedSegments(segments, cfg.MaxChunkSize) {
		segments = splitRecursive(segments, cfg.MaxChunkSize, logger)
	}

	grouped := groupWithHardLimit(segments, cfg, logger)
	return toChunks(grouped, nodeID)
}

func hasOversizedSegments(segments []textSegment, maxSize int) bool {
	for _, seg := range segments {
		if seg.length() > maxSize {
			return true
		}
	}
	return false
}

// splitRecursive refines any oversized segment: paragraphs, then
// sentences, then a hard split, stopping at the first level that fits.
func splitRecursive(segments []textSegment, maxSize int, logger *zap.Logger) []textSegment {
	var result []textSegment

	for _, segment := range segments {
		if segment.length() <= maxSize {
			result = append(result, segment)
			continue
		}

		if paragraphs := splitParagraphs(segment.text); len(paragraphs) > 1 && !hasOversizedSegments(paragraphs, maxSize) {
			result = append(result, rebase(paragraphs, segment.startOffset)...)
			continue
		}

		if sentences := splitSentences(segment.text); len(sentences) > 1 && !hasOversizedSegments(sentences, maxSize) {
			result = append(result, rebase(sentences, segment.startOffset)...)
			continue
		}

		if logger != nil {
			logger.Warn("oversized segment requires hard splitting",
				zap.Int("length", segment.length()), zap.Int("maxChunkSize", maxSize))
		}
		result = append(result, hardSplit(segment.text, segment.startOffset, maxSize)...)
	}

	return result
}

// rebase shifts segments produced by splitting a sub-string back into
// the coordinate space of the original document.
func rebase(segments []textSegment, base int) []textSegment {
	out := make([]textSegment, len(segments))
	for i, seg := range segments {
		out[i] = textSegment{
			text:        seg.text,
			startOffset: base + seg.startOffset,
			endOffset:   base + seg.endOffset,
		}
	}
	return out
}

// hardSplit is the last-resort splitter: cut every maxSize characters,
// preferring the last space in the back half of the window so words
// aren't split mid-token when avoidable.
func hardSplit(text string, base, maxSize int) []textSegment {
	var segments []textSegment
	offset := 0
	n := len(text)

	for offset < n {
		end := offset + maxSize
		if end > n {
			end = n
		}
		if end < n {
			if lastSpace := strings.LastIndex(text[offset:end], " "); lastSpace >= 0 {
				candidate := offset + lastSpace
				if candidate > offset+maxSize/2 {
					end = candidate
				}
			}
		}

		chunk := strings.TrimSpace(text[offset:end])
		if chunk != "" {
			segments = append(segments, textSegment{text: chunk, startOffset: base + offset, endOffset: base + end})
		}
		offset = end
	}

	return segments
}

// groupWithHardLimit merges consecutive segments up to MaxChunkSize,
// always flushing once the accumulator reaches MinChunkSize and the
// next segment would overflow, and always isolating any segment that
// is itself oversized (after a defensive re-split).
func groupWithHardLimit(segments []textSegment, cfg Config, logger *zap.Logger) []textSegment {
	var grouped []textSegment
	var current strings.Builder
	currentStart := -1
	currentEnd := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		grouped = append(grouped, textSegment{
			text:        strings.TrimSpace(current.String()),
			startOffset: currentStart,
			endOffset:   currentEnd,
		})
		current.Reset()
		currentStart = -1
	}

	for _, segment := range segments {
		if segment.length() > cfg.MaxChunkSize {
			flush()
			grouped = append(grouped, splitRecursive([]textSegment{segment}, cfg.MaxChunkSize, logger)...)
			continue
		}

		if current.Len()+segment.length()+1 > cfg.MaxChunkSize && current.Len() >= cfg.MinChunkSize {
			flush()
		}

		if currentStart < 0 {
			currentStart = segment.startOffset
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(segment.text)
		currentEnd = segment.endOffset
	}
	flush()

	return grouped
}

func toChunks(segments []textSegment, nodeID string) []model.Chunk {
	chunks := make([]model.Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, model.Chunk{
			NodeID:      nodeID,
			Text:        seg.text,
			Index:       i,
			StartOffset: seg.startOffset,
			EndOffset:   seg.endOffset,
		})
	}
	return chunks
}
