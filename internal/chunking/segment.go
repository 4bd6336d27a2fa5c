package chunking

import (
	"regexp"
	"strings"
)

// textSegment is a slice of text with its position in the original
// (post-noise-reduction) document.
type textSegment struct {
	text        string
	startOffset int
	endOffset   int
}

func (s textSegment) length() int { return len(s.text) }

var (
	sentenceBoundaryPattern = regexp.MustCompile(`(?:[.!?]\s+(?=[A-Z]))|(?:\n\s*)|(?:;\s+)`)
	paragraphBoundaryPattern = regexp.MustCompile(`\n\s*\n`)
	sectionHeadingPattern = regexp.MustCompile(
		`(?im)^\s*(?:` +
			`#{1,6}\s+` +
			`|(?:chapter|section|article|part)\s+[\divxlc]+` +
			`|\d+(?:\.\d+)*\.?\s+[A-Z]` +
			`|[A-Z][A-Z\s]{3,}$` +
			`)`)
)

// splitSentences splits text at sentence boundaries, keeping each
// non-blank piece's offset into the original string.
func splitSentences(text string) []textSegment {
	return splitByPattern(text, sentenceBoundaryPattern)
}

// splitParagraphs splits text at blank-line boundaries.
func splitParagraphs(text string) []textSegment {
	var segments []textSegment
	locs := paragraphBoundaryPattern.FindAllStringIndex(text, -1)
	lastEnd := 0
	for _, loc := range locs {
		if seg := trimSegment(text, lastEnd, loc[0]); seg != nil {
			segments = append(segments, *seg)
		}
		lastEnd = loc[1]
	}
	if seg := trimSegment(text, lastEnd, len(text)); seg != nil {
		segments = append(segments, *seg)
	}
	return segments
}

// splitSections splits text at heading boundaries, attaching each
// heading to the content that follows it until the next heading.
func splitSections(text string) []textSegment {
	headingStarts := []int{}
	for _, loc := range sectionHeadingPattern.FindAllStringIndex(text, -1) {
		headingStarts = append(headingStarts, loc[0])
	}

	if len(headingStarts) == 0 {
		if seg := trimSegment(text, 0, len(text)); seg != nil {
			return []textSegment{*seg}
		}
		return nil
	}

	var sections []textSegment
	if headingStarts[0] > 0 {
		if seg := trimSegment(text, 0, headingStarts[0]); seg != nil {
			sections = append(sections, *seg)
		}
	}
	for i, start := range headingStarts {
		end := len(text)
		if i+1 < len(headingStarts) {
			end = headingStarts[i+1]
		}
		if seg := trimSegment(text, start, end); seg != nil {
			sections = append(sections, *seg)
		}
	}
	return sections
}

// splitByPattern splits text on the boundaries pattern matches,
// discarding the matched separator itself and recording each kept
// segment's offset within the original text.
func splitByPattern(text string, pattern *regexp.Regexp) []textSegment {
	var segments []textSegment
	locs := pattern.FindAllStringIndex(text, -1)
	lastEnd := 0
	for _, loc := range locs {
		if seg := trimSegment(text, lastEnd, loc[0]); seg != nil {
			segments = append(segments, *seg)
		}
		lastEnd = loc[1]
	}
	if seg := trimSegment(text, lastEnd, len(text)); seg != nil {
		segments = append(segments, *seg)
	}
	return segments
}

// trimSegment trims whitespace off text[start:end] and returns nil if
// nothing is left, preserving the original (untrimmed) offsets.
func trimSegment(text string, start, end int) *textSegment {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return nil
	}
	raw := text[start:end]
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &textSegment{text: trimmed, startOffset: start, endOffset: end}
}
