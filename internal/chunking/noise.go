// Package chunking implements noise reduction and text segmentation for
// the transformation worker pool. Grounded on NoiseReductionService.java,
// AdaptiveChunkingStrategy.java, TextSegmenter.java, and Chunker.java.
package chunking

import (
	"regexp"
	"strings"
)

// artifactsPattern matches extraction artifacts with no visible rendering:
// NUL, form feed, BOM, soft hyphen, zero-width space/ZWNJ/ZWJ, and the
// Unicode line/paragraph separators.
var artifactsPattern = regexp.MustCompile(`[\x{0000}\x{000C}\x{FEFF}\x{00AD}\x{200B}\x{200C}\x{200D}\x{2028}\x{2029}]`)

var (
	horizontalWhitespacePattern = regexp.MustCompile(`[ \t\v\f\r]+`)
	dotLeadersPattern           = regexp.MustCompile(`[.·…]{5,}|[-_=]{5,}`)
	excessiveBlanksPattern      = regexp.MustCompile(`\n{4,}`)

	pageNumberPattern   = regexp.MustCompile(`(?im)^\s*(page\s+\d+|p\.\s*\d+|\d+\s+of\s+\d+|\d+/\d+|-\s*\d+\s*-|\d{1,4})\s*$`)
	headerFooterPattern = regexp.MustCompile(`(?im)^.*(confidential|draft|internal use only|do not distribute|privileged|copyright|©|all rights reserved|printed on|generated on|last (updated|modified)).*$`)
)

// Go's regexp engine (RE2) has no backreferences, so the repeated-character
// collapse ("(.)\1{10,}" in NoiseReductionService.java) is implemented
// procedurally below in collapseRepeatedChars instead of as a pattern.

// Clean runs the deterministic noise-reduction pipeline over text. It is
// idempotent: Clean(Clean(x)) == Clean(x). aggressive additionally removes
// highly repetitive short lines (boilerplate headers/footers/watermarks
// that repeat throughout a document).
func Clean(text string, aggressive bool) string {
	s := artifactsPattern.ReplaceAllString(text, "")
	s = collapseRepeatedChars(s, 10)
	s = horizontalWhitespacePattern.ReplaceAllString(s, " ")
	s = dotLeadersPattern.ReplaceAllString(s, " ")
	s = removeMatchingLines(s, pageNumberPattern)
	s = removeMatchingLines(s, headerFooterPattern)
	if aggressive {
		s = removeRepetitiveLines(s)
	}
	s = excessiveBlanksPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// collapseRepeatedChars removes runs of the same rune longer than
// threshold, e.g. "========================" (a common PDF-extraction
// artifact) collapses to "".
func collapseRepeatedChars(s string, threshold int) string {
	runes := []rune(s)
	var out []rune
	n := len(runes)
	for i := 0; i < n; {
		j := i + 1
		for j < n && runes[j] == runes[i] {
			j++
		}
		runLen := j - i
		if runLen <= threshold {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	return string(out)
}

func removeMatchingLines(s string, pattern *regexp.Regexp) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if pattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// removeRepetitiveLines drops lines of length [4, 99] that recur at least
// max(3, lineCount/7) times across the document, per
// NoiseReductionService.removeRepetitiveLines. Requires at least 10 lines
// to activate (short documents rarely have real boilerplate repetition).
func removeRepetitiveLines(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) < 10 {
		return s
	}

	counts := make(map[string]int)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if l := len(trimmed); l >= 4 && l <= 99 {
			counts[trimmed]++
		}
	}

	threshold := len(lines) / 7
	if threshold < 3 {
		threshold = 3
	}

	frequent := make(map[string]bool)
	for line, count := range counts {
		if count >= threshold {
			frequent[line] = true
		}
	}
	if len(frequent) == 0 {
		return s
	}

	kept := lines[:0:0]
	for _, line := range lines {
		if frequent[strings.TrimSpace(line)] {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
