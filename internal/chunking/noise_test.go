package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_CollapsesRepeatedChars(t *testing.T) {
	out := Clean("before ============================ after", false)
	assert.NotContains(t, out, "====")
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
}

func TestClean_RemovesPageNumberLines(t *testing.T) {
	out := Clean("Intro text\nPage 3\nMore text", false)
	assert.NotContains(t, out, "Page 3")
	assert.Contains(t, out, "Intro text")
}

func TestClean_RemovesHeaderFooterLines(t *testing.T) {
	out := Clean("Body paragraph\nCONFIDENTIAL - internal use only\nMore body", false)
	assert.NotContains(t, strings.ToLower(out), "confidential")
}

func TestClean_CollapsesExcessiveBlankLines(t *testing.T) {
	out := Clean("a\n\n\n\n\n\nb", false)
	assert.Equal(t, "a\n\nb", out)
}

func TestClean_StripsArtifactRunes(t *testing.T) {
	out := Clean("a\u200bb\ufeffc\x00d", false)
	assert.Equal(t, "abcd", out)
}

func TestClean_IsIdempotent(t *testing.T) {
	input := "Noisy===== text\n\n\n\nPage 1\nCONFIDENTIAL\nmore content here that repeats\nmore content here that repeats\nmore content here that repeats"
	once := Clean(input, true)
	twice := Clean(once, true)
	assert.Equal(t, once, twice)
}

func TestClean_AggressiveRemovesRepetitiveLines(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, "unique line content number", "Generated by watermark tool")
	}
	out := Clean(strings.Join(lines, "\n"), true)
	assert.NotContains(t, out, "Generated by watermark tool")
}

func TestClean_NonAggressiveKeepsRepetitiveLines(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, "Generated by watermark tool")
	}
	out := Clean(strings.Join(lines, "\n"), false)
	assert.Contains(t, out, "Generated by watermark tool")
}
