package embeddingclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

func TestSanitize_RemovesNulAndCollapsesWhitespace(t *testing.T) {
	out := sanitize("a\x00b   c\n\n\n\nd")
	assert.Equal(t, "ab c\n\nd", out)
}

func TestTrimWorstParts_DropsLongTokens(t *testing.T) {
	longToken := strings.Repeat("x", 90)
	out := trimWorstParts("short " + longToken + " words")
	assert.NotContains(t, out, longToken)
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "words")
}

func TestTrimWorstParts_NoChangeWhenNothingToDrop(t *testing.T) {
	in := "all short words here"
	assert.Equal(t, in, trimWorstParts(in))
}

func TestFindSplitPoint_PrefersNewline(t *testing.T) {
	text := strings.Repeat("a", 100) + "\n" + strings.Repeat("b", 100)
	point := findSplitPoint(text)
	assert.Equal(t, 100, point)
}

func TestFindSplitPoint_FallsBackToMidpoint(t *testing.T) {
	text := strings.Repeat("a", 400)
	point := findSplitPoint(text)
	assert.Equal(t, 200, point)
}

func TestLooksLikeTooLarge(t *testing.T) {
	assert.True(t, looksLikeTooLargeErr("input (600 tokens) is too large"))
	assert.True(t, looksLikeTooLargeErr("exceeded physical batch size"))
	assert.False(t, looksLikeTooLargeErr("connection refused"))
}

func looksLikeTooLargeErr(msg string) bool {
	return tooLargePattern.MatchString(msg) || strings.Contains(msg, "physical batch size")
}

func TestClient_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float64{{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Model: "test-model"}, zap.NewNop())
	vec, err := c.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestClient_EmbedQuery_AddsInstructionPrefix(t *testing.T) {
	var gotInputs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInputs = req.Inputs
		_ = json.NewEncoder(w).Encode([][]float64{{1, 2}})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := c.EmbedQuery(context.Background(), "find the invoice")
	require.NoError(t, err)
	require.Len(t, gotInputs, 1)
	assert.True(t, strings.HasPrefix(gotInputs[0], queryInstructionPrefix))
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, zap.NewNop())
	_, err := c.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestClient_EmbedChunks_SkipsBlankAndPrefixesContext(t *testing.T) {
	var seenTexts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		seenTexts = append(seenTexts, req.Inputs...)
		_ = json.NewEncoder(w).Encode([][]float64{{1, 2}})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, zap.NewNop())
	chunks := []model.Chunk{
		{NodeID: "n1", Text: "first", Index: 0},
		{NodeID: "n1", Text: "  ", Index: 1},
	}
	results, err := c.EmbedChunks(context.Background(), chunks, "Document: report.pdf")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Document: report.pdf\n\nfirst", seenTexts[0])
	assert.Equal(t, "first", results[0].Chunk.Text)
}
