package rag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/embeddingclient"
	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/retrieval"
)

type fakeCompleter struct {
	answer string
	model  string
	err    error
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	return f.answer, f.model, f.err
}

func newTestRetriever(t *testing.T, hits []lakeclient.ScoredEmbedding, doc *model.LakeDocument) *retrieval.Retriever {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/api/query/embeddings", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": hits})
	})
	mux.HandleFunc("/api/documents/doc-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	})
	lakeServer := httptest.NewServer(mux)
	t.Cleanup(lakeServer.Close)
	lake := lakeclient.New(lakeclient.Config{BaseURL: lakeServer.URL, RepositoryID: "repo-1", TokenURL: lakeServer.URL + "/token", Username: "svc", Password: "pw"}, zap.NewNop())

	embedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float64{{0.1, 0.2}})
	}))
	t.Cleanup(embedServer.Close)
	embedder := embeddingclient.New(embeddingclient.Config{BaseURL: embedServer.URL, Model: "m"}, zap.NewNop())

	return retrieval.New(embedder, lake, nil, nil, 0, "repo-1", zap.NewNop())
}

func TestGenerate_NoHits_ReturnsCannedAnswerWithoutCallingChat(t *testing.T) {
	r := newTestRetriever(t, nil, &model.LakeDocument{})
	chat := &fakeCompleter{answer: "should not be used"}

	g := New(r, chat, Config{})
	out, err := g.Generate(context.Background(), Request{Question: "anything"})
	require.NoError(t, err)

	assert.Equal(t, noDocumentsAnswer, out.Answer)
	assert.Equal(t, 0, out.SourcesUsed)
	assert.Empty(t, out.Model)
}

func TestGenerate_WithHits_BuildsPromptAndReturnsSources(t *testing.T) {
	doc := &model.LakeDocument{LakeID: "doc-1", SourceID: "src-1", Paths: []string{"/docs/report.pdf"}}
	hits := []lakeclient.ScoredEmbedding{{DocumentID: "doc-1", Score: 0.9, Text: "the answer lives here"}}
	r := newTestRetriever(t, hits, doc)

	chat := &fakeCompleter{answer: "the answer is X", model: "gpt-test"}
	g := New(r, chat, Config{})

	out, err := g.Generate(context.Background(), Request{Question: "what is the answer?", IncludeContext: true})
	require.NoError(t, err)

	assert.Equal(t, "the answer is X", out.Answer)
	assert.Equal(t, "gpt-test", out.Model)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "report.pdf", out.Sources[0].Name)
	require.Len(t, out.Context, 1)
	assert.Contains(t, out.Context[0], "[Source 1: report.pdf (score: 0.90)]")
	assert.Contains(t, out.Context[0], "the answer lives here")
}

func TestGenerate_ChatError_ReturnsErrorTextAsAnswer(t *testing.T) {
	doc := &model.LakeDocument{LakeID: "doc-1"}
	hits := []lakeclient.ScoredEmbedding{{DocumentID: "doc-1", Score: 0.9, Text: "chunk"}}
	r := newTestRetriever(t, hits, doc)

	chat := &fakeCompleter{err: errors.New("upstream unavailable")}
	g := New(r, chat, Config{})

	out, err := g.Generate(context.Background(), Request{Question: "q"})
	require.NoError(t, err)

	assert.Equal(t, "upstream unavailable", out.Answer)
	assert.Equal(t, errorModel, out.Model)
}

func TestAssembleContext_TruncatesWhenOverBudget(t *testing.T) {
	hits := []retrieval.Hit{
		{Rank: 1, DocumentID: "d1", Name: "one", ChunkText: strings.Repeat("a", 50), Score: 0.9},
		{Rank: 2, DocumentID: "d2", Name: "two", ChunkText: strings.Repeat("b", 500), Score: 0.8},
	}

	entries, block := assembleContext(hits, 120)

	assert.LessOrEqual(t, len(block), 120+len(truncationMarker))
	require.NotEmpty(t, entries)
}

func TestAssembleContext_FitsEverythingUnderBudget(t *testing.T) {
	hits := []retrieval.Hit{
		{Rank: 1, DocumentID: "d1", Name: "one", ChunkText: "short chunk", Score: 0.9},
	}

	entries, block := assembleContext(hits, defaultMaxContextChars)

	require.Len(t, entries, 1)
	assert.NotContains(t, block, truncationMarker)
}

func TestBuildUserPrompt_MatchesTemplate(t *testing.T) {
	got := buildUserPrompt("CTX", "Q?")
	want := "Based on the following document context, answer the question.\n\n" +
		"--- DOCUMENT CONTEXT ---\nCTX--- END CONTEXT ---\n\nQuestion: Q?\n\nAnswer:"
	assert.Equal(t, want, got)
}
