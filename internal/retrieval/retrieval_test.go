package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/embeddingclient"
	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/sourceclient"
	"github.com/fyrsmithlabs/lakesync/internal/vectorcache"
)

func fakeLakeSearchServer(t *testing.T, hits []lakeclient.ScoredEmbedding, doc *model.LakeDocument) (*httptest.Server, lakeclient.Config) {
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

	server := httptest.NewServer(mux)
	cfg := lakeclient.Config{BaseURL: server.URL, RepositoryID: "repo-1", TokenURL: server.URL + "/token", Username: "svc", Password: "pw"}
	return server, cfg
}

func fakeEmbedServer(t *testing.T, vector []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float64{vector})
	}))
}

func TestRetrieve_FiltersLowScoresAndEnrichesHits(t *testing.T) {
	doc := &model.LakeDocument{LakeID: "doc-1", SourceID: "src-1", Paths: []string{"/a/b/report.pdf"}, IngestProperties: map[string]any{"mimeType": "application/pdf"}}
	hits := []lakeclient.ScoredEmbedding{
		{DocumentID: "doc-1", Score: 0.9, Text: "relevant chunk"},
		{DocumentID: "doc-2", Score: 0.1, Text: "irrelevant chunk"},
	}
	lakeServer, lakeCfg := fakeLakeSearchServer(t, hits, doc)
	defer lakeServer.Close()
	lake := lakeclient.New(lakeCfg, zap.NewNop())

	embedServer := fakeEmbedServer(t, []float64{0.1, 0.2, 0.3})
	defer embedServer.Close()
	embedder := embeddingclient.New(embeddingclient.Config{BaseURL: embedServer.URL, Model: "test-model"}, zap.NewNop())

	source := sourceclient.New(sourceclient.Config{BaseURL: "http://127.0.0.1:0"}, zap.NewNop())

	r := New(embedder, lake, source, nil, 0, "repo-1", zap.NewNop())
	result, err := r.Retrieve(context.Background(), Request{Query: "what report", TopK: 5, Caller: model.Principal{Username: "alice"}})
	require.NoError(t, err)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "doc-1", result.Hits[0].DocumentID)
	assert.Equal(t, 1, result.Hits[0].Rank)
	assert.Equal(t, "src-1", result.Hits[0].SourceID)
	assert.Equal(t, "report.pdf", result.Hits[0].Name)
	assert.Equal(t, "application/pdf", result.Hits[0].MimeType)
	assert.Equal(t, "test-model", result.Model)
}

func TestRetrieve_EmptyEmbeddingReturnsEmptyResult(t *testing.T) {
	embedServer := fakeEmbedServer(t, nil)
	defer embedServer.Close()
	embedder := embeddingclient.New(embeddingclient.Config{BaseURL: embedServer.URL, Model: "m"}, zap.NewNop())

	r := New(embedder, nil, nil, nil, 0, "repo-1", zap.NewNop())
	result, err := r.Retrieve(context.Background(), Request{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestRetrieve_UsesCacheOnSecondCall(t *testing.T) {
	doc := &model.LakeDocument{LakeID: "doc-1", SourceID: "src-1"}
	hits := []lakeclient.ScoredEmbedding{{DocumentID: "doc-1", Score: 0.9, Text: "chunk"}}

	searchCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/api/query/embeddings", func(w http.ResponseWriter, r *http.Request) {
		searchCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": hits})
	})
	mux.HandleFunc("/api/documents/doc-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	})
	lakeServer := httptest.NewServer(mux)
	defer lakeServer.Close()
	lake := lakeclient.New(lakeclient.Config{BaseURL: lakeServer.URL, RepositoryID: "repo-1", TokenURL: lakeServer.URL + "/token", Username: "svc", Password: "pw"}, zap.NewNop())

	embedServer := fakeEmbedServer(t, []float64{0.1, 0.2})
	defer embedServer.Close()
	embedder := embeddingclient.New(embeddingclient.Config{BaseURL: embedServer.URL, Model: "m"}, zap.NewNop())

	cache, err := vectorcache.NewChromemStore(zap.NewNop())
	require.NoError(t, err)

	r := New(embedder, lake, nil, cache, 0, "repo-1", zap.NewNop())
	req := Request{Query: "cacheable", TopK: 5, Caller: model.Principal{Username: "bob"}}

	_, err = r.Retrieve(context.Background(), req)
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, searchCalls)
}
