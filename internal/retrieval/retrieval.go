// Package retrieval implements permission-scoped semantic search over the
// content lake: embed the query, restrict the vector search to documents
// the caller may read, and enrich the raw hits with document metadata.
//
// Grounded on internal/discovery's client-composition style and on the
// content lake's ACL model (internal/lakeclient/acl.go, model.ACE); the
// local semantic result cache is internal/vectorcache.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/embeddingclient"
	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/sourceclient"
	"github.com/fyrsmithlabs/lakesync/internal/vectorcache"
)

const (
	defaultTopK     = 5
	maxTopK         = 50
	defaultMinScore = 0.5
	defaultCacheTTL = 5 * time.Minute
)

// Request is one semantic search request.
type Request struct {
	Query         string
	TopK          int
	EmbeddingType string
	Filter        string
	MinScore      float64
	Caller        model.Principal
}

// Hit is one ranked, ACL-filtered, enriched search result.
type Hit struct {
	Rank       int     `json:"rank"`
	DocumentID string  `json:"documentId"`
	SourceID   string  `json:"sourceId,omitempty"`
	Name       string  `json:"name,omitempty"`
	Path       string  `json:"path,omitempty"`
	MimeType   string  `json:"mimeType,omitempty"`
	ChunkText  string  `json:"chunkText"`
	Score      float64 `json:"score"`
}

// Result is the response of a Retrieve call.
type Result struct {
	Hits       []Hit
	Model      string
	Dimension  int
	TotalCount int
	ElapsedMs  int64
}

// Retriever runs permission-scoped semantic search.
type Retriever struct {
	embedder     *embeddingclient.Client
	lake         *lakeclient.Client
	source       *sourceclient.Client
	cache        vectorcache.Store
	cacheTTL     time.Duration
	repositoryID string
	logger       *zap.Logger
}

// New constructs a Retriever. cache may be nil to disable the local
// semantic result cache entirely.
func New(embedder *embeddingclient.Client, lake *lakeclient.Client, source *sourceclient.Client, cache vectorcache.Store, cacheTTL time.Duration, repositoryID string, logger *zap.Logger) *Retriever {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &Retriever{
		embedder:     embedder,
		lake:         lake,
		source:       source,
		cache:        cache,
		cacheTTL:     cacheTTL,
		repositoryID: repositoryID,
		logger:       logger,
	}
}

// Retrieve runs the full pipeline: embed, permission-scope, cache, search,
// score-filter, enrich.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	topK := req.TopK
	if topK < 1 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	minScore := normalizeMinScore(req.MinScore)
	embeddingType := req.EmbeddingType
	if embeddingType == "" {
		embeddingType = "*"
	}

	vector, err := r.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vector) == 0 {
		return &Result{ElapsedMs: elapsedMs(start)}, nil
	}

	permissionFilter, err := r.permissionFilter(ctx, req.Caller, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("resolving caller authorities: %w", err)
	}

	cacheKey := vectorcache.Key(req.Query, permissionFilter, topK, minScore)
	var scored []lakeclient.ScoredEmbedding
	if r.cache != nil {
		if entry, ok, err := r.cache.Get(cacheKey); err != nil {
			r.logger.Warn("retrieval cache read failed", zap.Error(err))
		} else if ok {
			scored = hitsToScored(entry.Hits)
		}
	}

	if scored == nil {
		scored, err = r.lake.VectorSearch(ctx, vector, embeddingType, permissionFilter, topK)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		if r.cache != nil {
			if err := r.cache.Put(cacheKey, &vectorcache.Entry{Hits: scoredToHits(scored), CachedAt: time.Now()}, r.cacheTTL); err != nil {
				r.logger.Warn("retrieval cache write failed", zap.Error(err))
			}
		}
	}

	filtered := make([]lakeclient.ScoredEmbedding, 0, len(scored))
	for _, s := range scored {
		if s.Score < minScore {
			continue
		}
		filtered = append(filtered, s)
	}

	hits := r.enrich(ctx, filtered)

	return &Result{
		Hits:       hits,
		Model:      r.embedder.ModelName(),
		Dimension:  len(vector),
		TotalCount: len(hits),
		ElapsedMs:  elapsedMs(start),
	}, nil
}

// permissionFilter builds the ACL disjunction described in §4.11, ANDed
// with any caller-supplied additional filter and prefixed with the base
// SysContent select. Group memberships are best-effort: a lookup failure
// is logged and retrieval continues with just the username and
// GROUP_EVERYONE.
func (r *Retriever) permissionFilter(ctx context.Context, caller model.Principal, extra string) (string, error) {
	authorities := []string{model.GroupEveryone}
	if caller.Username != "" {
		authorities = append(authorities, caller.Username)
	}

	if caller.Username != "" && r.source != nil {
		groups, err := r.source.ListGroups(ctx, caller.Username)
		if err != nil {
			r.logger.Warn("listing caller groups failed, continuing without them",
				zap.String("username", caller.Username), zap.Error(err))
		} else {
			authorities = append(authorities, groups...)
		}
	}

	clauses := make([]string, 0, len(authorities)+1)
	clauses = append(clauses, fmt.Sprintf("%s = '%s'", aclField, model.EveryonePrincipal))

	seen := map[string]bool{model.GroupEveryone: true}
	for _, a := range authorities {
		if seen[a] {
			continue
		}
		seen[a] = true
		if strings.HasPrefix(a, model.GroupPrefix) {
			clauses = append(clauses, fmt.Sprintf("%s = 'g:%s_#_%s'", aclField, a, r.repositoryID))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s = '%s_#_%s'", aclField, a, r.repositoryID))
		}
	}

	filter := "(" + strings.Join(clauses, " OR ") + ")"
	if extra != "" {
		filter = filter + " AND (" + extra + ")"
	}
	return "SELECT * FROM SysContent WHERE " + filter, nil
}

// aclField is the flat, HXQL-queryable projection of a document's ACE list
// that the content lake maintains alongside the structured ACL used by
// internal/lakeclient.BuildACL.
const aclField = "sys_racl"

// enrich looks up each distinct documentId and projects a subset of its
// fields; hits whose document can no longer be resolved keep the bare id.
func (r *Retriever) enrich(ctx context.Context, scored []lakeclient.ScoredEmbedding) []Hit {
	docCache := make(map[string]*model.LakeDocument)
	hits := make([]Hit, 0, len(scored))

	for i, s := range scored {
		hit := Hit{
			Rank:       i + 1,
			DocumentID: s.DocumentID,
			ChunkText:  s.Text,
			Score:      s.Score,
		}

		doc, ok := docCache[s.DocumentID]
		if !ok {
			var err error
			doc, err = r.lake.GetByID(ctx, s.DocumentID)
			if err != nil {
				r.logger.Warn("enrichment lookup failed", zap.String("documentId", s.DocumentID), zap.Error(err))
				doc = nil
			}
			docCache[s.DocumentID] = doc
		}
		if doc != nil {
			hit.SourceID = doc.SourceID
			if len(doc.Paths) > 0 {
				hit.Path = doc.Paths[0]
				hit.Name = pathBase(doc.Paths[0])
			}
			if mt, ok := doc.IngestProperties["mimeType"].(string); ok {
				hit.MimeType = mt
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

func pathBase(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 && idx < len(path)-1 {
		return path[idx+1:]
	}
	return path
}

// normalizeMinScore clamps to [0, 1]; NaN or non-positive falls back to
// the default per §4.11 step 6.
func normalizeMinScore(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return defaultMinScore
	}
	if v > 1 {
		return 1
	}
	return v
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func hitsToScored(hits []vectorcache.Hit) []lakeclient.ScoredEmbedding {
	out := make([]lakeclient.ScoredEmbedding, 0, len(hits))
	for _, h := range hits {
		out = append(out, lakeclient.ScoredEmbedding{DocumentID: h.DocumentID, Score: h.Score, Text: h.ChunkText})
	}
	return out
}

func scoredToHits(scored []lakeclient.ScoredEmbedding) []vectorcache.Hit {
	out := make([]vectorcache.Hit, 0, len(scored))
	for i, s := range scored {
		out = append(out, vectorcache.Hit{Rank: i + 1, DocumentID: s.DocumentID, ChunkText: s.Text, Score: s.Score})
	}
	return out
}
