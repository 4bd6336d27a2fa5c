// Package rag orchestrates Retrieval (internal/retrieval) and the Chat
// Client (internal/chatclient) into a single grounded-answer call:
// retrieve, assemble a capped context block, prompt, generate.
//
// Grounded on the Retriever/chatclient split and on internal/rag's sibling
// packages' "orchestrate the typed clients" style (e.g. internal/ingest).
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/retrieval"
)

// completer is the subset of *chatclient.Client this package calls. A
// chat client satisfies it implicitly; tests substitute a fake rather
// than mocking the underlying OpenAI-compatible wire protocol.
type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (answer string, model string, err error)
}

const (
	defaultTopK            = 5
	defaultMinScore        = 0.5
	defaultMaxContextChars = 12000
	truncationMarker       = "\n... (context truncated)"
	minTruncationRemainder = 100

	defaultSystemPrompt = "answer strictly from the given context; cite sources by their label; " +
		"state when the context is insufficient; be concise"

	noDocumentsAnswer = "I don't have any relevant documents to answer that question."

	errorModel = "error"
)

// Request is one ask-a-question call.
type Request struct {
	Question       string
	TopK           int
	MinScore       float64
	SystemPrompt   string
	IncludeContext bool
	Caller         model.Principal
}

// Source is one context entry's provenance, echoed back in the response.
type Source struct {
	Rank       int     `json:"rank"`
	DocumentID string  `json:"documentId"`
	Name       string  `json:"name,omitempty"`
	Score      float64 `json:"score"`
}

// Answer is the full result of a Generate call.
type Answer struct {
	Answer           string   `json:"answer"`
	Question         string   `json:"question"`
	Model            string   `json:"model"`
	SearchTimeMs     int64    `json:"searchTimeMs"`
	GenerationTimeMs int64    `json:"generationTimeMs"`
	TotalTimeMs      int64    `json:"totalTimeMs"`
	SourcesUsed      int      `json:"sourcesUsed"`
	Sources          []Source `json:"sources"`
	Context          []string `json:"context,omitempty"`
}

// Config holds the defaults applied when a Request leaves its fields
// unset, sourced from the rag.* section of the application config.
type Config struct {
	DefaultTopK         int
	DefaultMinScore     float64
	MaxContextChars     int
	DefaultSystemPrompt string
}

// Generator answers questions grounded in retrieved document context.
type Generator struct {
	retriever       *retrieval.Retriever
	chat            completer
	topK            int
	minScore        float64
	maxContextChars int
	systemPrompt    string
}

// New constructs a Generator. chat is typically *chatclient.Client. Zero
// fields in cfg fall back to package defaults.
func New(retriever *retrieval.Retriever, chat completer, cfg Config) *Generator {
	g := &Generator{
		retriever:       retriever,
		chat:            chat,
		topK:            cfg.DefaultTopK,
		minScore:        cfg.DefaultMinScore,
		maxContextChars: cfg.MaxContextChars,
		systemPrompt:    cfg.DefaultSystemPrompt,
	}
	if g.topK < 1 {
		g.topK = defaultTopK
	}
	if g.minScore <= 0 {
		g.minScore = defaultMinScore
	}
	if g.maxContextChars < 1 {
		g.maxContextChars = defaultMaxContextChars
	}
	if g.systemPrompt == "" {
		g.systemPrompt = defaultSystemPrompt
	}
	return g
}

// Generate retrieves context for req.Question and asks the chat client to
// answer strictly from it, per §4.12.
func (g *Generator) Generate(ctx context.Context, req Request) (*Answer, error) {
	totalStart := time.Now()

	topK := req.TopK
	if topK < 1 {
		topK = g.topK
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = g.minScore
	}

	searchStart := time.Now()
	result, err := g.retriever.Retrieve(ctx, retrieval.Request{
		Query:    req.Question,
		TopK:     topK,
		MinScore: minScore,
		Caller:   req.Caller,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	searchTimeMs := time.Since(searchStart).Milliseconds()

	sources := make([]Source, 0, len(result.Hits))
	for _, h := range result.Hits {
		name := h.Name
		if name == "" {
			name = h.DocumentID
		}
		sources = append(sources, Source{Rank: h.Rank, DocumentID: h.DocumentID, Name: name, Score: h.Score})
	}

	if len(result.Hits) == 0 {
		return &Answer{
			Answer:       noDocumentsAnswer,
			Question:     req.Question,
			Model:        "",
			SearchTimeMs: searchTimeMs,
			TotalTimeMs:  time.Since(totalStart).Milliseconds(),
			SourcesUsed:  0,
			Sources:      sources,
		}, nil
	}

	contextEntries, contextBlock := assembleContext(result.Hits, g.maxContextChars)

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = g.systemPrompt
	}
	userPrompt := buildUserPrompt(contextBlock, req.Question)

	genStart := time.Now()
	answerText, modelName, err := g.chat.Complete(ctx, systemPrompt, userPrompt)
	generationTimeMs := time.Since(genStart).Milliseconds()
	if err != nil {
		answerText = err.Error()
		modelName = errorModel
	}

	out := &Answer{
		Answer:           answerText,
		Question:         req.Question,
		Model:            modelName,
		SearchTimeMs:     searchTimeMs,
		GenerationTimeMs: generationTimeMs,
		TotalTimeMs:      time.Since(totalStart).Milliseconds(),
		SourcesUsed:      len(sources),
		Sources:          sources,
	}
	if req.IncludeContext {
		out.Context = contextEntries
	}
	return out, nil
}

// assembleContext builds the capped context block per §4.12 step 2: each
// hit becomes one labeled entry, appended while it fits; the entry that
// would overflow is truncated if at least minTruncationRemainder
// characters remain, then the truncation marker is appended and assembly
// stops.
func assembleContext(hits []retrieval.Hit, maxChars int) ([]string, string) {
	var b strings.Builder
	entries := make([]string, 0, len(hits))

	for i, h := range hits {
		name := h.Name
		if name == "" {
			name = h.DocumentID
		}
		entry := fmt.Sprintf("[Source %d: %s (score: %.2f)]\n%s\n\n", i+1, name, h.Score, h.ChunkText)

		remaining := maxChars - b.Len()
		if len(entry) <= remaining {
			b.WriteString(entry)
			entries = append(entries, entry)
			continue
		}
		if remaining >= minTruncationRemainder {
			truncated := entry[:remaining]
			b.WriteString(truncated)
			b.WriteString(truncationMarker)
			entries = append(entries, truncated)
		}
		break
	}
	return entries, b.String()
}

func buildUserPrompt(context, question string) string {
	return "Based on the following document context, answer the question.\n\n" +
		"--- DOCUMENT CONTEXT ---\n" + context + "--- END CONTEXT ---\n\n" +
		"Question: " + question + "\n\nAnswer:"
}
