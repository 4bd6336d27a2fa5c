// Package embeddingclient generates embedding vectors via a REST
// embedding service, with fallback handling for inputs the model
// rejects as too large.
package embeddingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

var (
	// ErrEmptyInput indicates the caller passed blank text.
	ErrEmptyInput = errors.New("embeddingclient: empty input")
	// ErrDimensionMismatch indicates a split-and-average recovery produced
	// vectors of different lengths, which should never happen for a
	// single fixed-dimension model.
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch after split", model.ErrInvariantViolation)
)

const (
	safetyCap  = 3000
	minChars   = 200
	splitWindow = 120

	queryInstructionPrefix = "Represent this sentence for searching relevant passages: "
)

var tooLargePattern = regexp.MustCompile(`input \((\d+) tokens\) is too large`)

// Config configures a Client.
type Config struct {
	BaseURL string
	Model   string
}

// Client generates embedding vectors over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, httpClient: &http.Client{}, logger: logger}
}

// ModelName returns the configured embedding model name, for attaching to
// retrieval query metadata.
func (c *Client) ModelName() string {
	return c.cfg.Model
}

// ChunkEmbedding pairs a chunk with its computed embedding vector.
type ChunkEmbedding struct {
	Chunk     model.Chunk
	Embedding []float64
}

// Embed embeds document/chunk text without any instruction prefix. Use
// for ingestion-time embedding.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	return c.embedWithFallback(ctx, sanitize(text))
}

// EmbedQuery embeds a search query with the instruction prefix required
// by asymmetric embedding models, so the query vector lands close to
// the document vectors stored via Embed.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return c.embedWithFallback(ctx, queryInstructionPrefix+sanitize(query))
}

// EmbedChunks embeds each chunk, skipping blank ones. When
// documentContext is non-empty it is prepended to each chunk's text for
// the embedding call only; the chunk's stored Text is unchanged.
func (c *Client) EmbedChunks(ctx context.Context, chunks []model.Chunk, documentContext string) ([]ChunkEmbedding, error) {
	results := make([]ChunkEmbedding, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}

		textToEmbed := chunk.Text
		if documentContext != "" {
			textToEmbed = documentContext + "\n\n" + chunk.Text
		}

		vec, err := c.Embed(ctx, textToEmbed)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %s: %w", chunk.ID(), err)
		}
		results = append(results, ChunkEmbedding{Chunk: chunk, Embedding: vec})
	}
	return results, nil
}

func (c *Client) embedWithFallback(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	if len(text) > safetyCap {
		c.logger.Warn("embedding input exceeds safety cap, truncating",
			zap.Int("length", len(text)), zap.Int("safetyCap", safetyCap))
		fallbacksTotal.Inc()
		text = text[:safetyCap]
	}

	vec, err := c.call(ctx, text)
	if err == nil {
		return vec, nil
	}
	if !looksLikeTooLarge(err) {
		return nil, err
	}
	fallbacksTotal.Inc()

	if len(text) <= minChars {
		trimmed := trimWorstParts(text)
		if len(trimmed) == len(text) {
			newLen := len(text) / 2
			if newLen < 1 {
				newLen = 1
			}
			c.logger.Warn("embedding input still too large, truncating to half",
				zap.Int("length", len(text)), zap.Int("newLength", newLen))
			trimmed = text[:newLen]
		} else {
			c.logger.Warn("embedding input too large, trimmed worst parts",
				zap.Int("length", len(text)), zap.Int("trimmedLength", len(trimmed)))
		}
		return c.call(ctx, trimmed)
	}

	mid := findSplitPoint(text)
	left, right := text[:mid], text[mid:]

	c.logger.Info("embedding input too large, splitting and averaging",
		zap.Int("length", len(text)), zap.Int("leftLength", len(left)), zap.Int("rightLength", len(right)))

	leftVec, err := c.embedWithFallback(ctx, left)
	if err != nil {
		return nil, err
	}
	rightVec, err := c.embedWithFallback(ctx, right)
	if err != nil {
		return nil, err
	}

	if len(leftVec) == 0 {
		return rightVec, nil
	}
	if len(rightVec) == 0 {
		return leftVec, nil
	}
	if len(leftVec) != len(rightVec) {
		return nil, ErrDimensionMismatch
	}

	avg := make([]float64, len(leftVec))
	for i := range avg {
		avg[i] = (leftVec[i] + rightVec[i]) / 2
	}
	return avg, nil
}

type embedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

func (c *Client) call(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Inputs: []string{text}, Truncate: false})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request failed: %v", model.ErrTransientBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", model.ErrTransientBackend, resp.StatusCode, string(respBody))
	}

	var vectors [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedding service returned no vectors", model.ErrTransientBackend)
	}
	return vectors[0], nil
}

func looksLikeTooLarge(err error) bool {
	msg := err.Error()
	return tooLargePattern.MatchString(msg) || strings.Contains(msg, "physical batch size")
}

func findSplitPoint(text string) int {
	mid := len(text) / 2

	if i := lastIndexBefore(text, '\n', mid, splitWindow); i > 0 {
		return i
	}
	if i := lastIndexBefore(text, '.', mid, splitWindow); i > 0 {
		return i + 1
	}
	if i := lastIndexBefore(text, ' ', mid, splitWindow); i > 0 {
		return i
	}
	return mid
}

func lastIndexBefore(text string, ch byte, from, window int) int {
	start := from - window
	if start < 0 {
		start = 0
	}
	if from >= len(text) {
		from = len(text) - 1
	}
	for i := from; i >= start; i-- {
		if text[i] == ch {
			return i
		}
	}
	return -1
}

var (
	embedHorizontalWhitespace = regexp.MustCompile(`[ \t\v\f\r]+`)
	embedExcessiveNewlines    = regexp.MustCompile(`\n{3,}`)
)

func sanitize(text string) string {
	s := strings.ReplaceAll(text, "\x00", "")
	s = embedHorizontalWhitespace.ReplaceAllString(s, " ")
	s = embedExcessiveNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// trimWorstParts drops whitespace-separated tokens longer than 80
// characters, a heuristic for PDF-extraction garbage runs.
func trimWorstParts(text string) string {
	parts := strings.Split(text, " ")
	var kept []string
	for _, p := range parts {
		if len(p) > 80 {
			continue
		}
		kept = append(kept, p)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}
