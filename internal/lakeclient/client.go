// Package lakeclient is a typed wrapper over the content lake's REST API:
// token acquisition and refresh, an authenticated request interceptor,
// document get/update/patch by id, path-based create, HXQL query, vector
// search, and idempotent schema provisioning.
//
// Grounded on HxprService.java and HxprModelProvisioner.java.
package lakeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	RepositoryID string
	TargetPath   string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Client is a typed wrapper over the content lake's REST API.
type Client struct {
	cfg        Config
	tokens     *TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		tokens:     NewTokenProvider(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// newRequest builds an authenticated request: bearer token + Repository
// selector header, per §4.2's "authenticated request interceptor".
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lake token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Repository", c.cfg.RepositoryID)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientBackend, err)
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode lake response: %w", err)
		}
	}
	return resp, nil
}

// GetByID fetches a LakeDocument by its lake id.
func (c *Client) GetByID(ctx context.Context, id string) (*model.LakeDocument, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/documents/"+id, nil)
	if err != nil {
		return nil, err
	}
	var doc model.LakeDocument
	resp, err := c.do(req, &doc)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)
	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateByID replaces a LakeDocument in full.
func (c *Client) UpdateByID(ctx context.Context, id string, payload *model.LakeDocument) (*model.LakeDocument, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/api/documents/"+id, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var updated model.LakeDocument
	resp, err := c.do(req, &updated)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)
	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateFields performs a partial update: only the present keys are
// overwritten by the lake, per §4.2 "accept full objects and partial maps".
func (c *Client) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/api/documents/"+id, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/merge-patch+json")

	resp, err := c.do(req, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)
	return statusToError(resp.StatusCode)
}

// PatchByID applies a JSON-Patch (RFC 6902) to a LakeDocument.
func (c *Client) PatchByID(ctx context.Context, id string, ops []PatchOp) error {
	body, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/api/documents/"+id, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json-patch+json")

	resp, err := c.do(req, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)
	return statusToError(resp.StatusCode)
}

// DeleteByID deletes a LakeDocument.
func (c *Client) DeleteByID(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/documents/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)
	return statusToError(resp.StatusCode)
}

// ExistsByPath reports whether a document exists at path. A 404 is
// translated to (false, nil); any other error status propagates.
func (c *Client) ExistsByPath(ctx context.Context, path string) (bool, error) {
	encoded := EncodePathSegments(path)
	req, err := c.newRequest(ctx, http.MethodGet, "/api/documents/path/"+encoded, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.do(req, nil)
	if err != nil {
		return false, err
	}
	defer drainAndClose(resp)

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := statusToError(resp.StatusCode); err != nil {
		return false, err
	}
	return true, nil
}

// CreateAtPath creates doc at the given path, applying the RFC 3986
// path-segment percent-encoding contract (§4.2).
func (c *Client) CreateAtPath(ctx context.Context, parentPath string, doc *model.LakeDocument) (*model.LakeDocument, error) {
	encoded := EncodePathSegments(JoinPath(parentPath, doc.SourceID))
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost,
		"/api/documents/path/"+encoded+"?enforceSysName=true", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var created model.LakeDocument
	resp, err := c.do(req, &created)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: lake denied document creation at path %q; configure the path repository id or grant write permissions", model.ErrPermissionDenied, parentPath)
	}
	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateFolder creates a folder named name under parent. A 409 Conflict
// (folder already exists) is treated as success, per §4.2.
func (c *Client) CreateFolder(ctx context.Context, parent, name string) error {
	encoded := EncodePathSegments(JoinPath(parent, name))
	req, err := c.newRequest(ctx, http.MethodPost, "/api/documents/path/"+encoded+"?type=Folder", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: lake denied folder creation at %q", model.ErrPermissionDenied, encoded)
	}
	return statusToError(resp.StatusCode)
}

// EnsureFolder creates every progressive segment of absolutePath that does
// not already exist, treating 409 as success and 401/403 as fatal.
func (c *Client) EnsureFolder(ctx context.Context, absolutePath string) error {
	normalized := NormalizeAbsolutePath(absolutePath)
	if normalized == "/" {
		return nil
	}

	segments := splitNonEmpty(normalized)
	parent := "/"
	for _, seg := range segments {
		if err := c.CreateFolder(ctx, parent, seg); err != nil {
			return err
		}
		parent = JoinPath(parent, seg)
	}
	return nil
}

func splitNonEmpty(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// FindBySourceID looks up the LakeDocument whose sys_name matches
// sourceID, per §4.2's findBySourceId HXQL query. Returns nil, nil if no
// document matches.
func (c *Client) FindBySourceID(ctx context.Context, sourceID string) (*model.LakeDocument, error) {
	result, err := c.Query(ctx, FindBySourceIDQuery(sourceID), 1, 0)
	if err != nil {
		return nil, err
	}
	if len(result.Documents) == 0 {
		return nil, nil
	}
	return &result.Documents[0], nil
}

// QueryResult is the wire shape of a content lake query response.
type QueryResult struct {
	Documents  []model.LakeDocument `json:"documents"`
	TotalCount int                  `json:"totalCount"`
	Count      int                  `json:"count"`
	Offset     int                  `json:"offset"`
	Limit      int                  `json:"limit"`
}

// Query runs an HXQL query with pagination.
func (c *Client) Query(ctx context.Context, hxql string, limit, offset int) (*QueryResult, error) {
	q := url.Values{}
	q.Set("hxql", hxql)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/query?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var result QueryResult
	resp, err := c.do(req, &result)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)
	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScoredEmbedding is one vector-search hit.
type ScoredEmbedding struct {
	DocumentID string  `json:"documentId"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// VectorSearch runs a kNN search with the given vector, embedding type
// ("*" for any), HXQL permission filter, and result limit.
func (c *Client) VectorSearch(ctx context.Context, vector []float64, embeddingType, hxqlFilter string, limit int) ([]ScoredEmbedding, error) {
	body, err := json.Marshal(map[string]any{
		"vector":        vector,
		"embeddingType": embeddingType,
		"filter":        hxqlFilter,
		"limit":         limit,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/query/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Hits []ScoredEmbedding `json:"hits"`
	}
	resp, err := c.do(req, &result)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)
	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// UpdateEmbeddings ensures the Embed mixin is present, then replaces the
// document's entire embeddings list, per §4.2.
func (c *Client) UpdateEmbeddings(ctx context.Context, lakeID string, embeddings []model.Embedding) error {
	doc, err := c.GetByID(ctx, lakeID)
	if err != nil {
		return err
	}

	if !doc.HasMixin(model.MixinEmbed) {
		if err := c.PatchByID(ctx, lakeID, []PatchOp{
			{Op: "add", Path: "/mixins/-", Value: model.MixinEmbed},
		}); err != nil {
			return err
		}
	}

	return c.UpdateFields(ctx, lakeID, map[string]any{"embeddings": embeddings})
}

// DeleteEmbeddings replaces a document's embeddings with the empty list.
// A no-op if the Embed mixin is absent.
func (c *Client) DeleteEmbeddings(ctx context.Context, lakeID string) error {
	doc, err := c.GetByID(ctx, lakeID)
	if err != nil {
		return err
	}
	if !doc.HasMixin(model.MixinEmbed) {
		return nil
	}
	return c.UpdateFields(ctx, lakeID, map[string]any{"embeddings": []model.Embedding{}})
}

// GetModel fetches the lake's current schema document.
func (c *Client) GetModel(ctx context.Context) (*Model, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/repository/model", nil)
	if err != nil {
		return nil, err
	}
	var m Model
	resp, err := c.do(req, &m)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)
	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyModelPatch applies a JSON-Patch to the repository schema document.
func (c *Client) ApplyModelPatch(ctx context.Context, ops []PatchOp) error {
	if len(ops) == 0 {
		return nil
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/api/repository/model", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json-patch+json")

	resp, err := c.do(req, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)
	return statusToError(resp.StatusCode)
}

// EnsureModelPresent computes and applies an add-only patch so that the
// lake's schema contains every entry of desired, then re-fetches and
// verifies the diff is empty. Fatal per §7 "Model bootstrap incomplete" if
// it is not.
func (c *Client) EnsureModelPresent(ctx context.Context, desired *Model) error {
	current, err := c.GetModel(ctx)
	if err != nil {
		return err
	}

	ops := BuildAddOnlyPatch(current, desired)
	if err := c.ApplyModelPatch(ctx, ops); err != nil {
		return err
	}

	refetched, err := c.GetModel(ctx)
	if err != nil {
		return err
	}
	if missing := DiffModel(refetched, desired); len(missing) > 0 {
		return fmt.Errorf("%w: still missing %v after applying add-only patch", model.ErrModelBootstrapIncomplete, missing)
	}
	return nil
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// statusToError maps a lake HTTP status to an error for every operation
// except CreateFolder, which has its own 409-as-success handling (§4.2
// scopes idempotent-conflict-as-success to folder creation only — a 409
// from an update, patch, or delete means a real conflict and must not be
// swallowed here).
func statusToError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w", model.ErrNotFound)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: lake returned %d", model.ErrPermissionDenied, status)
	case status >= 500:
		return fmt.Errorf("%w: lake returned %d", model.ErrTransientBackend, status)
	default:
		return fmt.Errorf("lake returned unexpected status %d", status)
	}
}
