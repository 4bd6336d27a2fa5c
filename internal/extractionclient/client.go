// Package extractionclient uploads content to an external text-extraction
// service and returns text/plain bytes, caching the service's supported
// source→target matrix. Grounded on TransformClient.java.
package extractionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

const (
	targetMimeType        = "text/plain"
	targetExtension       = "txt"
	defaultConfigCacheTTL = 5 * time.Minute

	// defaultRequestsPerSecond and defaultBurst bound how often this client
	// calls the extraction service; the service is typically CPU-bound on
	// document conversion and falls over under bursty concurrent uploads.
	defaultRequestsPerSecond = 10
	defaultBurst             = 5
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	TimeoutMS         int64
	ConfigCacheTTL    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client uploads content to the extraction service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu            sync.Mutex
	cachedConfig  *engineConfig
	cachedConfigAt time.Time
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.ConfigCacheTTL == 0 {
		cfg.ConfigCacheTTL = defaultConfigCacheTTL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
	}
}

type engineConfig struct {
	Transformers []transformerDef `json:"transformers"`
}

type transformerDef struct {
	TransformerName             string          `json:"transformerName"`
	SupportedSourceAndTargetList []supportedPair `json:"supportedSourceAndTargetList"`
}

type supportedPair struct {
	SourceMediaType string `json:"sourceMediaType"`
	TargetMediaType string `json:"targetMediaType"`
}

// Transform posts content as a multipart request and returns the
// transformed bytes.
func (c *Client) Transform(ctx context.Context, content []byte, sourceMime, targetMime string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "content"+extensionForMimeType(sourceMime))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	for field, value := range map[string]string{
		"sourceMimetype":  sourceMime,
		"targetMimetype":  targetMime,
		"targetExtension": targetExtension,
	} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/transform?timeout=%s", c.cfg.BaseURL, strconv.FormatInt(c.cfg.TimeoutMS, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("extraction rate limiter: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: extraction request failed: %v", model.ErrTransientBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: extraction service returned %d", model.ErrTransientBackend, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// TransformToText is a convenience wrapper targeting text/plain, decoding
// the response as UTF-8.
func (c *Client) TransformToText(ctx context.Context, content []byte, sourceMime string) (string, error) {
	if !c.IsSupported(ctx, sourceMime, targetMimeType) {
		return "", fmt.Errorf("extraction service does not support %s -> %s", sourceMime, targetMimeType)
	}
	out, err := c.Transform(ctx, content, sourceMime, targetMimeType)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsSupported consults the cached engine configuration (TTL 5 min by
// default); a lookup failure fails open (returns true) so the caller
// attempts the actual transform.
func (c *Client) IsSupported(ctx context.Context, sourceMime, targetMime string) bool {
	if sourceMime == "" || targetMime == "" {
		return false
	}

	cfg := c.engineConfigCached(ctx)
	if cfg == nil {
		return true
	}

	for _, t := range cfg.Transformers {
		for _, pair := range t.SupportedSourceAndTargetList {
			if pair.SourceMediaType == sourceMime && pair.TargetMediaType == targetMime {
				return true
			}
		}
	}
	return false
}

func (c *Client) engineConfigCached(ctx context.Context) *engineConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedConfig != nil && time.Since(c.cachedConfigAt) < c.cfg.ConfigCacheTTL {
		return c.cachedConfig
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/transform/config", nil)
	if err != nil {
		return c.cachedConfig
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("could not read extraction engine config", zap.Error(err))
		}
		return c.cachedConfig
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.cachedConfig
	}

	var fetched engineConfig
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		return c.cachedConfig
	}

	c.cachedConfig = &fetched
	c.cachedConfigAt = time.Now()
	return c.cachedConfig
}

func extensionForMimeType(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return ".pdf"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.ms-excel":
		return ".xls"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "application/vnd.ms-powerpoint":
		return ".ppt"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ".pptx"
	case "text/html":
		return ".html"
	case "text/xml", "application/xml":
		return ".xml"
	case "application/json":
		return ".json"
	case "text/plain":
		return ".txt"
	case "text/csv":
		return ".csv"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	default:
		return ""
	}
}
