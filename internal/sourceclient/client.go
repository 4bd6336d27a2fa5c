// Package sourceclient is a typed wrapper over the source repository's REST
// API: paginated children, content streaming to a temp file, read-authority
// extraction from permission records, a cached repository id, and group
// listing for a user.
//
// Grounded on AlfrescoClient.java: page size 100 for children, temp-file
// naming/sanitization, double-checked-locking repository id cache, and the
// READ_ROLES authority extraction rule.
package sourceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

const childrenPageSize = 100

// readRoles is the set of source repository roles that grant read access,
// per AlfrescoClient.extractReadAuthorities.
var readRoles = map[string]bool{
	"Consumer":     true,
	"Contributor":  true,
	"Collaborator": true,
	"Coordinator":  true,
	"Manager":      true,
}

// Config configures a Client.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// Client is a typed wrapper over the source repository's REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	repoMu sync.Mutex
	repoID string
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Node is the wire shape of one entry returned by ListChildren.
type Node struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	NodeType    string             `json:"nodeType"`
	IsFolder    bool               `json:"isFolder"`
	Path        *NodePath          `json:"path,omitempty"`
	Content     *NodeContent       `json:"content,omitempty"`
	ModifiedAt  string             `json:"modifiedAt,omitempty"`
	AspectNames []string           `json:"aspectNames,omitempty"`
	Permissions *NodePermissions   `json:"permissions,omitempty"`
}

type NodePath struct {
	Name string `json:"name"`
}

type NodeContent struct {
	MimeType string `json:"mimeType"`
}

type NodePermissions struct {
	IsInheritanceEnabled bool                  `json:"isInheritanceEnabled"`
	Inherited            []PermissionWireEntry `json:"inherited"`
	LocallySet            []PermissionWireEntry `json:"locallySet"`
}

type PermissionWireEntry struct {
	AuthorityID  string `json:"authorityId"`
	AccessStatus string `json:"accessStatus"`
	Name         string `json:"name"`
}

type childrenPage struct {
	List struct {
		Entries []struct {
			Entry Node `json:"entry"`
		} `json:"entries"`
		Pagination struct {
			HasMoreItems bool `json:"hasMoreItems"`
		} `json:"pagination"`
	} `json:"list"`
}

// ListChildren returns one page of children of folderID starting at skip,
// at most max entries.
func (c *Client) ListChildren(ctx context.Context, folderID string, skip, max int) ([]Node, bool, error) {
	url := fmt.Sprintf("%s/nodes/%s/children?skipCount=%d&maxItems=%d", c.cfg.BaseURL, folderID, skip, max)
	var page childrenPage
	if err := c.getJSON(ctx, url, &page); err != nil {
		return nil, false, err
	}
	nodes := make([]Node, 0, len(page.List.Entries))
	for _, e := range page.List.Entries {
		nodes = append(nodes, e.Entry)
	}
	return nodes, page.List.Pagination.HasMoreItems, nil
}

// ListAllChildren pages ListChildren with size 100 until a short page.
func (c *Client) ListAllChildren(ctx context.Context, folderID string) ([]Node, error) {
	var all []Node
	skip := 0
	for {
		page, hasMore, err := c.ListChildren(ctx, folderID, skip, childrenPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !hasMore || len(page) < childrenPageSize {
			return all, nil
		}
		skip += childrenPageSize
	}
}

// GetContent returns the raw bytes of a node's content.
func (c *Client) GetContent(ctx context.Context, id string) ([]byte, error) {
	url := fmt.Sprintf("%s/nodes/%s/content", c.cfg.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientBackend, err)
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

var sanitizeFileNamePattern = regexp.MustCompile(`[\\/:*?"<>|[:cntrl:]]+`)

// sanitizeFileName mirrors AlfrescoClient.sanitizeFileName: replace illegal
// filesystem characters with '_', truncate to 120 chars, and fall back to
// "content.bin" if nothing is left.
func sanitizeFileName(name string) string {
	cleaned := sanitizeFileNamePattern.ReplaceAllString(name, "_")
	if len(cleaned) > 120 {
		cleaned = cleaned[:120]
	}
	if strings.TrimSpace(cleaned) == "" {
		return "content.bin"
	}
	return cleaned
}

// DownloadContentToTempFile streams a node's content to a temp file named
// "source-node-<id>-<sanitizedFileName>" and returns its path. The caller
// owns the file and must remove it on every exit path.
func (c *Client) DownloadContentToTempFile(ctx context.Context, id, fileName string) (string, error) {
	content, err := c.GetContent(ctx, id)
	if err != nil {
		return "", err
	}

	pattern := fmt.Sprintf("source-node-%s-%s", id, sanitizeFileName(fileName))
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return f.Name(), nil
}

// RepositoryID lazily reads the discovery endpoint exactly once and
// memoizes the result under a mutex (double-checked locking).
func (c *Client) RepositoryID(ctx context.Context) (string, error) {
	c.repoMu.Lock()
	defer c.repoMu.Unlock()

	if c.repoID != "" {
		return c.repoID, nil
	}

	var discovery struct {
		Entry struct {
			Repository struct {
				ID string `json:"id"`
			} `json:"repository"`
		} `json:"entry"`
	}
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/discovery", &discovery); err != nil {
		return "", err
	}
	c.repoID = discovery.Entry.Repository.ID
	return c.repoID, nil
}

// ExtractReadAuthorities returns the union of authorities that grant read
// access to node, per §4.1: inherited entries only if inheritance is
// enabled, plus locally-set entries; an entry counts only if its access
// status is ALLOWED and its role is in the read-role set.
func ExtractReadAuthorities(perms *model.Permissions) map[string]bool {
	readers := make(map[string]bool)
	if perms == nil {
		return readers
	}

	add := func(entries []model.PermissionEntry) {
		for _, e := range entries {
			if e.AccessStatus == "ALLOWED" && readRoles[e.Name] {
				readers[e.AuthorityID] = true
			}
		}
	}

	if perms.IsInheritanceEnabled {
		add(perms.Inherited)
	}
	add(perms.LocallySet)
	return readers
}

// ListGroups pages the group-memberships endpoint for user with max 1000.
func (c *Client) ListGroups(ctx context.Context, user string) ([]string, error) {
	url := fmt.Sprintf("%s/people/%s/groups?skipCount=0&maxItems=1000", c.cfg.BaseURL, user)
	var resp struct {
		List struct {
			Entries []struct {
				Entry struct {
					ID string `json:"id"`
				} `json:"entry"`
			} `json:"entries"`
		} `json:"list"`
	}
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(resp.List.Entries))
	for _, e := range resp.List.Entries {
		groups = append(groups, e.Entry.ID)
	}
	return groups, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransientBackend, err)
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusToError surfaces 401/403 verbatim per §4.1 failures, maps 404 to
// ErrNotFound (a source deleted between discovery and fetch, not a
// backend fault), and treats every other non-2xx status as transient.
func statusToError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: source repository returned 404", model.ErrNotFound)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: source repository returned %d", model.ErrPermissionDenied, status)
	default:
		return fmt.Errorf("%w: source repository returned %d", model.ErrTransientBackend, status)
	}
}
