// Package discovery walks a source repository's folder trees and yields
// documents passing type, mimetype, aspect-exclusion, and path-glob
// filters, consuming internal/sourceclient for paging.
package discovery

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/sourceclient"
)

// Root describes one folder tree to traverse.
type Root struct {
	FolderID  string
	Recursive bool
	Types     []string
	MimeTypes []string
}

// Discoverer walks Roots and yields SourceDocuments passing the
// exclusion config in effect at traversal time.
type Discoverer struct {
	source    *sourceclient.Client
	exclusion *ExclusionWatcher
}

// New constructs a Discoverer.
func New(source *sourceclient.Client, exclusion *ExclusionWatcher) *Discoverer {
	return &Discoverer{source: source, exclusion: exclusion}
}

// Discover walks every root and sends each qualifying document on the
// returned channel, closing it when traversal completes or ctx is
// cancelled. Traversal is sequential; the caller controls read
// concurrency by how fast it drains the channel.
func (d *Discoverer) Discover(ctx context.Context, roots []Root) (<-chan model.SourceDocument, <-chan error) {
	out := make(chan model.SourceDocument)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		for _, root := range roots {
			if err := d.walk(ctx, out, root, root.FolderID); err != nil {
				errc <- err
				return
			}
		}
	}()

	return out, errc
}

func (d *Discoverer) walk(ctx context.Context, out chan<- model.SourceDocument, root Root, folderID string) error {
	nodes, err := d.source.ListAllChildren(ctx, folderID)
	if err != nil {
		return err
	}

	excl := ExclusionConfig{}
	if d.exclusion != nil {
		excl = d.exclusion.Current()
	}

	for _, node := range nodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if node.IsFolder {
			if root.Recursive {
				if err := d.walk(ctx, out, root, node.ID); err != nil {
					return err
				}
			}
			continue
		}

		if !qualifies(node, root, excl) {
			continue
		}

		select {
		case out <- toSourceDocument(node):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func qualifies(node sourceclient.Node, root Root, excl ExclusionConfig) bool {
	if len(root.Types) > 0 && !contains(root.Types, node.NodeType) {
		return false
	}
	if len(root.MimeTypes) > 0 {
		if node.Content == nil || !contains(root.MimeTypes, node.Content.MimeType) {
			return false
		}
	}
	if excl.hasAspect(node.AspectNames) {
		return false
	}
	name := ""
	if node.Path != nil {
		name = node.Path.Name
	}
	if excl.matchesPath(name) {
		return false
	}
	return true
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func toSourceDocument(node sourceclient.Node) model.SourceDocument {
	mimeType := ""
	if node.Content != nil {
		mimeType = node.Content.MimeType
	}
	path := ""
	if node.Path != nil {
		path = node.Path.Name
	}

	var perms *model.Permissions
	if node.Permissions != nil {
		perms = &model.Permissions{
			IsInheritanceEnabled: node.Permissions.IsInheritanceEnabled,
			Inherited:            toPermissionEntries(node.Permissions.Inherited),
			LocallySet:           toPermissionEntries(node.Permissions.LocallySet),
		}
	}

	modifiedAt, _ := time.Parse(time.RFC3339, node.ModifiedAt)

	return model.SourceDocument{
		ID:          node.ID,
		Name:        node.Name,
		Path:        path,
		NodeType:    node.NodeType,
		MimeType:    mimeType,
		ModifiedAt:  modifiedAt,
		Permissions: perms,
		IsFolder:    node.IsFolder,
		AspectNames: node.AspectNames,
	}
}

func toPermissionEntries(wire []sourceclient.PermissionWireEntry) []model.PermissionEntry {
	entries := make([]model.PermissionEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, model.PermissionEntry{
			AuthorityID:  w.AuthorityID,
			AccessStatus: w.AccessStatus,
			Name:         w.Name,
		})
	}
	return entries
}
