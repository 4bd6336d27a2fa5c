// Package ingest implements the Metadata Ingester: for each discovered
// source document it creates or updates one lake document, maps the
// source ACL onto the lake's ACL model, and emits a transformation task
// onto the queue for text extraction, chunking, and embedding.
//
// Grounded on MetadataIngester.java.
package ingest

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/sourceclient"
)

// Queue is the subset of the Transformation Queue the ingester depends
// on, so this package doesn't need to import internal/queue directly.
type Queue interface {
	Enqueue(ctx context.Context, task model.TransformationTask) error
}

// Config configures an Ingester.
type Config struct {
	RepositoryID string
	TargetPath   string
}

// Ingester creates or updates lake documents for discovered source
// documents and hands off a TransformationTask per document.
type Ingester struct {
	cfg    Config
	lake   *lakeclient.Client
	source *sourceclient.Client
	queue  Queue
	logger *zap.Logger
}

// New constructs an Ingester.
func New(cfg Config, lake *lakeclient.Client, source *sourceclient.Client, queue Queue, logger *zap.Logger) *Ingester {
	return &Ingester{cfg: cfg, lake: lake, source: source, queue: queue, logger: logger}
}

// Ingest processes one SourceDocument: look up any existing
// LakeDocument, build the projection and ACL, create or update the lake
// record, and enqueue a TransformationTask.
//
// Permission-denied failures while creating a folder or document are
// terminal for this document and returned as such; any other failure is
// also returned so the caller can increment its job's failed counter and
// continue with the next document.
func (ing *Ingester) Ingest(ctx context.Context, doc model.SourceDocument) error {
	existing, err := ing.lake.FindBySourceID(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("looking up existing lake document for source %s: %w", doc.ID, err)
	}

	authorities := sourceclient.ExtractReadAuthorities(doc.Permissions)
	acl := lakeclient.BuildACL(keys(authorities), ing.cfg.RepositoryID)

	lakeDoc := ing.buildProjection(doc, acl)

	var lakeID string
	if existing != nil {
		lakeDoc.LakeID = existing.LakeID
		if _, err := ing.lake.UpdateByID(ctx, existing.LakeID, lakeDoc); err != nil {
			return fmt.Errorf("updating lake document %s: %w", existing.LakeID, err)
		}
		lakeID = existing.LakeID
	} else {
		parentPath := lakeclient.BuildParentPath(ing.cfg.TargetPath, ing.cfg.RepositoryID, path.Dir(doc.Path))
		if err := ing.lake.EnsureFolder(ctx, parentPath); err != nil {
			return fmt.Errorf("%w: ensuring parent folder %s: %v", model.ErrPermissionDenied, parentPath, err)
		}
		created, err := ing.lake.CreateAtPath(ctx, parentPath, lakeDoc)
		if err != nil {
			return fmt.Errorf("creating lake document under %s: %w", parentPath, err)
		}
		lakeID = created.LakeID
	}

	task := model.TransformationTask{
		SourceID:     doc.ID,
		LakeID:       lakeID,
		MimeType:     doc.MimeType,
		DocumentName: doc.Name,
		DocumentPath: doc.Path,
		CreatedAt:    time.Now(),
	}
	if err := ing.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueuing transformation task for %s: %w", doc.ID, err)
	}

	return nil
}

func (ing *Ingester) buildProjection(doc model.SourceDocument, acl []model.ACE) *model.LakeDocument {
	ingestProperties := map[string]any{}
	var ingestPropertyNames []string

	addProperty := func(key string, value any) {
		if value == nil || value == "" {
			return
		}
		ingestProperties[key] = value
		ingestPropertyNames = append(ingestPropertyNames, key)
	}
	addProperty("sourceNodeId", doc.ID)
	addProperty("sourceRepositoryId", ing.cfg.RepositoryID)
	addProperty("name", doc.Name)
	addProperty("path", doc.Path)
	addProperty("mimeType", doc.MimeType)
	if !doc.ModifiedAt.IsZero() {
		addProperty("modifiedAt", doc.ModifiedAt.Format(time.RFC3339))
	}

	primaryType := model.PrimaryTypeFile
	if doc.IsFolder {
		primaryType = model.PrimaryTypeFolder
	}

	return &model.LakeDocument{
		PrimaryType:         primaryType,
		Mixins:              []string{model.MixinRemoteIngest},
		SourceID:            doc.ID,
		SourceRepositoryID:  ing.cfg.RepositoryID,
		Paths:               []string{doc.Path},
		IngestProperties:    ingestProperties,
		IngestPropertyNames: ingestPropertyNames,
		ACL:                 acl,
		SyncStatus:          model.SyncPending,
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
