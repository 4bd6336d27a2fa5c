// Package model holds the shared data types that flow between the source
// repository, the content lake, and this module's ingestion and retrieval
// pipelines.
package model

import "time"

// SyncStatus is the lifecycle state of a LakeDocument's content processing.
type SyncStatus string

const (
	SyncPending    SyncStatus = "Pending"
	SyncProcessing SyncStatus = "Processing"
	SyncIndexed    SyncStatus = "Indexed"
	SyncFailed     SyncStatus = "Failed"
)

// PrimaryType is the lake's node type for a LakeDocument.
type PrimaryType string

const (
	PrimaryTypeFile   PrimaryType = "File"
	PrimaryTypeFolder PrimaryType = "Folder"
)

const (
	// MixinRemoteIngest marks a document as ingested by this pipeline.
	MixinRemoteIngest = "RemoteIngest"
	// MixinEmbed marks a document as carrying at least one embedding.
	MixinEmbed = "Embed"

	// EveryonePrincipal is the well-known principal id that is never
	// suffixed with a repository id.
	EveryonePrincipal = "__Everyone__"
	// GroupPrefix identifies group authorities.
	GroupPrefix = "GROUP_"
	// GroupEveryone is the source repository's well-known "everyone" group.
	GroupEveryone = "GROUP_EVERYONE"
	// PermissionRead is the only permission this pipeline ever grants.
	PermissionRead = "Read"
)

// Permissions describes a source node's access control entries, split into
// entries inherited from an ancestor and entries set directly on the node.
type Permissions struct {
	IsInheritanceEnabled bool
	Inherited            []PermissionEntry
	LocallySet           []PermissionEntry
}

// PermissionEntry is one row of a source node's permission record.
type PermissionEntry struct {
	AuthorityID  string
	AccessStatus string // "ALLOWED" or "DENIED"
	Name         string // role, e.g. "Consumer", "Manager"
}

// SourceDocument is the read-only projection of a node in the source
// repository that Discovery and the Metadata Ingester operate on.
type SourceDocument struct {
	ID          string
	Name        string
	Path        string
	NodeType    string
	MimeType    string
	ModifiedAt  time.Time
	Permissions *Permissions
	IsFolder    bool
	AspectNames []string
}

// User is an ACE principal identifying a single user.
type User struct {
	ID string `json:"id"`
}

// Group is an ACE principal identifying a group.
type Group struct {
	ID string `json:"id"`
}

// ACE is a single access control entry on a LakeDocument.
type ACE struct {
	Granted    bool   `json:"granted"`
	Permission string `json:"permission"`
	User       *User  `json:"user,omitempty"`
	Group      *Group `json:"group,omitempty"`
}

// EmbeddingLocation is a tagged union of where, within a document, an
// embedding's source text was found. At most one of the fields is set.
type EmbeddingLocation struct {
	Text        *TextLocation        `json:"text,omitempty"`
	Position    *PositionLocation    `json:"position,omitempty"`
	Timestamp   *TimestampLocation   `json:"timestamp,omitempty"`
	Spreadsheet *SpreadsheetLocation `json:"spreadsheet,omitempty"`
}

type TextLocation struct {
	Page      *int `json:"page,omitempty"`
	Paragraph *int `json:"paragraph,omitempty"`
}

type PositionLocation struct {
	Left, Top, Right, Bottom float64
}

type TimestampLocation struct {
	Start, End time.Duration
}

type SpreadsheetLocation struct {
	Column, Row int
	Sheet       string
}

// Embedding is one vector computed from a chunk of a LakeDocument's text.
type Embedding struct {
	Type     string             `json:"type"`
	Text     string             `json:"text"`
	Vector   []float64          `json:"vector"`
	Location *EmbeddingLocation `json:"location,omitempty"`

	// ChunkID is never serialized; it is used only to correlate an
	// embedding back to the Chunk it was computed from while the worker
	// pool is assembling the update payload.
	ChunkID string `json:"-"`
}

// FlattenedSourceFields is the debug-only, never-serialized mirror of a
// LakeDocument's source-native attributes. See DESIGN.md OQ-1.
type FlattenedSourceFields struct {
	SourceNodeID           string
	SourceRepositoryIDFlat  string
	SourceName              string
	SourcePath              string
	SourceMimeType          string
	SourceModifiedAt        string
	SourceReadAuthorities   []string
}

// LakeDocument is the content lake's record for one source document.
type LakeDocument struct {
	LakeID              string                 `json:"lakeId,omitempty"`
	PrimaryType         PrimaryType            `json:"primaryType"`
	Mixins              []string               `json:"mixins"`
	SourceID            string                 `json:"sourceId"`
	SourceRepositoryID  string                 `json:"sourceRepositoryId"`
	Paths               []string               `json:"paths"`
	IngestProperties    map[string]any         `json:"ingestProperties"`
	IngestPropertyNames []string               `json:"ingestPropertyNames"`
	ACL                 []ACE                  `json:"acl"`
	FullText            string                 `json:"fullText,omitempty"`
	Embeddings          []Embedding            `json:"embeddings,omitempty"`
	SyncStatus          SyncStatus             `json:"syncStatus"`
	SyncError           string                 `json:"syncError,omitempty"`

	// Flattened is never marshaled. See DESIGN.md OQ-1.
	Flattened *FlattenedSourceFields `json:"-"`
}

// HasMixin reports whether the document carries the given mixin marker.
func (d *LakeDocument) HasMixin(name string) bool {
	for _, m := range d.Mixins {
		if m == name {
			return true
		}
	}
	return false
}

// Chunk is an offset-tagged substring of a document's extracted text.
type Chunk struct {
	NodeID      string
	Text        string
	Index       int
	StartOffset int
	EndOffset   int
}

// ID returns the chunk's stable identifier, nodeId + "_chunk_" + index.
func (c Chunk) ID() string {
	return c.NodeID + "_chunk_" + itoa(c.Index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// TransformationTask is the unit of work handed from the Metadata Ingester
// to the Transformation Queue.
type TransformationTask struct {
	SourceID      string
	LakeID        string
	MimeType      string
	DocumentName  string
	DocumentPath  string
	CreatedAt     time.Time
	RetryCount    int
}

// JobStatus is the lifecycle state of an IngestionJob.
type JobStatus string

const (
	JobRunning   JobStatus = "Running"
	JobCompleted JobStatus = "Completed"
	JobFailed    JobStatus = "Failed"
)

// IngestionJob tracks the progress of one batch sync invocation.
type IngestionJob struct {
	ID          string
	Status      JobStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Discovered  int64
	Ingested    int64
	Failed      int64
}

// RoleUser is the only role this pipeline's authentication schemes grant.
const RoleUser = "ROLE_USER"

// Principal is the authenticated caller attached to a request's context by
// the Basic or Ticket authentication middleware.
type Principal struct {
	Username string
	Roles    []string
}

// HasRole reports whether p carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
