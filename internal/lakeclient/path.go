package lakeclient

import (
	"net/url"
	"strings"
)

// EncodePathSegments applies RFC 3986 path-segment percent-encoding to each
// '/'-separated segment of path and rejoins with an unencoded '/'. The
// lake's server rejects a literal %2F, so '/' itself must never be
// percent-encoded — only encoded within each segment.
func EncodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// NormalizeAbsolutePath mirrors MetadataIngester.normalizeAbsolutePath: a
// blank path becomes "/"; a relative path is anchored; a trailing slash
// (other than the root itself) is stripped.
func NormalizeAbsolutePath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "/"
	}
	normalized := path
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if len(normalized) > 1 && strings.HasSuffix(normalized, "/") {
		normalized = normalized[:len(normalized)-1]
	}
	return normalized
}

// JoinPath mirrors MetadataIngester.joinPath: append leaf to parentPath,
// treating the root specially so it doesn't produce a doubled slash.
func JoinPath(parentPath, leaf string) string {
	parent := NormalizeAbsolutePath(parentPath)
	if parent == "/" {
		return "/" + leaf
	}
	return parent + "/" + leaf
}

// BuildRepositoryRootPath mirrors MetadataIngester.buildRepositoryRootPath:
// joins the configured target path with the repository id, unless the
// repository id is blank.
func BuildRepositoryRootPath(targetPath, repositoryID string) string {
	base := NormalizeAbsolutePath(targetPath)
	if strings.TrimSpace(repositoryID) == "" {
		return base
	}
	cleanRepoID := strings.TrimPrefix(repositoryID, "/")
	return JoinPath(base, cleanRepoID)
}

// BuildParentPath mirrors MetadataIngester.buildContentLakeParentPath: the
// repository root joined with the source document's own directory path,
// omitting the repository prefix when the root is the filesystem root.
func BuildParentPath(targetPath, repositoryID, sourcePath string) string {
	base := BuildRepositoryRootPath(targetPath, repositoryID)
	if strings.TrimSpace(sourcePath) == "" {
		return base
	}
	alfrescoPath := NormalizeAbsolutePath(sourcePath)
	if base == "/" {
		return alfrescoPath
	}
	return base + alfrescoPath
}
