// Package sanitize turns arbitrary strings into identifiers safe to use
// as vector-store collection names and validates user-supplied scope
// IDs (tenant/team/project) before they reach a query or a file path.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the longest collection-name component Qdrant
	// and chromem accept.
	MaxIdentifierLength = 64

	// hashSuffixLength is "_" plus an 8-hex-char hash: 9 characters.
	hashSuffixLength = 9

	// DefaultIdentifier is returned when sanitization leaves nothing usable.
	DefaultIdentifier = "default"
)

// Identifier lowercases s, folds every run of non-[a-z0-9] characters to
// a single underscore, trims the result, and falls back to
// DefaultIdentifier if nothing survives. Long results are truncated with
// a content hash appended so two long-but-distinct inputs never collide.
//
//	Identifier("github.com/user") == "github_com_user"
//	Identifier("My Project!")     == "my_project"
//	Identifier("")                == "default"
func Identifier(s string) string {
	folded := strings.Trim(foldToUnderscoreRuns(s), "_")
	if folded == "" {
		return DefaultIdentifier
	}
	if len(folded) > MaxIdentifierLength {
		return truncateWithHash(folded)
	}
	return folded
}

// foldToUnderscoreRuns lowercases s and collapses each maximal run of
// disallowed characters into one underscore, in a single pass.
func foldToUnderscoreRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	return b.String()
}

// truncateWithHash shortens s to MaxIdentifierLength by keeping a prefix
// and appending "_" plus the first 8 hex chars of sha256(s), so distinct
// long inputs that share a prefix still produce distinct identifiers.
func truncateWithHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(sum[:])[:8]
	prefix := strings.TrimRight(s[:MaxIdentifierLength-hashSuffixLength], "_")
	return prefix + suffix
}

// CollectionName joins sanitized tenant and project identifiers (plus an
// optional suffix) into a single collection name, itself re-truncated
// with a hash if the join still exceeds MaxIdentifierLength.
func CollectionName(tenant, project, suffix string) string {
	parts := []string{Identifier(tenant), Identifier(project)}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	name := strings.Join(parts, "_")
	if len(name) > MaxIdentifierLength {
		return truncateWithHash(name)
	}
	return name
}
