package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrPathTraversal    = errors.New("path contains directory traversal")
	ErrInvalidTenantID  = errors.New("invalid tenant ID format")
	ErrInvalidTeamID    = errors.New("invalid team ID format")
	ErrInvalidProjectID = errors.New("invalid project ID format")
	ErrInvalidPattern   = errors.New("invalid or dangerous pattern")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// scopeIDPattern matches a sanitized scope identifier: lowercase
// alphanumeric with underscores, 1-64 chars, not starting or ending
// with an underscore.
var scopeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{0,62}[a-z0-9]?$`)

// shellMetaChars flags characters that would be dangerous if a pattern
// ever reached a shell or a ReDoS-prone repeat construct.
var shellMetaChars = regexp.MustCompile(`[;\|\$` + "`" + `\\<>&(){}]|\.{3,}|\*{3,}`)

// ValidatePath rejects any path containing ".." (before or after
// filepath.Clean) and, when allowedRoot is non-empty, requires the
// cleaned absolute path to resolve inside it. Returns the cleaned
// absolute path on success.
func ValidatePath(path, allowedRoot string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: resolves to traversal", ErrPathTraversal)
	}

	abs := cleaned
	if !filepath.IsAbs(cleaned) {
		var err error
		abs, err = filepath.Abs(cleaned)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
	}
	if strings.Contains(abs, "..") {
		return "", fmt.Errorf("%w: absolute path contains traversal", ErrPathTraversal)
	}

	if allowedRoot == "" {
		return abs, nil
	}
	return abs, requireWithinRoot(abs, allowedRoot)
}

func requireWithinRoot(abs, allowedRoot string) error {
	absRoot, err := filepath.Abs(allowedRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve allowed root: %w", err)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: path escapes allowed root", ErrPathTraversal)
	}
	return nil
}

// ValidateProjectPath validates a caller-supplied project path with no
// root constraint — it only guards against traversal.
func ValidateProjectPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	return ValidatePath(path, "")
}

// SafeBasename is a traversal-checked replacement for filepath.Base on
// untrusted input.
func SafeBasename(path string) (string, error) {
	cleaned, err := ValidateProjectPath(path)
	if err != nil {
		return "", err
	}
	base := filepath.Base(cleaned)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid path base", ErrPathTraversal)
	}
	return base, nil
}

// scopeIDRule describes how one kind of scope ID validates: whether an
// empty value is accepted (team/project are optional; tenant is not)
// and the error to wrap on a format violation.
type scopeIDRule struct {
	optional bool
	errKind  error
}

func validateScopeID(id string, rule scopeIDRule) error {
	if id == "" {
		if rule.optional {
			return nil
		}
		return fmt.Errorf("%w: empty", rule.errKind)
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("%w: contains path characters", rule.errKind)
	}
	if !scopeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: must be lowercase alphanumeric with underscores (1-64 chars)", rule.errKind)
	}
	return nil
}

// ValidateTenantID requires id to be a non-empty sanitized scope ID.
func ValidateTenantID(id string) error {
	return validateScopeID(id, scopeIDRule{optional: false, errKind: ErrInvalidTenantID})
}

// ValidateTeamID accepts an empty id (team scoping is optional) but
// otherwise requires a sanitized scope ID.
func ValidateTeamID(id string) error {
	return validateScopeID(id, scopeIDRule{optional: true, errKind: ErrInvalidTeamID})
}

// ValidateProjectID accepts an empty id (project scoping is optional)
// but otherwise requires a sanitized scope ID.
func ValidateProjectID(id string) error {
	return validateScopeID(id, scopeIDRule{optional: true, errKind: ErrInvalidProjectID})
}

// ValidateRequiredID validates an identifier that must never be empty —
// for use where an empty value could silently bypass an authorization
// check.
func ValidateRequiredID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required and cannot be empty", fieldName)
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid %s: contains path characters", fieldName)
	}
	if !scopeIDPattern.MatchString(id) {
		return fmt.Errorf("invalid %s: must be lowercase alphanumeric with underscores (1-64 chars)", fieldName)
	}
	return nil
}

// ValidateGlobPattern rejects shell metacharacters, ReDoS-prone repeats,
// path traversal, and patterns filepath.Match itself can't parse. An
// empty pattern is allowed (it means "no filter").
func ValidateGlobPattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	if shellMetaChars.MatchString(pattern) {
		return fmt.Errorf("%w: contains dangerous characters", ErrInvalidPattern)
	}
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("%w: contains path traversal", ErrInvalidPattern)
	}
	if _, err := filepath.Match(pattern, "test"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

// ValidateGlobPatterns validates every pattern, naming the first
// offending index in the returned error.
func ValidateGlobPatterns(patterns []string) error {
	for i, p := range patterns {
		if err := ValidateGlobPattern(p); err != nil {
			return fmt.Errorf("pattern[%d] %q: %w", i, p, err)
		}
	}
	return nil
}

// SanitizeAndValidateTenantID sanitizes id via Identifier and validates
// the result, the recommended path for user-supplied tenant IDs.
func SanitizeAndValidateTenantID(id string) (string, error) {
	sanitized := Identifier(id)
	if err := ValidateTenantID(sanitized); err != nil {
		return "", err
	}
	return sanitized, nil
}
