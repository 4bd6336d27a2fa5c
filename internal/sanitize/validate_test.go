package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		allowedRoot string
		wantErr     error
	}{
		{name: "empty path", path: "", wantErr: ErrEmptyPath},
		{name: "relative path", path: "foo/bar"},
		{name: "absolute path", path: "/tmp/test"},
		{name: "traversal at start", path: "../etc/passwd", wantErr: ErrPathTraversal},
		{name: "traversal in middle", path: "foo/../../../etc/passwd", wantErr: ErrPathTraversal},
		{name: "traversal survives url-style encoding", path: "foo/..%2f..%2fetc/passwd", wantErr: ErrPathTraversal},
		{name: "traversal at end", path: "foo/bar/..", wantErr: ErrPathTraversal},
		{name: "within allowed root", path: "/tmp/test/subdir", allowedRoot: "/tmp/test"},
		{name: "escapes allowed root", path: "/tmp/test/../other", allowedRoot: "/tmp/test", wantErr: ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePath(tt.path, tt.allowedRoot)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateProjectPath(t *testing.T) {
	_, err := ValidateProjectPath("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = ValidateProjectPath("../escape")
	assert.ErrorIs(t, err, ErrPathTraversal)

	abs, err := ValidateProjectPath("relative/path")
	assert.NoError(t, err)
	assert.True(t, len(abs) > 0)
}

func TestSafeBasename(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantBase string
		wantErr  error
	}{
		{name: "simple path", path: "/foo/bar/baz", wantBase: "baz"},
		{name: "single component", path: "file.txt", wantBase: "file.txt"},
		{name: "empty path", path: "", wantErr: ErrEmptyPath},
		{name: "traversal attack", path: "/foo/../bar", wantErr: ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeBasename(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantBase, got)
		})
	}
}

func TestValidateTenantID(t *testing.T) {
	valid := []string{"mytenant", "my_tenant_123", "a"}
	for _, id := range valid {
		t.Run("valid/"+id, func(t *testing.T) {
			assert.NoError(t, ValidateTenantID(id))
		})
	}

	invalid := []string{"", "tenant/bad", "tenant\\bad", "tenant..bad", "MyTenant", "_tenant", "tenant@bad!"}
	for _, id := range invalid {
		t.Run("invalid/"+id, func(t *testing.T) {
			assert.ErrorIs(t, ValidateTenantID(id), ErrInvalidTenantID)
		})
	}
}

func TestValidateTeamID_EmptyIsOptional(t *testing.T) {
	assert.NoError(t, ValidateTeamID(""))
	assert.NoError(t, ValidateTeamID("platform"))
	assert.ErrorIs(t, ValidateTeamID("team/bad"), ErrInvalidTeamID)
}

func TestValidateProjectID_EmptyIsOptional(t *testing.T) {
	assert.NoError(t, ValidateProjectID(""))
	assert.NoError(t, ValidateProjectID("codebase"))
	assert.ErrorIs(t, ValidateProjectID("project/bad"), ErrInvalidProjectID)
}

func TestValidateRequiredID(t *testing.T) {
	assert.Error(t, ValidateRequiredID("", "orgID"))
	assert.Error(t, ValidateRequiredID("bad/id", "orgID"))
	assert.NoError(t, ValidateRequiredID("org_1", "orgID"))
}

func TestValidateGlobPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr error
	}{
		{name: "empty is allowed", pattern: ""},
		{name: "simple glob", pattern: "*.go"},
		{name: "recursive glob", pattern: "**/*.go"},
		{name: "directory glob", pattern: "vendor/**"},
		{name: "traversal", pattern: "../**/*.go", wantErr: ErrInvalidPattern},
		{name: "shell semicolon", pattern: "*.go; rm -rf /", wantErr: ErrInvalidPattern},
		{name: "pipe", pattern: "*.go | cat", wantErr: ErrInvalidPattern},
		{name: "backtick", pattern: "*.`whoami`", wantErr: ErrInvalidPattern},
		{name: "excessive wildcards", pattern: "*****.go", wantErr: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGlobPattern(tt.pattern)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateGlobPatterns_NamesOffendingIndex(t *testing.T) {
	err := ValidateGlobPatterns([]string{"*.go", "vendor/**", "../bad"})
	assert.ErrorIs(t, err, ErrInvalidPattern)
	assert.Contains(t, err.Error(), "pattern[2]")
}

func TestSanitizeAndValidateTenantID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already valid", "mytenant", "mytenant"},
		{"uppercase folded", "MyTenant", "mytenant"},
		{"dots and hyphens folded", "my-tenant.com", "my_tenant_com"},
		{"spaces folded", "My Tenant Name", "my_tenant_name"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeAndValidateTenantID(tc.input)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSanitizeAndValidateTenantID_NeverErrors(t *testing.T) {
	// Identifier always produces a string matching scopeIDPattern, so this
	// composition cannot fail regardless of input.
	_, err := SanitizeAndValidateTenantID("!!!")
	assert.NoError(t, err)
}
