package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifier(t *testing.T) {
	cases := map[string]string{
		"myproject":            "myproject",
		"MyProject":            "myproject",
		"github.com":           "github_com",
		"user/repo":            "user_repo",
		"github.com/dahendel":  "github_com_dahendel",
		"my-project!@#$%":      "my_project",
		"foo___bar":            "foo_bar",
		"_foo_bar_":            "foo_bar",
		"":                     "default",
		"!!!":                  "default",
		"project123":           "project123",
		"my_project":           "my_project",
		"my project":           "my_project",
	}

	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, Identifier(input))
		})
	}
}

func TestIdentifier_TruncatesLongInputWithHash(t *testing.T) {
	result := Identifier(strings.Repeat("a", 100))
	assert.LessOrEqual(t, len(result), MaxIdentifierLength)
	assert.Contains(t, result, "_")
}

func TestIdentifier_DistinctLongInputsStayDistinct(t *testing.T) {
	a := Identifier(strings.Repeat("a", 100))
	b := Identifier(strings.Repeat("a", 99) + "b")
	assert.NotEqual(t, a, b)
}

func TestIdentifier_ExactlyMaxLengthIsUnmodified(t *testing.T) {
	input := strings.Repeat("a", MaxIdentifierLength)
	assert.Equal(t, input, Identifier(input))
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name                     string
		tenant, project, suffix string
		want                     string
	}{
		{"simple", "user", "project", "codebase", "user_project_codebase"},
		{"github tenant", "github.com/acme", "lakesync", "codebase", "github_com_acme_lakesync_codebase"},
		{"no suffix", "user", "project", "", "user_project"},
		{"sanitizes both sides", "My-Tenant!", "My Project", "memories", "my_tenant_my_project_memories"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CollectionName(tc.tenant, tc.project, tc.suffix))
		})
	}
}

func TestCollectionName_StaysWithinLengthLimit(t *testing.T) {
	result := CollectionName(strings.Repeat("a", 50), strings.Repeat("b", 50), "codebase")
	assert.LessOrEqual(t, len(result), MaxIdentifierLength)
}

func TestCollectionName_OnlyProducesValidChars(t *testing.T) {
	result := CollectionName("github.com/user", "my-project!", "test")
	for _, r := range result {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_',
			"unexpected char %q in %q", string(r), result)
	}
}
