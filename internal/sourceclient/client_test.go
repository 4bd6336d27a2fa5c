package sourceclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"illegal chars", `a/b\c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"blank after cleaning", "***", "_"},
		{"empty", "", "content.bin"},
		{"long name truncated", string(make([]byte, 200)), func() string {
			b := make([]byte, 200)
			cleaned := sanitizeFileNamePattern.ReplaceAllString(string(b), "_")
			return cleaned[:120]
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeFileName(tc.in)
			assert.LessOrEqual(t, len(got), 120)
			if tc.name != "long name truncated" {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestExtractReadAuthorities(t *testing.T) {
	t.Run("nil permissions", func(t *testing.T) {
		assert.Empty(t, ExtractReadAuthorities(nil))
	})

	t.Run("inheritance disabled excludes inherited", func(t *testing.T) {
		perms := &model.Permissions{
			IsInheritanceEnabled: false,
			Inherited: []model.PermissionEntry{
				{AuthorityID: "GROUP_inherited", AccessStatus: "ALLOWED", Name: "Consumer"},
			},
			LocallySet: []model.PermissionEntry{
				{AuthorityID: "alice", AccessStatus: "ALLOWED", Name: "Manager"},
			},
		}
		got := ExtractReadAuthorities(perms)
		assert.True(t, got["alice"])
		assert.False(t, got["GROUP_inherited"])
	})

	t.Run("denied and non-read roles excluded", func(t *testing.T) {
		perms := &model.Permissions{
			IsInheritanceEnabled: true,
			Inherited: []model.PermissionEntry{
				{AuthorityID: "bob", AccessStatus: "DENIED", Name: "Manager"},
				{AuthorityID: "carol", AccessStatus: "ALLOWED", Name: "SiteAdmin"},
				{AuthorityID: "dave", AccessStatus: "ALLOWED", Name: "Collaborator"},
			},
		}
		got := ExtractReadAuthorities(perms)
		assert.False(t, got["bob"])
		assert.False(t, got["carol"])
		assert.True(t, got["dave"])
	})
}
