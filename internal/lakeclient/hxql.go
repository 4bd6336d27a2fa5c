package lakeclient

import "strings"

// EscapeHXQL doubles single quotes per the content lake's HXQL string
// literal escaping rule.
func EscapeHXQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// FindBySourceIDQuery builds the HXQL used by findBySourceId: a single
// file document matching sourceId, limited to one result.
func FindBySourceIDQuery(sourceID string) string {
	return "SELECT * FROM SysContent WHERE sys_primaryType = 'SysFile' AND sys_name = '" +
		EscapeHXQL(sourceID) + "'"
}
