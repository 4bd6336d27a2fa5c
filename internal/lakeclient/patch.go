package lakeclient

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// PatchOp is one JSON-Patch (RFC 6902) operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Model is the content lake's schema document: three top-level sections,
// each a map from name to an arbitrary definition.
type Model struct {
	Schemas     map[string]any `json:"schemas"`
	Types       map[string]any `json:"types"`
	MixinTypes  map[string]any `json:"mixinTypes"`
}

var modelSections = []struct {
	path string
	get  func(*Model) map[string]any
}{
	{"/schemas", func(m *Model) map[string]any { return m.Schemas }},
	{"/types", func(m *Model) map[string]any { return m.Types }},
	{"/mixinTypes", func(m *Model) map[string]any { return m.MixinTypes }},
}

// escapeJSONPointerToken escapes '~' and '/' per RFC 6901.
func escapeJSONPointerToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return token
}

// BuildAddOnlyPatch computes a JSON-Patch that adds only entries present in
// desired but missing from current, per section (schemas/types/mixinTypes).
// If a whole section is absent from current, the entire desired section is
// added in one op; otherwise each missing key gets its own "add" op.
// Grounded on HxprModelProvisioner.buildAddOnlyPatch/addMissingSectionEntries.
func BuildAddOnlyPatch(current, desired *Model) []PatchOp {
	var ops []PatchOp

	for _, section := range modelSections {
		desiredSection := section.get(desired)
		currentSection := section.get(current)

		if len(desiredSection) == 0 {
			continue
		}

		if currentSection == nil {
			ops = append(ops, PatchOp{Op: "add", Path: section.path, Value: desiredSection})
			continue
		}

		for key, value := range desiredSection {
			if _, exists := currentSection[key]; exists {
				continue
			}
			ops = append(ops, PatchOp{
				Op:    "add",
				Path:  section.path + "/" + escapeJSONPointerToken(key),
				Value: value,
			})
		}
	}

	return ops
}

// DiffModel returns a description of any desired entries still missing
// from current; an empty slice means current already satisfies desired.
// Used to verify the post-apply re-fetch, per HxprModelProvisioner's
// "throws IllegalStateException if the diff is non-empty" behavior.
func DiffModel(current, desired *Model) []string {
	var missing []string
	for _, section := range modelSections {
		desiredSection := section.get(desired)
		currentSection := section.get(current)
		for key, wantValue := range desiredSection {
			gotValue, exists := currentSection[key]
			if !exists || !reflect.DeepEqual(normalizeJSON(gotValue), normalizeJSON(wantValue)) {
				missing = append(missing, fmt.Sprintf("%s/%s", section.path, key))
			}
		}
	}
	return missing
}

// normalizeJSON round-trips a value through JSON so that Go-native types
// (e.g. map[string]string) compare equal to their json.Unmarshal-produced
// counterparts (map[string]any).
func normalizeJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
