// Package modelschema loads the desired-state content-lake schema
// fragment used by model bootstrap (lake.model.bootstrap): a TOML
// document decoded into the same shape lakeclient.BuildAddOnlyPatch
// expects as its "desired" argument.
//
// Grounded on internal/lakeclient/patch.go's Model type; BurntSushi/toml
// is used here and nowhere else in the module, matching the pack's use
// of that library exclusively for structured config-like documents.
package modelschema

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
)

//go:embed schema/model.toml
var defaultFragment []byte

type fragment struct {
	Schemas    map[string]any `toml:"schemas"`
	Types      map[string]any `toml:"types"`
	MixinTypes map[string]any `toml:"mixinTypes"`
}

// Load decodes the module's embedded default schema fragment.
func Load() (*lakeclient.Model, error) {
	return decode(defaultFragment)
}

// LoadFile decodes a schema fragment from an operator-supplied TOML
// file, for deployments that need a different desired-state document
// than the one built into the binary.
func LoadFile(path string) (*lakeclient.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model fragment %s: %w", path, err)
	}
	return decode(data)
}

func decode(data []byte) (*lakeclient.Model, error) {
	var f fragment
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding model fragment: %w", err)
	}
	return &lakeclient.Model{
		Schemas:    f.Schemas,
		Types:      f.Types,
		MixinTypes: f.MixinTypes,
	}, nil
}
