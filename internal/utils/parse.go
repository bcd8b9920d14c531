package utils

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// LoadTOMLFile decodes a TOML file into config, failing on the first syntax
// or type error so the caller can fall back to section salvage.
func LoadTOMLFile(path string, config interface{}) error {
	if _, err := toml.DecodeFile(path, config); err != nil {
		log.Warnf("TOML error in %s: %v", path, err)
		return err
	}
	return nil
}

// ParseTOMLLoose decodes a TOML file into an untyped map. A file that fails
// typed decoding over one mismatched value usually still decodes here, which
// is what the per-section salvage in the config package relies on.
func ParseTOMLLoose(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	loose := make(map[string]any)
	if _, err := toml.Decode(string(data), &loose); err != nil {
		log.Warnf("No salvageable configuration in %s: %v", path, err)
		return nil, err
	}
	return loose, nil
}

// ExtractSection pulls one table out of loosely parsed TOML data.
func ExtractSection(data map[string]any, name string) (map[string]any, bool) {
	section, ok := data[name].(map[string]any)
	return section, ok
}

// ExtractInt reads an integer key out of a loose TOML table. TOML integers
// decode as int64; any other type is treated as absent.
func ExtractInt(data map[string]any, key string) (int, bool) {
	if val, ok := data[key].(int64); ok {
		return int(val), true
	}
	return 0, false
}

// ExtractString reads a string key out of a loose TOML table.
func ExtractString(data map[string]any, key string) (string, bool) {
	if val, ok := data[key].(string); ok {
		return val, true
	}
	return "", false
}
