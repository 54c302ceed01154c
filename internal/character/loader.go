package character

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"roleplay-chat/backend/internal/models"
)

type catalogFile struct {
	Characters []models.Character `yaml:"characters"`
}

// LoadFile reads a YAML catalog from path and layers it over the built-in
// characters. Entries with a built-in id replace that character wholesale.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read characters file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and layers it over the built-ins
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse characters file: %w", err)
	}

	for i, ch := range file.Characters {
		if ch.ID == "" {
			return nil, fmt.Errorf("character %d: id is required", i)
		}
		if ch.Prompt == "" {
			return nil, fmt.Errorf("character %q: prompt is required", ch.ID)
		}
	}

	return NewCatalog(append(builtins(), file.Characters...)...), nil
}

// Load returns the built-in catalog, or the merged one when path is set
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
