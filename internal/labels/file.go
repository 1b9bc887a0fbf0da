package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileSet is the on-disk form of a label set. JSON files are read by the
// same decoder since yaml.v3 accepts JSON documents.
type fileSet struct {
	Name    string            `yaml:"name"`
	Labels  []string          `yaml:"labels"`
	Mapping map[string]string `yaml:"mapping"`
}

// LoadFile reads a label set stored next to a model artifact.
func LoadFile(path string) (Set, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read label file: %w", err)
	}

	var fs fileSet
	if err := yaml.Unmarshal(content, &fs); err != nil {
		return Set{}, fmt.Errorf("failed to parse label file %s: %w", path, err)
	}

	name := fs.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return NewSet(name, fs.Labels, fs.Mapping)
}

// Load resolves the label set from a file when one is given, else from a preset.
func Load(preset, file string) (Set, error) {
	if file != "" {
		return LoadFile(file)
	}
	return Preset(preset)
}
