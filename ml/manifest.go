package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Manifest is the persisted, ordered list of columns a one-hot model was
// trained with.
type Manifest []string

type manifestFile struct {
	Columns []string `json:"columns" yaml:"columns"`
}

// LoadManifest reads a manifest from a JSON or YAML file. Both a bare list and
// an object with a "columns" key are accepted.
func LoadManifest(path string) (Manifest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var columns []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		columns, err = decodeYAMLManifest(payload)
	default:
		columns, err = decodeJSONManifest(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m := Manifest(columns)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func decodeJSONManifest(payload []byte) ([]string, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '[' {
		var columns []string
		err := json.Unmarshal(payload, &columns)
		return columns, err
	}
	var file manifestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, err
	}
	return file.Columns, nil
}

func decodeYAMLManifest(payload []byte) ([]string, error) {
	var columns []string
	if err := yaml.Unmarshal(payload, &columns); err == nil {
		return columns, nil
	}
	var file manifestFile
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, err
	}
	return file.Columns, nil
}

// Validate rejects empty manifests, blank names and duplicates.
func (m Manifest) Validate() error {
	if len(m) == 0 {
		return errors.New("manifest has no columns")
	}
	seen := make(map[string]struct{}, len(m))
	for _, col := range m {
		if strings.TrimSpace(col) == "" {
			return errors.New("manifest has an empty column name")
		}
		if _, ok := seen[col]; ok {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}
