package provenance

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the export format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("provenance export: unsupported extension %q (use .json, .yaml or .yml)", filepath.Ext(path))
	}
}

type document struct {
	RunID   string  `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Export encodes the map to w.
func (m Map) Export(w io.Writer, format Format, runID string) error {
	doc := document{RunID: runID, Entries: m.Entries()}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("provenance export: unsupported format %q", format)
	}
}

// WriteFile exports the map to path, choosing the format from its extension.
func (m Map) WriteFile(path, runID string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create provenance directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create provenance file: %w", err)
	}
	if err := m.Export(file, format, runID); err != nil {
		file.Close()
		return fmt.Errorf("write provenance: %w", err)
	}
	return file.Close()
}
