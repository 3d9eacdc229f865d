package portfolio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a portfolio document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCSV  Format = "csv"
)

// FormatFromPath picks the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported portfolio file extension %q (expected .csv, .json, .yaml or .toml)", filepath.Ext(path))
	}
}

// Decode reads a structured (non-CSV) portfolio document.
func Decode(r io.Reader, format Format) (*Portfolio, error) {
	var p Portfolio
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode json portfolio: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode yaml portfolio: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode toml portfolio: %w", err)
		}
	default:
		return nil, fmt.Errorf("format %q is not a structured portfolio format", format)
	}
	normalize(p.Teams)
	return &p, nil
}

// Encode writes a structured (non-CSV) portfolio document.
func Encode(w io.Writer, format Format, p *Portfolio) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(p)
	default:
		return fmt.Errorf("format %q is not a structured portfolio format", format)
	}
}

// LoadFile reads a structured portfolio document from disk.
func LoadFile(path string) (*Portfolio, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}

// normalize fills owner IDs left implicit in hand-written documents and
// assigns positional priorities when none were given.
func normalize(teams []Team) {
	for ti := range teams {
		t := &teams[ti]
		missingPriority := false
		for fi := range t.Features {
			if t.Features[fi].TeamID == "" {
				t.Features[fi].TeamID = t.ID
			}
			if t.Features[fi].Priority <= 0 {
				missingPriority = true
			}
			if dep := t.Features[fi].DependsOn; dep != nil && dep.TeamID == "" {
				dep.TeamID = t.ID
			}
		}
		if missingPriority {
			Renumber(t.Features)
		} else {
			SortByPriority(t.Features)
		}
	}
}
