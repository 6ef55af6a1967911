package input

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/raschctl/pkg/net"
	"github.com/mchmarny/raschctl/pkg/score"
	"gopkg.in/yaml.v3"
)

// ReadSectionsFile reads a section name -> item numbers mapping. YAML files
// keep the declared section order, JSON files are ordered by name.
func ReadSectionsFile(path string) (score.Sections, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	s, err := parseSections(path, b)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return s, nil
}

// ReadSections reads section definitions from a local file or an http(s) URL.
func ReadSections(ctx context.Context, src string) (score.Sections, error) {
	if !net.IsURL(src) {
		return ReadSectionsFile(src)
	}
	b, err := net.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	s, err := parseSections(urlPath(src), b)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", src, err)
	}
	return s, nil
}

func parseSections(name string, b []byte) (score.Sections, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		return ParseSectionsJSON(b)
	case ".yaml", ".yml":
		return ParseSectionsYAML(b)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ParseSectionsJSON parses `{"name": [1, 2], ...}`.
func ParseSectionsJSON(b []byte) (score.Sections, error) {
	var m map[string][]int
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("error decoding sections: %w", err)
	}
	return score.SectionsFromMap(m), nil
}

// ParseSectionsYAML parses a mapping of section names to item number lists.
func ParseSectionsYAML(b []byte) (score.Sections, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("error decoding sections: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("sections must be a mapping, got line %d", root.Line)
	}

	out := make(score.Sections, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var items []int
		if err := val.Decode(&items); err != nil {
			return nil, fmt.Errorf("section %q (line %d): %w", key.Value, key.Line, err)
		}
		out = append(out, score.Section{Name: key.Value, Items: items})
	}
	return out, nil
}
