// Package corpus holds the built-in topic set used to seed an empty store.
package corpus

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var defaultTopicsYAML []byte

type Topic struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

type file struct {
	Topics []Topic `yaml:"topics"`
}

// Default returns the embedded topics in file order.
func Default() ([]Topic, error) {
	return Parse(strings.NewReader(string(defaultTopicsYAML)))
}

// Parse reads a topics document. Titles must be present and unique.
func Parse(r io.Reader) ([]Topic, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode topics failed: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Topics))
	for i, t := range f.Topics {
		title := strings.TrimSpace(t.Title)
		if title == "" || strings.TrimSpace(t.Content) == "" {
			return nil, fmt.Errorf("topic %d: title and content are required", i)
		}
		if _, dup := seen[title]; dup {
			return nil, fmt.Errorf("topic %q is duplicated", title)
		}
		seen[title] = struct{}{}
		f.Topics[i].Title = title
	}
	return f.Topics, nil
}
