// Package factsheet holds the static keyword table consulted before the retrieval pipeline.
package factsheet

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LookupLabel is reported as the context of every answer served from the table.
const LookupLabel = "Direct Look-up"

type Fact struct {
	Keyword string `yaml:"keyword"`
	Answer  string `yaml:"answer"`
	Source  string `yaml:"source"`
}

// Table is an immutable keyword table. Keywords are matched in declaration order
// and the first one contained in the query wins.
type Table struct {
	facts []Fact
}

func New(facts []Fact) (*Table, error) {
	seen := make(map[string]struct{}, len(facts))
	out := make([]Fact, 0, len(facts))
	for i, f := range facts {
		key := strings.ToLower(strings.TrimSpace(f.Keyword))
		if key == "" {
			return nil, fmt.Errorf("fact %d: keyword is required", i)
		}
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("fact %d: duplicate keyword %q", i, key)
		}
		seen[key] = struct{}{}
		out = append(out, Fact{Keyword: key, Answer: f.Answer, Source: f.Source})
	}
	return &Table{facts: out}, nil
}

// Default returns the built-in EAC factsheet.
func Default() *Table {
	t, err := New(defaultFacts)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFile reads a YAML sequence of facts. An empty path yields the default table.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file: %w", err)
	}
	var facts []Fact
	if err := yaml.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("decode facts file: %w", err)
	}
	return New(facts)
}

func (t *Table) Lookup(query string) (Fact, bool) {
	clean := strings.ToLower(query)
	for _, f := range t.facts {
		if strings.Contains(clean, f.Keyword) {
			return f, true
		}
	}
	return Fact{}, false
}

func (t *Table) Len() int {
	return len(t.facts)
}
