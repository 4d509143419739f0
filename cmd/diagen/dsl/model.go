package dsl

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// NodeAST is a concrete diagram node emitted by expansion, ready to be merged
// into a diagram document for the layout and render collaborators.
type NodeAST struct {
	ID         string
	Shape      string
	Properties map[string]string
}

// EdgeAST is a concrete diagram edge emitted by expansion.
type EdgeAST struct {
	From       string
	To         string
	Properties map[string]string
}

// Fragment is the output of one expansion.
// Nodes and edges keep emission order: row, then statement, then loop element.
type Fragment struct {
	Nodes []NodeAST
	Edges []EdgeAST
}

// Append concatenates other after f.
func (f *Fragment) Append(other Fragment) {
	f.Nodes = append(f.Nodes, other.Nodes...)
	f.Edges = append(f.Edges, other.Edges...)
}

func (f Fragment) Empty() bool { return len(f.Nodes) == 0 && len(f.Edges) == 0 }

// Fingerprint hashes the fragment contents. Identical inputs expand to
// identical fingerprints, which makes it usable as a build cache key.
func (f Fragment) Fingerprint() (string, error) {
	h, err := hashstructure.Hash(f, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}

// Node returns the first node with the given id.
func (f Fragment) Node(id string) (NodeAST, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeAST{}, false
}

// Diagnostic records a variable path that did not resolve during expansion.
// Unresolved paths render as "" and never abort expansion.
type Diagnostic struct {
	Template string
	Row      int
	Target   string // "id", "from", "to", "condition", "iterable" or a property name
	Path     string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("template=%s row=%d target=%s: unresolved path %s", d.Template, d.Row, d.Target, d.Path)
}
