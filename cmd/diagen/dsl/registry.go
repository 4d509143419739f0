package dsl

import (
	"fmt"
	"sort"
)

// Registry holds the node shapes templates may emit, keyed by canonical name
// and alias. It is passed to NewEngine explicitly so every engine (and every
// test) owns its own set.
type Registry struct {
	names map[string]string // name or alias → canonical name
}

// NewRegistry returns an empty Registry. An engine with an empty registry
// accepts any shape name unchanged.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]string),
	}
}

// DefaultRegistry returns a registry preloaded with the built-in shapes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range builtinShapes {
		// Built-ins never collide.
		_ = r.Register(s.name, s.aliases...)
	}
	return r
}

var builtinShapes = []struct {
	name    string
	aliases []string
}{
	{"rectangle", []string{"rect", "box"}},
	{"rounded", []string{"roundrect"}},
	{"circle", nil},
	{"ellipse", []string{"oval"}},
	{"diamond", []string{"decision", "rhombus"}},
	{"hexagon", nil},
	{"parallelogram", []string{"io"}},
	{"cylinder", []string{"database", "db"}},
	{"document", nil},
	{"cloud", nil},
	{"actor", []string{"person"}},
	{"note", nil},
	{"stadium", []string{"pill"}},
	{"subroutine", nil},
}

// Register adds a shape and its aliases.
// Returns ErrShapeAlreadyExists if the name or any alias is already taken.
func (r *Registry) Register(name string, aliases ...string) error {
	for _, n := range append([]string{name}, aliases...) {
		if _, exists := r.names[n]; exists {
			return fmt.Errorf("%w: %s", ErrShapeAlreadyExists, n)
		}
	}
	r.names[name] = name
	for _, a := range aliases {
		r.names[a] = name
	}
	return nil
}

// Shape returns the canonical name for a shape name or alias.
func (r *Registry) Shape(name string) (string, bool) {
	canonical, ok := r.names[name]
	return canonical, ok
}

// Shapes returns the canonical shape names, sorted.
func (r *Registry) Shapes() []string {
	var out []string
	for n, canonical := range r.names {
		if n == canonical {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) empty() bool { return r == nil || len(r.names) == 0 }
