package dsl

import "sort"

// ItemVar is the binding pushed once per surviving data row.
const ItemVar = "item"

type binding struct {
	name  string
	value Value
}

// Scope is an ordered stack of name → value bindings.
// Lookup searches innermost-first, so a later Push shadows an earlier binding
// of the same name until it is popped.
type Scope struct {
	bindings []binding
}

// NewScope returns a scope seeded with the given outer bindings.
// Seed names are pushed in sorted order; they never shadow each other.
func NewScope(seed map[string]Value) *Scope {
	s := &Scope{bindings: make([]binding, 0, len(seed)+2)}
	names := make([]string, 0, len(seed))
	for k := range seed {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		s.Push(k, seed[k])
	}
	return s
}

// Push binds name to v as the innermost binding.
func (s *Scope) Push(name string, v Value) {
	if v == nil {
		v = Null{}
	}
	s.bindings = append(s.bindings, binding{name: name, value: v})
}

// Pop discards the innermost binding.
func (s *Scope) Pop() {
	if len(s.bindings) == 0 {
		return
	}
	s.bindings = s.bindings[:len(s.bindings)-1]
}

// Lookup returns the innermost value bound to name.
func (s *Scope) Lookup(name string) (Value, bool) {
	for i := len(s.bindings) - 1; i >= 0; i-- {
		if s.bindings[i].name == name {
			return s.bindings[i].value, true
		}
	}
	return nil, false
}

// Has reports whether name is bound at any depth.
func (s *Scope) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Depth is the number of bindings on the stack.
func (s *Scope) Depth() int { return len(s.bindings) }
