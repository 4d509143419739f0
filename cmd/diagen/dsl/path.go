package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// VariablePath is a non-empty dotted sequence rooted at a scope variable,
// e.g. item.user.profile.name or item.items.0.
type VariablePath []string

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_$-]+$`)
var rootRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ParsePath splits s on "." and validates every segment.
// The root segment must be an identifier; later segments may also be
// integer-looking array indices or hyphenated keys.
func ParsePath(s string) (VariablePath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(s, ".")
	if !rootRe.MatchString(segs[0]) {
		return nil, fmt.Errorf("%w: %q: invalid root %q", ErrInvalidPath, s, segs[0])
	}
	for _, seg := range segs[1:] {
		if !segmentRe.MatchString(seg) {
			return nil, fmt.Errorf("%w: %q: invalid segment %q", ErrInvalidPath, s, seg)
		}
	}
	return VariablePath(segs), nil
}

// MustPath is ParsePath for paths known at compile time.
func MustPath(s string) VariablePath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p VariablePath) String() string { return strings.Join(p, ".") }

// Root is the scope variable the path starts from.
func (p VariablePath) Root() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// under returns the path re-rooted under name, e.g. status → item.status.
func (p VariablePath) under(name string) VariablePath {
	out := make(VariablePath, 0, len(p)+1)
	out = append(out, name)
	return append(out, p...)
}

// Resolve walks p against the scope chain. The second result is false when
// the root is unbound, a segment is absent, or the walk reaches a value that
// is neither an object nor an array.
func Resolve(p VariablePath, s *Scope) (Value, bool) {
	if len(p) == 0 || s == nil {
		return nil, false
	}
	cur, ok := s.Lookup(p[0])
	if !ok {
		return nil, false
	}
	for _, seg := range p[1:] {
		cur, ok = index(cur, seg)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// resolveRelative resolves p as written when its root is bound, and under
// item otherwise. Filters and style fields name row fields without the item
// prefix.
func resolveRelative(p VariablePath, s *Scope) (Value, bool) {
	if s.Has(p.Root()) {
		return Resolve(p, s)
	}
	return Resolve(p.under(ItemVar), s)
}

func index(v Value, seg string) (Value, bool) {
	switch x := v.(type) {
	case *Object:
		return x.Get(seg)
	case Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(x) {
			return nil, false
		}
		return x[i], true
	default:
		return nil, false
	}
}
