package dsl

import (
	"log/slog"
	"strings"
)

// step is a compiled statement.
type step interface {
	run(in *interpreter, s *Scope)
}

type boundProperty struct {
	name  string
	expr  Expression
	style *StyleMapping
}

type nodeStep struct {
	id    Expression
	shape string
	props []boundProperty
}

type edgeStep struct {
	from, to Expression
	props    []boundProperty
}

type condStep struct {
	cond condition
	body []step
}

type loopStep struct {
	name     string
	iterable Expression
	body     []step
}

// interpreter accumulates the fragment for one template expansion.
// It is never shared between goroutines.
type interpreter struct {
	template string
	row      int
	logger   *slog.Logger
	collect  bool

	frag  Fragment
	diags []Diagnostic
}

func (in *interpreter) expand(steps []step, s *Scope) {
	for _, st := range steps {
		st.run(in, s)
	}
}

func (n nodeStep) run(in *interpreter, s *Scope) {
	in.frag.Nodes = append(in.frag.Nodes, NodeAST{
		ID:         in.render(n.id, s, "id"),
		Shape:      n.shape,
		Properties: in.properties(n.props, s),
	})
}

func (e edgeStep) run(in *interpreter, s *Scope) {
	in.frag.Edges = append(in.frag.Edges, EdgeAST{
		From:       in.render(e.from, s, "from"),
		To:         in.render(e.to, s, "to"),
		Properties: in.properties(e.props, s),
	})
}

func (c condStep) run(in *interpreter, s *Scope) {
	if c.cond.holds(in, s) {
		in.expand(c.body, s)
	}
}

func (l loopStep) run(in *interpreter, s *Scope) {
	arr, ok := in.value(l.iterable, s, "iterable").(Array)
	if !ok {
		return
	}
	for _, el := range arr {
		s.Push(l.name, el)
		in.expand(l.body, s)
		s.Pop()
	}
}

func (in *interpreter) properties(props []boundProperty, s *Scope) map[string]string {
	out := make(map[string]string, len(props))
	for _, p := range props {
		if p.style != nil {
			if v, ok := resolveStyleIn(*p.style, s); ok {
				out[p.name] = v
			}
			continue
		}
		out[p.name] = in.render(p.expr, s, p.name)
	}
	return out
}

// value evaluates e. A template made of one reference yields the referenced
// value itself; anything else yields a String.
func (in *interpreter) value(e Expression, s *Scope, target string) Value {
	switch x := e.(type) {
	case Literal:
		if x.Value == nil {
			return Null{}
		}
		return x.Value
	case Template:
		if p, ok := x.single(); ok {
			v, ok := Resolve(p, s)
			if !ok {
				in.unresolved(target, p)
				return Null{}
			}
			return v
		}
		var b strings.Builder
		for _, part := range x.Parts {
			if part.Path == nil {
				b.WriteString(part.Text)
				continue
			}
			v, ok := Resolve(part.Path, s)
			if !ok {
				in.unresolved(target, part.Path)
				continue
			}
			b.WriteString(Stringify(v))
		}
		return String(b.String())
	default:
		return Null{}
	}
}

func (in *interpreter) render(e Expression, s *Scope, target string) string {
	return Stringify(in.value(e, s, target))
}

func (in *interpreter) unresolved(target string, p VariablePath) {
	in.logger.Debug("unresolved path",
		"template", in.template, "row", in.row, "target", target, "path", p.String())
	if in.collect {
		in.diags = append(in.diags, Diagnostic{
			Template: in.template,
			Row:      in.row,
			Target:   target,
			Path:     p.String(),
		})
	}
}

// condition is a compiled Conditional test.
type condition interface {
	holds(in *interpreter, s *Scope) bool
}

type comparisonCond struct{ cmp *Comparison }

func (c comparisonCond) holds(_ *interpreter, s *Scope) bool { return c.cmp.EvaluateIn(s) }

// pathCond is a bare word, resolved the way filter fields are: as written
// when its root is bound, under item otherwise.
type pathCond struct {
	path VariablePath
}

func (c pathCond) holds(in *interpreter, s *Scope) bool {
	v, ok := resolveRelative(c.path, s)
	if !ok {
		in.unresolved("condition", c.path)
		return false
	}
	return truthy(v)
}

type exprCond struct{ expr Expression }

func (c exprCond) holds(in *interpreter, s *Scope) bool {
	return truthy(in.value(c.expr, s, "condition"))
}
