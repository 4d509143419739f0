package dsl

import (
	"fmt"
	"strings"
)

// BoundTemplate is a validated DataTemplate whose filter and conditions have
// been parsed once. It is immutable and safe to expand concurrently.
type BoundTemplate struct {
	Template DataTemplate

	// MappingErrors lists style mappings rejected at bind time. The
	// properties they drive are omitted; the rest of the template expands.
	MappingErrors []error

	filter   *Comparison
	steps    []step
	mappings []StyleMapping
}

// Mappings returns the valid style mappings used by the template, in
// declaration order, without duplicates.
func (b *BoundTemplate) Mappings() []StyleMapping {
	return append([]StyleMapping(nil), b.mappings...)
}

// Filter returns the parsed filter, or nil when the template has none.
func (b *BoundTemplate) Filter() *Comparison { return b.filter }

// Select applies the filter, then the limit, and returns the indices of the
// surviving rows in their original order.
func (b *BoundTemplate) Select(rows []Value) []int {
	var out []int
	for i, row := range rows {
		if b.Template.Limit != nil && len(out) >= *b.Template.Limit {
			break
		}
		if b.filter != nil && !b.filter.Evaluate(row) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Bind validates a template and compiles it for expansion (phase=bind).
func (e *Engine) Bind(t DataTemplate) (*BoundTemplate, error) {
	path := t.ID
	if path == "" {
		return nil, fmt.Errorf("phase=bind path=<template>: %w: template id is required", ErrInvalidTemplate)
	}
	if t.DataKey == "" {
		return nil, fmt.Errorf("phase=bind path=%s: %w: data key is required", path, ErrInvalidTemplate)
	}
	if t.Limit != nil && *t.Limit < 0 {
		return nil, fmt.Errorf("phase=bind path=%s: %w: limit must be >= 0, got %d", path, ErrInvalidTemplate, *t.Limit)
	}

	b := &BoundTemplate{Template: t}
	if strings.TrimSpace(t.Filter) != "" {
		f, err := ParseFilter(t.Filter)
		if err != nil {
			return nil, fmt.Errorf("phase=bind path=%s.filter: %w", path, err)
		}
		b.filter = f
	}

	c := &compiler{engine: e, bound: b, seen: map[string]struct{}{}}
	steps, err := c.compile(t.Statements, path+".statements")
	if err != nil {
		return nil, err
	}
	b.steps = steps
	return b, nil
}

type compiler struct {
	engine *Engine
	bound  *BoundTemplate
	seen   map[string]struct{} // mapping identity, for de-duplication
}

func (c *compiler) compile(stmts []Statement, path string) ([]step, error) {
	steps := make([]step, 0, len(stmts))
	for i, st := range stmts {
		p := fmt.Sprintf("%s[%d]", path, i)
		s, err := c.compileOne(st, p)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func (c *compiler) compileOne(st Statement, path string) (step, error) {
	switch x := st.(type) {
	case NodeEmit:
		return c.compileNode(x, path)
	case *NodeEmit:
		return c.compileNode(*x, path)
	case EdgeEmit:
		return c.compileEdge(x, path)
	case *EdgeEmit:
		return c.compileEdge(*x, path)
	case Conditional:
		return c.compileConditional(x, path)
	case *Conditional:
		return c.compileConditional(*x, path)
	case Loop:
		return c.compileLoop(x, path)
	case *Loop:
		return c.compileLoop(*x, path)
	default:
		return nil, fmt.Errorf("phase=bind path=%s: %w: unsupported statement %T", path, ErrInvalidTemplate, st)
	}
}

func (c *compiler) compileNode(n NodeEmit, path string) (step, error) {
	if n.ID == nil {
		return nil, fmt.Errorf("phase=bind path=%s: %w: node id is required", path, ErrInvalidTemplate)
	}
	if err := checkExpression(n.ID); err != nil {
		return nil, fmt.Errorf("phase=bind path=%s.id: %w", path, err)
	}
	shape, err := c.shape(n.Shape, path)
	if err != nil {
		return nil, err
	}
	props, err := c.properties(n.Properties, path)
	if err != nil {
		return nil, err
	}
	return nodeStep{id: n.ID, shape: shape, props: props}, nil
}

func (c *compiler) compileEdge(ed EdgeEmit, path string) (step, error) {
	if ed.From == nil || ed.To == nil {
		return nil, fmt.Errorf("phase=bind path=%s: %w: edge requires from and to", path, ErrInvalidTemplate)
	}
	if err := checkExpression(ed.From); err != nil {
		return nil, fmt.Errorf("phase=bind path=%s.from: %w", path, err)
	}
	if err := checkExpression(ed.To); err != nil {
		return nil, fmt.Errorf("phase=bind path=%s.to: %w", path, err)
	}
	props, err := c.properties(ed.Properties, path)
	if err != nil {
		return nil, err
	}
	return edgeStep{from: ed.From, to: ed.To, props: props}, nil
}

func (c *compiler) compileConditional(cd Conditional, path string) (step, error) {
	if cd.Condition == nil {
		return nil, fmt.Errorf("phase=bind path=%s: %w: condition is required", path, ErrInvalidTemplate)
	}
	cond, err := compileCondition(cd.Condition)
	if err != nil {
		return nil, fmt.Errorf("phase=bind path=%s.condition: %w", path, err)
	}
	body, err := c.compile(cd.Body, path+".body")
	if err != nil {
		return nil, err
	}
	return condStep{cond: cond, body: body}, nil
}

func (c *compiler) compileLoop(l Loop, path string) (step, error) {
	if !rootRe.MatchString(l.Var) {
		return nil, fmt.Errorf("phase=bind path=%s: %w: invalid loop variable %q", path, ErrInvalidTemplate, l.Var)
	}
	if l.Iterable == nil {
		return nil, fmt.Errorf("phase=bind path=%s: %w: loop iterable is required", path, ErrInvalidTemplate)
	}
	if err := checkExpression(l.Iterable); err != nil {
		return nil, fmt.Errorf("phase=bind path=%s.in: %w", path, err)
	}
	body, err := c.compile(l.Body, path+".body")
	if err != nil {
		return nil, err
	}
	return loopStep{name: l.Var, iterable: l.Iterable, body: body}, nil
}

func (c *compiler) shape(name, path string) (string, error) {
	if name == "" || c.engine.registry.empty() {
		return name, nil
	}
	canonical, ok := c.engine.registry.Shape(name)
	if !ok {
		return "", fmt.Errorf("phase=bind path=%s: %w: %s%s",
			path, ErrUnknownShape, name, didYouMean(name, c.engine.registry.Shapes()))
	}
	return canonical, nil
}

// properties compiles property definitions. A property driven by an invalid
// style mapping is dropped and recorded on the bound template; it does not
// fail the bind.
func (c *compiler) properties(props []Property, path string) ([]boundProperty, error) {
	out := make([]boundProperty, 0, len(props))
	names := make(map[string]struct{}, len(props))
	for _, p := range props {
		if p.Name == "" {
			return nil, fmt.Errorf("phase=bind path=%s: %w: property name is required", path, ErrInvalidTemplate)
		}
		if _, dup := names[p.Name]; dup {
			return nil, fmt.Errorf("phase=bind path=%s: %w: duplicate property %s", path, ErrInvalidTemplate, p.Name)
		}
		names[p.Name] = struct{}{}

		if p.Style != nil {
			m := *p.Style
			if m.Property == "" {
				m.Property = p.Name
			}
			if err := ValidateMapping(m); err != nil {
				c.bound.MappingErrors = append(c.bound.MappingErrors,
					fmt.Errorf("phase=style path=%s.%s: %w", path, p.Name, err))
				continue
			}
			c.addMapping(m)
			out = append(out, boundProperty{name: p.Name, style: &m})
			continue
		}
		if p.Expr == nil {
			return nil, fmt.Errorf("phase=bind path=%s.%s: %w: property needs an expression or a style", path, p.Name, ErrInvalidTemplate)
		}
		if err := checkExpression(p.Expr); err != nil {
			return nil, fmt.Errorf("phase=bind path=%s.%s: %w", path, p.Name, err)
		}
		out = append(out, boundProperty{name: p.Name, expr: p.Expr})
	}
	return out, nil
}

func (c *compiler) addMapping(m StyleMapping) {
	key := m.Property + "\x00" + m.Field + "\x00" + m.Type
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.bound.mappings = append(c.bound.mappings, m)
}

func checkExpression(e Expression) error {
	switch x := e.(type) {
	case Literal:
		return nil
	case Template:
		for _, p := range x.Parts {
			if p.Path != nil && len(p.Path) == 0 {
				return fmt.Errorf("%w: empty path in template", ErrInvalidPath)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported expression %T", ErrInvalidTemplate, e)
	}
}

// compileCondition decides how a condition is evaluated:
//
//   - a literal string containing a comparison operator is parsed with the
//     filter grammar (a malformed one fails the bind with ErrFilterSyntax)
//   - a literal string that reads as a variable path is resolved like a
//     filter field, falling back to item when its root is unbound
//   - a template of the form `${path} <op> <literal>` is the same comparison
//     written with a reference; any other template with an operator in its
//     text fails with ErrFilterSyntax
//   - anything else is rendered and tested for truthiness
func compileCondition(e Expression) (condition, error) {
	if t, ok := e.(Template); ok {
		return compileTemplateCondition(t)
	}
	lit, ok := e.(Literal)
	if !ok {
		return exprCond{expr: e}, nil
	}
	s, ok := lit.Value.(String)
	if !ok {
		return exprCond{expr: e}, nil
	}
	text := strings.TrimSpace(string(s))
	switch {
	case text == "" || text == "true" || text == "false":
		return exprCond{expr: e}, nil
	case strings.ContainsAny(text, "=<>!"):
		cmp, err := ParseFilter(text)
		if err != nil {
			return nil, err
		}
		return comparisonCond{cmp: cmp}, nil
	}
	if p, err := ParsePath(text); err == nil {
		return pathCond{path: p}, nil
	}
	return exprCond{expr: e}, nil
}

func compileTemplateCondition(t Template) (condition, error) {
	var src strings.Builder
	hasOp := false
	for _, p := range t.Parts {
		if p.Path != nil {
			src.WriteString("${" + p.Path.String() + "}")
			continue
		}
		src.WriteString(p.Text)
		if strings.ContainsAny(p.Text, "=<>") {
			hasOp = true
		}
	}
	if !hasOp {
		return exprCond{expr: t}, nil
	}
	parts := t.Parts
	if len(parts) > 0 && parts[0].Path == nil && strings.TrimSpace(parts[0].Text) == "" {
		parts = parts[1:]
	}
	if len(parts) == 2 && parts[0].Path != nil && parts[1].Path == nil {
		cmp, err := ParseFilter(parts[0].Path.String() + parts[1].Text)
		if err != nil {
			return nil, err
		}
		return comparisonCond{cmp: cmp}, nil
	}
	return nil, fmt.Errorf("%w: %q: expected <field> <op> <literal>, e.g. item.count > 5", ErrFilterSyntax, src.String())
}
