package dsl

import "strings"

// DataSource declares a named external data set. It is produced by the front
// end and never mutated; the engine only ever sees the rows loaded for Key.
type DataSource struct {
	Key     string
	Format  string // "json", "csv" or "yaml"
	Source  string // file path or inline literal
	Options []SourceOption
}

// SourceOption is one ordered name/value pair of a DataSource.
type SourceOption struct {
	Name  string
	Value string
}

// Option returns the value of the named option.
func (d DataSource) Option(name string) (string, bool) {
	for _, o := range d.Options {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// DataTemplate is a foreach block: an emission recipe expanded once per row of
// the data set named by DataKey.
//
// Filter and Limit apply once, before any statement runs: rows are filtered
// first, then the filtered set is truncated to Limit.
type DataTemplate struct {
	ID         string
	DataKey    string
	Filter     string // optional single comparison, e.g. `status = "active"`
	Limit      *int   // optional, must be >= 0
	Statements []Statement
}

// Statement is the sealed interface for template statements.
// Only NodeEmit, EdgeEmit, Conditional and Loop implement it.
type Statement interface {
	isStatement()
}

// NodeEmit appends one node per execution.
type NodeEmit struct {
	ID         Expression
	Shape      string
	Properties []Property
}

// EdgeEmit appends one edge per execution. Endpoints that render empty are
// still emitted; dangling references are for downstream validation to flag.
type EdgeEmit struct {
	From       Expression
	To         Expression
	Properties []Property
}

// Conditional expands Body with the enclosing scope when Condition holds.
type Conditional struct {
	Condition Expression
	Body      []Statement
}

// Loop expands Body once per element of Iterable with Var bound to the
// element. A non-array iterable contributes nothing.
type Loop struct {
	Var      string
	Iterable Expression
	Body     []Statement
}

func (NodeEmit) isStatement()    {}
func (EdgeEmit) isStatement()    {}
func (Conditional) isStatement() {}
func (Loop) isStatement()        {}

// Property is a named output attribute. It is driven either by Expr or, when
// Style is set, by a style mapping evaluated against the current row.
type Property struct {
	Name  string
	Expr  Expression
	Style *StyleMapping
}

// Expression is the sealed interface for property and id expressions.
// Only Literal and Template implement it.
type Expression interface {
	isExpression()
}

// Literal is a constant string, number or boolean.
type Literal struct {
	Value Value
}

// Template concatenates literal text and variable paths.
type Template struct {
	Parts []Part
}

// Part is one fragment of a Template: literal Text when Path is nil,
// otherwise a variable reference.
type Part struct {
	Text string
	Path VariablePath
}

func (Literal) isExpression()  {}
func (Template) isExpression() {}

// Lit wraps a Go string, number or bool as a Literal expression.
func Lit(v any) Literal { return Literal{Value: FromAny(v)} }

// Ref is a template made of a single variable path.
func Ref(path string) Template {
	return Template{Parts: []Part{{Path: MustPath(path)}}}
}

// Concat builds a template from parts; strings become literal text and
// VariablePath values become references.
func Concat(parts ...any) Template {
	t := Template{Parts: make([]Part, 0, len(parts))}
	for _, p := range parts {
		switch x := p.(type) {
		case VariablePath:
			t.Parts = append(t.Parts, Part{Path: x})
		case string:
			t.Parts = append(t.Parts, Part{Text: x})
		default:
			t.Parts = append(t.Parts, Part{Text: Stringify(FromAny(x))})
		}
	}
	return t
}

// single reports the path of a template consisting of exactly one reference.
// Such templates evaluate to the referenced value itself rather than to its
// string rendering, so loops can iterate arrays.
func (t Template) single() (VariablePath, bool) {
	if len(t.Parts) == 1 && t.Parts[0].Path != nil {
		return t.Parts[0].Path, true
	}
	return nil, false
}

func (t Template) String() string {
	var b strings.Builder
	for _, p := range t.Parts {
		if p.Path != nil {
			b.WriteString("${")
			b.WriteString(p.Path.String())
			b.WriteString("}")
			continue
		}
		b.WriteString(strings.ReplaceAll(p.Text, "$", "$$"))
	}
	return b.String()
}
