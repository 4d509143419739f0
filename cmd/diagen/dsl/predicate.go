package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op is a comparison operator of the filter grammar.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Comparison is a parsed single-comparison predicate: <field> <op> <literal>.
type Comparison struct {
	Field   VariablePath
	Op      Op
	Literal Value
	// Text is the source expression, kept for diagnostics.
	Text string
}

// comparisonRe splits a filter into field, operator and literal.
// Longer operators come first so "<=" is never read as "<" followed by "=".
var comparisonRe = regexp.MustCompile(`^\s*([A-Za-z_$][A-Za-z0-9_$.\-]*)\s*(==|!=|<=|>=|=|<|>)\s*(.*?)\s*$`)

var numberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseFilter parses a filter expression. It is called once per template at
// bind time; the returned Comparison is reused for every row.
func ParseFilter(expr string) (*Comparison, error) {
	m := comparisonRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, fmt.Errorf("%w: %q: expected <field> <op> <literal>", ErrFilterSyntax, expr)
	}
	field, err := ParsePath(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFilterSyntax, expr, err)
	}
	op := parseOp(m[2])
	lit, err := parseLiteral(m[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFilterSyntax, expr, err)
	}
	return &Comparison{Field: field, Op: op, Literal: lit, Text: strings.TrimSpace(expr)}, nil
}

func parseOp(s string) Op {
	switch s {
	case "=", "==":
		return OpEq
	case "!=":
		return OpNe
	case "<":
		return OpLt
	case "<=":
		return OpLe
	case ">":
		return OpGt
	default:
		return OpGe
	}
}

// parseLiteral reads the right-hand side of a comparison: a quoted string,
// true/false, a number, or a bare word taken as a string.
func parseLiteral(s string) (Value, error) {
	if s == "" {
		return nil, fmt.Errorf("missing literal")
	}
	if q := s[0]; q == '"' || q == '\'' {
		if len(s) < 2 || s[len(s)-1] != q {
			return nil, fmt.Errorf("unterminated string literal %s", s)
		}
		inner := s[1 : len(s)-1]
		if strings.IndexByte(inner, q) >= 0 {
			return nil, fmt.Errorf("unexpected quote in string literal %s", s)
		}
		return String(inner), nil
	}
	switch s {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	if numberRe.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return Number(f), nil
		}
	}
	if strings.ContainsAny(s, " \t\"'=<>!") {
		return nil, fmt.Errorf("literal %q must be quoted", s)
	}
	return String(s), nil
}

// Evaluate tests the comparison against a single data row bound as item.
func (c *Comparison) Evaluate(row Value) bool {
	s := NewScope(nil)
	s.Push(ItemVar, row)
	return c.EvaluateIn(s)
}

// EvaluateIn tests the comparison against a scope. A field whose root names
// no binding is read from item.
func (c *Comparison) EvaluateIn(s *Scope) bool {
	left, ok := resolveRelative(c.Field, s)
	if !ok {
		left = Null{}
	}
	return compare(left, c.Op, c.Literal)
}

func compare(left Value, op Op, right Value) bool {
	if l, ok := ToNumber(left); ok {
		if r, ok := ToNumber(right); ok {
			return compareOrdered(l, r, op)
		}
	}
	if op == OpEq || op == OpNe {
		_, leftIsBool := left.(Bool)
		_, rightIsBool := right.(Bool)
		if leftIsBool || rightIsBool {
			lb, lok := toBool(left)
			rb, rok := toBool(right)
			if lok && rok {
				return (lb == rb) == (op == OpEq)
			}
		}
	}
	return compareOrdered(strings.Compare(Stringify(left), Stringify(right)), 0, op)
}

type ordered interface{ ~int | ~float64 }

func compareOrdered[T ordered](l, r T, op Op) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	case OpLt:
		return l < r
	case OpLe:
		return l <= r
	case OpGt:
		return l > r
	default:
		return l >= r
	}
}

func (c *Comparison) String() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, Stringify(c.Literal))
}
