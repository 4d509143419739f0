package dsl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Engine expands data templates into diagram fragments.
// An Engine holds no per-expansion state and is safe for concurrent use.
type Engine struct {
	registry    *Registry
	logger      *slog.Logger
	diagnostics bool
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for expansion diagnostics. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDiagnostics makes expansion collect a Diagnostic per unresolved path.
func WithDiagnostics(on bool) Option {
	return func(e *Engine) { e.diagnostics = on }
}

// WithConcurrency bounds the number of templates ExpandAll runs at once.
// Values below 1 mean one.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// NewEngine creates an engine over the given shape registry. A nil or empty
// registry accepts any shape name.
func NewEngine(reg *Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	e := &Engine{
		registry:    reg,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Registry returns the engine's shape registry.
func (e *Engine) Registry() *Registry { return e.registry }

// TemplateFragment is the outcome of expanding one template.
type TemplateFragment struct {
	TemplateID  string
	Fragment    Fragment
	Rows        int // rows that survived filter and limit
	Diagnostics []Diagnostic
	Err         error
}

// Result is the outcome of expanding a set of templates. Failures are
// isolated per template and per mapping and listed in Errors next to the
// output that did succeed.
type Result struct {
	Fragments   []TemplateFragment
	Fragment    Fragment // successful fragments merged in declaration order
	Legends     []Legend
	Errors      []error
	Diagnostics []Diagnostic
}

// Err joins every collected error, or returns nil.
func (r Result) Err() error { return errors.Join(r.Errors...) }

// ExpandOptions controls ExpandAll.
type ExpandOptions struct {
	// Seed holds outer bindings visible to every row, e.g. document metadata.
	Seed            map[string]Value
	GenerateLegends bool
	Legend          LegendConfig
}

// Expand runs a bound template over rows: filter, then limit, then the
// statements once per surviving row with item bound to it.
func (e *Engine) Expand(b *BoundTemplate, rows []Value, seed map[string]Value) TemplateFragment {
	in := e.interpreter(b.Template.ID)
	s := NewScope(seed)
	selected := b.Select(rows)
	for _, i := range selected {
		in.row = i
		s.Push(ItemVar, rows[i])
		in.expand(b.steps, s)
		s.Pop()
	}
	e.logger.Debug("template expanded",
		"template", b.Template.ID, "rows", len(rows), "selected", len(selected),
		"nodes", len(in.frag.Nodes), "edges", len(in.frag.Edges))
	return TemplateFragment{
		TemplateID:  b.Template.ID,
		Fragment:    in.frag,
		Rows:        len(selected),
		Diagnostics: in.diags,
	}
}

// ExpandStatements runs statements once against scope, outside any template.
// Filters and limits do not apply.
func (e *Engine) ExpandStatements(stmts []Statement, s *Scope) (Fragment, []Diagnostic, error) {
	b, err := e.Bind(DataTemplate{ID: "inline", DataKey: "inline", Statements: stmts})
	if err != nil {
		return Fragment{}, nil, err
	}
	if s == nil {
		s = NewScope(nil)
	}
	in := e.interpreter(b.Template.ID)
	depth := s.Depth()
	in.expand(b.steps, s)
	for s.Depth() > depth {
		s.Pop()
	}
	return in.frag, in.diags, nil
}

// ExpandTemplate binds t and expands it over the rows of its data source.
func (e *Engine) ExpandTemplate(t DataTemplate, data map[string][]Value, seed map[string]Value) (TemplateFragment, error) {
	b, err := e.Bind(t)
	if err != nil {
		return TemplateFragment{TemplateID: t.ID, Err: err}, err
	}
	rows, ok := data[t.DataKey]
	if !ok {
		err := missingDataSource(t, data)
		return TemplateFragment{TemplateID: t.ID, Err: err}, err
	}
	return e.Expand(b, rows, seed), nil
}

func missingDataSource(t DataTemplate, data map[string][]Value) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("phase=expand path=%s: %w: %s%s",
		t.ID, ErrMissingDataSource, t.DataKey, didYouMean(t.DataKey, keys))
}

// ExpandAll expands every template, at most WithConcurrency at a time, and
// merges the results in declaration order. A template that fails does not
// affect its siblings. Cancelling ctx stops templates that have not started.
func (e *Engine) ExpandAll(ctx context.Context, templates []DataTemplate, data map[string][]Value, opts ExpandOptions) Result {
	bound := make([]*BoundTemplate, len(templates))
	frags := make([]TemplateFragment, len(templates))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, t := range templates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				frags[i] = TemplateFragment{TemplateID: t.ID, Err: fmt.Errorf("phase=expand path=%s: %w", t.ID, err)}
				return nil
			}
			b, err := e.Bind(t)
			if err != nil {
				frags[i] = TemplateFragment{TemplateID: t.ID, Err: err}
				return nil
			}
			bound[i] = b
			rows, ok := data[t.DataKey]
			if !ok {
				frags[i] = TemplateFragment{TemplateID: t.ID, Err: missingDataSource(t, data)}
				return nil
			}
			frags[i] = e.Expand(b, rows, opts.Seed)
			return nil
		})
	}
	_ = g.Wait() // workers record errors per template

	var res Result
	var mappings []StyleMapping
	seen := map[string]struct{}{}
	for i, f := range frags {
		res.Fragments = append(res.Fragments, f)
		if f.Err != nil {
			res.Errors = append(res.Errors, f.Err)
		} else {
			res.Fragment.Append(f.Fragment)
			res.Diagnostics = append(res.Diagnostics, f.Diagnostics...)
		}
		if b := bound[i]; b != nil {
			res.Errors = append(res.Errors, b.MappingErrors...)
			for _, m := range b.mappings {
				key := m.Property + "\x00" + m.Field + "\x00" + m.Type
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				mappings = append(mappings, m)
			}
		}
	}

	if opts.GenerateLegends {
		legends, errs := SynthesizeLegends(mappings, opts.Legend)
		res.Legends = legends
		res.Errors = append(res.Errors, errs...)
	}
	if len(res.Errors) > 0 {
		e.logger.Warn("expansion finished with errors", "templates", len(templates), "errors", len(res.Errors))
	}
	return res
}

func (e *Engine) interpreter(template string) *interpreter {
	return &interpreter{
		template: template,
		row:      -1,
		logger:   e.logger,
		collect:  e.diagnostics,
	}
}
