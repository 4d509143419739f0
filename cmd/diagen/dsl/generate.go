package dsl

import (
	"fmt"
	"strings"
)

// FieldMapping copies a row field into an output property verbatim.
type FieldMapping struct {
	Property string
	Field    string
}

// NodeConfig emits one node per row.
type NodeConfig struct {
	IDField       string
	Shape         string
	FieldMappings []FieldMapping
	StyleMappings []StyleMapping
}

// EdgeConfig emits one edge per row.
type EdgeConfig struct {
	FromField     string
	ToField       string
	FieldMappings []FieldMapping
	StyleMappings []StyleMapping
}

// Request is the simple data-driven mode: rows become nodes and/or edges
// without a hand-written template.
type Request struct {
	Node            *NodeConfig
	Edge            *EdgeConfig
	GenerateLegends bool
	Legend          *LegendConfig
}

// Generate expands rows according to req. Nodes are emitted before edges.
// With GenerateLegends, one legend is produced per valid style mapping, node
// mappings first.
func (e *Engine) Generate(rows []Value, req Request) Result {
	var res Result
	if req.Node == nil && req.Edge == nil {
		res.Errors = append(res.Errors, fmt.Errorf("phase=bind path=request: %w: node or edge config is required", ErrInvalidRequest))
		return res
	}

	var templates []DataTemplate
	var mappings []StyleMapping
	if n := req.Node; n != nil {
		t, ms, errs := nodeTemplate(*n)
		res.Errors = append(res.Errors, errs...)
		if t != nil {
			templates = append(templates, *t)
			mappings = append(mappings, ms...)
		}
	}
	if ed := req.Edge; ed != nil {
		t, ms, errs := edgeTemplate(*ed)
		res.Errors = append(res.Errors, errs...)
		if t != nil {
			templates = append(templates, *t)
			mappings = append(mappings, ms...)
		}
	}

	data := map[string][]Value{generateKey: rows}
	for _, t := range templates {
		tf, err := e.ExpandTemplate(t, data, nil)
		res.Fragments = append(res.Fragments, tf)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Fragment.Append(tf.Fragment)
		res.Diagnostics = append(res.Diagnostics, tf.Diagnostics...)
	}

	if req.GenerateLegends {
		var cfg LegendConfig
		if req.Legend != nil {
			cfg = *req.Legend
		}
		legends, errs := SynthesizeLegends(mappings, cfg)
		res.Legends = legends
		res.Errors = append(res.Errors, errs...)
	}
	return res
}

const generateKey = "rows"

func nodeTemplate(c NodeConfig) (*DataTemplate, []StyleMapping, []error) {
	if strings.TrimSpace(c.IDField) == "" {
		return nil, nil, []error{fmt.Errorf("phase=bind path=request.node: %w: idField is required", ErrInvalidRequest)}
	}
	id, err := fieldRef(c.IDField)
	if err != nil {
		return nil, nil, []error{fmt.Errorf("phase=bind path=request.node.idField: %w", err)}
	}
	props, ms, errs := requestProperties("request.node", c.FieldMappings, c.StyleMappings)
	return &DataTemplate{
		ID:         "node",
		DataKey:    generateKey,
		Statements: []Statement{NodeEmit{ID: id, Shape: c.Shape, Properties: props}},
	}, ms, errs
}

func edgeTemplate(c EdgeConfig) (*DataTemplate, []StyleMapping, []error) {
	if strings.TrimSpace(c.FromField) == "" || strings.TrimSpace(c.ToField) == "" {
		return nil, nil, []error{fmt.Errorf("phase=bind path=request.edge: %w: fromField and toField are required", ErrInvalidRequest)}
	}
	from, err := fieldRef(c.FromField)
	if err != nil {
		return nil, nil, []error{fmt.Errorf("phase=bind path=request.edge.fromField: %w", err)}
	}
	to, err := fieldRef(c.ToField)
	if err != nil {
		return nil, nil, []error{fmt.Errorf("phase=bind path=request.edge.toField: %w", err)}
	}
	props, ms, errs := requestProperties("request.edge", c.FieldMappings, c.StyleMappings)
	return &DataTemplate{
		ID:         "edge",
		DataKey:    generateKey,
		Statements: []Statement{EdgeEmit{From: from, To: to, Properties: props}},
	}, ms, errs
}

// requestProperties turns field and style mappings into properties. Invalid
// style mappings are reported and left out; the rest still apply.
func requestProperties(path string, fields []FieldMapping, styles []StyleMapping) ([]Property, []StyleMapping, []error) {
	var props []Property
	var valid []StyleMapping
	var errs []error
	for i, f := range fields {
		ref, err := fieldRef(f.Field)
		if err != nil || f.Property == "" {
			if err == nil {
				err = fmt.Errorf("%w: property is required", ErrInvalidRequest)
			}
			errs = append(errs, fmt.Errorf("phase=bind path=%s.fieldMappings[%d]: %w", path, i, err))
			continue
		}
		props = append(props, Property{Name: f.Property, Expr: ref})
	}
	for i, m := range styles {
		if err := ValidateMapping(m); err != nil {
			errs = append(errs, fmt.Errorf("phase=style path=%s.styleMappings[%d]: %w", path, i, err))
			continue
		}
		props = append(props, Property{Name: m.Property, Style: &m})
		valid = append(valid, m)
	}
	return props, valid, errs
}

// fieldRef references a row field. Fields not rooted at item are read from
// item.
func fieldRef(field string) (Template, error) {
	p, err := ParsePath(field)
	if err != nil {
		return Template{}, err
	}
	if p.Root() != ItemVar {
		p = p.under(ItemVar)
	}
	return Template{Parts: []Part{{Path: p}}}, nil
}
