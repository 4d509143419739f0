package dslyaml

import (
	"fmt"
	"strconv"
	"strings"

	"diagram-tools/cmd/diagen/dsl"

	"gopkg.in/yaml.v3"
)

// Document is the Go-level representation of a parsed diagram file.
//
// A document declares data sources and the templates expanded over them. It
// may also carry a generate block (rows straight to nodes/edges without a
// template) and document-wide legend settings.
type Document struct {
	Sources   []dsl.DataSource
	Templates []dsl.DataTemplate
	Generate  *Generate

	// Legends is true when the document asks for legends next to the diagram.
	Legends bool
	Legend  dsl.LegendConfig
}

// Generate pairs a data source key with the simple expansion request.
type Generate struct {
	Data    string
	Request dsl.Request
}

// ---- Internal YAML parsing structs ----------------------------------------
//
// These mirror the dsl types with YAML tags. Polymorphic fields (expressions,
// property lists, ordered mappings) are held as yaml.Node and converted by
// hand so order and scalar tags survive.

type yamlDocument struct {
	Sources   []yamlSource   `yaml:"sources,omitempty"`
	Templates []yamlTemplate `yaml:"templates,omitempty"`
	Generate  *yamlGenerate  `yaml:"generate,omitempty"`
	Legends   *yamlLegends   `yaml:"legends,omitempty"`
}

type yamlSource struct {
	Key     string    `yaml:"key"`
	Format  string    `yaml:"format"`
	Source  string    `yaml:"source"`
	Options yaml.Node `yaml:"options,omitempty"` // ordered name: value pairs
}

type yamlTemplate struct {
	ID     string          `yaml:"id"`
	Data   string          `yaml:"data"`
	Filter string          `yaml:"filter,omitempty"`
	Limit  *int            `yaml:"limit,omitempty"`
	Do     []yamlStatement `yaml:"do"`
}

// yamlStatement holds exactly one of node, edge, if or for.
// Non-pointer yaml.Node fields report an absent key as Kind == 0.
type yamlStatement struct {
	Node *yamlNode       `yaml:"node,omitempty"`
	Edge *yamlEdge       `yaml:"edge,omitempty"`
	If   yaml.Node       `yaml:"if,omitempty"`
	Then []yamlStatement `yaml:"then,omitempty"`
	For  string          `yaml:"for,omitempty"`
	In   yaml.Node       `yaml:"in,omitempty"`
	Do   []yamlStatement `yaml:"do,omitempty"`
}

type yamlNode struct {
	ID    yaml.Node `yaml:"id"`
	Shape string    `yaml:"shape,omitempty"`
	Props yaml.Node `yaml:"props,omitempty"`
}

type yamlEdge struct {
	From  yaml.Node `yaml:"from"`
	To    yaml.Node `yaml:"to"`
	Props yaml.Node `yaml:"props,omitempty"`
}

type yamlStyle struct {
	Property   string          `yaml:"property,omitempty"`
	Field      string          `yaml:"field"`
	Type       string          `yaml:"type"`
	Categories yaml.Node       `yaml:"categories,omitempty"`
	Scale      *yamlScale      `yaml:"scale,omitempty"`
	Thresholds []yamlThreshold `yaml:"thresholds,omitempty"`
	Fallback   *string         `yaml:"fallback,omitempty"`
}

type yamlScale struct {
	Domain []float64 `yaml:"domain"`
	Range  []string  `yaml:"range"`
}

type yamlThreshold struct {
	Value float64 `yaml:"value"`
	Style string  `yaml:"style"`
}

type yamlGenerate struct {
	Data    string         `yaml:"data"`
	Node    *yamlNodeCfg   `yaml:"node,omitempty"`
	Edge    *yamlEdgeCfg   `yaml:"edge,omitempty"`
	Legends bool           `yaml:"legends,omitempty"`
	Legend  *yamlLegendCfg `yaml:"legend,omitempty"`
}

type yamlNodeCfg struct {
	ID     string      `yaml:"id"`
	Shape  string      `yaml:"shape,omitempty"`
	Fields yaml.Node   `yaml:"fields,omitempty"`
	Styles []yamlStyle `yaml:"styles,omitempty"`
}

type yamlEdgeCfg struct {
	From   string      `yaml:"from"`
	To     string      `yaml:"to"`
	Fields yaml.Node   `yaml:"fields,omitempty"`
	Styles []yamlStyle `yaml:"styles,omitempty"`
}

type yamlLegends struct {
	Enabled       bool `yaml:"enabled"`
	yamlLegendCfg `yaml:",inline"`
}

type yamlLegendCfg struct {
	Title     string      `yaml:"title,omitempty"`
	Position  string      `yaml:"position,omitempty"`
	Steps     int         `yaml:"steps,omitempty"`
	Canvas    *yamlCanvas `yaml:"canvas,omitempty"`
	Margin    float64     `yaml:"margin,omitempty"`
	Width     float64     `yaml:"width,omitempty"`
	RowHeight float64     `yaml:"rowHeight,omitempty"`
}

type yamlCanvas struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ---- Parse -----------------------------------------------------------------

// Parse parses one YAML document.
func Parse(in []byte) (Document, error) {
	var docNode yaml.Node
	if err := yaml.Unmarshal(in, &docNode); err != nil {
		return Document{}, fmt.Errorf("phase=parse path=<doc>: %w", err)
	}
	if len(docNode.Content) == 0 {
		return Document{}, fmt.Errorf("phase=parse path=<doc>: empty YAML")
	}
	root := docNode.Content[0]
	if root.Kind != yaml.MappingNode {
		return Document{}, fmt.Errorf("phase=parse path=<doc>: expected a mapping, got YAML kind %d", root.Kind)
	}
	var yd yamlDocument
	if err := root.Decode(&yd); err != nil {
		return Document{}, fmt.Errorf("phase=parse path=<doc>: %w", err)
	}
	return convertDocument(yd)
}

// ParseMany parses several documents and merges them in order.
func ParseMany(inputs ...[]byte) (Document, error) {
	docs := make([]Document, 0, len(inputs))
	for _, in := range inputs {
		doc, err := Parse(in)
		if err != nil {
			return Document{}, err
		}
		docs = append(docs, doc)
	}
	return Merge(docs...)
}

// Merge concatenates sources and templates in document order. Source keys and
// template ids must be unique across documents. The last generate block and
// the last enabled legend settings win.
func Merge(docs ...Document) (Document, error) {
	var out Document
	keys := map[string]struct{}{}
	ids := map[string]struct{}{}
	for _, d := range docs {
		for _, s := range d.Sources {
			if _, dup := keys[s.Key]; dup {
				return Document{}, fmt.Errorf("phase=parse path=sources.%s: duplicate data source key", s.Key)
			}
			keys[s.Key] = struct{}{}
			out.Sources = append(out.Sources, s)
		}
		for _, t := range d.Templates {
			if _, dup := ids[t.ID]; dup {
				return Document{}, fmt.Errorf("phase=parse path=templates.%s: duplicate template id", t.ID)
			}
			ids[t.ID] = struct{}{}
			out.Templates = append(out.Templates, t)
		}
		if d.Generate != nil {
			out.Generate = d.Generate
		}
		if d.Legends {
			out.Legends = true
			out.Legend = d.Legend
		}
	}
	return out, nil
}

// ---- Convert: yaml types → dsl types --------------------------------------

func convertDocument(yd yamlDocument) (Document, error) {
	var doc Document
	for i, ys := range yd.Sources {
		s, err := convertSource(ys)
		if err != nil {
			return Document{}, fmt.Errorf("phase=parse path=sources[%d]: %w", i, err)
		}
		doc.Sources = append(doc.Sources, s)
	}
	for i, yt := range yd.Templates {
		path := fmt.Sprintf("templates[%d]", i)
		if yt.ID != "" {
			path = yt.ID
		}
		stmts, err := convertStatements(yt.Do, path+".do")
		if err != nil {
			return Document{}, err
		}
		doc.Templates = append(doc.Templates, dsl.DataTemplate{
			ID:         yt.ID,
			DataKey:    yt.Data,
			Filter:     yt.Filter,
			Limit:      yt.Limit,
			Statements: stmts,
		})
	}
	if yd.Generate != nil {
		g, err := convertGenerate(*yd.Generate)
		if err != nil {
			return Document{}, err
		}
		doc.Generate = g
	}
	if yd.Legends != nil {
		cfg, err := convertLegendConfig(&yd.Legends.yamlLegendCfg)
		if err != nil {
			return Document{}, fmt.Errorf("phase=parse path=legends: %w", err)
		}
		doc.Legends = yd.Legends.Enabled
		doc.Legend = cfg
	}
	return doc, nil
}

func convertSource(ys yamlSource) (dsl.DataSource, error) {
	if ys.Key == "" {
		return dsl.DataSource{}, fmt.Errorf("key is required")
	}
	s := dsl.DataSource{Key: ys.Key, Format: strings.ToLower(ys.Format), Source: ys.Source}
	if ys.Options.Kind != 0 {
		pairs, err := orderedScalars(&ys.Options)
		if err != nil {
			return dsl.DataSource{}, fmt.Errorf("options: %w", err)
		}
		for _, p := range pairs {
			s.Options = append(s.Options, dsl.SourceOption{Name: p[0], Value: p[1]})
		}
	}
	return s, nil
}

func convertStatements(raw []yamlStatement, path string) ([]dsl.Statement, error) {
	out := make([]dsl.Statement, 0, len(raw))
	for i, ys := range raw {
		p := fmt.Sprintf("%s[%d]", path, i)
		st, err := convertStatement(ys, p)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func convertStatement(ys yamlStatement, path string) (dsl.Statement, error) {
	kinds := 0
	for _, set := range []bool{ys.Node != nil, ys.Edge != nil, ys.If.Kind != 0, ys.For != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("phase=parse path=%s: statement must have exactly one of node, edge, if, for", path)
	}

	switch {
	case ys.Node != nil:
		id, err := exprFromNode(&ys.Node.ID)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.node.id: %w", path, err)
		}
		props, err := convertProps(&ys.Node.Props, path+".node.props")
		if err != nil {
			return nil, err
		}
		return dsl.NodeEmit{ID: id, Shape: ys.Node.Shape, Properties: props}, nil

	case ys.Edge != nil:
		from, err := exprFromNode(&ys.Edge.From)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.edge.from: %w", path, err)
		}
		to, err := exprFromNode(&ys.Edge.To)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.edge.to: %w", path, err)
		}
		props, err := convertProps(&ys.Edge.Props, path+".edge.props")
		if err != nil {
			return nil, err
		}
		return dsl.EdgeEmit{From: from, To: to, Properties: props}, nil

	case ys.If.Kind != 0:
		cond, err := exprFromNode(&ys.If)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.if: %w", path, err)
		}
		body, err := convertStatements(ys.Then, path+".then")
		if err != nil {
			return nil, err
		}
		return dsl.Conditional{Condition: cond, Body: body}, nil

	default:
		if ys.In.Kind == 0 {
			return nil, fmt.Errorf("phase=parse path=%s: for requires in", path)
		}
		iter, err := exprFromNode(&ys.In)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s.in: %w", path, err)
		}
		body, err := convertStatements(ys.Do, path+".do")
		if err != nil {
			return nil, err
		}
		return dsl.Loop{Var: ys.For, Iterable: iter, Body: body}, nil
	}
}

// convertProps reads an ordered props mapping. Each value is either a scalar
// expression or a mapping with a single style key.
func convertProps(node *yaml.Node, path string) ([]dsl.Property, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("phase=parse path=%s: expected a mapping, got YAML kind %d", path, node.Kind)
	}
	var props []dsl.Property
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		val := node.Content[i+1]
		p := path + "." + name
		if val.Kind == yaml.MappingNode {
			var wrapper struct {
				Style *yamlStyle `yaml:"style"`
			}
			if err := val.Decode(&wrapper); err != nil {
				return nil, fmt.Errorf("phase=parse path=%s: %w", p, err)
			}
			if wrapper.Style == nil {
				return nil, fmt.Errorf("phase=parse path=%s: mapping value must be a style block", p)
			}
			m, err := convertStyle(*wrapper.Style)
			if err != nil {
				return nil, fmt.Errorf("phase=parse path=%s.style: %w", p, err)
			}
			props = append(props, dsl.Property{Name: name, Style: &m})
			continue
		}
		expr, err := exprFromNode(val)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s: %w", p, err)
		}
		props = append(props, dsl.Property{Name: name, Expr: expr})
	}
	return props, nil
}

// convertStyle converts a style block. Payload checks are left to the engine
// so an invalid mapping only disables its own property.
func convertStyle(ys yamlStyle) (dsl.StyleMapping, error) {
	m := dsl.StyleMapping{
		Property: ys.Property,
		Field:    ys.Field,
		Type:     ys.Type,
		Fallback: ys.Fallback,
	}
	if ys.Categories.Kind != 0 {
		cats, err := convertCategories(&ys.Categories)
		if err != nil {
			return dsl.StyleMapping{}, fmt.Errorf("categories: %w", err)
		}
		m.Categories = cats
	}
	if ys.Scale != nil {
		if len(ys.Scale.Domain) != 2 || len(ys.Scale.Range) != 2 {
			return dsl.StyleMapping{}, fmt.Errorf("scale: domain and range need exactly two values")
		}
		m.Scale = &dsl.Scale{
			Domain: [2]float64{ys.Scale.Domain[0], ys.Scale.Domain[1]},
			Range:  [2]string{ys.Scale.Range[0], ys.Scale.Range[1]},
		}
	}
	for _, t := range ys.Thresholds {
		m.Thresholds = append(m.Thresholds, dsl.Threshold{Value: t.Value, Style: t.Style})
	}
	return m, nil
}

// convertCategories accepts an ordered mapping (key: style) or a list of
// {key, style} items.
func convertCategories(node *yaml.Node) ([]dsl.Category, error) {
	switch node.Kind {
	case yaml.MappingNode:
		pairs, err := orderedScalars(node)
		if err != nil {
			return nil, err
		}
		out := make([]dsl.Category, len(pairs))
		for i, p := range pairs {
			out[i] = dsl.Category{Key: p[0], Style: p[1]}
		}
		return out, nil
	case yaml.SequenceNode:
		var items []struct {
			Key   string `yaml:"key"`
			Style string `yaml:"style"`
		}
		if err := node.Decode(&items); err != nil {
			return nil, err
		}
		out := make([]dsl.Category, len(items))
		for i, it := range items {
			out[i] = dsl.Category{Key: it.Key, Style: it.Style}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected mapping or sequence, got YAML kind %d", node.Kind)
	}
}

func convertGenerate(yg yamlGenerate) (*Generate, error) {
	g := &Generate{Data: yg.Data, Request: dsl.Request{GenerateLegends: yg.Legends}}
	if g.Data == "" {
		return nil, fmt.Errorf("phase=parse path=generate: data is required")
	}
	if yg.Node != nil {
		fields, err := convertFieldMappings(&yg.Node.Fields)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=generate.node.fields: %w", err)
		}
		styles, err := convertStyles(yg.Node.Styles, "generate.node.styles")
		if err != nil {
			return nil, err
		}
		g.Request.Node = &dsl.NodeConfig{IDField: yg.Node.ID, Shape: yg.Node.Shape, FieldMappings: fields, StyleMappings: styles}
	}
	if yg.Edge != nil {
		fields, err := convertFieldMappings(&yg.Edge.Fields)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=generate.edge.fields: %w", err)
		}
		styles, err := convertStyles(yg.Edge.Styles, "generate.edge.styles")
		if err != nil {
			return nil, err
		}
		g.Request.Edge = &dsl.EdgeConfig{FromField: yg.Edge.From, ToField: yg.Edge.To, FieldMappings: fields, StyleMappings: styles}
	}
	if yg.Legend != nil {
		cfg, err := convertLegendConfig(yg.Legend)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=generate.legend: %w", err)
		}
		g.Request.Legend = &cfg
	}
	return g, nil
}

func convertStyles(raw []yamlStyle, path string) ([]dsl.StyleMapping, error) {
	out := make([]dsl.StyleMapping, 0, len(raw))
	for i, ys := range raw {
		m, err := convertStyle(ys)
		if err != nil {
			return nil, fmt.Errorf("phase=parse path=%s[%d]: %w", path, i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func convertFieldMappings(node *yaml.Node) ([]dsl.FieldMapping, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	pairs, err := orderedScalars(node)
	if err != nil {
		return nil, err
	}
	out := make([]dsl.FieldMapping, len(pairs))
	for i, p := range pairs {
		out[i] = dsl.FieldMapping{Property: p[0], Field: p[1]}
	}
	return out, nil
}

func convertLegendConfig(y *yamlLegendCfg) (dsl.LegendConfig, error) {
	cfg := dsl.LegendConfig{
		Title:     y.Title,
		Steps:     y.Steps,
		Margin:    y.Margin,
		Width:     y.Width,
		RowHeight: y.RowHeight,
	}
	if y.Position != "" {
		p, err := dsl.ParsePosition(y.Position)
		if err != nil {
			return dsl.LegendConfig{}, err
		}
		cfg.Position = p
	}
	if y.Canvas != nil {
		cfg.CanvasWidth = y.Canvas.Width
		cfg.CanvasHeight = y.Canvas.Height
	}
	return cfg, nil
}

// orderedScalars reads a mapping of scalars as ordered key/value pairs.
// yaml.v3 keeps every scalar's source text in node.Value, so 8080 arrives as
// "8080".
func orderedScalars(node *yaml.Node) ([][2]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping, got YAML kind %d", node.Kind)
	}
	out := make([][2]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s: value must be a scalar", k.Value)
		}
		out = append(out, [2]string{k.Value, v.Value})
	}
	return out, nil
}

// ---- Expressions -----------------------------------------------------------

// exprFromNode converts a scalar node. Numbers and booleans become literals of
// their type; strings go through ParseExpression.
func exprFromNode(node *yaml.Node) (dsl.Expression, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("value is required")
	}
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("expected a scalar, got YAML kind %d", node.Kind)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(strings.ReplaceAll(node.Value, "_", ""), 64)
		if err == nil {
			return dsl.Literal{Value: dsl.Number(f)}, nil
		}
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err == nil {
			return dsl.Literal{Value: dsl.Bool(b)}, nil
		}
	case "!!null":
		return dsl.Literal{Value: dsl.Null{}}, nil
	}
	return ParseExpression(node.Value)
}

// ParseExpression parses text with ${path} references. "$$" is a literal "$".
// Text without references is a string Literal.
func ParseExpression(s string) (dsl.Expression, error) {
	var parts []dsl.Part
	var text strings.Builder
	refs := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			text.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '$':
			text.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated ${ in %q", s)
			}
			path, err := dsl.ParsePath(s[i+2 : i+2+end])
			if err != nil {
				return nil, err
			}
			if text.Len() > 0 {
				parts = append(parts, dsl.Part{Text: text.String()})
				text.Reset()
			}
			parts = append(parts, dsl.Part{Path: path})
			refs++
			i += end + 2
		default:
			text.WriteByte(c)
		}
	}
	if refs == 0 {
		return dsl.Literal{Value: dsl.String(text.String())}, nil
	}
	if text.Len() > 0 {
		parts = append(parts, dsl.Part{Text: text.String()})
	}
	return dsl.Template{Parts: parts}, nil
}
