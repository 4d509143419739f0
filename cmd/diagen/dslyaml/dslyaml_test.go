package dslyaml

import (
	"context"
	"errors"
	"strings"
	"testing"

	"diagram-tools/cmd/diagen/dsl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func requireParseOK(t *testing.T, yml string) Document {
	t.Helper()
	doc, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("expected parse success, got: %v", err)
	}
	return doc
}

func requireParseErr(t *testing.T, yml string, wantSubstrs ...string) {
	t.Helper()
	_, err := Parse([]byte(yml))
	if err == nil {
		t.Fatalf("expected parse error but got none")
	}
	for _, sub := range wantSubstrs {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("parse error %q does not contain %q", err.Error(), sub)
		}
	}
}

const serversDoc = `
sources:
  - key: servers
    format: json
    source: data/servers.json
    options:
      root: items
      strict: true
templates:
  - id: servers
    data: servers
    filter: status = "active"
    limit: 10
    do:
      - node:
          id: ${item.id}
          shape: db
          props:
            label: "${item.name} (${item.zone})"
            price: "$$${item.cost}"
            weight: 2
            fill:
              style:
                field: status
                type: category
                categories:
                  active: "#00aa00"
                  idle: "#aaaaaa"
                fallback: "#ff00ff"
      - for: link
        in: ${item.links}
        do:
          - edge:
              from: ${item.id}
              to: ${link}
      - if: item.public
        then:
          - node:
              id: "public-${item.id}"
legends:
  enabled: true
  position: bottom-left
  steps: 3
  canvas: {width: 1024, height: 768}
`

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

func TestParse_FullDocument(t *testing.T) {
	doc := requireParseOK(t, serversDoc)

	require.Len(t, doc.Sources, 1)
	src := doc.Sources[0]
	assert.Equal(t, "servers", src.Key)
	assert.Equal(t, "json", src.Format)
	assert.Equal(t, []dsl.SourceOption{{Name: "root", Value: "items"}, {Name: "strict", Value: "true"}}, src.Options)

	require.Len(t, doc.Templates, 1)
	tmpl := doc.Templates[0]
	assert.Equal(t, "servers", tmpl.ID)
	assert.Equal(t, "servers", tmpl.DataKey)
	assert.Equal(t, `status = "active"`, tmpl.Filter)
	require.NotNil(t, tmpl.Limit)
	assert.Equal(t, 10, *tmpl.Limit)
	require.Len(t, tmpl.Statements, 3)

	node, ok := tmpl.Statements[0].(dsl.NodeEmit)
	require.True(t, ok)
	assert.Equal(t, "db", node.Shape)
	assert.Equal(t, "${item.id}", node.ID.(dsl.Template).String())
	require.Len(t, node.Properties, 4)
	assert.Equal(t, []string{"label", "price", "weight", "fill"}, propNames(node.Properties))
	assert.Equal(t, "${item.name} (${item.zone})", node.Properties[0].Expr.(dsl.Template).String())
	assert.Equal(t, dsl.Literal{Value: dsl.Number(2)}, node.Properties[2].Expr)

	fill := node.Properties[3].Style
	require.NotNil(t, fill)
	assert.Equal(t, dsl.MappingCategory, fill.Type)
	assert.Equal(t, []dsl.Category{{Key: "active", Style: "#00aa00"}, {Key: "idle", Style: "#aaaaaa"}}, fill.Categories)
	require.NotNil(t, fill.Fallback)
	assert.Equal(t, "#ff00ff", *fill.Fallback)

	loop, ok := tmpl.Statements[1].(dsl.Loop)
	require.True(t, ok)
	assert.Equal(t, "link", loop.Var)
	require.Len(t, loop.Body, 1)
	_, ok = loop.Body[0].(dsl.EdgeEmit)
	assert.True(t, ok)

	cond, ok := tmpl.Statements[2].(dsl.Conditional)
	require.True(t, ok)
	assert.Equal(t, dsl.Literal{Value: dsl.String("item.public")}, cond.Condition)

	assert.True(t, doc.Legends)
	assert.Equal(t, dsl.BottomLeft, doc.Legend.Position)
	assert.Equal(t, 3, doc.Legend.Steps)
	assert.Equal(t, float64(1024), doc.Legend.CanvasWidth)
}

func propNames(props []dsl.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Name
	}
	return out
}

func TestParse_ExpandsEndToEnd(t *testing.T) {
	doc := requireParseOK(t, serversDoc)
	data := map[string][]dsl.Value{
		"servers": dsl.Rows(
			map[string]any{"id": "s1", "name": "Web", "zone": "eu", "cost": 12, "status": "active",
				"links": []any{"s2"}, "public": true},
			map[string]any{"id": "s2", "name": "DB", "zone": "us", "cost": 40, "status": "active"},
			map[string]any{"id": "s3", "name": "Old", "zone": "us", "cost": 1, "status": "retired"},
		),
	}
	eng := dsl.NewEngine(dsl.DefaultRegistry())
	res := eng.ExpandAll(context.Background(), doc.Templates, data, dsl.ExpandOptions{
		GenerateLegends: doc.Legends,
		Legend:          doc.Legend,
	})
	require.NoError(t, res.Err())

	require.Len(t, res.Fragment.Nodes, 3)
	s1 := res.Fragment.Nodes[0]
	assert.Equal(t, "s1", s1.ID)
	assert.Equal(t, "cylinder", s1.Shape)
	assert.Equal(t, "Web (eu)", s1.Properties["label"])
	assert.Equal(t, "$12", s1.Properties["price"])
	assert.Equal(t, "2", s1.Properties["weight"])
	assert.Equal(t, "#00aa00", s1.Properties["fill"])
	assert.Equal(t, "public-s1", res.Fragment.Nodes[1].ID)
	assert.Equal(t, "s2", res.Fragment.Nodes[2].ID)

	require.Len(t, res.Fragment.Edges, 1)
	assert.Equal(t, dsl.EdgeAST{From: "s1", To: "s2", Properties: map[string]string{}}, res.Fragment.Edges[0])

	require.Len(t, res.Legends, 1)
	assert.Equal(t, dsl.BottomLeft, res.Legends[0].Position)
}

func TestParse_Generate(t *testing.T) {
	doc := requireParseOK(t, `
sources:
  - key: links
    format: csv
    source: links.csv
generate:
  data: links
  node:
    id: id
    shape: circle
    fields: {label: name}
    styles:
      - property: fill
        field: load
        type: scale
        scale: {domain: [0, 100], range: ["#000000", "#ffffff"]}
  edge:
    from: id
    to: next
    styles:
      - property: width
        field: load
        type: threshold
        thresholds:
          - {value: 50, style: 3}
          - {value: 0, style: 1}
  legends: true
  legend: {position: top-left}
`)
	require.NotNil(t, doc.Generate)
	g := doc.Generate
	assert.Equal(t, "links", g.Data)
	assert.True(t, g.Request.GenerateLegends)
	require.NotNil(t, g.Request.Node)
	assert.Equal(t, "id", g.Request.Node.IDField)
	assert.Equal(t, []dsl.FieldMapping{{Property: "label", Field: "name"}}, g.Request.Node.FieldMappings)
	require.Len(t, g.Request.Node.StyleMappings, 1)
	assert.Equal(t, [2]string{"#000000", "#ffffff"}, g.Request.Node.StyleMappings[0].Scale.Range)
	require.NotNil(t, g.Request.Edge)
	assert.Equal(t, []dsl.Threshold{{Value: 50, Style: "3"}, {Value: 0, Style: "1"}}, g.Request.Edge.StyleMappings[0].Thresholds)
	require.NotNil(t, g.Request.Legend)
	assert.Equal(t, dsl.TopLeft, g.Request.Legend.Position)
}

func TestParse_CategoryListForm(t *testing.T) {
	doc := requireParseOK(t, `
templates:
  - id: t
    data: d
    do:
      - node:
          id: ${item.id}
          props:
            fill:
              style:
                field: kind
                type: category
                categories:
                  - {key: a, style: red}
                  - {key: 1, style: blue}
`)
	node := doc.Templates[0].Statements[0].(dsl.NodeEmit)
	assert.Equal(t, []dsl.Category{{Key: "a", Style: "red"}, {Key: "1", Style: "blue"}}, node.Properties[0].Style.Categories)
}

func TestParse_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		requireParseErr(t, "", "phase=parse", "empty YAML")
	})
	t.Run("sequence root", func(t *testing.T) {
		requireParseErr(t, "- a\n- b\n", "expected a mapping")
	})
	t.Run("statement with two kinds", func(t *testing.T) {
		requireParseErr(t, `
templates:
  - id: t
    data: d
    do:
      - node: {id: x}
        edge: {from: a, to: b}
`, "path=t.do[0]", "exactly one of")
	})
	t.Run("for without in", func(t *testing.T) {
		requireParseErr(t, `
templates:
  - id: t
    data: d
    do:
      - for: x
        do: []
`, "for requires in")
	})
	t.Run("bad reference", func(t *testing.T) {
		requireParseErr(t, `
templates:
  - id: t
    data: d
    do:
      - node: {id: "${item..id}"}
`, "path=t.do[0].node.id", "invalid variable path")
	})
	t.Run("unterminated reference", func(t *testing.T) {
		requireParseErr(t, `
templates:
  - id: t
    data: d
    do:
      - node: {id: "${item.id"}
`, "unterminated")
	})
	t.Run("prop mapping without style", func(t *testing.T) {
		requireParseErr(t, `
templates:
  - id: t
    data: d
    do:
      - node:
          id: x
          props:
            fill: {color: red}
`, "path=t.do[0].node.props.fill", "style block")
	})
	t.Run("bad legend position", func(t *testing.T) {
		requireParseErr(t, "legends: {enabled: true, position: middle}\n", "path=legends", "middle")
	})
	t.Run("source without key", func(t *testing.T) {
		requireParseErr(t, "sources:\n  - format: json\n", "path=sources[0]", "key is required")
	})
}

func TestParse_InvalidStyleReachesEngine(t *testing.T) {
	doc := requireParseOK(t, `
templates:
  - id: t
    data: d
    do:
      - node:
          id: ${item.id}
          props:
            opacity:
              style: {field: load, type: scale}
            label: ${item.id}
`)
	res := dsl.NewEngine(nil).ExpandAll(context.Background(), doc.Templates,
		map[string][]dsl.Value{"d": dsl.Rows(map[string]any{"id": "a"})}, dsl.ExpandOptions{})
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], dsl.ErrInvalidStyleMapping))
	assert.Equal(t, map[string]string{"label": "a"}, res.Fragment.Nodes[0].Properties)
}

func TestParse_ConditionsEvaluateAsComparisons(t *testing.T) {
	doc := requireParseOK(t, `
templates:
  - id: t
    data: d
    do:
      - if: "${item.count} > 5"
        then:
          - node: {id: "big-${item.id}"}
      - if: public
        then:
          - node: {id: "pub-${item.id}"}
`)
	data := map[string][]dsl.Value{"d": dsl.Rows(
		map[string]any{"id": "a", "count": 1, "public": false},
		map[string]any{"id": "b", "count": 7, "public": true},
	)}
	res := dsl.NewEngine(nil).ExpandAll(context.Background(), doc.Templates, data, dsl.ExpandOptions{})
	require.NoError(t, res.Err())
	ids := make([]string, 0, len(res.Fragment.Nodes))
	for _, n := range res.Fragment.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"big-b", "pub-b"}, ids)

	doc = requireParseOK(t, `
templates:
  - id: t
    data: d
    do:
      - if: "${item.count} > ${item.max}"
        then:
          - node: {id: "${item.id}"}
`)
	res = dsl.NewEngine(nil).ExpandAll(context.Background(), doc.Templates, data, dsl.ExpandOptions{})
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], dsl.ErrFilterSyntax), "got %v", res.Errors[0])
	assert.Empty(t, res.Fragment.Nodes)
}

func TestMerge(t *testing.T) {
	a := requireParseOK(t, "sources: [{key: x, format: json, source: a.json}]\ntemplates: [{id: t1, data: x, do: []}]\n")
	b := requireParseOK(t, "sources: [{key: y, format: csv, source: b.csv}]\ntemplates: [{id: t2, data: y, do: []}]\n")
	doc, err := Merge(a, b)
	require.NoError(t, err)
	assert.Len(t, doc.Sources, 2)
	assert.Equal(t, "t2", doc.Templates[1].ID)

	_, err = Merge(a, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate data source key")

	_, err = ParseMany([]byte("templates: [{id: t1, data: x, do: []}]\n"), []byte("templates: [{id: t1, data: y, do: []}]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate template id")
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestParseExpression(t *testing.T) {
	cases := []struct {
		in   string
		want dsl.Expression
	}{
		{"plain", dsl.Literal{Value: dsl.String("plain")}},
		{"", dsl.Literal{Value: dsl.String("")}},
		{"cost $$5", dsl.Literal{Value: dsl.String("cost $5")}},
		{"a$b", dsl.Literal{Value: dsl.String("a$b")}},
		{"${item.id}", dsl.Ref("item.id")},
		{"n-${item.id}-x", dsl.Concat("n-", dsl.MustPath("item.id"), "-x")},
		{"${a}${b}", dsl.Concat(dsl.MustPath("a"), dsl.MustPath("b"))},
		{"$$${item.cost}", dsl.Concat("$", dsl.MustPath("item.cost"))},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseExpression(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"${", "${item.id", "${}", "${1x}"} {
		_, err := ParseExpression(bad)
		assert.Error(t, err, bad)
	}
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func TestMarshalResult(t *testing.T) {
	res := dsl.Result{
		Fragment: dsl.Fragment{
			Nodes: []dsl.NodeAST{{ID: "a", Shape: "circle", Properties: map[string]string{"z": "1", "b": "2"}}},
			Edges: []dsl.EdgeAST{{From: "a", To: "b", Properties: map[string]string{}}},
		},
		Errors: []error{errors.New("boom")},
	}
	out, err := MarshalResult(res)
	require.NoError(t, err)
	got := string(out)
	for _, want := range []string{"- id: a\n", "shape: circle", "b: \"2\"", "from: a", "errors:\n    - boom", "fingerprint:"} {
		assert.Contains(t, got, want)
	}
	assert.Less(t, strings.Index(got, "b: \"2\""), strings.Index(got, "z: \"1\""), "props are sorted")
}
