package dslyaml

import (
	"diagram-tools/cmd/diagen/dsl"

	"gopkg.in/yaml.v3"
)

// Output is the YAML shape of an expansion result handed to layout and render
// tools. Property maps are written with sorted keys.
type Output struct {
	Nodes       []OutputNode   `yaml:"nodes"`
	Edges       []OutputEdge   `yaml:"edges"`
	Legends     []OutputLegend `yaml:"legends,omitempty"`
	Errors      []string       `yaml:"errors,omitempty"`
	Diagnostics []string       `yaml:"diagnostics,omitempty"`
	Fingerprint string         `yaml:"fingerprint,omitempty"`
}

type OutputNode struct {
	ID         string            `yaml:"id"`
	Shape      string            `yaml:"shape,omitempty"`
	Properties map[string]string `yaml:"props,omitempty"`
}

type OutputEdge struct {
	From       string            `yaml:"from"`
	To         string            `yaml:"to"`
	Properties map[string]string `yaml:"props,omitempty"`
}

type OutputLegend struct {
	Type     string              `yaml:"type"`
	Title    string              `yaml:"title"`
	Property string              `yaml:"property"`
	Position string              `yaml:"position"`
	Bounds   [4]float64          `yaml:"bounds,flow"`
	Entries  []OutputLegendEntry `yaml:"entries"`
}

type OutputLegendEntry struct {
	Label string `yaml:"label"`
	Style string `yaml:"style"`
}

// NewOutput flattens a result. The fingerprint is left empty when hashing
// fails.
func NewOutput(res dsl.Result) Output {
	out := Output{
		Nodes: make([]OutputNode, 0, len(res.Fragment.Nodes)),
		Edges: make([]OutputEdge, 0, len(res.Fragment.Edges)),
	}
	for _, n := range res.Fragment.Nodes {
		out.Nodes = append(out.Nodes, OutputNode{ID: n.ID, Shape: n.Shape, Properties: n.Properties})
	}
	for _, e := range res.Fragment.Edges {
		out.Edges = append(out.Edges, OutputEdge{From: e.From, To: e.To, Properties: e.Properties})
	}
	for _, l := range res.Legends {
		ol := OutputLegend{
			Type:     l.Type,
			Title:    l.Title,
			Property: l.Property,
			Position: string(l.Position),
			Bounds:   [4]float64{l.Bounds.X, l.Bounds.Y, l.Bounds.Width, l.Bounds.Height},
		}
		for _, e := range l.Entries {
			ol.Entries = append(ol.Entries, OutputLegendEntry{Label: e.Label, Style: e.Style})
		}
		out.Legends = append(out.Legends, ol)
	}
	for _, err := range res.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}
	if fp, err := res.Fragment.Fingerprint(); err == nil {
		out.Fingerprint = fp
	}
	return out
}

// MarshalResult encodes a result as YAML.
func MarshalResult(res dsl.Result) ([]byte, error) {
	return yaml.Marshal(NewOutput(res))
}
