package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"diagram-tools/cmd/diagen/dsl"
)

// printText prints a result as one line per node and edge, then legends,
// diagnostics and errors.
func printText(w io.Writer, res dsl.Result) {
	for _, n := range res.Fragment.Nodes {
		line := "node " + n.ID
		if n.Shape != "" {
			line += " [" + n.Shape + "]"
		}
		fmt.Fprintln(w, line+formatProps(n.Properties))
	}
	for _, e := range res.Fragment.Edges {
		fmt.Fprintln(w, "edge "+e.From+" -> "+e.To+formatProps(e.Properties))
	}
	for _, l := range res.Legends {
		fmt.Fprintf(w, "legend %s %q %s at %s (%g,%g %gx%g)\n",
			l.Type, l.Title, l.Property, l.Position, l.Bounds.X, l.Bounds.Y, l.Bounds.Width, l.Bounds.Height)
		for _, e := range l.Entries {
			fmt.Fprintf(w, "  %s: %s\n", e.Label, e.Style)
		}
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintln(w, "diagnostic "+d.String())
	}
	for _, err := range res.Errors {
		fmt.Fprintln(w, "error "+err.Error())
	}
}

func formatProps(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, k := range sortedKeys(props) {
		parts = append(parts, fmt.Sprintf("%s=%q", k, props[k]))
	}
	return " " + strings.Join(parts, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
