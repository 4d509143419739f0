package dsl

import (
	"sort"
	"strings"
	"testing"
)

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func mustContain(t *testing.T, got string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(got, sub) {
			t.Fatalf("expected %q to contain %q", got, sub)
		}
	}
}

// snapshot renders a fragment as stable text for comparisons.
func snapshot(f Fragment) string {
	var b strings.Builder
	for _, n := range f.Nodes {
		b.WriteString("N " + n.ID)
		if n.Shape != "" {
			b.WriteString(" shape=" + n.Shape)
		}
		writeProps(&b, n.Properties)
		b.WriteString("\n")
	}
	for _, e := range f.Edges {
		b.WriteString("E " + e.From + "->" + e.To)
		writeProps(&b, e.Properties)
		b.WriteString("\n")
	}
	return b.String()
}

func writeProps(b *strings.Builder, props map[string]string) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + "=" + props[k])
	}
}
