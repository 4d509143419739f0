package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List data sources and templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := load(cmd.Context())
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), collectEntries(p))
		return nil
	},
}

// listEntry is one line of the listing.
type listEntry struct {
	name   string
	kind   string // "source", "template" or "generate"
	detail string
}

// collectEntries returns sources first, then templates, then the generate
// block, each in declaration order.
func collectEntries(p *project) []listEntry {
	var out []listEntry
	for _, s := range p.Doc.Sources {
		out = append(out, listEntry{
			name:   s.Key,
			kind:   "source",
			detail: fmt.Sprintf("%s, %d rows", s.Format, len(p.Data[s.Key])),
		})
	}
	for _, t := range p.Doc.Templates {
		detail := "over " + t.DataKey
		if t.Filter != "" {
			detail += " where " + t.Filter
		}
		if t.Limit != nil {
			detail += fmt.Sprintf(" limit %d", *t.Limit)
		}
		out = append(out, listEntry{name: t.ID, kind: "template", detail: detail})
	}
	if g := p.Doc.Generate; g != nil {
		out = append(out, listEntry{name: "generate", kind: "generate", detail: "over " + g.Data})
	}
	return out
}

// printEntries prints all entries aligned.
func printEntries(w io.Writer, entries []listEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "nothing declared")
		return
	}

	maxLen := 0
	for _, e := range entries {
		if n := len(e.name); n > maxLen {
			maxLen = n
		}
	}

	for _, e := range entries {
		fmt.Fprintf(w, "%-*s  [%s]  %s\n", maxLen, e.name, e.kind, e.detail)
	}
}
