package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"diagram-tools/cmd/diagen/dsl"
	"diagram-tools/cmd/diagen/dslyaml"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand templates and print the resulting nodes and edges",
	Long: "Expand every template of the loaded documents (or the ones named with\n" +
		"--template) and print the merged diagram fragment.\n\n" +
		"Output is YAML by default; --output text prints one line per node and edge.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		names, _ := cmd.Flags().GetStringArray("template")
		pick, _ := cmd.Flags().GetBool("pick")
		format, _ := cmd.Flags().GetString("output")
		legends, _ := cmd.Flags().GetBool("legends")
		watch, _ := cmd.Flags().GetBool("watch")
		stats, _ := cmd.Flags().GetBool("stats")

		if format != "yaml" && format != "text" {
			return fmt.Errorf("unknown output format %q (want yaml or text)", format)
		}

		once := func() error {
			p, err := load(ctx)
			if err != nil {
				return err
			}
			if pick && len(names) == 0 {
				id, err := pickTemplate(p)
				if err != nil {
					return err
				}
				names = []string{id}
			}
			started := time.Now()
			res, err := expand(ctx, p, names, legends || p.Doc.Legends)
			if err != nil {
				return err
			}
			if err := writeResult(cmd.OutOrStdout(), res, format); err != nil {
				return err
			}
			if stats {
				printStats(cmd.ErrOrStderr(), res, time.Since(started))
			}
			return res.Err()
		}

		if !watch {
			return once()
		}
		return watchAndRun(ctx, cmd.ErrOrStderr(), once)
	},
}

// expand runs the selected templates of p.
func expand(ctx context.Context, p *project, names []string, legends bool) (dsl.Result, error) {
	templates, err := p.selectTemplates(names)
	if err != nil {
		return dsl.Result{}, err
	}
	return run(ctx, newEngine(), p, templates, legends), nil
}

// pickTemplate lets the user choose one template interactively.
func pickTemplate(p *project) (string, error) {
	ids := p.templateIDs()
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no templates to pick from")
	case 1:
		return ids[0], nil
	}
	idx, err := fuzzyfinder.Find(
		p.Doc.Templates,
		func(i int) string { return p.Doc.Templates[i].ID },
		fuzzyfinder.WithPromptString("Template: "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 {
				return ""
			}
			t := p.Doc.Templates[i]
			return templateSummary(t)
		}),
	)
	if err != nil {
		return "", err
	}
	return ids[idx], nil
}

func templateSummary(t dsl.DataTemplate) string {
	s := fmt.Sprintf("id:         %s\ndata:       %s\nstatements: %d", t.ID, t.DataKey, len(t.Statements))
	if t.Filter != "" {
		s += "\nfilter:     " + t.Filter
	}
	if t.Limit != nil {
		s += fmt.Sprintf("\nlimit:      %d", *t.Limit)
	}
	return s
}

// writeResult prints res in the requested format. Errors are part of the
// output so partial results stay readable.
func writeResult(w io.Writer, res dsl.Result, format string) error {
	if format == "text" {
		printText(w, res)
		return nil
	}
	out, err := dslyaml.MarshalResult(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func init() {
	expandCmd.Flags().StringArrayP("template", "t", nil, "expand only this template (repeatable)")
	expandCmd.Flags().Bool("pick", false, "choose the template interactively")
	expandCmd.Flags().StringP("output", "o", "yaml", "output format: yaml or text")
	expandCmd.Flags().Bool("legends", false, "synthesize legends even when the documents do not ask for them")
	expandCmd.Flags().BoolP("watch", "w", false, "re-expand when a document or data file changes")
	expandCmd.Flags().Bool("stats", false, "print timing and process resource usage to stderr")
}
