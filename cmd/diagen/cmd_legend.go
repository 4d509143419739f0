package main

import (
	"fmt"
	"os"

	"diagram-tools/cmd/diagen/render"

	"github.com/spf13/cobra"
)

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Show the legends of the loaded documents",
	Long: "Synthesize one legend per style mapping and print them as terminal\n" +
		"swatches, or write them as an SVG document with --svg.",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringArray("template")
		svgPath, _ := cmd.Flags().GetString("svg")

		p, err := load(cmd.Context())
		if err != nil {
			return err
		}
		res, err := expand(cmd.Context(), p, names, true)
		if err != nil {
			return err
		}
		if len(res.Legends) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "no style mappings, no legends")
			return res.Err()
		}

		if svgPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), render.LegendsText(res.Legends))
			return res.Err()
		}

		w := cmd.OutOrStdout()
		if svgPath != "-" {
			f, err := os.Create(svgPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", svgPath, err)
			}
			defer f.Close()
			w = f
		}
		if err := render.LegendSVG(w, res.Legends, legendConfig(p)); err != nil {
			return err
		}
		if svgPath != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "written to %s\n", svgPath)
		}
		return res.Err()
	},
}

func init() {
	legendCmd.Flags().StringArrayP("template", "t", nil, "only mappings of this template (repeatable)")
	legendCmd.Flags().String("svg", "", "write an SVG document to this file (- for stdout)")
}
