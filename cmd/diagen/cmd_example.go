package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

//go:embed example_servers.yml
var exampleDocYAML []byte

//go:embed example_servers.json
var exampleDataJSON []byte

const (
	exampleDocName  = "servers.yml"
	exampleDataName = "servers.json"
)

const exampleHeader = `# diagen reference document
# Run:      diagen --file <this-file> expand
# Legends:  diagen --file <this-file> legend --svg legends.svg
# Data:     diagen example --data > servers.json (next to this file)

`

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print a reference document covering templates, styles and legends",
	Long: "Print a " + appName + " YAML document that demonstrates data sources, loops,\n" +
		"conditionals and every style mapping type. Use --data to print the JSON\n" +
		"data file it reads instead. Use --output to write to a file instead of stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetBool("data")

		output, _ := cmd.Flags().GetString("output")
		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		if data {
			w.Write(exampleDataJSON)
		} else {
			fmt.Fprint(w, exampleHeader)
			w.Write(exampleDocYAML)
		}

		if output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "written to %s\n", output)
		}
		return nil
	},
}

func init() {
	exampleCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	exampleCmd.Flags().Bool("data", false, "print the example JSON data instead of the document")
}
