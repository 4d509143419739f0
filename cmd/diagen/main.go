package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"diagram-tools/cmd/diagen/dsl"
	"diagram-tools/pkg/lib"
)

var (
	flagFiles       []string
	flagVerbose     bool
	flagConcurrency int
	flagDiagnostics bool
	flagPosition    positionValue
)

func main() {
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(legendCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(exampleCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringArrayVarP(&flagFiles, "file", "f", nil,
		"diagram document (repeatable; default: ~/.config/"+appName+"/docs/**/*.yml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log engine activity to stderr")
	pf.IntVar(&flagConcurrency, "concurrency", 0, "templates expanded in parallel (default: GOMAXPROCS)")
	pf.BoolVar(&flagDiagnostics, "diagnostics", false, "report unresolved paths")
	pf.Var(&flagPosition, "legend-position", "place every legend at this anchor ("+positionNames()+")")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, dsl.ErrMissingDataSource) {
			fmt.Fprintln(os.Stderr, "hint: declare the data set under `sources:` in one of the loaded documents")
		}
		lib.Exit(err)
	}
}

func positionNames() string {
	names := make([]string, len(dsl.Positions))
	for i, p := range dsl.Positions {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
