package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"diagram-tools/cmd/diagen/dsl"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   appName + " [command]",
	Short: "Expand data-driven diagram templates",
	Long: appName + " expands data-driven templates into diagram nodes and edges,\n" +
		"applies style mappings and synthesizes legends.\n\n" +
		"Documents are read from ~/.config/" + appName + "/docs or --file.",
}

// positionValue is a pflag.Value accepting legend anchor names.
type positionValue struct {
	pos dsl.Position
}

func (p *positionValue) String() string { return string(p.pos) }

func (p *positionValue) Set(s string) error {
	pos, err := dsl.ParsePosition(s)
	if err != nil {
		return err
	}
	p.pos = pos
	return nil
}

func (p *positionValue) Type() string { return "position" }

var _ pflag.Value = (*positionValue)(nil)

// newLogger returns a text logger on stderr, quiet unless --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEngine builds an engine from the global flags.
func newEngine() *dsl.Engine {
	opts := []dsl.Option{
		dsl.WithLogger(newLogger()),
		dsl.WithDiagnostics(flagDiagnostics),
	}
	if flagConcurrency > 0 {
		opts = append(opts, dsl.WithConcurrency(flagConcurrency))
	}
	return dsl.NewEngine(dsl.DefaultRegistry(), opts...)
}

// legendConfig returns the project's legend settings with flag overrides.
func legendConfig(p *project) dsl.LegendConfig {
	cfg := p.Doc.Legend
	if flagPosition.pos != "" {
		cfg.Position = flagPosition.pos
	}
	return cfg
}

// run expands the selected templates, then the generate block when present,
// and merges both into one result.
func run(ctx context.Context, eng *dsl.Engine, p *project, templates []dsl.DataTemplate, legends bool) dsl.Result {
	cfg := legendConfig(p)
	res := eng.ExpandAll(ctx, templates, p.Data, dsl.ExpandOptions{
		Seed:            map[string]dsl.Value{"doc": docValue(p)},
		GenerateLegends: legends,
		Legend:          cfg,
	})

	g := p.Doc.Generate
	if g == nil {
		return res
	}
	rows, ok := p.Data[g.Data]
	if !ok {
		res.Errors = append(res.Errors, missingGenerateData(g.Data, p))
		return res
	}
	req := g.Request
	if legends {
		req.GenerateLegends = true
	}
	genCfg := cfg
	if req.Legend != nil {
		genCfg = *req.Legend
	}
	genCfg.Placed = len(res.Legends)
	req.Legend = &genCfg
	gen := eng.Generate(rows, req)
	res.Fragment.Append(gen.Fragment)
	res.Errors = append(res.Errors, gen.Errors...)
	res.Diagnostics = append(res.Diagnostics, gen.Diagnostics...)
	res.Legends = append(res.Legends, gen.Legends...)
	return res
}

func missingGenerateData(key string, p *project) error {
	keys := make([]string, 0, len(p.Data))
	for k := range p.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return fmt.Errorf("phase=expand path=generate: %w: %s (available: %s)",
		dsl.ErrMissingDataSource, key, strings.Join(keys, ", "))
}

// docValue exposes document metadata to templates as ${doc.*}.
func docValue(p *project) dsl.Value {
	return dsl.NewObject(
		dsl.Field{Key: "files", Value: dsl.FromAny(p.Files)},
		dsl.Field{Key: "templates", Value: dsl.FromAny(p.templateIDs())},
	)
}
