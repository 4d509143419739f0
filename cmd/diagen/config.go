package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"diagram-tools/cmd/diagen/dataload"
	"diagram-tools/cmd/diagen/dsl"
	"diagram-tools/cmd/diagen/dslyaml"

	"github.com/bmatcuk/doublestar/v4"
)

// appName is the single source of truth for the application name.
// All derived identifiers (env vars, config paths, error messages) are computed from it.
const appName = "diagen"

// Derived env var names, computed once at init from appName.
var (
	envConfigDir = strings.ToUpper(appName) + "_CONFIG_DIR"
	envDocs      = strings.ToUpper(appName) + "_DOCS"
)

// docsPattern selects diagram documents below the config directory.
const docsPattern = "docs/**/*.{yml,yaml}"

// resolveConfigDir returns the base config directory for the application.
// Priority: $<APPNAME>_CONFIG_DIR > $XDG_CONFIG_HOME/<appName> > ~/.config/<appName>
func resolveConfigDir() (string, error) {
	if v := os.Getenv(envConfigDir); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// resolveDocFiles returns all documents to load.
// Order: configDir/docs/**/*.yml → $<APPNAME>_DOCS → flagFiles
// When --file is given the auto-discovered documents are skipped.
func resolveDocFiles(configDir string, flagFiles []string) ([]string, error) {
	if len(flagFiles) > 0 {
		return flagFiles, nil
	}
	files, err := globDocs(configDir)
	if err != nil {
		return nil, err
	}
	return append(files, splitList(os.Getenv(envDocs))...), nil
}

// globDocs returns sorted documents under dir matching docsPattern.
// Returns nil without error if dir does not exist.
func globDocs(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), docsPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	slices.Sort(matches)
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return files, nil
}

// splitList splits a path-list-separated string, filtering empty parts.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := filepath.SplitList(s)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// project is every loaded document merged, with the rows of its sources.
type project struct {
	Files []string
	Doc   dslyaml.Document
	Data  map[string][]dsl.Value
}

// loadProject parses every file and loads its data sources. Source paths are
// relative to the document that declares them.
func loadProject(ctx context.Context, files []string) (*project, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf(
			"no documents found: add *.yml files to ~/.config/%s/docs/, "+
				"set $%s, or use --file",
			appName, envDocs,
		)
	}

	docs := make([]dslyaml.Document, 0, len(files))
	data := map[string][]dsl.Value{}
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", f, err)
		}
		doc, err := dslyaml.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", f, err)
		}
		rows, err := dataload.LoadAll(ctx, doc.Sources, filepath.Dir(f))
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", f, err)
		}
		for k, v := range rows {
			data[k] = v
		}
		docs = append(docs, doc)
	}

	merged, err := dslyaml.Merge(docs...)
	if err != nil {
		return nil, err
	}
	return &project{Files: files, Doc: merged, Data: data}, nil
}

// load resolves the document files from flags and loads them.
func load(ctx context.Context) (*project, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}
	files, err := resolveDocFiles(configDir, flagFiles)
	if err != nil {
		return nil, err
	}
	return loadProject(ctx, files)
}

// templateIDs lists the project's template ids in declaration order.
func (p *project) templateIDs() []string {
	ids := make([]string, len(p.Doc.Templates))
	for i, t := range p.Doc.Templates {
		ids[i] = t.ID
	}
	return ids
}

// selectTemplates keeps the named templates, in declaration order. An empty
// selection keeps them all.
func (p *project) selectTemplates(names []string) ([]dsl.DataTemplate, error) {
	if len(names) == 0 {
		return p.Doc.Templates, nil
	}
	var out []dsl.DataTemplate
	for _, n := range names {
		if !slices.Contains(p.templateIDs(), n) {
			return nil, fmt.Errorf("template %q not found\navailable: %s", n, strings.Join(p.templateIDs(), ", "))
		}
	}
	for _, t := range p.Doc.Templates {
		if slices.Contains(names, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}
