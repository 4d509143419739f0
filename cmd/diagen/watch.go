package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"diagram-tools/cmd/diagen/dataload"
	"diagram-tools/cmd/diagen/dslyaml"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// watchAndRun calls fn once, then again after every change to a document or
// one of its data files, until ctx is done. Errors from fn are printed and
// do not stop the loop.
func watchAndRun(ctx context.Context, log io.Writer, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	watched := map[string]bool{}
	refresh := func() {
		for _, dir := range watchDirs() {
			if watched[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				fmt.Fprintf(log, "watch %s: %v\n", dir, err)
				continue
			}
			watched[dir] = true
		}
	}

	runOnce := func() {
		if err := fn(); err != nil {
			fmt.Fprintln(log, "Error:", err)
		}
		refresh()
		fmt.Fprintf(log, "watching %d directories, ctrl+c to stop\n", len(watched))
	}
	runOnce()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(log, "watch error:", err)
		case <-fire:
			fire = nil
			runOnce()
		}
	}
}

// watchDirs lists the directories holding the current documents and their
// file-backed data sources. Unreadable documents still contribute their
// own directory.
func watchDirs() []string {
	configDir, err := resolveConfigDir()
	if err != nil {
		return nil
	}
	files, err := resolveDocFiles(configDir, flagFiles)
	if err != nil {
		return nil
	}
	var dirs []string
	add := func(d string) {
		if abs, err := filepath.Abs(d); err == nil && !slices.Contains(dirs, abs) {
			dirs = append(dirs, abs)
		}
	}
	for _, f := range files {
		base := filepath.Dir(f)
		add(base)
		raw, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		doc, err := dslyaml.Parse(raw)
		if err != nil {
			continue
		}
		for _, s := range doc.Sources {
			if v, _ := s.Option(dataload.OptInline); v == "true" || s.Source == "" {
				continue
			}
			path := s.Source
			if !filepath.IsAbs(path) {
				path = filepath.Join(base, path)
			}
			add(filepath.Dir(path))
		}
	}
	return dirs
}
