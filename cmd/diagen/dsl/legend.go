package dsl

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Position is a named legend anchor on the canvas.
type Position string

const (
	TopLeft     Position = "top-left"
	Top         Position = "top"
	TopRight    Position = "top-right"
	Right       Position = "right"
	BottomRight Position = "bottom-right"
	Bottom      Position = "bottom"
	BottomLeft  Position = "bottom-left"
	Left        Position = "left"
)

// Positions lists every anchor.
var Positions = []Position{TopLeft, Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left}

// cornerCycle is the order legends take when none has an explicit position.
var cornerCycle = []Position{TopRight, BottomRight, BottomLeft, TopLeft}

// ParsePosition validates a position name.
func ParsePosition(s string) (Position, error) {
	for _, p := range Positions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown legend position %q", s)
}

// Legend types. Threshold mappings produce threshold legends.
const (
	LegendScale     = "scale"
	LegendCategory  = "category"
	LegendThreshold = "threshold"
)

// Legend describes one style mapping's encoding for a renderer to draw.
// Legends are derived from mapping configurations, never from row data.
type Legend struct {
	Type     string
	Title    string
	Property string
	Entries  []LegendEntry
	Position Position
	Bounds   Bounds
}

// LegendEntry is one row of a legend.
type LegendEntry struct {
	Label string
	Value string
	Style string
}

// Bounds is a rectangle in canvas coordinates.
type Bounds struct {
	X, Y          float64
	Width, Height float64
}

// LegendConfig controls legend synthesis. Zero values take the defaults below.
type LegendConfig struct {
	Title        string
	Position     Position // empty: assigned by the orchestrator
	Steps        int      // scale samples, default 5
	CanvasWidth  float64  // default 800
	CanvasHeight float64  // default 600
	Margin       float64  // default 20, negative for none
	Width        float64  // default 160
	RowHeight    float64  // default 20
	TitleHeight  float64  // default 24
	Placed       int      // legends already on the canvas; the corner cycle continues after them
}

// WithDefaults fills zero fields with their defaults.
func (c LegendConfig) WithDefaults() LegendConfig {
	if c.Steps <= 0 {
		c.Steps = 5
	}
	if c.Steps < 2 {
		c.Steps = 2
	}
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = 800
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = 600
	}
	if c.Margin < 0 {
		c.Margin = 0
	} else if c.Margin == 0 {
		c.Margin = 20
	}
	if c.Width <= 0 {
		c.Width = 160
	}
	if c.RowHeight <= 0 {
		c.RowHeight = 20
	}
	if c.TitleHeight <= 0 {
		c.TitleHeight = 24
	}
	return c
}

// SynthesizeLegend builds the legend for one mapping.
func SynthesizeLegend(m StyleMapping, cfg LegendConfig) (Legend, error) {
	if err := ValidateMapping(m); err != nil {
		return Legend{}, err
	}
	cfg = cfg.WithDefaults()

	l := Legend{Title: cfg.Title, Property: m.Property, Position: cfg.Position}
	if l.Title == "" {
		l.Title = m.Field
	}
	if l.Position == "" {
		l.Position = cornerCycle[0]
	}

	switch m.Type {
	case MappingScale:
		l.Type = LegendScale
		l.Entries = scaleEntries(*m.Scale, cfg.Steps)
	case MappingCategory:
		l.Type = LegendCategory
		for _, c := range m.Categories {
			l.Entries = append(l.Entries, LegendEntry{Label: c.Key, Value: c.Key, Style: c.Style})
		}
	case MappingThreshold:
		l.Type = LegendThreshold
		l.Entries = thresholdEntries(m.Thresholds)
	}

	l.Bounds = legendBounds(l.Position, cfg, len(l.Entries), l.Title != "")
	return l, nil
}

func scaleEntries(sc Scale, steps int) []LegendEntry {
	entries := make([]LegendEntry, 0, steps)
	for i := 0; i < steps; i++ {
		v := sc.Domain[0] + (sc.Domain[1]-sc.Domain[0])*float64(i)/float64(steps-1)
		style, _ := interpolate(sc, v)
		label := FormatLegendNumber(v)
		entries = append(entries, LegendEntry{Label: label, Value: label, Style: style})
	}
	return entries
}

func thresholdEntries(ts []Threshold) []LegendEntry {
	sorted := sortedThresholds(ts)
	entries := make([]LegendEntry, len(sorted))
	for i, t := range sorted {
		v := FormatLegendNumber(t.Value)
		label := "≥ " + v
		if i > 0 {
			label = v + " .. " + FormatLegendNumber(sorted[i-1].Value)
		}
		entries[i] = LegendEntry{Label: label, Value: v, Style: t.Style}
	}
	return entries
}

// FormatLegendNumber prints integers bare and other values with at most two
// decimals, trailing zeros trimmed.
func FormatLegendNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return formatNumber(v)
	}
	return humanize.FtoaWithDigits(math.Round(v*100)/100, 2)
}

func legendBounds(p Position, cfg LegendConfig, entries int, titled bool) Bounds {
	w := cfg.Width
	h := float64(entries) * cfg.RowHeight
	if titled {
		h += cfg.TitleHeight
	}
	left := cfg.Margin
	right := cfg.CanvasWidth - w - cfg.Margin
	centerX := (cfg.CanvasWidth - w) / 2
	top := cfg.Margin
	bottom := cfg.CanvasHeight - h - cfg.Margin
	centerY := (cfg.CanvasHeight - h) / 2

	b := Bounds{Width: w, Height: h}
	switch p {
	case TopLeft:
		b.X, b.Y = left, top
	case Top:
		b.X, b.Y = centerX, top
	case TopRight:
		b.X, b.Y = right, top
	case Right:
		b.X, b.Y = right, centerY
	case BottomRight:
		b.X, b.Y = right, bottom
	case Bottom:
		b.X, b.Y = centerX, bottom
	case BottomLeft:
		b.X, b.Y = left, bottom
	case Left:
		b.X, b.Y = left, centerY
	}
	return b
}

// SynthesizeLegends builds one legend per mapping, in order. Without an
// explicit cfg.Position the legends cycle through the four corners so they do
// not overlap, starting after cfg.Placed. cfg.Title applies only to a single
// mapping; with several, each legend is titled by its field. Invalid mappings
// are skipped and reported; the others still produce legends.
func SynthesizeLegends(mappings []StyleMapping, cfg LegendConfig) ([]Legend, []error) {
	var legends []Legend
	var errs []error
	placed := max(cfg.Placed, 0)
	for i, m := range mappings {
		c := cfg
		if len(mappings) > 1 {
			c.Title = ""
		}
		if c.Position == "" {
			c.Position = cornerCycle[placed%len(cornerCycle)]
		}
		l, err := SynthesizeLegend(m, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("phase=legend path=mappings[%d]: %w", i, err))
			continue
		}
		placed++
		legends = append(legends, l)
	}
	return legends, errs
}
