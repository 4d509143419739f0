// Package render draws synthesized legends. It only consumes dsl.Legend
// values; placement was already decided by the legend synthesizer.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"diagram-tools/cmd/diagen/dsl"

	svg "github.com/ajstarks/svgo"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	padding    = 8
	swatchSize = 12
	labelGap   = 8
)

// errWriter keeps the first write error; svgo itself does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

// LegendSVG writes a standalone SVG document holding every legend at its
// bounds on a canvas sized by cfg.
func LegendSVG(w io.Writer, legends []dsl.Legend, cfg dsl.LegendConfig) error {
	cfg = cfg.WithDefaults()
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(px(cfg.CanvasWidth), px(cfg.CanvasHeight))
	canvas.Title("legends")
	for i, l := range legends {
		drawLegend(canvas, i, l, cfg)
	}
	canvas.End()
	if ew.err != nil {
		return fmt.Errorf("writing svg: %w", ew.err)
	}
	return nil
}

func drawLegend(canvas *svg.SVG, i int, l dsl.Legend, cfg dsl.LegendConfig) {
	b := l.Bounds
	x, y := px(b.X), px(b.Y)

	canvas.Gid("legend-" + strconv.Itoa(i))
	canvas.Rect(x, y, px(b.Width), px(b.Height), "fill:#ffffff;stroke:#999999;stroke-width:1")

	top := y
	if l.Title != "" {
		canvas.Text(x+padding, y+px(cfg.TitleHeight)-padding, l.Title, "font-size:12px;font-weight:bold;font-family:sans-serif")
		top += px(cfg.TitleHeight)
	}

	row := px(cfg.RowHeight)
	for j, e := range l.Entries {
		ry := top + j*row
		mid := ry + row/2
		sx := x + padding
		drawSwatch(canvas, sx, mid, row, e.Style)
		canvas.Text(sx+swatchSize+labelGap, mid+4, e.Label, "font-size:11px;font-family:sans-serif")
	}
	canvas.Gend()
}

// drawSwatch draws a filled square for colors, a stroke of matching width for
// numeric styles and an outlined square otherwise.
func drawSwatch(canvas *svg.SVG, x, mid, row int, style string) {
	if c, err := colorful.Hex(style); err == nil {
		canvas.Rect(x, mid-swatchSize/2, swatchSize, swatchSize, "fill:"+c.Hex()+";stroke:#666666")
		return
	}
	if f, err := strconv.ParseFloat(style, 64); err == nil && f > 0 {
		width := math.Min(f, float64(row-2))
		canvas.Line(x, mid, x+swatchSize, mid, "stroke:#333333;stroke-width:"+strconv.FormatFloat(width, 'f', -1, 64))
		return
	}
	canvas.Rect(x, mid-swatchSize/2, swatchSize, swatchSize, "fill:none;stroke:#666666")
}

func px(f float64) int {
	return int(math.Round(f))
}
