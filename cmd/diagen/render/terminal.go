package render

import (
	"strconv"
	"strings"

	"diagram-tools/cmd/diagen/dsl"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	styleLegendTitle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("99"))

	styleLegendMeta = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	styleLegendBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Swatch renders a two-cell block for a style value: a colored block for hex
// colors, a bar proportional to numeric values, the raw text otherwise.
func Swatch(style string) string {
	if c, err := colorful.Hex(style); err == nil {
		return lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ")
	}
	if f, err := strconv.ParseFloat(style, 64); err == nil && f >= 0 {
		n := int(f + 0.5)
		if n < 1 {
			n = 1
		}
		if n > 8 {
			n = 8
		}
		return strings.Repeat("━", n)
	}
	return style
}

// LegendText renders one legend as a bordered terminal box.
func LegendText(l dsl.Legend) string {
	var sb strings.Builder
	title := l.Title
	if title == "" {
		title = l.Property
	}
	sb.WriteString(styleLegendTitle.Render(title))
	sb.WriteString(" ")
	sb.WriteString(styleLegendMeta.Render("(" + l.Type + " → " + l.Property + ", " + string(l.Position) + ")"))
	for _, e := range l.Entries {
		sb.WriteString("\n")
		sb.WriteString(Swatch(e.Style))
		sb.WriteString(" ")
		sb.WriteString(e.Label)
		if e.Style != "" && e.Style != e.Label {
			sb.WriteString(" ")
			sb.WriteString(styleLegendMeta.Render(e.Style))
		}
	}
	return styleLegendBox.Render(sb.String())
}

// LegendsText renders legends one below the other.
func LegendsText(legends []dsl.Legend) string {
	blocks := make([]string, len(legends))
	for i, l := range legends {
		blocks[i] = LegendText(l)
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
