package main

import (
	"fmt"
	"strings"

	"diagram-tools/cmd/diagen/dsl"
	"diagram-tools/cmd/diagen/render"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Browse the expanded nodes, edges and legends interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringArray("template")
		reload := func() (dsl.Result, error) {
			p, err := load(cmd.Context())
			if err != nil {
				return dsl.Result{}, err
			}
			return expand(cmd.Context(), p, names, true)
		}
		res, err := reload()
		if err != nil {
			return err
		}
		_, err = tea.NewProgram(newPreviewModel(res, reload), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	previewCmd.Flags().StringArrayP("template", "t", nil, "expand only this template (repeatable)")
}

type previewTab int

const (
	tabNodes previewTab = iota
	tabEdges
	tabLegends
)

var (
	styleBase = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1)

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	styleDetail = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 2).
			MarginLeft(2)

	styleErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)
)

type previewModel struct {
	table  table.Model
	res    dsl.Result
	tab    previewTab
	reload func() (dsl.Result, error)
	err    error
}

func newPreviewModel(res dsl.Result, reload func() (dsl.Result, error)) previewModel {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("99"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := previewModel{table: t, res: res, reload: reload}
	m.fill()
	return m
}

// fill loads the rows of the current tab into the table.
func (m *previewModel) fill() {
	// Clear rows before swapping columns so old rows never render against them.
	m.table.SetRows(nil)
	switch m.tab {
	case tabEdges:
		m.table.SetColumns([]table.Column{
			{Title: "FROM", Width: 20},
			{Title: "TO", Width: 20},
			{Title: "PROPS", Width: 50},
		})
		rows := make([]table.Row, len(m.res.Fragment.Edges))
		for i, e := range m.res.Fragment.Edges {
			rows[i] = table.Row{e.From, e.To, strings.TrimSpace(formatProps(e.Properties))}
		}
		m.table.SetRows(rows)
	default:
		m.table.SetColumns([]table.Column{
			{Title: "ID", Width: 20},
			{Title: "SHAPE", Width: 12},
			{Title: "PROPS", Width: 58},
		})
		rows := make([]table.Row, len(m.res.Fragment.Nodes))
		for i, n := range m.res.Fragment.Nodes {
			rows[i] = table.Row{n.ID, n.Shape, strings.TrimSpace(formatProps(n.Properties))}
		}
		m.table.SetRows(rows)
	}
	m.table.SetCursor(0)
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.tab = (m.tab + 1) % 3
			if m.tab != tabLegends {
				m.fill()
			}
			return m, nil
		case "r":
			res, err := m.reload()
			m.err = err
			if err == nil {
				m.res = res
				if m.tab != tabLegends {
					m.fill()
				}
			}
			return m, nil
		}
	}
	if m.tab == tabLegends {
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m previewModel) View() string {
	title := styleTitle.Render(fmt.Sprintf("%s  %d nodes  %d edges  %d legends  %d errors",
		strings.ToUpper(appName), len(m.res.Fragment.Nodes), len(m.res.Fragment.Edges), len(m.res.Legends), len(m.res.Errors)))

	var body string
	switch m.tab {
	case tabLegends:
		if len(m.res.Legends) == 0 {
			body = styleHelp.Render("No legends.")
		} else {
			body = render.LegendsText(m.res.Legends)
		}
	default:
		body = styleBase.Render(m.table.View())
		if d := m.detail(); d != "" {
			body += "\n" + styleDetail.Render(d)
		}
	}

	var status string
	if m.err != nil {
		status = styleErr.Render("reload failed: "+m.err.Error()) + "\n"
	} else if len(m.res.Errors) > 0 {
		status = styleErr.Render(m.res.Errors[0].Error()) + "\n"
	}
	help := styleHelp.Render("↑/↓  navigate    tab  nodes/edges/legends    r  reload    q  quit")
	return title + "\n" + body + "\n" + status + help
}

// detail lists the properties of the selected row, one per line.
func (m previewModel) detail() string {
	idx := m.table.Cursor()
	var props map[string]string
	switch m.tab {
	case tabNodes:
		if idx < 0 || idx >= len(m.res.Fragment.Nodes) {
			return ""
		}
		props = m.res.Fragment.Nodes[idx].Properties
	case tabEdges:
		if idx < 0 || idx >= len(m.res.Fragment.Edges) {
			return ""
		}
		props = m.res.Fragment.Edges[idx].Properties
	}
	lines := make([]string, 0, len(props))
	for _, k := range sortedKeys(props) {
		lines = append(lines, render.Swatch(props[k])+" "+k+" = "+props[k])
	}
	return strings.Join(lines, "\n")
}
