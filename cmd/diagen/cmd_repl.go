package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"diagram-tools/cmd/diagen/dsl"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const replHelp = `commands:
  sources            list data sources
  use <source>       select the data source filters run against
  show [n]           print the first n rows (default 5)
  get <n> <path>     resolve a path against row n, e.g. get 0 item.tags.0
  <field> <op> <lit> count and print the rows matching a filter
  help, exit`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Try filter expressions and paths against loaded data",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := load(cmd.Context())
		if err != nil {
			return err
		}
		sess := newReplSession(p)

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          sess.prompt(),
			HistoryFile:     replHistoryFile(),
			AutoComplete:    sess.completer(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("starting repl: %w", err)
		}
		defer rl.Close()

		fmt.Fprintln(rl.Stdout(), "type `help` for commands")
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				if line == "" {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if quit := sess.eval(rl.Stdout(), strings.TrimSpace(line)); quit {
				return nil
			}
			rl.SetPrompt(sess.prompt())
		}
	},
}

func replHistoryFile() string {
	dir, err := resolveConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// replSession holds the selected data source between lines.
type replSession struct {
	p       *project
	current string
}

func newReplSession(p *project) *replSession {
	s := &replSession{p: p}
	if keys := s.keys(); len(keys) > 0 {
		s.current = keys[0]
	}
	return s
}

func (s *replSession) keys() []string {
	keys := make([]string, 0, len(s.p.Data))
	for k := range s.p.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *replSession) prompt() string {
	if s.current == "" {
		return appName + "> "
	}
	return appName + ":" + s.current + "> "
}

func (s *replSession) completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("sources"),
		readline.PcItem("use", readline.PcItemDynamic(func(string) []string { return s.keys() })),
		readline.PcItem("show"),
		readline.PcItem("get"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// eval runs one line and reports whether the session should end.
func (s *replSession) eval(w io.Writer, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "":
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprintln(w, replHelp)
	case "sources":
		for _, k := range s.keys() {
			fmt.Fprintf(w, "%s (%d rows)\n", k, len(s.p.Data[k]))
		}
	case "use":
		if _, ok := s.p.Data[rest]; !ok {
			fmt.Fprintf(w, "unknown source %q\navailable: %s\n", rest, strings.Join(s.keys(), ", "))
			break
		}
		s.current = rest
	case "show":
		n := 5
		if rest != "" {
			v, err := strconv.Atoi(rest)
			if err != nil || v < 0 {
				fmt.Fprintf(w, "show: %q is not a row count\n", rest)
				break
			}
			n = v
		}
		rows := s.p.Data[s.current]
		for i := 0; i < n && i < len(rows); i++ {
			fmt.Fprintf(w, "[%d] %s\n", i, describe(rows[i]))
		}
	case "get":
		s.get(w, rest)
	default:
		s.filter(w, line)
	}
	return false
}

func (s *replSession) get(w io.Writer, args string) {
	idx, path, _ := strings.Cut(args, " ")
	i, err := strconv.Atoi(idx)
	rows := s.p.Data[s.current]
	if err != nil || i < 0 || i >= len(rows) {
		fmt.Fprintf(w, "get: row %q out of range (0..%d)\n", idx, len(rows)-1)
		return
	}
	vp, err := dsl.ParsePath(strings.TrimSpace(path))
	if err != nil {
		fmt.Fprintln(w, "get:", err)
		return
	}
	v, ok := dsl.Resolve(vp, dsl.NewScope(map[string]dsl.Value{dsl.ItemVar: rows[i]}))
	if !ok {
		fmt.Fprintf(w, "%s: unresolved\n", vp)
		return
	}
	fmt.Fprintf(w, "%s = %s (%s)\n", vp, describe(v), v.Kind())
}

func (s *replSession) filter(w io.Writer, expr string) {
	c, err := dsl.ParseFilter(expr)
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	rows := s.p.Data[s.current]
	matched := 0
	for i, r := range rows {
		if c.Evaluate(r) {
			matched++
			fmt.Fprintf(w, "[%d] %s\n", i, describe(r))
		}
	}
	fmt.Fprintf(w, "%d of %d rows match %s\n", matched, len(rows), c)
}

// describe renders any value on one line, objects and arrays included.
func describe(v dsl.Value) string {
	switch x := v.(type) {
	case *dsl.Object:
		parts := make([]string, 0, x.Len())
		for _, f := range x.Fields() {
			parts = append(parts, f.Key+": "+describe(f.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case dsl.Array:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = describe(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case dsl.String:
		return strconv.Quote(string(x))
	case dsl.Null, nil:
		return "null"
	default:
		return dsl.Stringify(v)
	}
}
