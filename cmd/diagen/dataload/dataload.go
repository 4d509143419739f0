// Package dataload reads the rows behind a dsl.DataSource. Files are read
// once, before expansion starts; the engine itself never performs I/O.
package dataload

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"diagram-tools/cmd/diagen/dsl"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Formats understood by Load.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// Option names.
const (
	OptInline    = "inline"    // "true": Source holds the data itself
	OptRoot      = "root"      // json/yaml: dotted path to the row array
	OptDelimiter = "delimiter" // csv: single character, or "tab"
	OptHeader    = "header"    // csv: "false" names columns col1..colN
	OptInfer     = "infer"     // csv: "true" turns numeric/boolean cells into values
)

var ErrUnsupportedFormat = errors.New("unsupported data format")

// Load reads the rows of src. Relative file paths resolve against baseDir.
func Load(src dsl.DataSource, baseDir string) ([]dsl.Value, error) {
	raw, err := read(src, baseDir)
	if err != nil {
		return nil, fmt.Errorf("phase=load path=%s: %w", src.Key, err)
	}
	rows, err := Decode(src, raw)
	if err != nil {
		return nil, fmt.Errorf("phase=load path=%s: %w", src.Key, err)
	}
	return rows, nil
}

// LoadAll loads every source concurrently and returns rows keyed by source
// key. The first failure cancels the remaining reads.
func LoadAll(ctx context.Context, sources []dsl.DataSource, baseDir string) (map[string][]dsl.Value, error) {
	results := make([][]dsl.Value, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := Load(src, baseDir)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]dsl.Value, len(sources))
	for i, src := range sources {
		out[src.Key] = results[i]
	}
	return out, nil
}

func read(src dsl.DataSource, baseDir string) ([]byte, error) {
	if v, _ := src.Option(OptInline); v == "true" {
		return []byte(src.Source), nil
	}
	if src.Source == "" {
		return nil, fmt.Errorf("source is required")
	}
	path := src.Source
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Decode parses raw data in the source's format.
func Decode(src dsl.DataSource, raw []byte) ([]dsl.Value, error) {
	switch strings.ToLower(src.Format) {
	case FormatJSON, "":
		v, err := DecodeJSON(raw)
		if err != nil {
			return nil, err
		}
		return rowsAt(v, src)
	case FormatYAML, "yml":
		v, err := DecodeYAML(raw)
		if err != nil {
			return nil, err
		}
		return rowsAt(v, src)
	case FormatCSV:
		return DecodeCSV(raw, src)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, src.Format)
	}
}

// rowsAt picks the row array: the value at the root option, else the
// document itself. A single object is one row.
func rowsAt(v dsl.Value, src dsl.DataSource) ([]dsl.Value, error) {
	if root, ok := src.Option(OptRoot); ok && root != "" {
		p, err := dsl.ParsePath("doc." + root)
		if err != nil {
			return nil, fmt.Errorf("root: %w", err)
		}
		found, ok := dsl.Resolve(p, dsl.NewScope(map[string]dsl.Value{"doc": v}))
		if !ok {
			return nil, fmt.Errorf("root %q not found", root)
		}
		v = found
	}
	switch x := v.(type) {
	case dsl.Array:
		return []dsl.Value(x), nil
	case *dsl.Object:
		return []dsl.Value{x}, nil
	case dsl.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected an array of rows, got %s", v.Kind())
	}
}

// DecodeJSON decodes a JSON document into a Value, keeping object key order.
func DecodeJSON(raw []byte) (dsl.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("json: trailing data after document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (dsl.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var fields []dsl.Field
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				fields = append(fields, dsl.Field{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return dsl.NewObject(fields...), nil
		case '[':
			arr := dsl.Array{}
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return dsl.Number(f), nil
	case string:
		return dsl.String(t), nil
	case bool:
		return dsl.Bool(t), nil
	case nil:
		return dsl.Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// DecodeYAML decodes a YAML document into a Value, keeping mapping order.
func DecodeYAML(raw []byte) (dsl.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return dsl.Null{}, nil
	}
	return FromNode(doc.Content[0])
}

// FromNode converts a YAML node tree into a Value.
func FromNode(n *yaml.Node) (dsl.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return dsl.Null{}, nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.MappingNode:
		fields := make([]dsl.Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := FromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, dsl.Field{Key: n.Content[i].Value, Value: v})
		}
		return dsl.NewObject(fields...), nil
	case yaml.SequenceNode:
		arr := make(dsl.Array, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromNode(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return dsl.Null{}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return dsl.Bool(b), nil
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, err
			}
			return dsl.Number(f), nil
		default:
			return dsl.String(n.Value), nil
		}
	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d", n.Kind)
	}
}

// DecodeCSV reads CSV rows as objects keyed by the header row.
func DecodeCSV(raw []byte, src dsl.DataSource) ([]dsl.Value, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	if d, ok := src.Option(OptDelimiter); ok && d != "" {
		switch {
		case d == "tab" || d == `\t`:
			r.Comma = '\t'
		case len([]rune(d)) == 1:
			r.Comma = []rune(d)[0]
		default:
			return nil, fmt.Errorf("csv: delimiter must be a single character, got %q", d)
		}
	}
	r.TrimLeadingSpace = r.Comma != '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := true
	if h, ok := src.Option(OptHeader); ok && h == "false" {
		header = false
	}
	infer := false
	if v, ok := src.Option(OptInfer); ok && v == "true" {
		infer = true
	}

	var names []string
	if header {
		names = records[0]
		records = records[1:]
	}
	rows := make([]dsl.Value, 0, len(records))
	for _, rec := range records {
		fields := make([]dsl.Field, 0, len(rec))
		for i, cell := range rec {
			name := "col" + strconv.Itoa(i+1)
			if i < len(names) && names[i] != "" {
				name = names[i]
			}
			fields = append(fields, dsl.Field{Key: name, Value: cellValue(cell, infer)})
		}
		rows = append(rows, dsl.NewObject(fields...))
	}
	return rows, nil
}

func cellValue(cell string, infer bool) dsl.Value {
	if !infer {
		return dsl.String(cell)
	}
	switch cell {
	case "":
		return dsl.Null{}
	case "true":
		return dsl.Bool(true)
	case "false":
		return dsl.Bool(false)
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return dsl.Number(f)
	}
	return dsl.String(cell)
}
