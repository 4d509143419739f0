package dataload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"diagram-tools/cmd/diagen/dsl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inline(format, data string, opts ...dsl.SourceOption) dsl.DataSource {
	return dsl.DataSource{
		Key:     "rows",
		Format:  format,
		Source:  data,
		Options: append([]dsl.SourceOption{{Name: OptInline, Value: "true"}}, opts...),
	}
}

func field(t *testing.T, row dsl.Value, key string) dsl.Value {
	t.Helper()
	obj, ok := row.(*dsl.Object)
	require.True(t, ok, "row is %T, want object", row)
	v, ok := obj.Get(key)
	require.True(t, ok, "row has no field %q", key)
	return v
}

func TestDecodeJSON_KeepsOrderAndTypes(t *testing.T) {
	rows, err := Load(inline("json", `[{"b": 1, "a": "x", "c": true, "d": null, "e": [1, 2.5]}]`), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	obj := rows[0].(*dsl.Object)
	assert.Equal(t, []string{"b", "a", "c", "d", "e"}, obj.Keys())
	assert.Equal(t, dsl.Number(1), field(t, rows[0], "b"))
	assert.Equal(t, dsl.String("x"), field(t, rows[0], "a"))
	assert.Equal(t, dsl.Bool(true), field(t, rows[0], "c"))
	assert.Equal(t, dsl.Null{}, field(t, rows[0], "d"))
	assert.Equal(t, dsl.Array{dsl.Number(1), dsl.Number(2.5)}, field(t, rows[0], "e"))
}

func TestDecodeJSON_Root(t *testing.T) {
	doc := `{"meta": {"n": 2}, "data": {"items": [{"id": "s1"}, {"id": "s2"}]}}`

	rows, err := Load(inline("json", doc, dsl.SourceOption{Name: OptRoot, Value: "data.items"}), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, dsl.String("s2"), field(t, rows[1], "id"))

	_, err = Load(inline("json", doc, dsl.SourceOption{Name: OptRoot, Value: "data.nope"}), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `root "data.nope" not found`)
}

func TestDecodeJSON_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		rows    int
		wantErr string
	}{
		{name: "single object is one row", data: `{"id": "s1"}`, rows: 1},
		{name: "empty array", data: `[]`, rows: 0},
		{name: "null document", data: `null`, rows: 0},
		{name: "scalar document", data: `42`, wantErr: "expected an array of rows, got number"},
		{name: "trailing data", data: `[] []`, wantErr: "trailing data"},
		{name: "malformed", data: `[{"id": }]`, wantErr: "json:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Load(inline("json", tt.data), "")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "phase=load path=rows")
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	data := `
base: &base
  zone: eu
servers:
  - id: s1
    cost: 12
    up: true
    tags: [a, b]
    loc: *base
  - id: s2
    cost: ~
`
	rows, err := Load(inline("yaml", data, dsl.SourceOption{Name: OptRoot, Value: "servers"}), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"id", "cost", "up", "tags", "loc"}, rows[0].(*dsl.Object).Keys())
	assert.Equal(t, dsl.Number(12), field(t, rows[0], "cost"))
	assert.Equal(t, dsl.Bool(true), field(t, rows[0], "up"))
	assert.Equal(t, dsl.Array{dsl.String("a"), dsl.String("b")}, field(t, rows[0], "tags"))
	assert.Equal(t, dsl.String("eu"), field(t, field(t, rows[0], "loc"), "zone"))
	assert.Equal(t, dsl.Null{}, field(t, rows[1], "cost"))
}

func TestDecodeCSV(t *testing.T) {
	data := "id,cost,up\ns1,12.5,true\ns2,,false\n"

	t.Run("strings by default", func(t *testing.T) {
		rows, err := Load(inline("csv", data), "")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, dsl.String("12.5"), field(t, rows[0], "cost"))
		assert.Equal(t, dsl.String(""), field(t, rows[1], "cost"))
	})

	t.Run("infer", func(t *testing.T) {
		rows, err := Load(inline("csv", data, dsl.SourceOption{Name: OptInfer, Value: "true"}), "")
		require.NoError(t, err)
		assert.Equal(t, dsl.Number(12.5), field(t, rows[0], "cost"))
		assert.Equal(t, dsl.Bool(true), field(t, rows[0], "up"))
		assert.Equal(t, dsl.Null{}, field(t, rows[1], "cost"))
		assert.Equal(t, dsl.String("s2"), field(t, rows[1], "id"))
	})

	t.Run("no header", func(t *testing.T) {
		rows, err := Load(inline("csv", data, dsl.SourceOption{Name: OptHeader, Value: "false"}), "")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"col1", "col2", "col3"}, rows[0].(*dsl.Object).Keys())
		assert.Equal(t, dsl.String("id"), field(t, rows[0], "col1"))
	})

	t.Run("delimiters", func(t *testing.T) {
		rows, err := Load(inline("csv", "id\tzone\ns1\teu\n", dsl.SourceOption{Name: OptDelimiter, Value: "tab"}), "")
		require.NoError(t, err)
		assert.Equal(t, dsl.String("eu"), field(t, rows[0], "zone"))

		rows, err = Load(inline("csv", "id;zone\ns1;us\n", dsl.SourceOption{Name: OptDelimiter, Value: ";"}), "")
		require.NoError(t, err)
		assert.Equal(t, dsl.String("us"), field(t, rows[0], "zone"))

		_, err = Load(inline("csv", data, dsl.SourceOption{Name: OptDelimiter, Value: "::"}), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "single character")
	})

	t.Run("ragged rows", func(t *testing.T) {
		rows, err := Load(inline("csv", "id,zone\ns1\ns2,eu,extra\n"), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, rows[0].(*dsl.Object).Keys())
		assert.Equal(t, []string{"id", "zone", "col3"}, rows[1].(*dsl.Object).Keys())
	})

	t.Run("empty", func(t *testing.T) {
		rows, err := Load(inline("csv", ""), "")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestLoad_FileRelativeToBaseDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "servers.json"), []byte(`[{"id":"s1"}]`), 0o644))

	src := dsl.DataSource{Key: "servers", Format: "json", Source: "data/servers.json"}
	rows, err := Load(src, dir)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = Load(dsl.DataSource{Key: "servers", Format: "json", Source: "data/missing.json"}, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "phase=load path=servers")

	_, err = Load(dsl.DataSource{Key: "servers", Format: "json"}, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source is required")
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load(inline("xml", "<rows/>"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLoadAll(t *testing.T) {
	sources := []dsl.DataSource{
		{Key: "a", Format: "json", Source: `[{"id":"a1"},{"id":"a2"}]`, Options: []dsl.SourceOption{{Name: OptInline, Value: "true"}}},
		{Key: "b", Format: "csv", Source: "id\nb1\n", Options: []dsl.SourceOption{{Name: OptInline, Value: "true"}}},
	}
	data, err := LoadAll(context.Background(), sources, "")
	require.NoError(t, err)
	assert.Len(t, data["a"], 2)
	assert.Len(t, data["b"], 1)

	sources = append(sources, dsl.DataSource{Key: "c", Format: "json", Source: "nope.json"})
	_, err = LoadAll(context.Background(), sources, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase=load path=c")
}

func TestLoadAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadAll(ctx, []dsl.DataSource{inline("json", "[]")}, "")
	assert.ErrorIs(t, err, context.Canceled)
}
