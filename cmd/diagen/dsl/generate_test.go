package dsl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkRows() []Value {
	return Rows(
		map[string]any{"id": "api", "name": "API", "next": "db", "tier": "web", "rps": 250},
		map[string]any{"id": "db", "name": "Database", "next": "cache", "tier": "data", "rps": 40},
	)
}

func TestGenerate_NodesAndEdges(t *testing.T) {
	tier := StyleMapping{
		Property:   "fill",
		Field:      "tier",
		Type:       MappingCategory,
		Categories: []Category{{Key: "web", Style: "#4e79a7"}, {Key: "data", Style: "#f28e2b"}},
	}
	width := scaleMapping([2]float64{0, 500}, [2]string{"1", "6"})
	width.Property = "width"
	width.Field = "rps"

	res := NewEngine(DefaultRegistry()).Generate(linkRows(), Request{
		Node: &NodeConfig{
			IDField:       "id",
			Shape:         "box",
			FieldMappings: []FieldMapping{{Property: "label", Field: "name"}},
			StyleMappings: []StyleMapping{tier},
		},
		Edge: &EdgeConfig{
			FromField:     "id",
			ToField:       "item.next",
			StyleMappings: []StyleMapping{width},
		},
		GenerateLegends: true,
	})
	require.NoError(t, res.Err())

	assert.Equal(t,
		"N api shape=rectangle fill=#4e79a7 label=API\n"+
			"N db shape=rectangle fill=#f28e2b label=Database\n"+
			"E api->db width=3.5\n"+
			"E db->cache width=1.4\n",
		snapshot(res.Fragment))

	require.Len(t, res.Legends, 2)
	assert.Equal(t, LegendCategory, res.Legends[0].Type, "node mappings come first")
	assert.Equal(t, LegendScale, res.Legends[1].Type)
	assert.Equal(t, TopRight, res.Legends[0].Position)
	assert.Equal(t, BottomRight, res.Legends[1].Position)
}

func TestGenerate_LegendsOffByDefault(t *testing.T) {
	res := NewEngine(nil).Generate(linkRows(), Request{
		Node: &NodeConfig{IDField: "id", StyleMappings: []StyleMapping{trafficThresholds()}},
	})
	require.NoError(t, res.Err())
	assert.Empty(t, res.Legends)
	assert.Len(t, res.Fragment.Nodes, 2)
}

func TestGenerate_LegendConfig(t *testing.T) {
	res := NewEngine(nil).Generate(linkRows(), Request{
		Node:            &NodeConfig{IDField: "id", StyleMappings: []StyleMapping{trafficThresholds()}},
		GenerateLegends: true,
		Legend:          &LegendConfig{Position: BottomLeft, Title: "Traffic"},
	})
	require.NoError(t, res.Err())
	require.Len(t, res.Legends, 1)
	assert.Equal(t, BottomLeft, res.Legends[0].Position)
	assert.Equal(t, "Traffic", res.Legends[0].Title)
}

func TestGenerate_InvalidMappingIsolated(t *testing.T) {
	res := NewEngine(nil).Generate(linkRows(), Request{
		Node: &NodeConfig{
			IDField:       "id",
			StyleMappings: []StyleMapping{{Property: "fill", Field: "tier", Type: MappingScale}},
		},
		GenerateLegends: true,
	})
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], ErrInvalidStyleMapping))
	mustContain(t, res.Errors[0].Error(), "request.node.styleMappings[0]")
	assert.Equal(t, "N api\nN db\n", snapshot(res.Fragment))
	assert.Empty(t, res.Legends)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	eng := NewEngine(nil)

	res := eng.Generate(linkRows(), Request{})
	require.Error(t, res.Err())
	assert.True(t, errors.Is(res.Err(), ErrInvalidRequest))

	res = eng.Generate(linkRows(), Request{Node: &NodeConfig{}})
	assert.True(t, errors.Is(res.Err(), ErrInvalidRequest))

	res = eng.Generate(linkRows(), Request{
		Node: &NodeConfig{IDField: "id"},
		Edge: &EdgeConfig{FromField: "id"},
	})
	assert.True(t, errors.Is(res.Err(), ErrInvalidRequest))
	assert.Len(t, res.Fragment.Nodes, 2, "a broken edge config does not drop nodes")
}
