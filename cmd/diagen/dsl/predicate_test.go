package dsl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	cases := []struct {
		expr  string
		field string
		op    Op
		lit   Value
	}{
		{`status = "active"`, "status", OpEq, String("active")},
		{`item.status == 'active'`, "item.status", OpEq, String("active")},
		{`count>=10`, "count", OpGe, Number(10)},
		{`load < 0.75`, "load", OpLt, Number(0.75)},
		{`delta > -3`, "delta", OpGt, Number(-3)},
		{`enabled != false`, "enabled", OpNe, Bool(false)},
		{`role = web`, "role", OpEq, String("web")},
		{`meta.zone <= "b"`, "meta.zone", OpLe, String("b")},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			c, err := ParseFilter(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.field, c.Field.String())
			assert.Equal(t, tc.op, c.Op)
			assert.Equal(t, tc.lit, c.Literal)
			assert.Equal(t, tc.expr, c.String())
		})
	}
}

func TestParseFilter_SyntaxErrors(t *testing.T) {
	for _, expr := range []string{
		"status",
		"= 3",
		"status =",
		`status = "active`,
		`status = "a"b"`,
		"status = two words",
		"status ~ 3",
		"1status = 3",
		"a..b = 1",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFilterSyntax), "got %v", err)
			mustContain(t, err.Error(), fmt.Sprintf("%q", expr))
		})
	}
}

func TestEvaluate(t *testing.T) {
	row := FromAny(map[string]any{
		"status":  "active",
		"count":   12,
		"version": "9",
		"enabled": true,
		"flag":    "true",
		"name":    "Web",
		"meta":    map[string]any{"zone": "a"},
	})

	cases := []struct {
		expr string
		want bool
	}{
		{`status = "active"`, true},
		{`status = active`, true},
		{`status != "active"`, false},
		{`status = "Active"`, false},
		{`count >= 10`, true},
		{`count < 10`, false},
		{`version >= 10`, false}, // numeric compare, not "9" > "10"
		{`version = 9`, true},
		{`enabled = true`, true},
		{`enabled != true`, false},
		{`flag = true`, true},
		{`name < "a"`, true}, // case-sensitive: "W" < "a"
		{`meta.zone = a`, true},
		{`item.meta.zone = "a"`, true},
		{`missing = ""`, true},
		{`missing = "x"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			c, err := ParseFilter(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Evaluate(row))
		})
	}
}

func TestEvaluateIn_LoopVariable(t *testing.T) {
	s := NewScope(nil)
	s.Push(ItemVar, FromAny(map[string]any{"kind": "outer"}))
	s.Push("child", FromAny(map[string]any{"kind": "inner"}))

	c, err := ParseFilter(`child.kind = inner`)
	require.NoError(t, err)
	assert.True(t, c.EvaluateIn(s))

	c, err = ParseFilter(`kind = outer`)
	require.NoError(t, err)
	assert.True(t, c.EvaluateIn(s))
}
