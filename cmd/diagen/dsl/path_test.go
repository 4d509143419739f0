package dsl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowScope(row map[string]any) *Scope {
	s := NewScope(nil)
	s.Push(ItemVar, FromAny(row))
	return s
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("item.user.profile.name")
	require.NoError(t, err)
	assert.Equal(t, VariablePath{"item", "user", "profile", "name"}, p)
	assert.Equal(t, "item", p.Root())
	assert.Equal(t, "item.user.profile.name", p.String())

	p, err = ParsePath(" item.items.0 ")
	require.NoError(t, err)
	assert.Equal(t, VariablePath{"item", "items", "0"}, p)

	p, err = ParsePath("item.content-type")
	require.NoError(t, err)
	assert.Equal(t, "content-type", p[1])

	for _, bad := range []string{"", "   ", "1abc", "a..b", "item.", ".item", "it em", "item.a b"} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParsePath(bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPath), "got %v", err)
		})
	}
}

func TestResolve(t *testing.T) {
	s := rowScope(map[string]any{
		"id":    "s1",
		"port":  8080,
		"user":  map[string]any{"profile": map[string]any{"name": "Ann"}},
		"items": []any{"a", "b", map[string]any{"k": "v"}},
	})

	cases := []struct {
		path string
		want Value
		ok   bool
	}{
		{"item.id", String("s1"), true},
		{"item.port", Number(8080), true},
		{"item.user.profile.name", String("Ann"), true},
		{"item.items.1", String("b"), true},
		{"item.items.2.k", String("v"), true},
		{"item.items.5", nil, false},
		{"item.items.-1", nil, false},
		{"item.items.x", nil, false},
		{"item.id.length", nil, false},
		{"item.user.missing", nil, false},
		{"other.id", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := Resolve(MustPath(tc.path), s)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestResolve_RootOnly(t *testing.T) {
	s := rowScope(map[string]any{"id": "x"})
	v, ok := Resolve(VariablePath{"item"}, s)
	require.True(t, ok)
	obj, isObj := v.(*Object)
	require.True(t, isObj)
	assert.Equal(t, []string{"id"}, obj.Keys())
}

func TestScope_ShadowAndRestore(t *testing.T) {
	s := NewScope(map[string]Value{"doc": String("d")})
	s.Push("item", String("outer"))
	s.Push("item", String("inner"))

	v, ok := s.Lookup("item")
	require.True(t, ok)
	assert.Equal(t, String("inner"), v)
	assert.Equal(t, 3, s.Depth())

	s.Pop()
	v, _ = s.Lookup("item")
	assert.Equal(t, String("outer"), v)

	v, ok = s.Lookup("doc")
	require.True(t, ok)
	assert.Equal(t, String("d"), v)
	assert.False(t, s.Has("nope"))

	s.Pop()
	s.Pop()
	s.Pop() // popping an empty scope is a no-op
	assert.Equal(t, 0, s.Depth())
}

func TestResolveRelative(t *testing.T) {
	s := rowScope(map[string]any{"status": "active"})
	v, ok := resolveRelative(MustPath("status"), s)
	require.True(t, ok)
	assert.Equal(t, String("active"), v)

	v, ok = resolveRelative(MustPath("item.status"), s)
	require.True(t, ok)
	assert.Equal(t, String("active"), v)
}

func TestObject_Order(t *testing.T) {
	o := NewObject(
		Field{Key: "b", Value: Number(1)},
		Field{Key: "a", Value: Number(2)},
		Field{Key: "b", Value: Number(3)},
	)
	assert.Equal(t, []string{"b", "a"}, o.Keys())
	v, ok := o.Get("b")
	require.True(t, ok)
	assert.Equal(t, Number(3), v)
	assert.Equal(t, 2, o.Len())
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(Null{}))
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "true", Stringify(Bool(true)))
	assert.Equal(t, "42", Stringify(Number(42)))
	assert.Equal(t, "0.25", Stringify(Number(0.25)))
	assert.Equal(t, "a,1", Stringify(Array{String("a"), Number(1)}))
	assert.Equal(t, "", Stringify(NewObject()))
}
