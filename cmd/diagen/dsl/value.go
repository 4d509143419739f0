package dsl

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is the sealed interface for every datum the engine handles: data rows,
// loop elements, literals and resolved paths.
// Only Null, Bool, Number, String, Array and *Object implement it.
type Value interface {
	isValue()
	Kind() Kind
}

// Kind identifies the concrete variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

type (
	Null   struct{}
	Bool   bool
	Number float64
	String string
	Array  []Value
)

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is an ordered mapping from field name to Value.
// Key order is the insertion order, which keeps expansion output stable.
// An Object is never mutated after construction.
type Object struct {
	fields []Field
	index  map[string]int
}

func (*Object) isValue()   {}
func (*Object) Kind() Kind { return KindObject }

// NewObject builds an Object from fields. A repeated key keeps its first
// position and takes the last value.
func NewObject(fields ...Field) *Object {
	o := &Object{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		v := f.Value
		if v == nil {
			v = Null{}
		}
		if i, ok := o.index[f.Key]; ok {
			o.fields[i].Value = v
			continue
		}
		o.index[f.Key] = len(o.fields)
		o.fields = append(o.fields, Field{Key: f.Key, Value: v})
	}
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.fields[i].Value, true
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.fields))
	for i, f := range o.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the object's fields in insertion order.
func (o *Object) Fields() []Field {
	if o == nil {
		return nil
	}
	return append([]Field(nil), o.fields...)
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// FromAny converts plain Go data (as produced by encoding/json or yaml into
// interface{}) into a Value. Map keys are sorted because Go maps carry no order.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case int:
		return Number(x)
	case int32:
		return Number(x)
	case int64:
		return Number(x)
	case uint:
		return Number(x)
	case uint64:
		return Number(x)
	case float32:
		return Number(x)
	case float64:
		return Number(x)
	case []string:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = String(e)
		}
		return arr
	case []any:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = FromAny(e)
		}
		return arr
	case []map[string]any:
		arr := make(Array, len(x))
		for i, e := range x {
			arr[i] = FromAny(e)
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: FromAny(x[k])}
		}
		return NewObject(fields...)
	default:
		return String(fmt.Sprint(x))
	}
}

// Rows converts a slice of plain Go maps into data rows.
func Rows(rows ...map[string]any) []Value {
	out := make([]Value, len(rows))
	for i, r := range rows {
		out[i] = FromAny(r)
	}
	return out
}

// Stringify renders a value the way it appears inside emitted labels and ids.
//
//   - Null          → ""
//   - Bool          → "true" / "false"
//   - Number        → shortest decimal form, integers without a fraction
//   - Array         → elements joined with ","
//   - Object        → "" (objects have no scalar rendering)
func Stringify(v Value) string {
	switch x := v.(type) {
	case nil, Null:
		return ""
	case Bool:
		return strconv.FormatBool(bool(x))
	case Number:
		return formatNumber(float64(x))
	case String:
		return string(x)
	case Array:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber reports the numeric reading of v. Numbers convert directly and
// strings convert when they parse as a decimal; everything else is not numeric.
func ToNumber(v Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		f := float64(x)
		return f, !math.IsNaN(f)
	case String:
		s := strings.TrimSpace(string(x))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toBool reports the boolean reading of v: Bool values and the strings
// "true"/"false".
func toBool(v Value) (bool, bool) {
	switch x := v.(type) {
	case Bool:
		return bool(x), true
	case String:
		switch string(x) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// truthy is the condition rule: a rendered value is true when it is neither
// empty nor "false".
func truthy(v Value) bool {
	s := Stringify(v)
	return s != "" && s != "false"
}
