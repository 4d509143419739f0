package dsl

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/shopspring/decimal"
)

// Style mapping types.
const (
	MappingCategory  = "category"
	MappingScale     = "scale"
	MappingThreshold = "threshold"
)

// StyleMapping converts a data field into a rendering property (fill, width,
// opacity, ...). Exactly one of Categories, Scale or Thresholds is populated,
// matching Type.
type StyleMapping struct {
	Property   string
	Field      string
	Type       string
	Categories []Category
	Scale      *Scale
	Thresholds []Threshold

	// Fallback is returned by a category mapping when the field value matches
	// no category. Nil means the property is omitted.
	Fallback *string
}

// Category maps one exact field value to a style, in declaration order.
type Category struct {
	Key   string
	Style string
}

// Scale linearly maps Domain onto Range. Range endpoints are either both
// #rrggbb colors or both decimal numbers.
type Scale struct {
	Domain [2]float64
	Range  [2]string
}

// Threshold applies Style to values >= Value.
// A threshold mapping is expected to include a floor entry: values below every
// threshold take the lowest entry's style.
type Threshold struct {
	Value float64
	Style string
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateMapping checks that a mapping carries the payload its type needs.
func ValidateMapping(m StyleMapping) error {
	if m.Property == "" {
		return fmt.Errorf("%w: property is required", ErrInvalidStyleMapping)
	}
	if m.Field == "" {
		return fmt.Errorf("%w: %s: field is required", ErrInvalidStyleMapping, m.Property)
	}
	if _, err := ParsePath(m.Field); err != nil {
		return fmt.Errorf("%w: %s: field: %v", ErrInvalidStyleMapping, m.Property, err)
	}
	switch m.Type {
	case MappingCategory:
		if len(m.Categories) == 0 {
			return fmt.Errorf("%w: %s: type %q requires categories", ErrInvalidStyleMapping, m.Property, m.Type)
		}
	case MappingScale:
		if m.Scale == nil {
			return fmt.Errorf("%w: %s: type %q requires scale", ErrInvalidStyleMapping, m.Property, m.Type)
		}
		if _, ok := colorRange(*m.Scale); ok {
			return nil
		}
		if _, ok := numericRange(*m.Scale); !ok {
			return fmt.Errorf("%w: %s: scale range %q must be two #rrggbb colors or two numbers",
				ErrInvalidStyleMapping, m.Property, m.Scale.Range)
		}
	case MappingThreshold:
		if len(m.Thresholds) == 0 {
			return fmt.Errorf("%w: %s: type %q requires thresholds", ErrInvalidStyleMapping, m.Property, m.Type)
		}
	default:
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalidStyleMapping, m.Property, m.Type)
	}
	return nil
}

// ResolveStyle computes the style value of mapping m for one data row.
// The second result is false when no style applies: a category miss without
// fallback, a non-numeric scale input, or an invalid mapping.
func ResolveStyle(m StyleMapping, row Value) (string, bool) {
	s := NewScope(nil)
	s.Push(ItemVar, row)
	return resolveStyleIn(m, s)
}

func resolveStyleIn(m StyleMapping, s *Scope) (string, bool) {
	path, err := ParsePath(m.Field)
	if err != nil {
		return "", false
	}
	v, ok := resolveRelative(path, s)
	if !ok {
		v = Null{}
	}
	switch m.Type {
	case MappingCategory:
		return categoryStyle(m, v)
	case MappingScale:
		if m.Scale == nil {
			return "", false
		}
		f, ok := ToNumber(v)
		if !ok {
			return "", false
		}
		return interpolate(*m.Scale, f)
	case MappingThreshold:
		if len(m.Thresholds) == 0 {
			return "", false
		}
		f, ok := ToNumber(v)
		if !ok {
			f = math.Inf(-1)
		}
		return thresholdStyle(m.Thresholds, f), true
	default:
		return "", false
	}
}

func categoryStyle(m StyleMapping, v Value) (string, bool) {
	key := Stringify(v)
	for _, c := range m.Categories {
		if c.Key == key {
			return c.Style, true
		}
	}
	if m.Fallback != nil {
		return *m.Fallback, true
	}
	return "", false
}

// ratio places v in the scale domain, clamped to [0, 1].
// A zero-width domain, or one where v has no defined place (NaN, or an
// infinite value against an infinite span), maps to 0.
func ratio(sc Scale, v float64) float64 {
	span := sc.Domain[1] - sc.Domain[0]
	if span == 0 {
		return 0
	}
	r := (v - sc.Domain[0]) / span
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(0, math.Min(1, r))
}

// interpolate maps v through the scale. Colors interpolate per RGB channel,
// rounding down, so the #000000..#ffffff midpoint is #7f7f7f in either
// direction.
// Numeric ranges interpolate in decimal arithmetic and print the shortest
// decimal form.
func interpolate(sc Scale, v float64) (string, bool) {
	t := ratio(sc, v)
	if cols, ok := colorRange(sc); ok {
		r0, g0, b0 := cols[0].RGB255()
		r1, g1, b1 := cols[1].RGB255()
		c := colorful.Color{
			R: float64(lerpChannel(r0, r1, t)) / 255.0,
			G: float64(lerpChannel(g0, g1, t)) / 255.0,
			B: float64(lerpChannel(b0, b1, t)) / 255.0,
		}
		return c.Hex(), true
	}
	nums, ok := numericRange(sc)
	if !ok {
		return "", false
	}
	d := nums[0].Add(nums[1].Sub(nums[0]).Mul(decimal.NewFromFloat(t)))
	return d.String(), true
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(math.Floor(float64(a) + float64(int(b)-int(a))*t))
}

func colorRange(sc Scale) ([2]colorful.Color, bool) {
	var out [2]colorful.Color
	for i, s := range sc.Range {
		if !hexColorRe.MatchString(s) {
			return out, false
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return out, false
		}
		out[i] = c
	}
	return out, true
}

func numericRange(sc Scale) ([2]decimal.Decimal, bool) {
	var out [2]decimal.Decimal
	for i, s := range sc.Range {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return out, false
		}
		out[i] = d
	}
	return out, true
}

// sortedThresholds returns a copy of ts ordered by descending value.
func sortedThresholds(ts []Threshold) []Threshold {
	out := append([]Threshold(nil), ts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

func thresholdStyle(ts []Threshold, v float64) string {
	sorted := sortedThresholds(ts)
	for _, t := range sorted {
		if t.Value <= v {
			return t.Style
		}
	}
	return sorted[len(sorted)-1].Style
}
