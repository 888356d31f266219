package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// PropertyKind identifies which variant a PropertyValue holds.
type PropertyKind int

const (
	PropertyString PropertyKind = iota
	PropertyInt
	PropertyFloat
	PropertyBool
	PropertyList
	PropertyMap
)

// String returns a human-readable representation of the kind.
func (k PropertyKind) String() string {
	switch k {
	case PropertyString:
		return "string"
	case PropertyInt:
		return "int"
	case PropertyFloat:
		return "float"
	case PropertyBool:
		return "bool"
	case PropertyList:
		return "list"
	case PropertyMap:
		return "map"
	default:
		return "unknown"
	}
}

// PropertyValue is a dynamically-typed block property value. Exactly one of
// the payload fields is meaningful, selected by Kind.
type PropertyValue struct {
	Kind  PropertyKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	List  []PropertyValue
	Map   map[string]PropertyValue
}

// PropertyTypeError is returned when a JSON value matches none of the
// PropertyValue variants.
type PropertyTypeError struct {
	Value string
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("cannot decode property value %s: type mismatch", e.Value)
}

// Constructors for each variant.

func StringValue(s string) PropertyValue { return PropertyValue{Kind: PropertyString, Str: s} }
func IntValue(i int64) PropertyValue     { return PropertyValue{Kind: PropertyInt, Int: i} }
func FloatValue(f float64) PropertyValue { return PropertyValue{Kind: PropertyFloat, Float: f} }
func BoolValue(b bool) PropertyValue     { return PropertyValue{Kind: PropertyBool, Bool: b} }

func ListValue(items ...PropertyValue) PropertyValue {
	if items == nil {
		items = []PropertyValue{}
	}
	return PropertyValue{Kind: PropertyList, List: items}
}

func MapValue(m map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: PropertyMap, Map: m}
}

// propertyParser is one typed interpretation attempt. ok is false when the
// input does not have that shape.
type propertyParser func(data []byte) (v PropertyValue, ok bool)

// propertyParsers is tried in order; the first success wins. Integers come
// before floats so that 42 stays an integer, and quoted text is only ever
// read by parseString so "42" stays text.
var propertyParsers = []propertyParser{
	parseIntProperty,
	parseFloatProperty,
	parseBoolProperty,
	parseStringProperty,
	parseListProperty,
	parseMapProperty,
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &PropertyTypeError{Value: "null"}
	}
	for _, parse := range propertyParsers {
		if v, ok := parse(data); ok {
			*p = v
			return nil
		}
	}
	return &PropertyTypeError{Value: truncate(string(data), 64)}
}

func parseIntProperty(data []byte) (PropertyValue, bool) {
	i, ok := exactInt(data)
	if !ok {
		return PropertyValue{}, false
	}
	return IntValue(i), true
}

// exactInt reads a JSON number as an integer. Numbers written with a
// fraction or exponent qualify when their value is whole, so 1.0 and 1e3
// are integers and 2.5 is not.
func exactInt(data []byte) (int64, bool) {
	if len(data) == 0 || !isNumberStart(data[0]) {
		return 0, false
	}
	if i, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		return i, true
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseFloatProperty(data []byte) (PropertyValue, bool) {
	if !isNumberStart(data[0]) {
		return PropertyValue{}, false
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return PropertyValue{}, false
	}
	return FloatValue(f), true
}

func parseBoolProperty(data []byte) (PropertyValue, bool) {
	switch string(data) {
	case "true":
		return BoolValue(true), true
	case "false":
		return BoolValue(false), true
	}
	return PropertyValue{}, false
}

func parseStringProperty(data []byte) (PropertyValue, bool) {
	if data[0] != '"' {
		return PropertyValue{}, false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return PropertyValue{}, false
	}
	return StringValue(s), true
}

func parseListProperty(data []byte) (PropertyValue, bool) {
	if data[0] != '[' {
		return PropertyValue{}, false
	}
	var items []PropertyValue
	if err := json.Unmarshal(data, &items); err != nil {
		return PropertyValue{}, false
	}
	return ListValue(items...), true
}

func parseMapProperty(data []byte) (PropertyValue, bool) {
	if data[0] != '{' {
		return PropertyValue{}, false
	}
	var m map[string]PropertyValue
	if err := json.Unmarshal(data, &m); err != nil {
		return PropertyValue{}, false
	}
	return MapValue(m), true
}

func isNumberStart(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9')
}

// MarshalJSON implements json.Marshaler.
func (p PropertyValue) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PropertyString:
		return json.Marshal(p.Str)
	case PropertyInt:
		return json.Marshal(p.Int)
	case PropertyFloat:
		return json.Marshal(p.Float)
	case PropertyBool:
		return json.Marshal(p.Bool)
	case PropertyList:
		if p.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.List)
	case PropertyMap:
		if p.Map == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(p.Map)
	default:
		return nil, fmt.Errorf("unknown property kind %d", p.Kind)
	}
}

// AsInt returns the value as an integer. Floats are truncated.
func (p PropertyValue) AsInt() (int64, bool) {
	switch p.Kind {
	case PropertyInt:
		return p.Int, true
	case PropertyFloat:
		return int64(p.Float), true
	}
	return 0, false
}

// AsString returns the text of a string value.
func (p PropertyValue) AsString() (string, bool) {
	if p.Kind == PropertyString {
		return p.Str, true
	}
	return "", false
}

// String renders the value for display.
func (p PropertyValue) String() string {
	switch p.Kind {
	case PropertyString:
		return p.Str
	case PropertyInt:
		return strconv.FormatInt(p.Int, 10)
	case PropertyFloat:
		return strconv.FormatFloat(p.Float, 'g', -1, 64)
	case PropertyBool:
		return strconv.FormatBool(p.Bool)
	default:
		b, err := p.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
