package logseq

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// Shape identifies which result layout a payload was decoded as.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeNested is a list of single-record lists, what `find ?b` returns.
	ShapeNested
	// ShapeWithStatus is a list of [record, status-name] pairs.
	ShapeWithStatus
	// ShapeFlat is a plain list of records.
	ShapeFlat
	// ShapeSimpleNested is a list of lists of uuid/content records.
	ShapeSimpleNested
	// ShapeSimpleFlat is a plain list of uuid/content records.
	ShapeSimpleFlat
)

func (s Shape) String() string {
	switch s {
	case ShapeNested:
		return "nested"
	case ShapeWithStatus:
		return "with-status"
	case ShapeFlat:
		return "flat"
	case ShapeSimpleNested:
		return "simple-nested"
	case ShapeSimpleFlat:
		return "simple-flat"
	default:
		return "none"
	}
}

// Decoded is the output of Decode.
type Decoded struct {
	Shape   Shape
	Records []types.Record

	// Statuses runs parallel to Records and is only set for ShapeWithStatus.
	Statuses []string
}

type shapeDecoder struct {
	shape  Shape
	decode func(data []byte) (Decoded, error)
}

// shapeDecoders is tried in order and the first success wins. More specific
// shapes come first; the nested form is the common case.
var shapeDecoders = []shapeDecoder{
	{ShapeNested, decodeNested},
	{ShapeWithStatus, decodeWithStatus},
	{ShapeFlat, decodeFlat},
	{ShapeSimpleNested, decodeSimpleNested},
	{ShapeSimpleFlat, decodeSimpleFlat},
}

// Decode interprets converted JSON as a list of records.
//
// Records inside a nested group are flattened in encounter order. If no
// shape matches, the error wraps ErrDecodingFailed and describes the input
// and why each shape was rejected.
func Decode(data []byte) (Decoded, error) {
	data = bytes.TrimSpace(data)

	var (
		reasons []string
		errs    []error
	)
	for _, d := range shapeDecoders {
		out, err := d.decode(data)
		if err == nil {
			out.Shape = d.shape
			return out, nil
		}
		reasons = append(reasons, d.shape.String()+": "+err.Error())
		errs = append(errs, err)
	}

	detail := fmt.Sprintf("%s matched no known result shape (%s)",
		describePayload(data), strings.Join(reasons, "; "))
	return Decoded{}, newError(ErrDecodingFailed, "decode", detail, errors.Join(errs...))
}

func decodeNested(data []byte) (Decoded, error) {
	groups, err := splitArray(data)
	if err != nil {
		return Decoded{}, err
	}
	var out Decoded
	for i, group := range groups {
		items, err := splitArray(group)
		if err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		for j, item := range items {
			var r types.Record
			if err := json.Unmarshal(item, &r); err != nil {
				return Decoded{}, fmt.Errorf("element %d.%d: %w", i, j, err)
			}
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}

func decodeWithStatus(data []byte) (Decoded, error) {
	pairs, err := splitArray(data)
	if err != nil {
		return Decoded{}, err
	}
	var out Decoded
	for i, pair := range pairs {
		parts, err := splitArray(pair)
		if err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		if len(parts) != 2 {
			return Decoded{}, fmt.Errorf("element %d: want 2 items, got %d", i, len(parts))
		}
		var r types.Record
		if err := json.Unmarshal(parts[0], &r); err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		status, err := decodeString(parts[1])
		if err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Records = append(out.Records, r)
		out.Statuses = append(out.Statuses, status)
	}
	return out, nil
}

func decodeFlat(data []byte) (Decoded, error) {
	items, err := splitArray(data)
	if err != nil {
		return Decoded{}, err
	}
	var out Decoded
	for i, item := range items {
		var r types.Record
		if err := json.Unmarshal(item, &r); err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Records = append(out.Records, r)
	}
	return out, nil
}

func decodeSimpleNested(data []byte) (Decoded, error) {
	groups, err := splitArray(data)
	if err != nil {
		return Decoded{}, err
	}
	var out Decoded
	for i, group := range groups {
		items, err := splitArray(group)
		if err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		for j, item := range items {
			var s types.SimpleRecord
			if err := json.Unmarshal(item, &s); err != nil {
				return Decoded{}, fmt.Errorf("element %d.%d: %w", i, j, err)
			}
			out.Records = append(out.Records, s.Promote())
		}
	}
	return out, nil
}

func decodeSimpleFlat(data []byte) (Decoded, error) {
	items, err := splitArray(data)
	if err != nil {
		return Decoded{}, err
	}
	var out Decoded
	for i, item := range items {
		var s types.SimpleRecord
		if err := json.Unmarshal(item, &s); err != nil {
			return Decoded{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Records = append(out.Records, s.Promote())
	}
	return out, nil
}

// splitArray returns the raw elements of a JSON array. Anything else,
// including null, is an error.
func splitArray(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("expected array, got %s", describeKind(data))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", fmt.Errorf("expected string, got %s", describeKind(data))
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s, nil
}

func describeKind(data []byte) string {
	if len(data) == 0 {
		return "empty input"
	}
	switch data[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// describePayload summarises data for an error message without dumping
// an arbitrarily large result.
func describePayload(data []byte) string {
	const maxPreview = 120
	preview := string(data)
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "..."
	}
	return fmt.Sprintf("%d-byte %s %q", len(data), describeKind(data), preview)
}

// DecodeCount reads the result of an aggregate query: a whole number,
// possibly wrapped in single-element arrays ([[17]] or [17]). An empty
// array counts as zero.
func DecodeCount(data []byte) (int, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, newError(ErrDecodingFailed, "count", describePayload(data)+" is not JSON", err)
	}
	for {
		list, ok := v.([]any)
		if !ok {
			break
		}
		switch len(list) {
		case 0:
			return 0, nil
		case 1:
			v = list[0]
		default:
			return 0, newError(ErrDecodingFailed, "count",
				fmt.Sprintf("%s holds %d values, want one number", describePayload(data), len(list)), nil)
		}
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, newError(ErrDecodingFailed, "count", describePayload(data)+" is not a number", nil)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, newError(ErrDecodingFailed, "count", "count "+n.String()+" is not a whole number", err)
	}
	return int(f), nil
}

// isEmptyResult reports whether output is one of the degenerate forms the
// engine and converter use for "nothing matched". Checked both before and
// after conversion, so EDN nil is accepted as well as JSON null.
func isEmptyResult(output []byte) bool {
	compact := strings.Join(strings.Fields(string(output)), "")
	switch compact {
	case "", "null", "[null]", "nil", "[nil]":
		return true
	}
	return false
}

// IsPropertyTypeError reports whether a decoding failure was caused by a
// property value of an unsupported type.
func IsPropertyTypeError(err error) bool {
	var pte *types.PropertyTypeError
	return errors.As(err, &pte)
}
