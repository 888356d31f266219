package logseq

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

func strPtr(s string) *string { return &s }

func TestDecode_Shapes(t *testing.T) {
	full := `{"block/uuid":"u1","block/title":"Write report"}`
	full2 := `{"block/uuid":"u2","block/title":"Call Bob"}`
	simple := `{"block/uuid":"u1","block/content":"Write report"}`

	tests := []struct {
		name      string
		data      string
		wantShape Shape
		wantUUIDs []string
		statuses  []string
	}{
		{"empty array", `[]`, ShapeNested, nil, nil},
		{"nested", `[[` + full + `],[` + full2 + `]]`, ShapeNested, []string{"u1", "u2"}, nil},
		{"nested multi per group", `[[` + full + `,` + full2 + `]]`, ShapeNested, []string{"u1", "u2"}, nil},
		{"tuple", `[[` + full + `,"Doing"],[` + full2 + `,"Todo"]]`, ShapeWithStatus, []string{"u1", "u2"}, []string{"Doing", "Todo"}},
		{"flat", `[` + full + `,` + full2 + `]`, ShapeFlat, []string{"u1", "u2"}, nil},
		{"simple nested", `[[` + simple + `]]`, ShapeNested, []string{"u1"}, nil},
		{"simple flat", `[` + simple + `]`, ShapeFlat, []string{"u1"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.Shape != tt.wantShape {
				t.Errorf("Shape = %s, want %s", got.Shape, tt.wantShape)
			}
			var uuids []string
			for _, r := range got.Records {
				uuids = append(uuids, r.UUID)
			}
			if diff := cmp.Diff(tt.wantUUIDs, uuids); diff != "" {
				t.Errorf("uuids mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.statuses, got.Statuses); diff != "" {
				t.Errorf("statuses mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_TupleWinsOverLooserShapes(t *testing.T) {
	data := `[[{"block/uuid":"u1","block/title":"Task"},"Doing"]]`
	got, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Shape != ShapeWithStatus {
		t.Fatalf("Shape = %s, want %s", got.Shape, ShapeWithStatus)
	}
	want := []types.Record{{UUID: "u1", Title: strPtr("Task")}}
	if diff := cmp.Diff(want, got.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_TupleArity(t *testing.T) {
	// Three-element rows are not status tuples and match nothing else.
	data := `[[{"block/uuid":"u1"},"Doing","extra"]]`
	if _, err := Decode([]byte(data)); !errors.Is(err, ErrDecodingFailed) {
		t.Fatalf("Decode error = %v, want ErrDecodingFailed", err)
	}
}

func TestDecode_SimpleShapesAfterFullShapesFail(t *testing.T) {
	// A title of the wrong type fails every full-record shape but the
	// reduced shape ignores titles.
	data := `[[{"block/uuid":"u1","block/content":"c","block/title":7}]]`
	got, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Shape != ShapeSimpleNested {
		t.Errorf("Shape = %s, want %s", got.Shape, ShapeSimpleNested)
	}
	want := []types.Record{{UUID: "u1", Content: strPtr("c")}}
	if diff := cmp.Diff(want, got.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	flat := `[{"block/uuid":"u1","block/content":"c","block/title":7}]`
	got, err = Decode([]byte(flat))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Shape != ShapeSimpleFlat {
		t.Errorf("Shape = %s, want %s", got.Shape, ShapeSimpleFlat)
	}
}

func TestDecode_Failure(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"object", `{"block/uuid":"u1"}`},
		{"number", `42`},
		{"count query", `[[17]]`},
		{"missing uuid", `[{"block/title":"no id"}]`},
		{"inner null", `[null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			if err == nil {
				t.Fatalf("Decode succeeded with %+v, want error", got)
			}
			if !errors.Is(err, ErrDecodingFailed) {
				t.Errorf("error = %v, want ErrDecodingFailed", err)
			}
			if !strings.Contains(err.Error(), "byte") {
				t.Errorf("error should describe the payload: %v", err)
			}
		})
	}
}

func TestDecode_PropertyTypeMismatch(t *testing.T) {
	data := `[[{"block/uuid":"u1","block/properties":{"x":null}}]]`
	_, err := Decode([]byte(data))
	if !errors.Is(err, ErrDecodingFailed) {
		t.Fatalf("Decode error = %v, want ErrDecodingFailed", err)
	}
	if !IsPropertyTypeError(err) {
		t.Errorf("IsPropertyTypeError(%v) = false", err)
	}
	if !strings.Contains(err.Error(), "type mismatch") {
		t.Errorf("error should mention the type mismatch: %v", err)
	}
}

func TestDecode_PropertyValues(t *testing.T) {
	data := `[[{"block/uuid":"u1","block/properties":{"flag":true,"n":42,"s":"42","f":1.5}}]]`
	got, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := map[string]types.PropertyValue{
		"flag": types.BoolValue(true),
		"n":    types.IntValue(42),
		"s":    types.StringValue("42"),
		"f":    types.FloatValue(1.5),
	}
	if diff := cmp.Diff(want, got.Records[0].Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestIsEmptyResult(t *testing.T) {
	for _, in := range []string{"", "  \n", "null", "null\n", "[null]", "[ null ]\n", "nil", "[nil]"} {
		if !isEmptyResult([]byte(in)) {
			t.Errorf("isEmptyResult(%q) = false", in)
		}
	}
	for _, in := range []string{"[]", "[[]]", "0", `"null"`, "[null,null]"} {
		if isEmptyResult([]byte(in)) {
			t.Errorf("isEmptyResult(%q) = true", in)
		}
	}
}

func TestDecodeCount(t *testing.T) {
	tests := []struct {
		data string
		want int
	}{
		{`17`, 17},
		{`[17]`, 17},
		{`[[17]]`, 17},
		{`[[17.0]]`, 17},
		{`[]`, 0},
		{`[[]]`, 0},
	}
	for _, tt := range tests {
		got, err := DecodeCount([]byte(tt.data))
		if err != nil {
			t.Errorf("DecodeCount(%s) failed: %v", tt.data, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeCount(%s) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestDecodeCount_Failure(t *testing.T) {
	for _, data := range []string{`[1,2]`, `"17"`, `[{"block/uuid":"u1"}]`, `2.5`, `not json`} {
		_, err := DecodeCount([]byte(data))
		if !errors.Is(err, ErrDecodingFailed) {
			t.Errorf("DecodeCount(%s) error = %v, want ErrDecodingFailed", data, err)
		}
	}
}
