package schema_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/reoring/gobugzilla/schema"
)

func TestArray(t *testing.T) {
	d := schema.Array(schema.String())

	got, err := d.Decode([]any{})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty array: got %#v err=%v", got, err)
	}

	got, err = d.Decode([]any{"foo", "bar"})
	if err != nil || !reflect.DeepEqual(got, []string{"foo", "bar"}) {
		t.Fatalf("strings: got %#v err=%v", got, err)
	}

	for _, bad := range []any{nil, schema.Undefined, 5, "foo", map[string]any{}} {
		_, err := d.Decode(bad)
		iss, ok := schema.AsIssues(err)
		if !ok || iss[0].Code != schema.CodeInvalidType || iss[0].Path != "/" {
			t.Fatalf("expected top-level invalid_type for %#v, got %v", bad, err)
		}
	}

	_, err = d.Decode([]any{"foo", "bar", 6})
	iss, _ := schema.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/2" {
		t.Fatalf("element failure must carry its index: %v", err)
	}
}

func TestMaybeArray(t *testing.T) {
	d := schema.MaybeArray(schema.String())
	got, err := d.Decode("foo")
	if err != nil || !reflect.DeepEqual(got, []string{"foo"}) {
		t.Fatalf("scalar: got %#v err=%v", got, err)
	}
	got, err = d.Decode([]any{"foo", "bar"})
	if err != nil || !reflect.DeepEqual(got, []string{"foo", "bar"}) {
		t.Fatalf("array: got %#v err=%v", got, err)
	}
	if _, err := d.Decode(5); err == nil {
		t.Fatalf("expected error for mismatched scalar")
	}
	if d.Expect() != "a string or an array" {
		t.Fatalf("expect: %q", d.Expect())
	}
}

func TestMap(t *testing.T) {
	d := schema.Map(schema.IntString(), schema.String())
	got, err := d.Decode(map[string]any{"5": "x"})
	if err != nil || !reflect.DeepEqual(got, map[int]string{5: "x"}) {
		t.Fatalf("decode: got %#v err=%v", got, err)
	}

	empty, err := d.Decode(map[string]any{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty: got %#v err=%v", empty, err)
	}

	_, err = d.Decode(map[string]any{"x": "5"})
	iss, ok := schema.AsIssues(err)
	if !ok || iss[0].Code != schema.CodeInvalidFormat || iss[0].Path != "/x" {
		t.Fatalf("bad key: %v", err)
	}

	_, err = d.Decode(map[string]any{"5": 5})
	iss, ok = schema.AsIssues(err)
	if !ok || iss[0].Code != schema.CodeInvalidType || iss[0].Path != "/5" {
		t.Fatalf("bad value: %v", err)
	}

	for _, bad := range []any{nil, 0, []any{}, "5"} {
		if _, err := d.Decode(bad); err == nil {
			t.Fatalf("expected error for %#v", bad)
		}
	}
}

func TestEither(t *testing.T) {
	d := schema.Either(schema.Int(), schema.IntString())
	for _, in := range []any{json.Number("5"), "5", 5} {
		v, err := d.Decode(in)
		if err != nil || v != 5 {
			t.Fatalf("decode %#v: got v=%v err=%v", in, v, err)
		}
	}
	_, err := d.Decode(nil)
	iss, ok := schema.AsIssues(err)
	if !ok || iss[0].Code != schema.CodeInvalidUnion {
		t.Fatalf("expected invalid_union, got %v", err)
	}
	if iss[0].Cause == nil {
		t.Fatalf("union issue must keep the second failure as cause")
	}
}

func TestEither_FirstWins(t *testing.T) {
	calls := 0
	d := schema.Either[int](schema.Int(), countingInt{calls: &calls})
	if _, err := d.Decode(1); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if calls != 0 {
		t.Fatalf("second decoder must not run when the first succeeds")
	}
}
