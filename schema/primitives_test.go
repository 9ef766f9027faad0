package schema_test

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/reoring/gobugzilla/schema"
)

func TestBool_Basic(t *testing.T) {
	d := schema.Bool()
	for _, in := range []bool{true, false} {
		v, err := d.Decode(in)
		if err != nil || v != in {
			t.Fatalf("decode %v: got v=%v err=%v", in, v, err)
		}
	}
	for _, bad := range []any{nil, schema.Undefined, 0, "", []any{}, []any{false}} {
		if _, err := d.Decode(bad); err == nil {
			t.Fatalf("expected error for %#v", bad)
		}
	}
}

func TestInt_Basic(t *testing.T) {
	d := schema.Int()
	cases := []struct {
		in   any
		want int
	}{
		{0, 0},
		{-1, -1},
		{float64(20), 20},
		{json.Number("10"), 10},
		{json.Number("1e3"), 1000},
		{json.Number("9007199254740993"), 9007199254740993},
		{json.Number("9223372036854775807"), math.MaxInt64},
		{json.Number("-9223372036854775808"), math.MinInt64},
		{int64(math.MaxInt64), math.MaxInt64},
	}
	for _, c := range cases {
		v, err := d.Decode(c.in)
		if err != nil || v != c.want {
			t.Fatalf("decode %#v: got v=%v err=%v", c.in, v, err)
		}
	}

	overflow := []any{json.Number("9223372036854775808"), json.Number("-9223372036854775809"), json.Number("1e19"), float64(1 << 63)}
	for _, bad := range append([]any{nil, schema.Undefined, "5", "0", 20.5, json.Number("0.5"), []any{}, []any{0}}, overflow...) {
		_, err := d.Decode(bad)
		iss, ok := schema.AsIssues(err)
		if !ok || len(iss) != 1 || iss[0].Code != schema.CodeInvalidType {
			t.Fatalf("expected invalid_type for %#v, got %v", bad, err)
		}
	}
}

func TestDouble_Basic(t *testing.T) {
	d := schema.Double()
	for _, c := range []struct {
		in   any
		want float64
	}{
		{0, 0},
		{0.1, 0.1},
		{-0.1, -0.1},
		{json.Number("10.3"), 10.3},
		{20, 20},
	} {
		v, err := d.Decode(c.in)
		if err != nil || v != c.want {
			t.Fatalf("decode %#v: got v=%v err=%v", c.in, v, err)
		}
	}
	if _, err := d.Decode("5"); err == nil {
		t.Fatalf("numeric strings must not be accepted")
	}
}

func TestString_Basic(t *testing.T) {
	d := schema.String()
	for _, in := range []string{"", "foo"} {
		v, err := d.Decode(in)
		if err != nil || v != in {
			t.Fatalf("decode %q: got v=%q err=%v", in, v, err)
		}
	}
	_, err := d.Decode(5)
	if err == nil || err.Error() != "invalid_type at /: expected a string but received `5`" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIntString(t *testing.T) {
	d := schema.IntString()
	v, err := d.Decode("5")
	if err != nil || v != 5 {
		t.Fatalf("decode: got v=%v err=%v", v, err)
	}
	for _, bad := range []any{"", nil, schema.Undefined, 0, []any{}, []any{""}} {
		if _, err := d.Decode(bad); err == nil {
			t.Fatalf("expected error for %#v", bad)
		}
	}
}

func TestDatetime_RoundTrip(t *testing.T) {
	d := schema.Datetime()
	in := "2022-01-12T05:43:27Z"
	got, err := d.Decode(in)
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !got.Equal(time.Date(2022, 1, 12, 5, 43, 27, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", got)
	}
	out := schema.FormatDatetime(got)
	if out != in {
		t.Fatalf("roundtrip mismatch: %s != %s", out, in)
	}
	again, err := d.Decode(out)
	if err != nil || !again.Equal(got) {
		t.Fatalf("second decode: got %v err=%v", again, err)
	}

	// fractional seconds and offsets
	if _, err := d.Decode("2022-01-12T05:43:27.123+09:00"); err != nil {
		t.Fatalf("expected offset timestamp to parse: %v", err)
	}
}

func TestDatetime_ISOForms(t *testing.T) {
	d := schema.Datetime()
	cases := map[string]time.Time{
		"2022-01-12":                time.Date(2022, 1, 12, 0, 0, 0, 0, time.UTC),
		"2022-01-12T05:43:27":       time.Date(2022, 1, 12, 5, 43, 27, 0, time.UTC),
		"2022-01-12T05:43:27.5":     time.Date(2022, 1, 12, 5, 43, 27, 500000000, time.UTC),
		"2022-01-12T06:43:27+0100":  time.Date(2022, 1, 12, 5, 43, 27, 0, time.UTC),
		"2022-01-12T06:43+01:00":    time.Date(2022, 1, 12, 5, 43, 0, 0, time.UTC),
		"2022-01-12T05:43":          time.Date(2022, 1, 12, 5, 43, 0, 0, time.UTC),
		"2022-01-12T05:43:27.1Z":    time.Date(2022, 1, 12, 5, 43, 27, 100000000, time.UTC),
		"2022-01-12T14:43:27+09:00": time.Date(2022, 1, 12, 5, 43, 27, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := d.Decode(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("decode %q: got %v err=%v, want %v", in, got, err, want)
		}
	}
}

func TestDatetime_Invalid(t *testing.T) {
	d := schema.Datetime()
	cases := []struct {
		in   any
		code string
	}{
		{5, schema.CodeInvalidType},
		{nil, schema.CodeInvalidType},
		{schema.Undefined, schema.CodeInvalidType},
		{"foo", schema.CodeInvalidFormat},
		{"2022-15-12T05:43:27Z", schema.CodeInvalidFormat},
		{"2022-15-12", schema.CodeInvalidFormat},
		{"2022-01-12 05:43:27", schema.CodeInvalidFormat},
	}
	for _, c := range cases {
		_, err := d.Decode(c.in)
		iss, ok := schema.AsIssues(err)
		if !ok || iss[0].Code != c.code {
			t.Fatalf("decode %#v: expected %s, got %v", c.in, c.code, err)
		}
	}
}

func TestBase64(t *testing.T) {
	b, err := schema.Base64().Decode("VGhpcyBpcyBub3QgYSBpbWFnZS4=")
	if err != nil || string(b) != "This is not a image." {
		t.Fatalf("decode: got %q err=%v", b, err)
	}
	if _, err := schema.Base64().Decode("%%%"); err == nil {
		t.Fatalf("expected invalid_format for malformed base64")
	}
}

func TestOptional(t *testing.T) {
	calls := 0
	counting := countingInt{calls: &calls}

	v, err := schema.Optional[int](counting).Decode(schema.Undefined)
	if err != nil || v != nil {
		t.Fatalf("undefined: got v=%v err=%v", v, err)
	}
	if calls != 0 {
		t.Fatalf("inner decoder must not run for undefined, ran %d times", calls)
	}

	d, err := schema.OptionalOr(schema.Int(), 5).Decode(schema.Undefined)
	if err != nil || d != 5 {
		t.Fatalf("default: got v=%v err=%v", d, err)
	}

	p, err := schema.Optional(schema.Int()).Decode(json.Number("5"))
	if err != nil || p == nil || *p != 5 {
		t.Fatalf("present: got v=%v err=%v", p, err)
	}

	for _, bad := range []any{nil, "4"} {
		if _, err := schema.Optional(schema.Int()).Decode(bad); err == nil {
			t.Fatalf("optional must delegate %#v", bad)
		}
		if _, err := schema.OptionalOr(schema.Int(), 5).Decode(bad); err == nil {
			t.Fatalf("optional with default must delegate %#v", bad)
		}
	}
}

func TestNullable(t *testing.T) {
	v, err := schema.Nullable(schema.Int()).Decode(nil)
	if err != nil || v != nil {
		t.Fatalf("null: got v=%v err=%v", v, err)
	}
	d, err := schema.NullableOr(schema.Int(), 5).Decode(nil)
	if err != nil || d != 5 {
		t.Fatalf("default: got v=%v err=%v", d, err)
	}
	p, err := schema.Nullable(schema.Int()).Decode(5)
	if err != nil || p == nil || *p != 5 {
		t.Fatalf("present: got v=%v err=%v", p, err)
	}
	for _, bad := range []any{schema.Undefined, "4"} {
		if _, err := schema.Nullable(schema.Int()).Decode(bad); err == nil {
			t.Fatalf("nullable must delegate %#v", bad)
		}
		if _, err := schema.NullableOr(schema.Int(), 5).Decode(bad); err == nil {
			t.Fatalf("nullable with default must delegate %#v", bad)
		}
	}
}

type countingInt struct{ calls *int }

func (c countingInt) Decode(v any) (int, error) {
	*c.calls++
	return schema.Int().Decode(v)
}

func (countingInt) Expect() string { return "an integer" }

func TestAny(t *testing.T) {
	for _, in := range []any{nil, 1, "x", []any{}, map[string]any{}} {
		v, err := schema.Any().Decode(in)
		if err != nil || !reflect.DeepEqual(v, in) {
			t.Fatalf("decode %#v: got %#v err=%v", in, v, err)
		}
	}
	if _, err := schema.Any().Decode(schema.Undefined); err == nil {
		t.Fatalf("an absent value is still missing")
	}
}
