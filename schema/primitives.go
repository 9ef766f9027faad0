package schema

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

// String accepts JSON strings only.
func String() Decoder[string] { return stringDecoder{} }

// Bool accepts JSON booleans only.
func Bool() Decoder[bool] { return boolDecoder{} }

// Int accepts integral JSON numbers. Numeric strings and fractional numbers
// are rejected.
func Int() Decoder[int] { return intDecoder{} }

// Double accepts any JSON number.
func Double() Decoder[float64] { return doubleDecoder{} }

// IntString accepts a string holding a base-10 integer, the form object keys
// take when the server indexes results by id.
func IntString() Decoder[int] { return intStringDecoder{} }

// Datetime accepts ISO-8601 (RFC 3339) timestamps.
func Datetime() Decoder[time.Time] { return datetimeDecoder{} }

// Base64 accepts a standard base64 string and returns the decoded bytes.
func Base64() Decoder[[]byte] { return base64Decoder{} }

// Any accepts every present value unchanged.
func Any() Decoder[any] { return anyValue{} }

type stringDecoder struct{}

func (stringDecoder) Decode(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mismatch(CodeInvalidType, "a string", v)
	}
	return s, nil
}

func (stringDecoder) Expect() string { return "a string" }

type boolDecoder struct{}

func (boolDecoder) Decode(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, mismatch(CodeInvalidType, "a boolean", v)
	}
	return b, nil
}

func (boolDecoder) Expect() string { return "a boolean" }

type intDecoder struct{}

func (intDecoder) Decode(v any) (int, error) {
	// exact path for json.Number so large ids keep every digit
	if n, isNum := v.(json.Number); isNum {
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err == nil {
			return int(i), nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, mismatch(CodeInvalidType, "an integer", v)
		}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	f, ok := number(v)
	// float64(math.MaxInt64) rounds up to 2^63, so compare against 2^63 itself
	if !ok || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, mismatch(CodeInvalidType, "an integer", v)
	}
	return int(f), nil
}

func (intDecoder) Expect() string { return "an integer" }

type doubleDecoder struct{}

func (doubleDecoder) Decode(v any) (float64, error) {
	f, ok := number(v)
	if !ok {
		return 0, mismatch(CodeInvalidType, "a number", v)
	}
	return f, nil
}

func (doubleDecoder) Expect() string { return "a number" }

type intStringDecoder struct{}

func (intStringDecoder) Decode(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, mismatch(CodeInvalidType, "an integer as a string", v)
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		iss := mismatch(CodeInvalidFormat, "an integer as a string", v)
		iss[0].Cause = err
		return 0, iss
	}
	return i, nil
}

func (intStringDecoder) Expect() string { return "an integer as a string" }

type datetimeDecoder struct{}

func (datetimeDecoder) Decode(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, mismatch(CodeInvalidType, "an ISO-8601 string", v)
	}
	t, err := parseRFC3339(s)
	if err != nil {
		iss := mismatch(CodeInvalidFormat, "an ISO-8601 string", v)
		iss[0].Cause = err
		return time.Time{}, iss
	}
	return t, nil
}

func (datetimeDecoder) Expect() string { return "an ISO-8601 string" }

// FormatDatetime renders t in the canonical form Datetime accepts.
func FormatDatetime(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}

// isoLayouts are tried in order after RFC 3339. Times without a zone are
// read as UTC.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range isoLayouts {
		if t2, err2 := time.Parse(layout, s); err2 == nil {
			return t2, nil
		}
	}
	return time.Time{}, err
}

type base64Decoder struct{}

func (base64Decoder) Decode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, mismatch(CodeInvalidType, "a base64 string", v)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		iss := mismatch(CodeInvalidFormat, "a base64 string", v)
		iss[0].Cause = err
		return nil, iss
	}
	return b, nil
}

func (base64Decoder) Expect() string { return "a base64 string" }

type anyValue struct{}

func (anyValue) Decode(v any) (any, error) {
	if v == Undefined {
		return nil, mismatch(CodeInvalidType, "any value", v)
	}
	return v, nil
}

func (anyValue) Expect() string { return "any value" }

// number reports the numeric value of the JSON number representations the
// wire driver and Go literals produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
