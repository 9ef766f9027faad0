package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/gobugzilla/i18n"
	"github.com/reoring/gobugzilla/internal/wire"
)

// Issue codes.
const (
	CodeInvalidType   = "invalid_type"
	CodeInvalidFormat = "invalid_format"
	CodeRequired      = "required"
	CodeInvalidUnion  = "invalid_union"
)

// Issue represents a single decode failure.
type Issue struct {
	Path    string // JSON Pointer (for example: /flags/2/name).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
}

// Issues is a collection of decode errors that implements error. Decoding is
// fail-fast, so decoders in this package produce exactly one Issue; the slice
// form keeps room for callers that merge several results.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /summary: expected a string but received `5`
		fmt.Fprintf(b, "%s at %s: %s", it.Code, it.Path, it.Message)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// mismatch builds the single-issue error returned when v does not have the
// shape described by expect.
func mismatch(code, expect string, v any) Issues {
	return Issues{{
		Path:    "/",
		Code:    code,
		Message: i18n.T(code, map[string]string{"expected": expect, "received": render(v)}),
	}}
}

// missing reports a projected field that was absent from the input.
func missing(field string, cause error) Issues {
	return Issues{{
		Path:    "/" + escapePointer(field),
		Code:    CodeRequired,
		Message: i18n.T(CodeRequired, map[string]string{"field": field}),
		Cause:   cause,
	}}
}

// rebase prefixes every issue path in err with the given segment.
func rebase(err error, seg string) error {
	base := "/" + escapePointer(seg)
	iss, ok := AsIssues(err)
	if !ok {
		return Issues{{Path: base, Code: CodeInvalidType, Message: err.Error(), Cause: err}}
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case p[0] == '/':
			p = base + p
		default:
			p = base + "/" + p
		}
		it.Path = p
		out = append(out, it)
	}
	return out
}

func escapePointer(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func render(v any) string {
	if v == Undefined {
		return "undefined"
	}
	return wire.Render(v)
}
