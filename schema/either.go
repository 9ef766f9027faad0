package schema

import "github.com/reoring/gobugzilla/i18n"

// Either tries first and falls back to second only when first fails. When
// both fail the issue names both alternatives.
func Either[T any](first, second Decoder[T]) Decoder[T] {
	return eitherDecoder[T]{first: first, second: second}
}

type eitherDecoder[T any] struct{ first, second Decoder[T] }

func (e eitherDecoder[T]) Decode(v any) (T, error) {
	out, err := e.first.Decode(v)
	if err == nil {
		return out, nil
	}
	out, err2 := e.second.Decode(v)
	if err2 == nil {
		return out, nil
	}
	var zero T
	return zero, Issues{{
		Path: "/",
		Code: CodeInvalidUnion,
		Message: i18n.T(CodeInvalidUnion, map[string]string{
			"expected": e.Expect(),
			"received": render(v),
		}),
		Cause: err2,
	}}
}

func (e eitherDecoder[T]) Expect() string { return e.first.Expect() + " or " + e.second.Expect() }
