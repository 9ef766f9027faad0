package schema

import "strconv"

// Array decodes a JSON array element by element. The first failing element
// aborts the decode with its index in the issue path.
func Array[T any](elem Decoder[T]) Decoder[[]T] { return arrayDecoder[T]{elem: elem} }

// MaybeArray accepts either a bare value or an array of values and always
// yields a slice. Older servers return a scalar for single-valued fields that
// newer ones send as a list.
func MaybeArray[T any](elem Decoder[T]) Decoder[[]T] { return maybeArrayDecoder[T]{elem: elem} }

type arrayDecoder[T any] struct{ elem Decoder[T] }

func (a arrayDecoder[T]) Decode(v any) ([]T, error) {
	src, ok := v.([]any)
	if !ok {
		return nil, mismatch(CodeInvalidType, "an array", v)
	}
	out := make([]T, 0, len(src))
	for i, raw := range src {
		ev, err := a.elem.Decode(raw)
		if err != nil {
			return nil, rebase(err, strconv.Itoa(i))
		}
		out = append(out, ev)
	}
	return out, nil
}

func (a arrayDecoder[T]) Expect() string { return "an array" }

type maybeArrayDecoder[T any] struct{ elem Decoder[T] }

func (m maybeArrayDecoder[T]) Decode(v any) ([]T, error) {
	if _, ok := v.([]any); ok {
		return arrayDecoder[T](m).Decode(v)
	}
	ev, err := m.elem.Decode(v)
	if err != nil {
		return nil, err
	}
	return []T{ev}, nil
}

func (m maybeArrayDecoder[T]) Expect() string { return m.elem.Expect() + " or an array" }
