package schema

// Decoder reconstructs a typed value from an untyped JSON tree.
type Decoder[T any] interface {
	// Decode converts v into T or returns Issues describing the mismatch.
	Decode(v any) (T, error)
	// Expect describes the accepted input for error messages ("a string").
	Expect() string
}

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined stands for a value that is absent from its parent object. Object
// decoders pass it to the field decoder of every projected key missing from
// the input; only Optional accepts it.
var Undefined any = undefined{}

// Decode runs d against v.
func Decode[T any](d Decoder[T], v any) (T, error) { return d.Decode(v) }

// As adapts a Decoder[T] to Decoder[any] so it can be stored next to decoders
// of other types, as Object fields are.
func As[T any](d Decoder[T]) Decoder[any] {
	if a, ok := any(d).(Decoder[any]); ok {
		return a
	}
	return anyDecoder[T]{inner: d}
}

type anyDecoder[T any] struct{ inner Decoder[T] }

func (a anyDecoder[T]) Decode(v any) (any, error) {
	out, err := a.inner.Decode(v)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a anyDecoder[T]) Expect() string { return a.inner.Expect() }
