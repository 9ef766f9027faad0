package schema

// Nullable accepts null (as a nil pointer) and delegates every other value to
// d, including Undefined, so an absent field still fails.
func Nullable[T any](d Decoder[T]) Decoder[*T] { return nullable[T]{inner: d} }

// NullableOr is Nullable that substitutes def for null.
func NullableOr[T any](d Decoder[T], def T) Decoder[T] {
	return withDefault[T]{inner: d, def: def, accept: isNull, expect: d.Expect() + " or null"}
}

// Optional accepts Undefined (as a nil pointer) without invoking d and
// delegates every other value, null included, to d.
func Optional[T any](d Decoder[T]) Decoder[*T] { return optional[T]{inner: d} }

// OptionalOr is Optional that substitutes def for an absent value.
func OptionalOr[T any](d Decoder[T], def T) Decoder[T] {
	return withDefault[T]{inner: d, def: def, accept: isUndefined, expect: d.Expect()}
}

func isNull(v any) bool      { return v == nil }
func isUndefined(v any) bool { return v == Undefined }

type nullable[T any] struct{ inner Decoder[T] }

func (n nullable[T]) Decode(v any) (*T, error) {
	if v == nil {
		return nil, nil
	}
	out, err := n.inner.Decode(v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (n nullable[T]) Expect() string { return n.inner.Expect() + " or null" }

type optional[T any] struct{ inner Decoder[T] }

func (o optional[T]) Decode(v any) (*T, error) {
	if v == Undefined {
		return nil, nil
	}
	out, err := o.inner.Decode(v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (o optional[T]) Expect() string { return o.inner.Expect() }

type withDefault[T any] struct {
	inner  Decoder[T]
	def    T
	accept func(any) bool
	expect string
}

func (w withDefault[T]) Decode(v any) (T, error) {
	if w.accept(v) {
		return w.def, nil
	}
	return w.inner.Decode(v)
}

func (w withDefault[T]) Expect() string { return w.expect }
