package schema

import "slices"

// Projection selects the subset of an object's fields to decode. A nil
// Includes selects every field; Excludes always wins over Includes.
type Projection struct {
	Includes []string
	Excludes []string
}

// IsZero reports whether p selects every field.
func (p Projection) IsZero() bool { return p.Includes == nil && len(p.Excludes) == 0 }

// Select returns the keys of fields (in their declared order) that p keeps.
// Include names that are not schema keys are ignored: the schema is
// authoritative.
func (p Projection) Select(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if p.Includes != nil && !slices.Contains(p.Includes, f) {
			continue
		}
		if slices.Contains(p.Excludes, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Field is one entry of an untyped object schema.
type Field struct {
	Name    string
	Decoder Decoder[any]
}

// Prop declares an object field decoded by d.
func Prop[T any](name string, d Decoder[T]) Field { return Field{Name: name, Decoder: As(d)} }

// ObjectSchema decodes JSON objects into maps holding only the projected
// fields.
type ObjectSchema struct {
	names    []string
	decoders map[string]Decoder[any]
	proj     Projection
}

// Object builds an untyped object schema. A later field with the same name
// replaces an earlier one.
func Object(fields ...Field) *ObjectSchema {
	s := &ObjectSchema{decoders: make(map[string]Decoder[any], len(fields))}
	for _, f := range fields {
		if _, dup := s.decoders[f.Name]; !dup {
			s.names = append(s.names, f.Name)
		}
		s.decoders[f.Name] = f.Decoder
	}
	return s
}

// Fields lists the schema keys in declaration order.
func (s *ObjectSchema) Fields() []string { return slices.Clone(s.names) }

// Selected lists the keys the active projection decodes.
func (s *ObjectSchema) Selected() []string { return s.proj.Select(s.names) }

// Project returns a copy of s restricted by includes and excludes.
func (s *ObjectSchema) Project(includes, excludes []string) *ObjectSchema {
	cp := *s
	cp.proj = Projection{Includes: includes, Excludes: excludes}
	return &cp
}

func (s *ObjectSchema) Decode(v any) (map[string]any, error) {
	out := make(map[string]any)
	err := decodeFields(v, s.Selected(), func(name string, raw any) error {
		fv, err := s.decoders[name].Decode(raw)
		if err != nil {
			return err
		}
		out[name] = fv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ObjectSchema) Expect() string { return "an object" }

// FieldOf binds one JSON field to a member of T.
type FieldOf[T any] struct {
	name   string
	decode func(raw any, dst *T) error
}

// Bind declares a field decoded by d and stored into the result through set.
func Bind[T, V any](name string, d Decoder[V], set func(*T, V)) FieldOf[T] {
	return FieldOf[T]{
		name: name,
		decode: func(raw any, dst *T) error {
			v, err := d.Decode(raw)
			if err != nil {
				return err
			}
			set(dst, v)
			return nil
		},
	}
}

// TypedObject decodes JSON objects into T. Fields outside the active
// projection keep their zero value.
type TypedObject[T any] struct {
	names  []string
	fields map[string]FieldOf[T]
	proj   Projection
}

// ObjectOf builds a typed object schema from field bindings.
func ObjectOf[T any](fields ...FieldOf[T]) *TypedObject[T] {
	s := &TypedObject[T]{fields: make(map[string]FieldOf[T], len(fields))}
	for _, f := range fields {
		if _, dup := s.fields[f.name]; !dup {
			s.names = append(s.names, f.name)
		}
		s.fields[f.name] = f
	}
	return s
}

// Fields lists the schema keys in declaration order.
func (s *TypedObject[T]) Fields() []string { return slices.Clone(s.names) }

// Selected lists the keys the active projection decodes.
func (s *TypedObject[T]) Selected() []string { return s.proj.Select(s.names) }

// Project returns a copy of s restricted by includes and excludes.
func (s *TypedObject[T]) Project(includes, excludes []string) *TypedObject[T] {
	cp := *s
	cp.proj = Projection{Includes: includes, Excludes: excludes}
	return &cp
}

// WithProjection is Project taking a Projection value.
func (s *TypedObject[T]) WithProjection(p Projection) *TypedObject[T] {
	return s.Project(p.Includes, p.Excludes)
}

func (s *TypedObject[T]) Decode(v any) (T, error) {
	var out T
	err := decodeFields(v, s.Selected(), func(name string, raw any) error {
		return s.fields[name].decode(raw, &out)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (s *TypedObject[T]) Expect() string { return "an object" }

// decodeFields walks the selected keys of a JSON object. Keys absent from the
// input are handed to fn as Undefined; a failure on such a key is reported as
// a missing field.
func decodeFields(v any, selected []string, fn func(name string, raw any) error) error {
	m, ok := v.(map[string]any)
	if !ok {
		return mismatch(CodeInvalidType, "an object", v)
	}
	for _, name := range selected {
		raw, present := m[name]
		if !present {
			raw = Undefined
		}
		if err := fn(name, raw); err != nil {
			if !present {
				return missing(name, err)
			}
			return rebase(err, name)
		}
	}
	return nil
}
