// Package schema reconstructs typed values from untyped JSON trees.
//
// Overview
//   - Decoder[T]: a single-method capability `Decode(any) (T, error)` plus an
//     Expect() description used in error messages.
//   - Primitives: String()/Bool()/Int()/Double()/IntString()/Datetime()/Base64().
//     No coercion: a numeric string is not an Int().
//   - Wrappers: Nullable/NullableOr pass null, Optional/OptionalOr pass an
//     absent value (Undefined). Everything else is delegated.
//   - Containers: Array(elem), MaybeArray(elem), Map(key, val).
//   - Objects: Object(Prop(...)...) decodes into map[string]any,
//     ObjectOf[T](Bind(...)...) decodes into a struct. Both support
//     Project(includes, excludes) to decode only a subset of fields.
//   - Either(first, second): ordered fallback between two decoders.
//
// Error model
//
// Failures are Issues (JSON Pointer path, code, message) and decoding stops at
// the first one. Messages quote the received value:
//
//	invalid_type at /assigned_to_detail/id: expected an integer but received `"7"`
//
// Example
//
//	type User struct {
//	    ID   int
//	    Name string
//	}
//
//	var userSchema = schema.ObjectOf[User](
//	    schema.Bind("id", schema.Int(), func(u *User, v int) { u.ID = v }),
//	    schema.Bind("name", schema.String(), func(u *User, v string) { u.Name = v }),
//	)
//
//	u, err := userSchema.Decode(raw)
//	ids, err := userSchema.Project([]string{"id"}, nil).Decode(raw)
//
// Decoders hold no mutable state and may be shared between goroutines.
package schema
