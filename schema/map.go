package schema

import (
	"fmt"
	"maps"
	"slices"
)

// Map decodes a JSON object into a Go map, decoding each key with key and
// each value with val. Keys are visited in sorted order so the reported
// failure is deterministic.
func Map[K comparable, V any](key Decoder[K], val Decoder[V]) Decoder[map[K]V] {
	return mapDecoder[K, V]{key: key, val: val}
}

type mapDecoder[K comparable, V any] struct {
	key Decoder[K]
	val Decoder[V]
}

func (m mapDecoder[K, V]) Decode(v any) (map[K]V, error) {
	src, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(CodeInvalidType, "an object", v)
	}
	out := make(map[K]V, len(src))
	for _, k := range slices.Sorted(maps.Keys(src)) {
		kv, err := m.key.Decode(k)
		if err != nil {
			if iss, ok := AsIssues(err); ok && len(iss) > 0 {
				iss[0].Message = fmt.Sprintf("invalid key: %s", iss[0].Message)
			}
			return nil, rebase(err, k)
		}
		vv, err := m.val.Decode(src[k])
		if err != nil {
			return nil, rebase(err, k)
		}
		out[kv] = vv
	}
	return out, nil
}

func (m mapDecoder[K, V]) Expect() string { return "an object" }
