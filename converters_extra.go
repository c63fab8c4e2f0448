package xdata

import "fmt"

// MapConverter builds a Converter for map[K]V, storing parallel "keys" and
// "values" lists. K and V may
// themselves be primitives or any registered domain type; nested
// conversion and structural sharing are handled the same way as for any
// other list element.
func MapConverter[K comparable, V any](typeName string) Converter {
	return NewConverter[map[K]V](typeName,
		func(m map[K]V) (*Record, error) {
			rec := NewRecord()
			keys := make([]any, 0, len(m))
			values := make([]any, 0, len(m))
			for k, v := range m {
				keys = append(keys, any(k))
				values = append(values, any(v))
			}
			rec.setRaw("keys", keys)
			rec.setRaw("values", values)
			return rec, nil
		},
		func(rec *Record) (map[K]V, error) {
			keys, err := rawList(rec, "keys")
			if err != nil {
				return nil, err
			}
			values, err := rawList(rec, "values")
			if err != nil {
				return nil, err
			}
			if len(keys) != len(values) {
				return nil, fmt.Errorf("%w: map converter key/value count mismatch (%d vs %d)", ErrTypeMismatch, len(keys), len(values))
			}
			out := make(map[K]V, len(keys))
			for i := range keys {
				k, ok := keys[i].(K)
				if !ok {
					return nil, fmt.Errorf("%w: map key %v is %T, wanted a different type", ErrTypeMismatch, keys[i], keys[i])
				}
				v, ok := values[i].(V)
				if !ok {
					return nil, fmt.Errorf("%w: map value %v is %T, wanted a different type", ErrTypeMismatch, values[i], values[i])
				}
				out[k] = v
			}
			return out, nil
		},
	)
}

// SetConverter builds a Converter for a set represented as map[T]struct{},
// storing a single "items" list.
func SetConverter[T comparable](typeName string) Converter {
	return NewConverter[map[T]struct{}](typeName,
		func(s map[T]struct{}) (*Record, error) {
			rec := NewRecord()
			items := make([]any, 0, len(s))
			for v := range s {
				items = append(items, any(v))
			}
			rec.setRaw("items", items)
			return rec, nil
		},
		func(rec *Record) (map[T]struct{}, error) {
			items, err := rawList(rec, "items")
			if err != nil {
				return nil, err
			}
			out := make(map[T]struct{}, len(items))
			for _, it := range items {
				v, ok := it.(T)
				if !ok {
					return nil, fmt.Errorf("%w: set item %v is %T, wanted a different type", ErrTypeMismatch, it, it)
				}
				out[v] = struct{}{}
			}
			return out, nil
		},
	)
}

// EnumNames is the symbolic name table an EnumConverter uses to translate
// between a named integer type and its stable wire representation.
type EnumNames[T comparable] struct {
	ToName   func(T) (string, bool)
	FromName func(string) (T, bool)
}

// EnumConverter builds a Converter for a named integer type T, storing the
// symbolic name from names under the key "name".
func EnumConverter[T comparable](typeName string, names EnumNames[T]) Converter {
	nameKey := NewScalarKey[string]("name")
	return NewConverter[T](typeName,
		func(v T) (*Record, error) {
			name, ok := names.ToName(v)
			if !ok {
				return nil, fmt.Errorf("%w: no name registered for enum value %v", ErrNoConverter, v)
			}
			rec := NewRecord()
			Set(rec, nameKey, name)
			return rec, nil
		},
		func(rec *Record) (T, error) {
			var zero T
			name, err := Get(rec, nameKey)
			if err != nil {
				return zero, err
			}
			v, ok := names.FromName(name)
			if !ok {
				return zero, fmt.Errorf("%w: unknown enum name %q", ErrTypeMismatch, name)
			}
			return v, nil
		},
	)
}

func rawList(rec *Record, key string) ([]any, error) {
	raw, ok := rec.getRaw(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: key %q holds %T, wanted a list", ErrTypeMismatch, key, raw)
	}
	return items, nil
}
