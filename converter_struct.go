package xdata

import (
	"fmt"
	"reflect"
)

// StructConverter builds a reflection-driven Converter for *T, walking T's
// exported fields the way a tag-driven marshaller walks annotated fields.
// A field's record key defaults to its Go name; an
// `xdata:"name"` tag overrides it, `xdata:"-"` skips the field entirely,
// and `xdata:",omitempty"` skips zero values on marshal. Field values must
// already be primitives, []any lists, or other registered domain types
// (a typed slice such as []string is not written as a list) — there
// is no further marshalling recursion beyond what Store/Load already do.
func StructConverter[T any](typeName string) Converter {
	return NewConverter[*T](typeName,
		func(v *T) (*Record, error) {
			rv := reflect.ValueOf(v)
			if rv.IsNil() {
				return nil, fmt.Errorf("xdata: StructConverter(%q) got a nil *%T", typeName, *new(T))
			}
			elem := rv.Elem()
			info, err := structInfoFor(elem.Type())
			if err != nil {
				return nil, err
			}
			rec := NewRecord()
			for _, f := range info.fields {
				fv := elem.FieldByIndex(f.index)
				if f.omitempty && fv.IsZero() {
					continue
				}
				rec.setRaw(f.name, fv.Interface())
			}
			return rec, nil
		},
		func(rec *Record) (*T, error) {
			out := new(T)
			elem := reflect.ValueOf(out).Elem()
			info, err := structInfoFor(elem.Type())
			if err != nil {
				return nil, err
			}
			for _, f := range info.fields {
				raw, ok := rec.getRaw(f.name)
				if !ok || raw == nil {
					continue
				}
				fv := elem.FieldByIndex(f.index)
				rawVal := reflect.ValueOf(raw)
				if !rawVal.Type().AssignableTo(fv.Type()) {
					return nil, fmt.Errorf("%w: field %q holds %T, wanted %v", ErrTypeMismatch, f.name, raw, fv.Type())
				}
				fv.Set(rawVal)
			}
			return out, nil
		},
	)
}
