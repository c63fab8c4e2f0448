package xdata

import (
	"fmt"
	"reflect"
	"strings"
)

// Record is an ordered, string-keyed map of values, mirroring the
// insertion-order iteration guarantee of Java's LinkedHashMap: Keys and the
// wire encoder both walk entries in the order they were first set.
//
// A slot holds one of: nil, a primitive Go value (bool, byte, Char, int16,
// int32, int64, float32, float64, string), a domain value backed by a
// registered Converter, a nested *Record, or a []any list of any of the
// above.
type Record struct {
	entries []recordEntry
	index   map[string]int
	reg     *Registry
}

type recordEntry struct {
	key string
	val any
}

// NewRecord returns an empty record that uses the default converter
// registry for any lazy domain-value reconstruction on Get.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

func (r *Record) reset() {
	r.entries = r.entries[:0]
	for k := range r.index {
		delete(r.index, k)
	}
	r.reg = nil
}

func (r *Record) registryOrDefault() *Registry {
	if r.reg != nil {
		return r.reg
	}
	return DefaultRegistry
}

func (r *Record) setRaw(key string, val any) {
	if i, ok := r.index[key]; ok {
		r.entries[i].val = val
		return
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, recordEntry{key: key, val: val})
}

func (r *Record) getRaw(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.entries[i].val, true
}

// Keys returns the record's keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.key
	}
	return out
}

// Len returns the number of entries in the record.
func (r *Record) Len() int { return len(r.entries) }

// Has reports whether name has an entry, including an explicit null one.
func (r *Record) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Get reads the scalar stored under key. A value stored as a sub-record
// (because it was written through a Converter) is lazily reconstructed
// through the record's registry.
func Get[T any](rec *Record, key *ScalarKey[T]) (T, error) {
	var zero T
	raw, ok := rec.getRaw(key.Name())
	if !ok || raw == nil {
		if ok && raw == nil {
			if !key.allowNull() {
				return zero, fmt.Errorf("%w: %q", ErrNullNotAllowed, key.Name())
			}
			if key.hasDef {
				return key.def, nil
			}
			return zero, nil
		}
		if key.hasDef {
			return key.def, nil
		}
		if key.allowNull() {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: %q", ErrMissingKey, key.Name())
	}
	if v, ok := raw.(T); ok {
		return v, nil
	}
	if sub, ok := raw.(*Record); ok {
		v, err := convertFromRecord(rec.registryOrDefault(), reflect.TypeOf(zero), sub)
		if err != nil {
			return zero, err
		}
		tv, ok := v.(T)
		if !ok {
			return zero, fmt.Errorf("%w: converter produced %T for key %q, wanted %T", ErrTypeMismatch, v, key.Name(), zero)
		}
		return tv, nil
	}
	return zero, fmt.Errorf("%w: key %q holds %T, wanted %T", ErrTypeMismatch, key.Name(), raw, zero)
}

// GetMandatory reads the scalar stored under key, failing ErrMissingKey if
// the slot is absent even when key carries a default value.
func GetMandatory[T any](rec *Record, key *ScalarKey[T]) (T, error) {
	var zero T
	if !rec.Has(key.Name()) {
		return zero, fmt.Errorf("%w: %q", ErrMissingKey, key.Name())
	}
	return Get(rec, key)
}

// Set stores v under key. Passing a nil pointer, interface, map, or slice
// for a key that does not allow null panics, mirroring SetNull's contract
// check.
func Set[T any](rec *Record, key *ScalarKey[T], v T) {
	if !key.allowNull() && isNilValue(v) {
		panic(fmt.Sprintf("xdata: key %q does not allow null", key.Name()))
	}
	rec.setRaw(key.Name(), v)
}

func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// SetNull stores an explicit null under key, which must allow null values.
func SetNull(rec *Record, key Key) {
	if !key.allowNull() {
		panic(fmt.Sprintf("xdata: key %q does not allow null", key.Name()))
	}
	rec.setRaw(key.Name(), nil)
}

// Copy returns a shallow clone: a new record with new list instances at
// every nesting level, while nested records and leaf values stay shared
// by reference.
func (r *Record) Copy() *Record {
	out := NewRecord()
	out.reg = r.reg
	for _, e := range r.entries {
		out.setRaw(e.key, copyValue(e.val))
	}
	return out
}

func copyValue(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(list))
	for i, it := range list {
		out[i] = copyValue(it)
	}
	return out
}

// Equal reports whether r and o hold the same key/value mapping,
// comparing nested records and lists by content. Insertion order does not
// participate, mirroring map equality semantics.
func (r *Record) Equal(o *Record) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil || len(r.entries) != len(o.entries) {
		return false
	}
	for _, e := range r.entries {
		ov, ok := o.getRaw(e.key)
		if !ok || !valueEqual(e.val, ov) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// String renders the record as a fixed-indent tree, one entry per line.
// The output is meant for debugging and golden tests; it is not part of
// the wire format.
func (r *Record) String() string {
	var sb strings.Builder
	r.writeTree(&sb, 0)
	return sb.String()
}

func (r *Record) writeTree(sb *strings.Builder, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, e := range r.entries {
		sb.WriteString(indent)
		sb.WriteString(e.key)
		sb.WriteString(" = ")
		writeTreeValue(sb, e.val, depth)
	}
}

func writeTreeValue(sb *strings.Builder, v any, depth int) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("<null>\n")
	case *Record:
		sb.WriteString("record:\n")
		x.writeTree(sb, depth+1)
	case []any:
		fmt.Fprintf(sb, "list(%d):\n", len(x))
		indent := strings.Repeat("    ", depth+1)
		for _, it := range x {
			sb.WriteString(indent)
			sb.WriteString("- ")
			writeTreeValue(sb, it, depth+1)
		}
	case string:
		fmt.Fprintf(sb, "%q\n", x)
	default:
		fmt.Fprintf(sb, "%v\n", x)
	}
}

// GetList reads the list stored under key, reconstructing any
// converter-backed elements through the record's registry. T may itself be
// a slice type (list-of-lists), in which case nested []any payloads are
// rebuilt recursively.
func GetList[T any](rec *Record, key *ListKey[T]) ([]T, error) {
	raw, ok := rec.getRaw(key.Name())
	if !ok || raw == nil {
		// An absent non-nullable list reads as empty; absence only fails
		// through GetMandatoryList, which checks presence itself.
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: key %q holds %T, wanted a list", ErrTypeMismatch, key.Name(), raw)
	}
	reg := rec.registryOrDefault()
	elemType := reflect.TypeFor[T]()
	out := make([]T, len(items))
	for i, it := range items {
		ev, err := decodeListElement(reg, elemType, it)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q[%d]", err, key.Name(), i)
		}
		if ev.IsValid() {
			out[i] = ev.Interface().(T)
		}
	}
	return out, nil
}

// decodeListElement rebuilds one list element of the requested target
// type from its decoded wire form: a nested []any becomes a nested slice,
// a *Record passes through its converter, and anything already assignable
// is used as-is.
func decodeListElement(reg *Registry, target reflect.Type, raw any) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(target), nil
	}
	if target.Kind() == reflect.Slice {
		items, ok := raw.([]any)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: holds %T, wanted a nested list", ErrTypeMismatch, raw)
		}
		elemType := target.Elem()
		out := reflect.MakeSlice(target, len(items), len(items))
		for i, it := range items {
			ev, err := decodeListElement(reg, elemType, it)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if sub, ok := raw.(*Record); ok {
		v, err := convertFromRecord(reg, target, sub)
		if err != nil {
			return reflect.Value{}, err
		}
		rv2 := reflect.ValueOf(v)
		if !rv2.Type().AssignableTo(target) {
			return reflect.Value{}, fmt.Errorf("%w: converter produced %T, wanted %v", ErrTypeMismatch, v, target)
		}
		return rv2, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: holds %T, wanted %v", ErrTypeMismatch, raw, target)
}

// GetMandatoryList reads the list stored under key, failing ErrMissingKey
// if the slot is absent, mirroring GetMandatory's scalar behavior.
func GetMandatoryList[T any](rec *Record, key *ListKey[T]) ([]T, error) {
	if !rec.Has(key.Name()) {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, key.Name())
	}
	return GetList(rec, key)
}

// SetList stores items under key. A nil slice stores an explicit null and
// requires a nullable key, like SetNull. If T is itself a slice type
// (list-of-lists), each element is deep-copied into the internal []any
// representation the serializer recognizes as a nested list; records and
// leaf values are still shared by reference.
func SetList[T any](rec *Record, key *ListKey[T], items []T) {
	if items == nil {
		if !key.allowNull() {
			panic(fmt.Sprintf("xdata: key %q does not allow null", key.Name()))
		}
		rec.setRaw(key.Name(), nil)
		return
	}
	raw := make([]any, len(items))
	for i, it := range items {
		raw[i] = toInternalValue(it)
	}
	rec.setRaw(key.Name(), raw)
}

func toInternalValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return v
	}
	n := rv.Len()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = toInternalValue(rv.Index(i).Interface())
	}
	return out
}

func convertFromRecord(reg *Registry, t reflect.Type, sub *Record) (any, error) {
	conv, ok := reg.converterForType(t)
	if !ok {
		return nil, fmt.Errorf("%w: for type %v", ErrNoConverter, t)
	}
	return conv.fromRecord(sub)
}
