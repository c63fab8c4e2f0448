package xdata

import "reflect"

// identityKey returns a stable key for v's reference identity, the way the
// original relies on Java object identity (==) to detect already-written
// values. Only reference-kinded values (pointers, maps, slices, channels)
// carry an identity; plain scalars and structs passed by value never do,
// so two equal-but-distinct value-type domain values are always written
// twice, matching the source's semantics.
func identityKey(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}
