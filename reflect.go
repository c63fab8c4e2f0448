package xdata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// structField describes one exported field of a struct marshalled by a
// StructConverter: its index (only the struct's own top-level fields are
// listed; fields of an embedded struct are not flattened), the record key
// it is stored under, and whether a zero value is omitted on marshal.
type structField struct {
	index     []int
	name      string
	omitempty bool
}

type structInfo struct {
	fields []structField
}

var structInfoCache sync.Map

// structInfoFor walks typ's exported fields once per type and caches the
// result, the same way a per-type cache avoids repeated reflection work
// on a hot path.
func structInfoFor(typ reflect.Type) (*structInfo, error) {
	if v, ok := structInfoCache.Load(typ); ok {
		return v.(*structInfo), nil
	}
	info, err := buildStructInfo(typ)
	if err != nil {
		return nil, err
	}
	actual, _ := structInfoCache.LoadOrStore(typ, info)
	return actual.(*structInfo), nil
}

func buildStructInfo(typ reflect.Type) (*structInfo, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("xdata: %v is not a struct", typ)
	}

	info := &structInfo{}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		omitempty := false
		if tag, ok := f.Tag.Lookup("xdata"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, p := range parts[1:] {
				if p == "omitempty" {
					omitempty = true
				}
			}
		}

		info.fields = append(info.fields, structField{index: f.Index, name: name, omitempty: omitempty})
	}
	return info, nil
}
