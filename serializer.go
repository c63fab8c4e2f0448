package xdata

import (
	"fmt"
	"reflect"
)

// metaClassNameKey is the reserved record key carrying a converter's
// TypeName when the record is the marshalled form of a domain value.
const metaClassNameKey = "_meta_classname"

type sframeKind uint8

const (
	sframeRecord sframeKind = iota
	sframeList
)

// sframe holds one level of the write-side stack: a record
// frame writes its header (and captures its stream offset) the instant it
// is first visited, then walks its entries one at a time; a list frame is
// the same without offset tracking or converter lookups.
type sframe struct {
	kind sframeKind

	headerWritten bool
	isRoot        bool

	// record frame
	rec         *Record
	recIdx      int
	offset      int64
	ownerKey    uintptr
	hasOwnerKey bool

	// list frame
	list    []any
	listIdx int
}

type serializer struct {
	bb            *bytesBuilder
	reg           *Registry
	ignoreMissing bool
	listener      Listener
	identity      map[uintptr]int64
	stack         []sframe
}

func serializeRoot(bb *bytesBuilder, root *Record, reg *Registry, ignoreMissing bool, listener Listener) error {
	if listener == nil {
		listener = defaultListener
	}
	s := &serializer{
		bb:            bb,
		reg:           reg,
		ignoreMissing: ignoreMissing,
		listener:      listener,
		identity:      make(map[uintptr]int64),
	}

	key, hasKey := identityKey(root)
	s.stack = append(s.stack, sframe{kind: sframeRecord, rec: root, ownerKey: key, hasOwnerKey: hasKey, isRoot: true})

	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		if !top.headerWritten {
			s.writeHeader(top)
		}

		if top.kind == sframeRecord {
			if top.recIdx < len(top.rec.entries) {
				e := top.rec.entries[top.recIdx]
				top.recIdx++
				if err := writeKeyString(s.bb, e.key); err != nil {
					return err
				}
				if err := s.dispatch(e.val); err != nil {
					return err
				}
				if top.isRoot {
					s.listener.OnProgress(top.recIdx, len(top.rec.entries))
				}
				continue
			}
		} else {
			if top.listIdx < len(top.list) {
				v := top.list[top.listIdx]
				top.listIdx++
				if err := s.dispatch(v); err != nil {
					return err
				}
				continue
			}
		}

		// frame exhausted: pop and, for records, remember where it was written
		s.stack = s.stack[:len(s.stack)-1]
		if top.kind == sframeRecord && top.hasOwnerKey {
			s.identity[top.ownerKey] = top.offset
		}
	}
	return nil
}

func (s *serializer) writeHeader(f *sframe) {
	f.headerWritten = true
	if f.kind == sframeRecord {
		f.offset = int64(len(s.bb.Buf))
		s.bb.AppendByte(byte(tagValueRecord))
		s.bb.AppendInt32(int32(len(f.rec.entries)))
	} else {
		s.bb.AppendByte(byte(tagValueList))
		s.bb.AppendInt32(int32(len(f.list)))
	}
}

// dispatch writes a single element value: inline for null/primitive/reference, or pushes a
// new frame for a list or a record/domain value.
func (s *serializer) dispatch(v any) error {
	if v == nil {
		s.bb.AppendByte(byte(tagValueNull))
		return nil
	}
	if list, ok := v.([]any); ok {
		s.stack = append(s.stack, sframe{kind: sframeList, list: list})
		return nil
	}
	if isPrimitiveValue(v) {
		s.bb.AppendByte(byte(tagValuePrimitive))
		return writePrimitive(s.bb, v)
	}

	key, hasKey := identityKey(v)
	if hasKey {
		if off, ok := s.identity[key]; ok {
			s.bb.AppendByte(byte(tagValueReference))
			s.bb.AppendInt64(off)
			return nil
		}
	}

	rec, ok := v.(*Record)
	if !ok {
		conv, found := s.reg.converterForType(reflect.TypeOf(v))
		if !found {
			if s.ignoreMissing {
				s.bb.AppendByte(byte(tagValueNull))
				return nil
			}
			return fmt.Errorf("%w: for type %T", ErrNoConverter, v)
		}
		marshalled, err := conv.toRecord(v)
		if err != nil {
			return err
		}
		marshalled.setRaw(metaClassNameKey, conv.TypeName())
		rec = marshalled
	}

	s.stack = append(s.stack, sframe{kind: sframeRecord, rec: rec, ownerKey: key, hasOwnerKey: hasKey})
	return nil
}

func isPrimitiveValue(v any) bool {
	switch v.(type) {
	case bool, byte, Char, int16, int32, int64, float32, float64, string:
		return true
	default:
		return false
	}
}

func writeKeyString(bb *bytesBuilder, s string) error {
	enc, err := encodeModifiedUTF8(s)
	if err != nil {
		return err
	}
	bb.AppendUint16(uint16(len(enc)))
	bb.Buf = appendRaw(bb.Buf, enc)
	return nil
}
