package xdata

import (
	"bytes"
	"fmt"
)

var magicBytes = []byte{'x', 'd', 'a', 't', 'a'}

type dframeKind uint8

const (
	dframeRecord dframeKind = iota
	dframeList
)

// dframe is the counterpart of sframe on the read side: a record
// frame reads a key then decodes its value, waiting on a pending child
// frame if the value turned out to be a list or record; a list frame
// decodes straight into an ordered slice.
type dframe struct {
	kind   dframeKind
	offset int64
	size   int
	idx    int
	isRoot bool

	rec           *Record
	pendingKey    string
	awaitingChild bool

	list []any
}

type deserializer struct {
	d             *byteDecoder
	reg           *Registry
	ignoreMissing bool
	listener      Listener
	offsets       map[int64]any
	stack         []dframe
}

func deserializeRoot(d *byteDecoder, reg *Registry, ignoreMissing bool, listener Listener) (*Record, error) {
	if listener == nil {
		listener = defaultListener
	}
	magic, err := d.Raw(len(magicBytes))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, codecErrf(0, d.Orig, ErrBadMagic, "")
	}

	ds := &deserializer{d: d, reg: reg, ignoreMissing: ignoreMissing, listener: listener, offsets: make(map[int64]any)}

	_, pushed, err := ds.decodeElement()
	if err != nil {
		return nil, err
	}
	if !pushed {
		return nil, codecErrf(d.Off(), d.Orig, ErrBadRoot, "root value is not a record")
	}
	ds.stack[0].isRoot = true

	for len(ds.stack) > 0 {
		top := &ds.stack[len(ds.stack)-1]
		if top.idx < top.size {
			if err := ds.step(top); err != nil {
				return nil, err
			}
			continue
		}

		val, err := ds.finalize(top)
		if err != nil {
			return nil, err
		}
		ds.stack = ds.stack[:len(ds.stack)-1]
		if len(ds.stack) == 0 {
			root, ok := val.(*Record)
			if !ok {
				return nil, codecErrf(d.Off(), d.Orig, ErrBadRoot, "root value is not a record")
			}
			return root, nil
		}
		parent := &ds.stack[len(ds.stack)-1]
		ds.deliver(parent, val)
		if parent.isRoot {
			ds.listener.OnProgress(parent.idx, parent.size)
		}
	}
	return nil, codecErrf(d.Off(), d.Orig, ErrTruncatedStream, "stack emptied before root was resolved")
}

func (ds *deserializer) step(top *dframe) error {
	if top.kind == dframeList {
		v, pushed, err := ds.decodeElement()
		if err != nil {
			return err
		}
		if pushed {
			return nil
		}
		top.list = append(top.list, v)
		top.idx++
		return nil
	}

	key, err := readKeyString(ds.d)
	if err != nil {
		return err
	}
	top.pendingKey = key
	v, pushed, err := ds.decodeElement()
	if err != nil {
		return err
	}
	if pushed {
		top.awaitingChild = true
		return nil
	}
	top.rec.setRaw(key, v)
	top.idx++
	if top.isRoot {
		ds.listener.OnProgress(top.idx, top.size)
	}
	return nil
}

func (ds *deserializer) deliver(parent *dframe, val any) {
	switch parent.kind {
	case dframeList:
		parent.list = append(parent.list, val)
		parent.idx++
	case dframeRecord:
		parent.rec.setRaw(parent.pendingKey, val)
		parent.idx++
		parent.awaitingChild = false
	}
}

// decodeElement reads one tagged value. pushed reports whether a new frame
// was appended to the stack (for LIST/RECORD); in that case the returned
// value is meaningless and the caller must wait for the frame to finalize.
func (ds *deserializer) decodeElement() (any, bool, error) {
	off := ds.d.Off()
	tb, err := ds.d.Byte()
	if err != nil {
		return nil, false, err
	}
	switch valueTag(tb) {
	case tagValueNull:
		return nil, false, nil
	case tagValuePrimitive:
		v, err := readPrimitive(ds.d)
		return v, false, err
	case tagValueList:
		n, err := ds.d.Int32()
		if err != nil {
			return nil, false, err
		}
		if n < 0 {
			return nil, false, codecErrf(off, ds.d.Orig, ErrUnknownValueTag, "negative list length %d", n)
		}
		ds.stack = append(ds.stack, dframe{kind: dframeList, offset: off, size: int(n), list: make([]any, 0, n)})
		return nil, true, nil
	case tagValueRecord:
		n, err := ds.d.Int32()
		if err != nil {
			return nil, false, err
		}
		if n < 0 {
			return nil, false, codecErrf(off, ds.d.Orig, ErrUnknownValueTag, "negative record entry count %d", n)
		}
		rec := acquireRecord()
		rec.reg = ds.reg
		ds.stack = append(ds.stack, dframe{kind: dframeRecord, offset: off, size: int(n), rec: rec})
		return nil, true, nil
	case tagValueReference:
		refOff, err := ds.d.Int64()
		if err != nil {
			return nil, false, err
		}
		if refOff < 0 {
			return nil, false, codecErrf(off, ds.d.Orig, ErrDanglingReference, "negative reference offset %d", refOff)
		}
		v, ok := ds.offsets[refOff]
		if !ok {
			return nil, false, codecErrf(off, ds.d.Orig, ErrDanglingReference, "reference to offset %d", refOff)
		}
		return v, false, nil
	default:
		return nil, false, codecErrf(off, ds.d.Orig, ErrUnknownValueTag, "value tag 0x%02x", tb)
	}
}

func (ds *deserializer) finalize(top *dframe) (any, error) {
	if top.kind == dframeList {
		list := top.list
		if list == nil {
			list = []any{}
		}
		return list, nil
	}

	rec := top.rec
	if raw, ok := rec.getRaw(metaClassNameKey); ok {
		typeName, _ := raw.(string)
		conv, found := ds.reg.converterForName(typeName)
		if !found {
			if ds.ignoreMissing {
				ds.offsets[top.offset] = rec
				return rec, nil
			}
			return nil, fmt.Errorf("%w: type name %q", ErrNoConverter, typeName)
		}
		v, err := conv.fromRecord(rec)
		if err != nil {
			return nil, err
		}
		releaseRecord(rec)
		ds.offsets[top.offset] = v
		return v, nil
	}

	ds.offsets[top.offset] = rec
	return rec, nil
}

func readKeyString(d *byteDecoder) (string, error) {
	n, err := d.Uint16()
	if err != nil {
		return "", err
	}
	raw, err := d.Raw(int(n))
	if err != nil {
		return "", err
	}
	return decodeModifiedUTF8(raw)
}
