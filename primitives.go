package xdata

import (
	"errors"
	"fmt"
	"unicode/utf16"
)

// primitiveTag identifies the payload that follows a PRIMITIVE value tag.
// These values are part of the wire format and must never be renumbered.
type primitiveTag uint8

const (
	tagBool   primitiveTag = 0x00
	tagByte   primitiveTag = 0x01
	tagChar   primitiveTag = 0x02
	tagShort  primitiveTag = 0x03
	tagInt    primitiveTag = 0x04
	tagLong   primitiveTag = 0x05
	tagFloat  primitiveTag = 0x06
	tagDouble primitiveTag = 0x07
	tagString primitiveTag = 0x08
)

// Char represents the Java `char` primitive: a 16-bit UTF-16 code unit, not
// a full Unicode code point. Values outside the BMP must be split into a
// surrogate pair before being stored as two Chars, exactly as javac does.
type Char uint16

// valueTag identifies the shape of a node in the container tree.
type valueTag uint8

const (
	tagValueNull      valueTag = 0x00
	tagValuePrimitive valueTag = 0x01
	tagValueList      valueTag = 0x02
	tagValueRecord    valueTag = 0x03
	tagValueReference valueTag = 0x04
)

func writePrimitive(bb *bytesBuilder, v any) error {
	switch x := v.(type) {
	case bool:
		bb.AppendByte(byte(tagBool))
		bb.AppendBool(x)
	case byte:
		bb.AppendByte(byte(tagByte))
		bb.AppendByte(x)
	case Char:
		bb.AppendByte(byte(tagChar))
		bb.AppendUint16(uint16(x))
	case int16:
		bb.AppendByte(byte(tagShort))
		bb.AppendUint16(uint16(x))
	case int32:
		bb.AppendByte(byte(tagInt))
		bb.AppendInt32(x)
	case int64:
		bb.AppendByte(byte(tagLong))
		bb.AppendInt64(x)
	case float32:
		bb.AppendByte(byte(tagFloat))
		bb.AppendFloat32(x)
	case float64:
		bb.AppendByte(byte(tagDouble))
		bb.AppendFloat64(x)
	case string:
		enc, err := encodeModifiedUTF8(x)
		if err != nil {
			return err
		}
		bb.AppendByte(byte(tagString))
		bb.AppendUint16(uint16(len(enc)))
		bb.Buf = appendRaw(bb.Buf, enc)
	default:
		return fmt.Errorf("xdata: %T is not a primitive type", v)
	}
	return nil
}

func readPrimitive(d *byteDecoder) (any, error) {
	tb, err := d.Byte()
	if err != nil {
		return nil, err
	}
	switch primitiveTag(tb) {
	case tagBool:
		return d.Bool()
	case tagByte:
		return d.Byte()
	case tagChar:
		v, err := d.Uint16()
		return Char(v), err
	case tagShort:
		v, err := d.Uint16()
		return int16(v), err
	case tagInt:
		return d.Int32()
	case tagLong:
		return d.Int64()
	case tagFloat:
		return d.Float32()
	case tagDouble:
		return d.Float64()
	case tagString:
		n, err := d.Uint16()
		if err != nil {
			return nil, err
		}
		raw, err := d.Raw(int(n))
		if err != nil {
			return nil, err
		}
		return decodeModifiedUTF8(raw)
	default:
		return nil, codecErrf(d.Off(), d.Orig, ErrUnknownPrimitiveTag, "primitive tag 0x%02x", tb)
	}
}

// encodeModifiedUTF8 implements the same algorithm as Java's
// DataOutput.writeUTF: strings are walked as UTF-16 code units (not runes),
// each unit 1/2/3-byte-shortest-form encoded, with U+0000 forced into the
// 2-byte form so no byte in the stream is ever a raw zero.
func encodeModifiedUTF8(s string) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units))
	for _, c := range units {
		switch {
		case c == 0:
			out = append(out, 0xC0, 0x80)
		case c <= 0x7F:
			out = append(out, byte(c))
		case c <= 0x7FF:
			out = append(out, byte(0xC0|(c>>6)), byte(0x80|(c&0x3F)))
		default:
			out = append(out, byte(0xE0|(c>>12)), byte(0x80|((c>>6)&0x3F)), byte(0x80|(c&0x3F)))
		}
	}
	if len(out) > 65535 {
		return nil, fmt.Errorf("xdata: encoded string too long (%d bytes, max 65535)", len(out))
	}
	return out, nil
}

func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) {
				return "", errors.New("xdata: truncated 2-byte modified-UTF-8 sequence")
			}
			c2 := b[i+1]
			if c2&0xC0 != 0x80 {
				return "", errors.New("xdata: invalid modified-UTF-8 continuation byte")
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(c2&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) {
				return "", errors.New("xdata: truncated 3-byte modified-UTF-8 sequence")
			}
			c2, c3 := b[i+1], b[i+2]
			if c2&0xC0 != 0x80 || c3&0xC0 != 0x80 {
				return "", errors.New("xdata: invalid modified-UTF-8 continuation byte")
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(c2&0x3F)<<6|uint16(c3&0x3F))
			i += 3
		default:
			return "", errors.New("xdata: invalid modified-UTF-8 leading byte")
		}
	}
	return string(utf16.Decode(units)), nil
}
