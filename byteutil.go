package xdata

import (
	"encoding/binary"
	"io"
	"math"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

// bytesBuilder accumulates a byte stream the way the wire format wants it:
// fixed-width big-endian integers, no varints anywhere.
type bytesBuilder struct {
	Buf []byte
}

var _ io.Writer = (*bytesBuilder)(nil)

func (bb *bytesBuilder) EnsureExtra(n int) {
	bb.Buf = ensureCapacity(bb.Buf, len(bb.Buf)+n)
}

func (bb *bytesBuilder) Grow(n int) (off int) {
	off, bb.Buf = grow(bb.Buf, n)
	return
}

func (bb *bytesBuilder) Trim(off int) {
	bb.Buf = bb.Buf[:off]
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = appendRaw(bb.Buf, b)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	off := bb.Grow(1)
	bb.Buf[off] = v
	return nil
}

func (bb *bytesBuilder) AppendByte(v byte) {
	off := bb.Grow(1)
	bb.Buf[off] = v
}

func (bb *bytesBuilder) AppendBool(v bool) {
	if v {
		bb.AppendByte(1)
	} else {
		bb.AppendByte(0)
	}
}

func (bb *bytesBuilder) AppendUint16(v uint16) {
	off := bb.Grow(2)
	binary.BigEndian.PutUint16(bb.Buf[off:], v)
}

func (bb *bytesBuilder) AppendInt32(v int32) {
	off := bb.Grow(4)
	binary.BigEndian.PutUint32(bb.Buf[off:], uint32(v))
}

func (bb *bytesBuilder) AppendInt64(v int64) {
	off := bb.Grow(8)
	binary.BigEndian.PutUint64(bb.Buf[off:], uint64(v))
}

func (bb *bytesBuilder) AppendFloat32(v float32) {
	bb.AppendInt32(int32(math.Float32bits(v)))
}

func (bb *bytesBuilder) AppendFloat64(v float64) {
	bb.AppendInt64(int64(math.Float64bits(v)))
}

// byteDecoder walks a fixed-width big-endian buffer, tracking the absolute
// offset consumed so far for error reporting and reference resolution.
type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

func (d *byteDecoder) Off() int64 {
	return int64(len(d.Orig) - len(d.Buf))
}

func (d *byteDecoder) Raw(n int) ([]byte, error) {
	if len(d.Buf) < n {
		return nil, codecErrf(d.Off(), d.Orig, ErrTruncatedStream, "not enough data: %d bytes remaining, %d wanted", len(d.Buf), n)
	}
	v := d.Buf[:n]
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) Byte() (byte, error) {
	b, err := d.Raw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *byteDecoder) Bool() (bool, error) {
	b, err := d.Byte()
	return b != 0, err
}

func (d *byteDecoder) Uint16() (uint16, error) {
	b, err := d.Raw(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *byteDecoder) Int32() (int32, error) {
	b, err := d.Raw(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (d *byteDecoder) Int64() (int64, error) {
	b, err := d.Raw(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (d *byteDecoder) Float32() (float32, error) {
	v, err := d.Int32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

func (d *byteDecoder) Float64() (float64, error) {
	v, err := d.Int64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}
