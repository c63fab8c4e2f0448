package xdata

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/klauspost/compress/gzip"
)

const checksumLen = sha256.Size

// Store serializes root into an xdata stream and writes the gzip-wrapped
// result to w. The digest, when requested, covers every byte from the
// magic header through the one-byte checksum-present flag, inclusive,
// computed over the uncompressed stream.
func Store(w io.Writer, root *Record, opts ...Option) error {
	o := resolveOptions(opts)
	reg := NewRegistry(o.converters...)

	var bb bytesBuilder
	bb.Buf = appendRaw(bb.Buf, magicBytes)
	if err := serializeRoot(&bb, root, reg, o.ignoreMissing, o.listener); err != nil {
		return err
	}
	if o.addChecksum {
		bb.AppendByte(1)
		sum := sha256.Sum256(bb.Buf)
		bb.Buf = appendRaw(bb.Buf, sum[:])
	}

	gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := gz.Write(bb.Buf); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Load decompresses, verifies (per the checksum policy), and decodes an
// xdata stream, returning its root Record.
func Load(r io.Reader, opts ...Option) (*Record, error) {
	o := resolveOptions(opts)
	reg := NewRegistry(o.converters...)

	buf, err := decompressAll(r)
	if err != nil {
		return nil, err
	}

	d := makeByteDecoder(buf)
	root, err := deserializeRoot(&d, reg, o.ignoreMissing, o.listener)
	if err != nil {
		return nil, err
	}

	if err := checkTrailer(buf, d.Off(), o.checksumPolicy); err != nil {
		return nil, err
	}
	return root, nil
}

// Validate drains source and reports whether its embedded digest matches
// the payload. It returns false (not an error) when no digest is present;
// structural errors (bad magic, corrupt tags) still propagate as errors.
func Validate(r io.Reader) (bool, error) {
	buf, err := decompressAll(r)
	if err != nil {
		return false, err
	}

	d := makeByteDecoder(buf)
	if _, err := deserializeRoot(&d, DefaultRegistry, true, nil); err != nil {
		return false, err
	}
	return trailerMatches(buf, d.Off()), nil
}

func decompressAll(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// checkTrailer enforces the checksum policy against whatever bytes follow
// the decoded root value. consumed is the byte offset right after the
// value's last byte (i.e. where the checksum-present flag would start).
func checkTrailer(buf []byte, consumed int64, policy ChecksumPolicy) error {
	if policy == ChecksumNone {
		return nil
	}
	rest := buf[consumed:]
	if len(rest) == 0 {
		if policy == ChecksumRequired {
			return ErrChecksumMissing
		}
		return nil
	}
	if rest[0] != 1 || len(rest) != 1+checksumLen {
		if policy == ChecksumRequired {
			return ErrChecksumMissing
		}
		return nil
	}
	sum := sha256.Sum256(buf[:consumed+1])
	if !bytes.Equal(sum[:], rest[1:]) {
		return ErrChecksumMismatch
	}
	return nil
}

func trailerMatches(buf []byte, consumed int64) bool {
	rest := buf[consumed:]
	if len(rest) != 1+checksumLen || rest[0] != 1 {
		return false
	}
	sum := sha256.Sum256(buf[:consumed+1])
	return bytes.Equal(sum[:], rest[1:])
}
