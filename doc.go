/*
Package xdata implements a self-describing, typed, compressed binary
container format for persisting hierarchical data built from records, lists,
and primitives.

A writer takes a tree of keyed Records and emits a gzip-compressed byte
stream with an optional SHA-256 integrity digest; a reader reconstructs the
tree and re-hydrates registered Go types through Converters.

We implement:

1. Records, ordered keyed maps of values, accessed through typed Key
descriptors (ScalarKey[T], ListKey[T]) so callers never cast.

2. A Converter registry, mapping a Go type to/from its Record form, indexed
by Go type on the write side and by a stable type-name string on the read
side.

3. An iterative (stack-based, recursion-free) serializer and deserializer,
so a deeply nested tree never blows the goroutine stack.

4. Structural sharing: a domain value referenced from multiple places in
the tree is written once and referenced by stream offset everywhere else.

# Technical Details

**Wire layout.** magic("xdata") || one tagged value (must be a Record) ||
optional one-byte presence flag + 32-byte SHA-256 digest. The whole thing is
gzip-wrapped. All multi-byte integers are big-endian; strings use a
two-byte length prefix over Java-compatible modified UTF-8 so streams
interop with other language implementations of the same wire format.

**Tags.** NULL(0x00), PRIMITIVE(0x01 + one-byte primitive tag + payload),
LIST(0x02 + int32 length + elements), RECORD(0x03 + int32 entry count +
(key, value) pairs), REFERENCE(0x04 + int64 offset of a previously written
RECORD's 0x03 tag byte).

**Structural sharing.** Deduplication is by identity (Go pointer equality)
of the pre-marshal domain value, not by structural equality: two distinct
values that happen to be deeply equal are still written twice.

**Checksum.** Covers every byte from the magic through the one-byte presence
flag, inclusive, computed over the gzip-decompressed stream; it never covers
the digest bytes themselves.
*/
package xdata
