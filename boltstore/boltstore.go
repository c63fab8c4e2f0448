// Package boltstore persists xdata-encoded records as the value of a
// bbolt key instead of a bare file. It is a thin convenience: the bytes
// it reads and writes are exactly what Store/Load would produce against
// a plain io.Writer/Reader.
package boltstore

import (
	"bytes"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/moebiusgames/xdata"
)

// ErrNotFound is returned by Get when bucket or key does not exist.
var ErrNotFound = fmt.Errorf("boltstore: key not found")

// Put serializes root and stores it under key in bucket, creating the
// bucket if needed. tx must be a writable *bbolt.Tx.
func Put(tx *bbolt.Tx, bucket, key []byte, root *xdata.Record, opts ...xdata.Option) error {
	b, err := tx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := xdata.Store(&buf, root, opts...); err != nil {
		return err
	}
	return b.Put(key, buf.Bytes())
}

// Get loads and decodes the xdata blob stored under key in bucket.
func Get(tx *bbolt.Tx, bucket, key []byte, opts ...xdata.Option) (*xdata.Record, error) {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil, ErrNotFound
	}
	raw := b.Get(key)
	if raw == nil {
		return nil, ErrNotFound
	}
	return xdata.Load(bytes.NewReader(raw), opts...)
}

// Delete removes key from bucket. It is a no-op if either is absent.
func Delete(tx *bbolt.Tx, bucket, key []byte) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.Delete(key)
}
