// Package iface defines the bucketed key/value database used by the beacon
// chain stores.
package iface

import (
	"io"
)

// Database is a key/value store partitioned into buckets. Get returns a nil
// value without error when the key is absent.
type Database interface {
	io.Closer
	Get(bucket []byte, key []byte) ([]byte, error)
	Put(bucket []byte, key []byte, value []byte) error
	Has(bucket []byte, key []byte) (bool, error)
	Delete(bucket []byte, key []byte) error
}
