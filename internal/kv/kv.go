// Package kv is a thin façade over go.etcd.io/bbolt exposing named tables,
// point get/put/remove, atomic writer transactions, and forward-range read
// snapshots — nothing else the core needs. bbolt already gives the
// guarantees this layer assumes of the underlying engine (single-writer
// discipline, durable commit, consistent snapshots for readers), so it
// stays thin by design: no batched-writer or partition abstraction, since
// this domain needs neither.
package kv

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	bolt "go.etcd.io/bbolt"
)

// Table names — the eight persisted tables this service's schema layer
// maintains.
const (
	TableNodes     = "nodes"
	TableEdges     = "edges"
	TableNodeData  = "node_data"
	TableEdgeData  = "edge_data"
	TableNodeIndex = "node_index"
	TableEdgeIndex = "edge_index"
	TableGeoIndex  = "geo_index"
	TableSchema    = "schema"
)

// AllTables lists every persisted table in creation order.
var AllTables = []string{
	TableNodes, TableEdges, TableNodeData, TableEdgeData,
	TableNodeIndex, TableEdgeIndex, TableGeoIndex, TableSchema,
}

// Store wraps a single bbolt database file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the database at path and ensures every
// table in AllTables exists: an empty bucket, not a missing one, is what
// internal/recovery later treats as "needs rebuild". The open itself is
// retried with exponential backoff since a graceful-restart window can
// find the file still locked by a just-exiting prior process.
func Open(path string) (*Store, error) {
	var db *bolt.DB
	openOnce := func() error {
		d, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
		if err != nil {
			return err
		}
		db = d
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(openOnce, bo); err != nil {
		return nil, fmt.Errorf("kv: opening %s: %w", path, err)
	}

	err := db.Update(func(btx *bolt.Tx) error {
		for _, name := range AllTables {
			if _, err := btx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("kv: creating table %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a handle to either a writer transaction or a reader snapshot,
// scoped to the callback passed to Update/View.
type Tx struct {
	btx      *bolt.Tx
	writable bool
}

// Table returns a handle to a named table within this transaction. The
// table is guaranteed to exist (Open creates all eight up front).
func (t *Tx) Table(name string) *Table {
	return &Table{b: t.btx.Bucket([]byte(name)), writable: t.writable}
}

// Update runs fn inside a single atomic writer transaction: bbolt
// serializes writers, so concurrent callers of Update block until it is
// their turn, and the transaction either commits atomically or (on a
// non-nil return, or panic) is rolled back entirely.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx, writable: true})
	})
}

// View runs fn inside a read-only snapshot transaction: it observes a
// consistent point-in-time view and never blocks writers.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx, writable: false})
	})
}

// Table is a handle to one named bucket within an active transaction.
type Table struct {
	b        *bolt.Bucket
	writable bool
}

// Get returns the value for key, and whether it was present. The returned
// slice is only valid for the lifetime of the enclosing transaction;
// callers that retain it past the callback must copy it.
func (t *Table) Get(key string) ([]byte, bool) {
	v := t.b.Get([]byte(key))
	if v == nil {
		return nil, false
	}
	return v, true
}

// GetCopy is Get but returns a copy safe to retain past the transaction.
func (t *Table) GetCopy(key string) ([]byte, bool) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Put inserts or overwrites key with value. Must be called within Update.
func (t *Table) Put(key string, value []byte) error {
	if !t.writable {
		return fmt.Errorf("kv: Put called on a read-only snapshot")
	}
	return t.b.Put([]byte(key), value)
}

// Delete removes key, if present. Must be called within Update.
func (t *Table) Delete(key string) error {
	if !t.writable {
		return fmt.Errorf("kv: Delete called on a read-only snapshot")
	}
	return t.b.Delete([]byte(key))
}

// Empty reports whether the table has no rows. Used by internal/recovery
// to decide whether an index table needs a lazy rebuild.
func (t *Table) Empty() bool {
	k, _ := t.b.Cursor().First()
	return k == nil
}

// ScanPrefix walks every key with the given prefix in ascending byte order,
// calling fn(key, value) for each. Iteration stops early if fn returns
// false. Values passed to fn are only valid for the duration of the call.
func (t *Table) ScanPrefix(prefix string, fn func(key string, value []byte) bool) {
	c := t.b.Cursor()
	pfx := []byte(prefix)
	for k, v := c.Seek(pfx); k != nil && hasPrefix(k, pfx); k, v = c.Next() {
		if !fn(string(k), v) {
			return
		}
	}
}

// ScanAll walks every key in the table in ascending order.
func (t *Table) ScanAll(fn func(key string, value []byte) bool) {
	c := t.b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if !fn(string(k), v) {
			return
		}
	}
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if k[i] != b {
			return false
		}
	}
	return true
}
