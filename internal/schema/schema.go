// Package schema implements the persistent eight-table layout bound to
// internal/kv, and the property-upsert transaction sequence that keeps
// every *_index table in lockstep with its *_data table: read the old
// value, write the new one, swap the index row, all inside one
// transaction. Functions here are small and single-purpose, taking an
// already-open transaction handle rather than opening their own.
package schema

import (
	"github.com/elo-graph/elo/internal/codec"
	"github.com/elo-graph/elo/internal/kv"
)

// Entity kinds for the whitelist table and for callers that need to know
// which index table(s) a property write touches.
const (
	EntityNode = "node"
	EntityEdge = "edge"
)

// StatusKey and well-known status values. Every node and edge carries a
// status property; only "active" rows are visible to queries.
const (
	StatusKey     = "status"
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// CreateNode writes the node primary-table row. A no-op (overwrite with
// the same empty marker) if the row already exists.
func CreateNode(tx *kv.Tx, id []byte) error {
	return tx.Table(kv.TableNodes).Put(codec.NodePrimaryKey(id), []byte(""))
}

// NodeExists reports whether a node primary row exists (persisted
// existence, independent of active/deleted status).
func NodeExists(tx *kv.Tx, id []byte) bool {
	_, ok := tx.Table(kv.TableNodes).Get(codec.NodePrimaryKey(id))
	return ok
}

// CreateEdge writes the edge primary-table row.
func CreateEdge(tx *kv.Tx, from, to []byte) error {
	return tx.Table(kv.TableEdges).Put(codec.EdgePrimaryKey(from, to), []byte(""))
}

// EdgeExists reports whether an edge primary row exists.
func EdgeExists(tx *kv.Tx, from, to []byte) bool {
	_, ok := tx.Table(kv.TableEdges).Get(codec.EdgePrimaryKey(from, to))
	return ok
}

// GetNodeProperty reads a single node property.
func GetNodeProperty(tx *kv.Tx, id []byte, key string) (string, bool) {
	v, ok := tx.Table(kv.TableNodeData).Get(codec.NodePropertyKey(id, []byte(key)))
	if !ok {
		return "", false
	}
	return string(v), true
}

// GetEdgeProperty reads a single edge property.
func GetEdgeProperty(tx *kv.Tx, from, to []byte, key string) (string, bool) {
	v, ok := tx.Table(kv.TableEdgeData).Get(codec.EdgePropertyKey(from, to, []byte(key)))
	if !ok {
		return "", false
	}
	return string(v), true
}

// UpsertNodeProperty writes a single node property, deleting the stale
// index row (if the value changed) and inserting the new one in both
// node_index and geo_index. Must run inside an open writer transaction;
// callers are responsible for Store.Update and for commit/rollback.
func UpsertNodeProperty(tx *kv.Tx, id []byte, key, value string) error {
	data := tx.Table(kv.TableNodeData)
	nodeIdx := tx.Table(kv.TableNodeIndex)
	geoIdx := tx.Table(kv.TableGeoIndex)

	keyBytes := []byte(key)
	dataKey := codec.NodePropertyKey(id, keyBytes)

	oldValue, hadOld := data.Get(dataKey)
	if hadOld && string(oldValue) != value {
		oldIdxKey := codec.NodeIndexKey(keyBytes, oldValue, id)
		if err := nodeIdx.Delete(oldIdxKey); err != nil {
			return err
		}
		if err := geoIdx.Delete(oldIdxKey); err != nil {
			return err
		}
	}

	if err := data.Put(dataKey, []byte(value)); err != nil {
		return err
	}

	if !hadOld || string(oldValue) != value {
		newIdxKey := codec.NodeIndexKey(keyBytes, []byte(value), id)
		if err := nodeIdx.Put(newIdxKey, nil); err != nil {
			return err
		}
		if err := geoIdx.Put(newIdxKey, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpsertEdgeProperty is UpsertNodeProperty's edge counterpart, maintaining
// only edge_index.
func UpsertEdgeProperty(tx *kv.Tx, from, to []byte, key, value string) error {
	data := tx.Table(kv.TableEdgeData)
	idx := tx.Table(kv.TableEdgeIndex)

	keyBytes := []byte(key)
	dataKey := codec.EdgePropertyKey(from, to, keyBytes)

	oldValue, hadOld := data.Get(dataKey)
	if hadOld && string(oldValue) != value {
		oldIdxKey := codec.EdgeIndexKey(keyBytes, oldValue, from, to)
		if err := idx.Delete(oldIdxKey); err != nil {
			return err
		}
	}

	if err := data.Put(dataKey, []byte(value)); err != nil {
		return err
	}

	if !hadOld || string(oldValue) != value {
		newIdxKey := codec.EdgeIndexKey(keyBytes, []byte(value), from, to)
		if err := idx.Put(newIdxKey, nil); err != nil {
			return err
		}
	}
	return nil
}

// BulkUpsertNodeProperties applies every (key,value) pair in data to id,
// sharing the caller's transaction across all keys.
func BulkUpsertNodeProperties(tx *kv.Tx, id []byte, data map[string]string) error {
	for k, v := range data {
		if err := UpsertNodeProperty(tx, id, k, v); err != nil {
			return err
		}
	}
	return nil
}

// BulkUpsertEdgeProperties is BulkUpsertNodeProperties' edge counterpart.
func BulkUpsertEdgeProperties(tx *kv.Tx, from, to []byte, data map[string]string) error {
	for k, v := range data {
		if err := UpsertEdgeProperty(tx, from, to, k, v); err != nil {
			return err
		}
	}
	return nil
}

// AllNodeProperties reads every persisted property of a node.
func AllNodeProperties(tx *kv.Tx, id []byte) map[string]string {
	out := map[string]string{}
	prefix := codec.EncodeComponent(id) + string(codec.Sep)
	tx.Table(kv.TableNodeData).ScanPrefix(prefix, func(k string, v []byte) bool {
		_, propKey, err := codec.DecodeNodePropertyKey(k)
		if err != nil {
			return true // skip malformed row, never fatal
		}
		out[string(propKey)] = string(v)
		return true
	})
	return out
}

// AllEdgeProperties reads every persisted property of an edge.
func AllEdgeProperties(tx *kv.Tx, from, to []byte) map[string]string {
	out := map[string]string{}
	prefix := codec.EncodeComponent(from) + string(codec.Sep) + codec.EncodeComponent(to) + string(codec.Sep)
	tx.Table(kv.TableEdgeData).ScanPrefix(prefix, func(k string, v []byte) bool {
		_, _, propKey, err := codec.DecodeEdgePropertyKey(k)
		if err != nil {
			return true
		}
		out[string(propKey)] = string(v)
		return true
	})
	return out
}

// GetWhitelist reads the normalized field whitelist for an entity kind.
// Absence (ok=false) means every key materializes, unfiltered.
func GetWhitelist(tx *kv.Tx, entity string) (fields []string, ok bool) {
	v, present := tx.Table(kv.TableSchema).Get(codec.WhitelistKey(entity))
	if !present {
		return nil, false
	}
	fields, err := codec.DecodeFieldList(string(v))
	if err != nil {
		return nil, false
	}
	return fields, true
}

// SetWhitelist persists the normalized (trim/sort/dedup already applied by
// the caller) field list for an entity kind.
func SetWhitelist(tx *kv.Tx, entity string, fields []string) error {
	return tx.Table(kv.TableSchema).Put(codec.WhitelistKey(entity), []byte(codec.EncodeFieldList(fields)))
}
