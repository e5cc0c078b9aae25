// Package recovery implements lazy rebuild of secondary indexes that are
// empty at startup, and backfill of a default status on legacy rows —
// many small, idempotent, startup-run steps over a shared store, the way
// a migration runner works over a shared connection. The lazy-rebuild
// fan-out uses golang.org/x/sync/errgroup to run the three independent
// per-table emptiness checks concurrently, one goroutine per table with no
// concurrency limit; each goroutine also runs its table's rebuild, and the
// store serializes those rebuild writers.
package recovery

import (
	"fmt"

	"github.com/elo-graph/elo/internal/codec"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/logging"
	"github.com/elo-graph/elo/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Run performs lazy index rebuild followed by status backfill. Safe to call
// on every startup: a populated index is left untouched, even if only
// partially populated — a partial index is treated as authoritative, not
// as evidence of a prior crash mid-rebuild.
func Run(store *kv.Store) error {
	if err := rebuildIfEmpty(store); err != nil {
		return fmt.Errorf("recovery: rebuilding indexes: %w", err)
	}
	if err := backfillStatus(store); err != nil {
		return fmt.Errorf("recovery: backfilling status: %w", err)
	}
	return nil
}

type rebuildTarget struct {
	table  string
	rebuld func(tx *kv.Tx) error
}

func rebuildIfEmpty(store *kv.Store) error {
	targets := []rebuildTarget{
		{kv.TableNodeIndex, rebuildNodeIndexFromNodeData(kv.TableNodeIndex)},
		{kv.TableGeoIndex, rebuildNodeIndexFromNodeData(kv.TableGeoIndex)},
		{kv.TableEdgeIndex, rebuildEdgeIndexFromEdgeData},
	}

	var g errgroup.Group
	for _, target := range targets {
		target := target
		g.Go(func() error {
			var empty bool
			if err := store.View(func(tx *kv.Tx) error {
				empty = tx.Table(target.table).Empty()
				return nil
			}); err != nil {
				return err
			}
			if !empty {
				return nil
			}
			logging.Infof("recovery: rebuilding empty index table %s", target.table)
			// Each rebuild commits as its own writer.
			return store.Update(target.rebuld)
		})
	}
	return g.Wait()
}

// rebuildNodeIndexFromNodeData returns a rebuild function that scans
// node_data and materializes every (key,value,id) row into the named
// target index table — node_index and geo_index hold identical content,
// just addressed by different scan patterns.
func rebuildNodeIndexFromNodeData(target string) func(tx *kv.Tx) error {
	return func(tx *kv.Tx) error {
		data := tx.Table(kv.TableNodeData)
		idx := tx.Table(target)
		var scanErr error
		data.ScanAll(func(k string, v []byte) bool {
			id, key, err := codec.DecodeNodePropertyKey(k)
			if err != nil {
				logging.Warnf("recovery: skipping malformed node_data row %q: %v", k, err)
				return true
			}
			idxKey := codec.NodeIndexKey(key, v, id)
			if err := idx.Put(idxKey, nil); err != nil {
				scanErr = err
				return false
			}
			return true
		})
		return scanErr
	}
}

func rebuildEdgeIndexFromEdgeData(tx *kv.Tx) error {
	data := tx.Table(kv.TableEdgeData)
	idx := tx.Table(kv.TableEdgeIndex)
	var scanErr error
	data.ScanAll(func(k string, v []byte) bool {
		from, to, key, err := codec.DecodeEdgePropertyKey(k)
		if err != nil {
			logging.Warnf("recovery: skipping malformed edge_data row %q: %v", k, err)
			return true
		}
		idxKey := codec.EdgeIndexKey(key, v, from, to)
		if err := idx.Put(idxKey, nil); err != nil {
			scanErr = err
			return false
		}
		return true
	})
	return scanErr
}

// backfillStatus ensures every node and edge has a status property,
// defaulting to active, in one writer transaction covering all missing
// entries.
func backfillStatus(store *kv.Store) error {
	return store.Update(func(tx *kv.Tx) error {
		var nodeIDs [][]byte
		tx.Table(kv.TableNodes).ScanAll(func(k string, _ []byte) bool {
			id, err := codec.DecodeNodePrimaryKey(k)
			if err != nil {
				logging.Warnf("recovery: skipping malformed nodes row %q: %v", k, err)
				return true
			}
			nodeIDs = append(nodeIDs, id)
			return true
		})
		for _, id := range nodeIDs {
			if _, ok := schema.GetNodeProperty(tx, id, schema.StatusKey); ok {
				continue
			}
			if err := schema.UpsertNodeProperty(tx, id, schema.StatusKey, schema.StatusActive); err != nil {
				return err
			}
		}

		type edgeRef struct{ from, to []byte }
		var edges []edgeRef
		tx.Table(kv.TableEdges).ScanAll(func(k string, _ []byte) bool {
			from, to, err := codec.DecodeEdgePrimaryKey(k)
			if err != nil {
				logging.Warnf("recovery: skipping malformed edges row %q: %v", k, err)
				return true
			}
			edges = append(edges, edgeRef{from, to})
			return true
		})
		for _, e := range edges {
			if _, ok := schema.GetEdgeProperty(tx, e.from, e.to, schema.StatusKey); ok {
				continue
			}
			if err := schema.UpsertEdgeProperty(tx, e.from, e.to, schema.StatusKey, schema.StatusActive); err != nil {
				return err
			}
		}
		return nil
	})
}
