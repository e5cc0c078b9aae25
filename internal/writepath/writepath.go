// Package writepath implements every mutating graph operation: durable
// commit first, cache mutation second, with symmetric `type=block` edge
// mirroring. Every handler persists to the KV store before it mutates the
// in-memory cache, never the other way round; precondition checks may read
// the cache first.
package writepath

import (
	"github.com/elo-graph/elo/internal/apperr"
	"github.com/elo-graph/elo/internal/codec"
	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
	"github.com/elo-graph/elo/internal/whitelist"
)

// StatusKey/StatusActive/StatusDeleted re-exported for handler convenience.
const (
	StatusKey     = schema.StatusKey
	StatusActive  = schema.StatusActive
	StatusDeleted = schema.StatusDeleted
)

const typeKey = "type"
const blockType = "block"

// Path executes write-path operations against a durable store and the
// shared graph cache. One Path is shared process-wide, same as the cache
// it wraps.
type Path struct {
	store *kv.Store
	cache *graph.Cache
	wl    *whitelist.Whitelist
}

// New returns a Path bound to store, cache and wl. All three are shared,
// long-lived, process-wide instances.
func New(store *kv.Store, cache *graph.Cache, wl *whitelist.Whitelist) *Path {
	return &Path{store: store, cache: cache, wl: wl}
}

func withDefaultStatus(data map[string]string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if _, ok := out[StatusKey]; !ok {
		out[StatusKey] = StatusActive
	}
	return out
}

func (p *Path) installNodeProps(id []byte, data map[string]string) {
	for k, v := range data {
		if k == StatusKey && v == StatusDeleted {
			p.cache.RemoveNode(id)
			return
		}
	}
	for k, v := range data {
		if p.wl.Allows(schema.EntityNode, k) {
			p.cache.SetNodeProperty(id, k, v)
		}
	}
}

func (p *Path) installEdgeProps(from, to []byte, data map[string]string) {
	for k, v := range data {
		if p.wl.Allows(schema.EntityEdge, k) {
			p.cache.SetEdgeProperty(from, to, k, v)
		}
	}
}

// CreateNode writes a new node row plus its initial properties (status
// defaults to active when absent) and adds it to the cache.
func (p *Path) CreateNode(id []byte, data map[string]string) error {
	if len(id) == 0 {
		return apperr.BadRequest("node id must not be empty")
	}
	full := withDefaultStatus(data)
	err := p.store.Update(func(tx *kv.Tx) error {
		if err := schema.CreateNode(tx, id); err != nil {
			return err
		}
		return schema.BulkUpsertNodeProperties(tx, id, full)
	})
	if err != nil {
		return apperr.Storage(err)
	}

	p.cache.AddNode(id)
	p.installNodeProps(id, full)
	return nil
}

// CreateEdge writes a new edge row plus its initial properties (status
// defaults to active), requiring both endpoints to be active in the cache,
// and mirrors a block-type edge in the reverse direction.
func (p *Path) CreateEdge(from, to []byte, data map[string]string) error {
	if !p.cache.HasNode(from) || !p.cache.HasNode(to) {
		return apperr.NotFound("edge endpoint not found or not active")
	}

	full := withDefaultStatus(data)
	mirror := full[typeKey] == blockType && string(from) != string(to)

	err := p.store.Update(func(tx *kv.Tx) error {
		if err := schema.CreateEdge(tx, from, to); err != nil {
			return err
		}
		if err := schema.BulkUpsertEdgeProperties(tx, from, to, full); err != nil {
			return err
		}
		if mirror {
			if err := schema.CreateEdge(tx, to, from); err != nil {
				return err
			}
			if err := schema.BulkUpsertEdgeProperties(tx, to, from, full); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Storage(err)
	}

	p.cache.AddEdge(from, to, map[string]string{})
	p.installEdgeProps(from, to, full)
	if mirror {
		p.cache.AddEdge(to, from, map[string]string{})
		p.installEdgeProps(to, from, full)
	}
	return nil
}

// SetNodeData upserts a single node property, soft-deleting the node from
// the cache when the write sets status=deleted.
func (p *Path) SetNodeData(id []byte, key, value string) error {
	if !p.cache.HasNode(id) {
		return apperr.NotFound("node not found")
	}
	err := p.store.Update(func(tx *kv.Tx) error {
		return schema.UpsertNodeProperty(tx, id, key, value)
	})
	if err != nil {
		return apperr.Storage(err)
	}
	p.installNodeProps(id, map[string]string{key: value})
	return nil
}

// SetEdgeData upserts a single edge property, mirroring the reverse edge
// with {type:block, status:active} when (key,value) marks the edge blocked.
func (p *Path) SetEdgeData(from, to []byte, key, value string) error {
	if !p.cache.HasEdge(from, to) {
		return apperr.NotFound("edge not found")
	}
	mirror := key == typeKey && value == blockType && string(from) != string(to)
	mirrorProps := map[string]string{typeKey: blockType, StatusKey: StatusActive}

	err := p.store.Update(func(tx *kv.Tx) error {
		if err := schema.UpsertEdgeProperty(tx, from, to, key, value); err != nil {
			return err
		}
		if mirror {
			if !schema.EdgeExists(tx, to, from) {
				if err := schema.CreateEdge(tx, to, from); err != nil {
					return err
				}
			}
			if err := schema.BulkUpsertEdgeProperties(tx, to, from, mirrorProps); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Storage(err)
	}

	p.installEdgeProps(from, to, map[string]string{key: value})
	if mirror {
		if !p.cache.HasEdge(to, from) {
			p.cache.AddEdge(to, from, map[string]string{})
		}
		p.installEdgeProps(to, from, mirrorProps)
	}
	return nil
}

// PatchNode bulk-merges data into a node's persisted properties in a single
// write, applying the same set of cache effects as SetNodeData per key.
func (p *Path) PatchNode(id []byte, data map[string]string) error {
	exists := false
	err := p.store.View(func(tx *kv.Tx) error {
		exists = schema.NodeExists(tx, id)
		return nil
	})
	if err != nil {
		return apperr.Storage(err)
	}
	if !exists {
		return apperr.NotFound("node not found")
	}

	err = p.store.Update(func(tx *kv.Tx) error {
		return schema.BulkUpsertNodeProperties(tx, id, data)
	})
	if err != nil {
		return apperr.Storage(err)
	}
	if p.cache.HasNode(id) {
		p.installNodeProps(id, data)
	}
	return nil
}

// PatchEdge bulk-merges data into an edge's persisted properties, mirroring
// the reverse edge with the same data whenever the edge's type is (or
// becomes) block.
func (p *Path) PatchEdge(from, to []byte, data map[string]string) error {
	exists := false
	err := p.store.View(func(tx *kv.Tx) error {
		exists = schema.EdgeExists(tx, from, to)
		return nil
	})
	if err != nil {
		return apperr.Storage(err)
	}
	if !exists {
		return apperr.NotFound("edge not found")
	}

	isBlock := false
	err = p.store.Update(func(tx *kv.Tx) error {
		if err := schema.BulkUpsertEdgeProperties(tx, from, to, data); err != nil {
			return err
		}
		t, _ := schema.GetEdgeProperty(tx, from, to, typeKey)
		isBlock = t == blockType && string(from) != string(to)
		if isBlock {
			if !schema.EdgeExists(tx, to, from) {
				if err := schema.CreateEdge(tx, to, from); err != nil {
					return err
				}
			}
			if err := schema.BulkUpsertEdgeProperties(tx, to, from, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Storage(err)
	}

	if p.cache.HasEdge(from, to) {
		p.installEdgeProps(from, to, data)
	}
	if isBlock {
		if !p.cache.HasEdge(to, from) {
			p.cache.AddEdge(to, from, map[string]string{})
		}
		p.installEdgeProps(to, from, data)
	}
	return nil
}

// DeleteNode soft-deletes id and every persistent edge touching it (from or
// to), then removes the node and those edges from the cache.
func (p *Path) DeleteNode(id []byte) error {
	var touchedEdges [][2][]byte
	err := p.store.Update(func(tx *kv.Tx) error {
		if !schema.NodeExists(tx, id) {
			return apperr.NotFound("node not found")
		}
		if err := schema.UpsertNodeProperty(tx, id, StatusKey, StatusDeleted); err != nil {
			return err
		}

		tx.Table(kv.TableEdges).ScanAll(func(k string, _ []byte) bool {
			from, to, err := codec.DecodeEdgePrimaryKey(k)
			if err != nil {
				return true
			}
			if string(from) != string(id) && string(to) != string(id) {
				return true
			}
			touchedEdges = append(touchedEdges, [2][]byte{from, to})
			return true
		})

		for _, e := range touchedEdges {
			if err := schema.UpsertEdgeProperty(tx, e[0], e[1], StatusKey, StatusDeleted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ae, ok := apperr.As(err); ok {
			return ae
		}
		return apperr.Storage(err)
	}

	p.cache.RemoveNode(id)
	for _, e := range touchedEdges {
		p.cache.RemoveEdge(e[0], e[1])
	}
	return nil
}

// DeleteEdge soft-deletes from->to, mirror-deleting the reverse edge iff
// its current type is block.
func (p *Path) DeleteEdge(from, to []byte) error {
	mirror := false
	err := p.store.Update(func(tx *kv.Tx) error {
		if !schema.EdgeExists(tx, from, to) {
			return apperr.NotFound("edge not found")
		}
		t, _ := schema.GetEdgeProperty(tx, from, to, typeKey)
		mirror = t == blockType && string(from) != string(to)

		if err := schema.UpsertEdgeProperty(tx, from, to, StatusKey, StatusDeleted); err != nil {
			return err
		}
		if mirror && schema.EdgeExists(tx, to, from) {
			if err := schema.UpsertEdgeProperty(tx, to, from, StatusKey, StatusDeleted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ae, ok := apperr.As(err); ok {
			return ae
		}
		return apperr.Storage(err)
	}

	p.cache.RemoveEdge(from, to)
	if mirror {
		p.cache.RemoveEdge(to, from)
	}
	return nil
}

// UpsertWhitelist normalizes and persists fields for entity, then rebuilds
// the entire cache under the new whitelist.
func (p *Path) UpsertWhitelist(entity string, fields []string) error {
	if entity != schema.EntityNode && entity != schema.EntityEdge {
		return apperr.BadRequest("entity must be node or edge")
	}
	normalized := whitelist.Normalize(fields)
	if len(normalized) == 0 {
		return apperr.BadRequest("fields must not be empty")
	}

	err := p.store.Update(func(tx *kv.Tx) error {
		return schema.SetWhitelist(tx, entity, normalized)
	})
	if err != nil {
		return apperr.Storage(err)
	}
	p.wl.Set(entity, normalized)

	next, err := graph.Build(p.store, p.wl)
	if err != nil {
		return apperr.Storage(err)
	}
	p.cache.Replace(next)
	return nil
}
