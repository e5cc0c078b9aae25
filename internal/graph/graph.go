// Package graph implements the in-memory graph cache: a mirror of the
// persistent active subgraph used to serve low-latency path-existence and
// recommendation queries, built once from a KV snapshot and then mutated
// under lock as the write path runs. Edges reference targets by id value
// and resolve through the node map on each hop — never by pointer into
// another Node — so deleting a node never needs to walk live pointers
// into it; removing it from the map and scrubbing every other node's
// outgoing edge list is enough.
package graph

import (
	"sync"

	"github.com/elo-graph/elo/internal/codec"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
	"github.com/elo-graph/elo/internal/whitelist"
)

// OutEdge is one cached outgoing edge: target id plus its whitelist-filtered
// property map.
type OutEdge struct {
	To    []byte
	Props map[string]string
}

// Node is one cached active node: its whitelist-filtered property map and
// its outgoing edges in insertion order.
type Node struct {
	ID    []byte
	Props map[string]string
	Out   []*OutEdge
}

// Cache is the process-wide in-memory graph mirror, guarded by a single
// multi-reader/single-writer lock.
type Cache struct {
	mu    sync.RWMutex
	nodes map[string]*Node // keyed by string(id)
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{nodes: map[string]*Node{}}
}

// Build constructs a fresh cache from a KV snapshot: resolve active node
// ids, resolve active edges (dropping any whose endpoint isn't active),
// then install whitelist-filtered properties onto both. It does not
// install itself anywhere — callers swap it in (e.g. via Replace) under
// the writer lock.
func Build(store *kv.Store, wl *whitelist.Whitelist) (*Cache, error) {
	c := New()
	err := store.View(func(tx *kv.Tx) error {
		activeNodes := map[string][]byte{}
		tx.Table(kv.TableNodeIndex).ScanPrefix(activeNodePrefix(), func(k string, _ []byte) bool {
			_, _, id, err := codec.DecodeNodeIndexKey(k)
			if err != nil {
				return true
			}
			activeNodes[string(id)] = id
			return true
		})

		for idStr, id := range activeNodes {
			c.nodes[idStr] = &Node{ID: id, Props: map[string]string{}}
		}

		// activeEdges records only which (from, to) pairs are active, for the
		// existence check below; Out is populated inline in scan order so it
		// stays an insertion-preserving mirror of the edge_index's
		// deterministic lexicographic order, not a ranged-map reordering of it.
		type edgeKey struct{ from, to string }
		activeEdges := map[edgeKey]bool{}
		tx.Table(kv.TableEdgeIndex).ScanPrefix(activeEdgePrefix(), func(k string, _ []byte) bool {
			_, _, from, to, err := codec.DecodeEdgeIndexKey(k)
			if err != nil {
				return true
			}
			// Drop any edge whose endpoint is not active.
			if _, ok := activeNodes[string(from)]; !ok {
				return true
			}
			if _, ok := activeNodes[string(to)]; !ok {
				return true
			}
			activeEdges[edgeKey{string(from), string(to)}] = true
			c.nodes[string(from)].Out = append(c.nodes[string(from)].Out, &OutEdge{To: to, Props: map[string]string{}})
			return true
		})

		tx.Table(kv.TableNodeData).ScanAll(func(k string, v []byte) bool {
			id, key, err := codec.DecodeNodePropertyKey(k)
			if err != nil {
				return true
			}
			n, ok := c.nodes[string(id)]
			if !ok {
				return true
			}
			if !wl.Allows(schema.EntityNode, string(key)) {
				return true
			}
			n.Props[string(key)] = string(v)
			return true
		})

		tx.Table(kv.TableEdgeData).ScanAll(func(k string, v []byte) bool {
			from, to, key, err := codec.DecodeEdgePropertyKey(k)
			if err != nil {
				return true
			}
			n, ok := c.nodes[string(from)]
			if !ok {
				return true
			}
			if _, ok := activeEdges[edgeKey{string(from), string(to)}]; !ok {
				return true
			}
			if !wl.Allows(schema.EntityEdge, string(key)) {
				return true
			}
			for _, e := range n.Out {
				if string(e.To) == string(to) {
					e.Props[string(key)] = string(v)
				}
			}
			return true
		})

		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func activeNodePrefix() string {
	return codec.NodeIndexPrefix([]byte(schema.StatusKey), []byte(schema.StatusActive))
}

func activeEdgePrefix() string {
	return codec.EdgeIndexPrefix([]byte(schema.StatusKey), []byte(schema.StatusActive))
}

// HasNode reports whether id is a cached active node.
func (c *Cache) HasNode(id []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.nodes[string(id)]
	return ok
}

// NodeProps returns a value copy of a cached node's property map, and
// whether the node exists.
func (c *Cache) NodeProps(id []byte) (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[string(id)]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(n.Props))
	for k, v := range n.Props {
		out[k] = v
	}
	return out, true
}

// HasEdge reports whether from->to is a cached active edge.
func (c *Cache) HasEdge(from, to []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[string(from)]
	if !ok {
		return false
	}
	for _, e := range n.Out {
		if string(e.To) == string(to) {
			return true
		}
	}
	return false
}

// View runs fn with the cache map under a reader lock. fn must not retain
// references to the map or its contents past the call, and must not mutate
// them — recommendation and path queries run entirely inside one such
// call, never interleaving a store transaction while the lock is held.
func (c *Cache) View(fn func(nodes map[string]*Node)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.nodes)
}

// Replace swaps the entire node map under the writer lock — used after a
// whitelist change, which requires a wholesale rebuild.
func (c *Cache) Replace(next *Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = next.nodes
}

// AddNode installs a new active node with an empty property map.
func (c *Cache) AddNode(id []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nodes[string(id)]; ok {
		return
	}
	c.nodes[string(id)] = &Node{ID: id, Props: map[string]string{}}
}

// AddEdge appends an outgoing edge from -> to with the given whitelist-
// filtered properties. No-op if from is not a cached active node.
func (c *Cache) AddEdge(from, to []byte, props map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[string(from)]
	if !ok {
		return
	}
	n.Out = append(n.Out, &OutEdge{To: to, Props: props})
}

// SetNodeProperty installs key=value on a cached node if the whitelist
// allows key (caller pre-checks via Whitelist.Allows; this is a pure
// install). No-op if the node is not cached.
func (c *Cache) SetNodeProperty(id []byte, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[string(id)]
	if !ok {
		return
	}
	n.Props[key] = value
}

// SetEdgeProperty installs key=value on a cached edge, if present.
func (c *Cache) SetEdgeProperty(from, to []byte, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[string(from)]
	if !ok {
		return
	}
	for _, e := range n.Out {
		if string(e.To) == string(to) {
			e.Props[key] = value
		}
	}
}

// RemoveNode deletes id from the cache and detaches any cached incoming
// edges that target it.
func (c *Cache) RemoveNode(id []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, string(id))
	for _, n := range c.nodes {
		n.Out = removeEdgesTo(n.Out, id)
	}
}

// RemoveEdge deletes the cached outgoing edge from -> to, if present.
func (c *Cache) RemoveEdge(from, to []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[string(from)]
	if !ok {
		return
	}
	n.Out = removeEdgesTo(n.Out, to)
}

func removeEdgesTo(edges []*OutEdge, to []byte) []*OutEdge {
	out := edges[:0]
	for _, e := range edges {
		if string(e.To) != string(to) {
			out = append(out, e)
		}
	}
	return out
}
