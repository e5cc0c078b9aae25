// Package whitelist implements the optional field whitelist: the
// per-entity-kind set of property keys that materialize into
// internal/graph's cache, with absence of an entry meaning every key
// materializes. The in-memory snapshot is value-copied on read, so a
// caller never has to hold the whitelist's lock and another lock at the
// same time.
package whitelist

import (
	"sort"
	"strings"
	"sync"

	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
)

// Whitelist holds the current normalized field set per entity kind.
// Safe for concurrent use.
type Whitelist struct {
	mu     sync.RWMutex
	fields map[string][]string // entity -> sorted, deduped fields; absent = all
}

// New returns an empty whitelist (every field materializes for every
// entity kind).
func New() *Whitelist {
	return &Whitelist{fields: map[string][]string{}}
}

// Load reads both entity kinds' whitelist rows from the schema table.
func Load(store *kv.Store) (*Whitelist, error) {
	w := New()
	err := store.View(func(tx *kv.Tx) error {
		for _, entity := range []string{schema.EntityNode, schema.EntityEdge} {
			if fields, ok := schema.GetWhitelist(tx, entity); ok {
				w.fields[entity] = fields
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Normalize trims duplicate/blank entries and returns a sorted, deduped
// copy.
func Normalize(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Set installs a normalized field list for an entity kind in memory only;
// it does not persist. writepath.UpsertWhitelist commits
// schema.SetWhitelist before calling Set and rebuilds the cache afterwards
// in a separate snapshot; Apply (the file path) calls Set without
// persisting.
func (w *Whitelist) Set(entity string, fields []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fields[entity] = Normalize(fields)
}

// Allows reports whether key materializes for the given entity kind.
// Absence of any entry for the entity kind allows every key.
func (w *Whitelist) Allows(entity, key string) bool {
	w.mu.RLock()
	fields, ok := w.fields[entity]
	w.mu.RUnlock()
	if !ok {
		return true
	}
	for _, f := range fields {
		if f == key {
			return true
		}
	}
	return false
}

// Snapshot returns a value-copied view of the current whitelist, safe to
// retain and read without holding the whitelist's lock.
func (w *Whitelist) Snapshot() map[string][]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string][]string, len(w.fields))
	for k, v := range w.fields {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
