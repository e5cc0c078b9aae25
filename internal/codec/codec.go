// Package codec implements the byte-safe component encoding and the
// composite-key grammars used by internal/schema, plus the geohash encoder
// consumed by internal/queryengine's nearby search. Keys are built from
// %HH-escaped components joined on a 0x1F unit separator, so a component's
// own bytes never collide with the separator or get mis-split.
package codec

import (
	"fmt"
	"strings"
)

// Sep is the internal component separator: ASCII unit separator (0x1F).
const Sep byte = 0x1F

const escape byte = '%'

const hexDigits = "0123456789ABCDEF"

// EncodeComponent escapes Sep, the escape byte itself, and any non-ASCII
// byte as %HH (uppercase hex). All other bytes pass through unchanged.
func EncodeComponent(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c == Sep || c == escape || c > 0x7F {
			b.WriteByte(escape)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DecodeComponent reverses EncodeComponent. Malformed %-escapes (missing or
// non-hex digits) yield an error; callers that scan persisted rows treat
// this as "skip this row", never as fatal.
func DecodeComponent(enc string) ([]byte, error) {
	out := make([]byte, 0, len(enc))
	for i := 0; i < len(enc); i++ {
		c := enc[i]
		if c != escape {
			out = append(out, c)
			continue
		}
		if i+2 >= len(enc) {
			return nil, fmt.Errorf("codec: truncated escape at offset %d", i)
		}
		hi, ok1 := hexVal(enc[i+1])
		lo, ok2 := hexVal(enc[i+2])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("codec: invalid escape %q at offset %d", enc[i:i+3], i)
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// join concatenates already-encoded components with Sep.
func join(parts ...string) string {
	return strings.Join(parts, string(Sep))
}

// split divides a composite key into exactly n encoded components, or
// reports a decode failure if the key doesn't have exactly n-1 separators.
func split(key string, n int) ([]string, error) {
	parts := strings.Split(key, string(Sep))
	if len(parts) != n {
		return nil, fmt.Errorf("codec: expected %d components, got %d", n, len(parts))
	}
	return parts, nil
}

// NodePrimaryKey builds the node table key: E(id).
func NodePrimaryKey(id []byte) string {
	return EncodeComponent(id)
}

// DecodeNodePrimaryKey reverses NodePrimaryKey.
func DecodeNodePrimaryKey(key string) ([]byte, error) {
	return DecodeComponent(key)
}

// EdgePrimaryKey builds the edge table key: E(from) S E(to).
func EdgePrimaryKey(from, to []byte) string {
	return join(EncodeComponent(from), EncodeComponent(to))
}

// DecodeEdgePrimaryKey reverses EdgePrimaryKey.
func DecodeEdgePrimaryKey(key string) (from, to []byte, err error) {
	parts, err := split(key, 2)
	if err != nil {
		return nil, nil, err
	}
	if from, err = DecodeComponent(parts[0]); err != nil {
		return nil, nil, err
	}
	if to, err = DecodeComponent(parts[1]); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// NodePropertyKey builds the node_data key: E(id) S E(key).
func NodePropertyKey(id, propKey []byte) string {
	return join(EncodeComponent(id), EncodeComponent(propKey))
}

// DecodeNodePropertyKey reverses NodePropertyKey.
func DecodeNodePropertyKey(key string) (id, propKey []byte, err error) {
	parts, err := split(key, 2)
	if err != nil {
		return nil, nil, err
	}
	if id, err = DecodeComponent(parts[0]); err != nil {
		return nil, nil, err
	}
	if propKey, err = DecodeComponent(parts[1]); err != nil {
		return nil, nil, err
	}
	return id, propKey, nil
}

// EdgePropertyKey builds the edge_data key: E(from) S E(to) S E(key).
func EdgePropertyKey(from, to, propKey []byte) string {
	return join(EncodeComponent(from), EncodeComponent(to), EncodeComponent(propKey))
}

// DecodeEdgePropertyKey reverses EdgePropertyKey.
func DecodeEdgePropertyKey(key string) (from, to, propKey []byte, err error) {
	parts, err := split(key, 3)
	if err != nil {
		return nil, nil, nil, err
	}
	if from, err = DecodeComponent(parts[0]); err != nil {
		return nil, nil, nil, err
	}
	if to, err = DecodeComponent(parts[1]); err != nil {
		return nil, nil, nil, err
	}
	if propKey, err = DecodeComponent(parts[2]); err != nil {
		return nil, nil, nil, err
	}
	return from, to, propKey, nil
}

// NodeIndexKey builds a node_index/geo_index key: E(key) S E(value) S E(id).
func NodeIndexKey(key, value, id []byte) string {
	return join(EncodeComponent(key), EncodeComponent(value), EncodeComponent(id))
}

// DecodeNodeIndexKey reverses NodeIndexKey.
func DecodeNodeIndexKey(key string) (k, v, id []byte, err error) {
	parts, err := split(key, 3)
	if err != nil {
		return nil, nil, nil, err
	}
	if k, err = DecodeComponent(parts[0]); err != nil {
		return nil, nil, nil, err
	}
	if v, err = DecodeComponent(parts[1]); err != nil {
		return nil, nil, nil, err
	}
	if id, err = DecodeComponent(parts[2]); err != nil {
		return nil, nil, nil, err
	}
	return k, v, id, nil
}

// NodeIndexPrefix builds the scan prefix E(key) S E(value) S used to find
// all ids carrying a given property value (e.g. status=active).
func NodeIndexPrefix(key, value []byte) string {
	return join(EncodeComponent(key), EncodeComponent(value)) + string(Sep)
}

// NodeIndexKeyPrefix builds the scan prefix E(key) S for all values of a key.
func NodeIndexKeyPrefix(key []byte) string {
	return EncodeComponent(key) + string(Sep)
}

// EdgeIndexKey builds an edge_index key: E(key) S E(value) S E(from) S E(to).
func EdgeIndexKey(key, value, from, to []byte) string {
	return join(EncodeComponent(key), EncodeComponent(value), EncodeComponent(from), EncodeComponent(to))
}

// DecodeEdgeIndexKey reverses EdgeIndexKey.
func DecodeEdgeIndexKey(key string) (k, v, from, to []byte, err error) {
	parts, err := split(key, 4)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if k, err = DecodeComponent(parts[0]); err != nil {
		return nil, nil, nil, nil, err
	}
	if v, err = DecodeComponent(parts[1]); err != nil {
		return nil, nil, nil, nil, err
	}
	if from, err = DecodeComponent(parts[2]); err != nil {
		return nil, nil, nil, nil, err
	}
	if to, err = DecodeComponent(parts[3]); err != nil {
		return nil, nil, nil, nil, err
	}
	return k, v, from, to, nil
}

// EdgeIndexPrefix builds the scan prefix E(key) S E(value) S for edges.
func EdgeIndexPrefix(key, value []byte) string {
	return join(EncodeComponent(key), EncodeComponent(value)) + string(Sep)
}

// WhitelistKey returns the literal schema-table key for an entity kind.
// Unlike the other grammars this is not encoded: it is always one of the
// two literal strings "node" or "edge".
func WhitelistKey(entity string) string {
	return entity
}

// EncodeFieldList joins a sorted, deduplicated, encoded field list with Sep
// for storage in the schema table.
func EncodeFieldList(fields []string) string {
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = EncodeComponent([]byte(f))
	}
	return join(encoded...)
}

// DecodeFieldList reverses EncodeFieldList. An empty input decodes to an
// empty (not nil) slice.
func DecodeFieldList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	parts := strings.Split(raw, string(Sep))
	out := make([]string, len(parts))
	for i, p := range parts {
		dec, err := DecodeComponent(p)
		if err != nil {
			return nil, err
		}
		out[i] = string(dec)
	}
	return out, nil
}
