// Package queryengine implements path-existence DFS, two-hop weighted
// recommendation with geo/type/range filtering, and geohash-prefix nearby
// search. Path existence and recommendation walk the in-memory cache under
// its read lock (recommendation may hydrate from storage afterwards);
// nearby scans geo_index in the store and then checks each hit against the
// cache.
package queryengine

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/elo-graph/elo/internal/apperr"
	"github.com/elo-graph/elo/internal/codec"
	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/lru"
	"github.com/elo-graph/elo/internal/schema"
)

const earthRadiusKm = 6371.0

const (
	defaultGeoKey     = "location"
	defaultNumKey     = "rating"
	defaultGeoHashKey = "geo_hash"
	defaultRadiusKm   = 10.0
)

// Engine answers queries over a shared graph cache, hydrating from the
// durable store only when asked.
type Engine struct {
	store *kv.Store
	cache *graph.Cache
}

// New returns an Engine bound to store and cache.
func New(store *kv.Store, cache *graph.Cache) *Engine {
	return &Engine{store: store, cache: cache}
}

// PathExists runs a DFS over the cache from start looking for end. Uses
// only the cache, so it reflects active/deleted state as of the most
// recently committed write.
func (e *Engine) PathExists(start, end []byte) bool {
	found := false
	e.cache.View(func(nodes map[string]*graph.Node) {
		visited := map[string]bool{}
		stack := [][]byte{start}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if string(cur) == string(end) {
				found = true
				return
			}
			if visited[string(cur)] {
				continue
			}
			visited[string(cur)] = true
			n, ok := nodes[string(cur)]
			if !ok {
				continue
			}
			for _, oe := range n.Out {
				if !visited[string(oe.To)] {
					stack = append(stack, oe.To)
				}
			}
		}
	})
	return found
}

// haversineKm computes great-circle distance in kilometres.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180.0
	phi1, phi2 := lat1*rad, lat2*rad
	dPhi := (lat2 - lat1) * rad
	dLambda := (lon2 - lon1) * rad
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, apperr.BadRequest("malformed lat,lon value %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		if it != "" {
			out[it] = true
		}
	}
	return out
}

func idSet(ids [][]byte) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[string(id)] = true
	}
	return out
}

func copyProps(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RecommendInput carries a two-hop recommendation request's already-parsed
// parameters.
type RecommendInput struct {
	Start             []byte
	Lat, Lon          *float64
	GeoKey            string
	Type              string
	ExcludedEdgeTypes []string
	ExcludedIDs       [][]byte
	NumKey            string
	Min, Max          *float64
	RadiusKm          *float64
	Limit             int
	Hydrate           bool
}

// Candidate is one recommendation or nearby result.
type Candidate struct {
	ID    []byte
	Data  map[string]string
	Score float64
}

// Recommend runs the two-hop weighted recommendation scan.
func (e *Engine) Recommend(in RecommendInput) ([]Candidate, error) {
	geoKey := in.GeoKey
	if geoKey == "" {
		geoKey = defaultGeoKey
	}
	numKey := in.NumKey
	if numKey == "" {
		numKey = defaultNumKey
	}
	excludedTypes := toSet(in.ExcludedEdgeTypes)
	excludedIDs := idSet(in.ExcludedIDs)

	var originLat, originLon float64
	haveOrigin := false
	if in.Lat != nil && in.Lon != nil {
		originLat, originLon = *in.Lat, *in.Lon
		haveOrigin = true
	}

	var results []Candidate
	e.cache.View(func(nodes map[string]*graph.Node) {
		start, ok := nodes[string(in.Start)]
		if !ok {
			return
		}

		if !haveOrigin {
			if raw, ok := start.Props[geoKey]; ok {
				if lat, lon, err := parseLatLon(raw); err == nil {
					originLat, originLon, haveOrigin = lat, lon, true
				}
			}
		}

		directNeighbors := map[string]bool{}
		blockedTargets := map[string]bool{}
		for _, e1 := range start.Out {
			if excludedTypes[e1.Props["type"]] {
				blockedTargets[string(e1.To)] = true
				continue
			}
			directNeighbors[string(e1.To)] = true
		}

		scores := map[string]float64{}
		for _, e1 := range start.Out {
			if excludedTypes[e1.Props["type"]] {
				continue
			}
			w1 := parseFloatDefault(e1.Props["weight"], 1.0)
			n1, ok := nodes[string(e1.To)]
			if !ok {
				continue
			}
			for _, e2 := range n1.Out {
				if excludedTypes[e2.Props["type"]] {
					continue
				}
				c := string(e2.To)
				if c == string(in.Start) || blockedTargets[c] || excludedIDs[c] || directNeighbors[c] {
					continue
				}
				w2 := parseFloatDefault(e2.Props["weight"], 1.0)
				scores[c] += w1 * w2
			}
		}

		for c, score := range scores {
			cn, ok := nodes[c]
			if !ok {
				continue
			}
			if in.Type != "" && cn.Props["type"] != in.Type {
				continue
			}
			if in.Min != nil || in.Max != nil {
				raw, ok := cn.Props[numKey]
				if !ok {
					continue
				}
				f, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					continue
				}
				if in.Min != nil && f < *in.Min {
					continue
				}
				if in.Max != nil && f > *in.Max {
					continue
				}
			}
			if in.RadiusKm != nil {
				if !haveOrigin {
					return
				}
				raw, ok := cn.Props[geoKey]
				if !ok {
					continue
				}
				lat, lon, err := parseLatLon(raw)
				if err != nil {
					continue
				}
				if haversineKm(originLat, originLon, lat, lon) > *in.RadiusKm {
					continue
				}
			}
			results = append(results, Candidate{ID: cn.ID, Data: copyProps(cn.Props), Score: score})
		}
	})

	if in.RadiusKm != nil && !haveOrigin {
		return nil, apperr.BadRequest("radius_km given but no origin resolves")
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return string(results[i].ID) < string(results[j].ID)
	})

	if in.Limit > 0 && len(results) > in.Limit {
		results = results[:in.Limit]
	}

	if in.Hydrate {
		err := e.store.View(func(tx *kv.Tx) error {
			for i := range results {
				results[i].Data = schema.AllNodeProperties(tx, results[i].ID)
			}
			return nil
		})
		if err != nil {
			return nil, apperr.Storage(err)
		}
	}

	return results, nil
}

// NearbyInput carries a nearby-search request's already-parsed parameters.
type NearbyInput struct {
	GeoHashPrefix     string
	Lat, Lon          *float64
	RadiusKm          float64
	GeoHashKey        string
	Type              string
	ExcludedIDs       [][]byte
	Start             []byte
	ExcludedEdgeTypes []string
	Limit             int
}

// decodeComponentCached decodes an encoded component through a per-scan LRU,
// avoiding repeat work when the same encoded substring recurs across a
// large scan.
func decodeComponentCached(cache *lru.Cache[string, []byte], enc string) ([]byte, error) {
	if v, ok := cache.Get(enc); ok {
		return v, nil
	}
	v, err := codec.DecodeComponent(enc)
	if err != nil {
		return nil, err
	}
	cache.Put(enc, v)
	return v, nil
}

// Nearby scans geo_index by geohash prefix, intersects with the active node
// set, and applies type/exclusion filters.
func (e *Engine) Nearby(in NearbyInput) ([]Candidate, error) {
	geoHashKey := in.GeoHashKey
	if geoHashKey == "" {
		geoHashKey = defaultGeoHashKey
	}

	prefixValue := in.GeoHashPrefix
	if prefixValue == "" {
		if in.Lat == nil || in.Lon == nil {
			return nil, apperr.BadRequest("nearby requires geo_hash_prefix or lat/lon")
		}
		radius := in.RadiusKm
		if radius == 0 {
			radius = defaultRadiusKm
		}
		precision := codec.PrecisionForRadiusKm(radius)
		prefixValue = codec.EncodeGeohash(*in.Lat, *in.Lon, precision)
	}

	scanPrefix := codec.EncodeComponent([]byte(geoHashKey)) + string(codec.Sep) + codec.EncodeComponent([]byte(prefixValue))

	excludedIDs := idSet(in.ExcludedIDs)
	excludedEdgeTypes := toSet(in.ExcludedEdgeTypes)

	if in.Start != nil {
		e.cache.View(func(nodes map[string]*graph.Node) {
			start, ok := nodes[string(in.Start)]
			if !ok {
				return
			}
			for _, oe := range start.Out {
				if excludedEdgeTypes[oe.Props["type"]] {
					excludedIDs[string(oe.To)] = true
				}
			}
		})
	}

	type hit struct {
		id   []byte
		data map[string]string
	}
	var hits []hit

	decodeCache := lru.New[string, []byte](lru.DefaultCapacity)

	// Scan the durable index with no cache lock held, then intersect each
	// candidate against the cache one id at a time — the cache and the KV
	// store are never locked at once.
	var ids [][]byte
	e.store.View(func(tx *kv.Tx) error {
		tx.Table(kv.TableGeoIndex).ScanPrefix(scanPrefix, func(k string, _ []byte) bool {
			parts := strings.Split(k, string(codec.Sep))
			if len(parts) != 3 {
				return true
			}
			id, err := decodeComponentCached(decodeCache, parts[2])
			if err != nil {
				return true
			}
			if excludedIDs[string(id)] {
				return true
			}
			ids = append(ids, id)
			return true
		})
		return nil
	})
	for _, id := range ids {
		props, ok := e.cache.NodeProps(id)
		if !ok {
			continue
		}
		if in.Type != "" && props["type"] != in.Type {
			continue
		}
		hits = append(hits, hit{id: id, data: props})
	}

	sort.Slice(hits, func(i, j int) bool { return string(hits[i].id) < string(hits[j].id) })

	if in.Limit > 0 && len(hits) > in.Limit {
		hits = hits[:in.Limit]
	}

	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = Candidate{ID: h.id, Data: h.data}
	}
	return out, nil
}
