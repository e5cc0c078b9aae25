package httpapi

import (
	"net/http"

	"github.com/elo-graph/elo/internal/queryengine"
)

func (s *Server) pathExists(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	exists := s.qe.PathExists([]byte(from), []byte(to))
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

type recommendationView struct {
	ID    string            `json:"id"`
	Data  map[string]string `json:"data"`
	Score float64           `json:"score"`
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := queryengine.RecommendInput{
		Start:             []byte(q.Get("start")),
		Lat:               queryFloatPtr(r, "lat"),
		Lon:               queryFloatPtr(r, "lon"),
		GeoKey:            q.Get("geo_key"),
		Type:              q.Get("type"),
		ExcludedEdgeTypes: splitCSV(q.Get("excluded_edge_types")),
		ExcludedIDs:       toByteIDs(splitCSV(q.Get("excluded_ids"))),
		NumKey:            q.Get("num_key"),
		Min:               queryFloatPtr(r, "min"),
		Max:               queryFloatPtr(r, "max"),
		RadiusKm:          queryFloatPtr(r, "radius_km"),
		Limit:             queryIntOrZero(r, "limit"),
		Hydrate:           queryBool(r, "hydrate", true),
	}

	results, err := s.qe.Recommend(in)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]recommendationView, len(results))
	for i, c := range results {
		views[i] = recommendationView{ID: string(c.ID), Data: c.Data, Score: c.Score}
	}
	writeJSON(w, http.StatusOK, views)
}

type nearbyView struct {
	ID   string            `json:"id"`
	Data map[string]string `json:"data"`
}

func (s *Server) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := queryengine.NearbyInput{
		GeoHashPrefix:     q.Get("geo_hash_prefix"),
		Lat:               queryFloatPtr(r, "lat"),
		Lon:               queryFloatPtr(r, "lon"),
		GeoHashKey:        q.Get("geo_hash_key"),
		Type:              q.Get("type"),
		ExcludedIDs:       toByteIDs(splitCSV(q.Get("excluded_ids"))),
		ExcludedEdgeTypes: splitCSV(q.Get("excluded_edge_types")),
		Limit:             queryIntOrZero(r, "limit"),
	}
	if raw := q.Get("start"); raw != "" {
		in.Start = []byte(raw)
	}
	if raw := queryFloatPtr(r, "radius_km"); raw != nil {
		in.RadiusKm = *raw
	}

	results, err := s.qe.Nearby(in)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]nearbyView, len(results))
	for i, c := range results {
		views[i] = nearbyView{ID: string(c.ID), Data: c.Data}
	}
	writeJSON(w, http.StatusOK, views)
}
