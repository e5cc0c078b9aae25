// Package httpapi is the JSON-over-HTTP boundary: routes dispatching into
// internal/writepath and internal/queryengine, guarded by a shared
// x-api-key secret. A plain http.ServeMux, one handler per route, method
// dispatch via the Go 1.22+ "METHOD /pattern" mux syntax, and a single
// JSON-response helper.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elo-graph/elo/internal/apperr"
	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/logging"
	"github.com/elo-graph/elo/internal/queryengine"
	"github.com/elo-graph/elo/internal/writepath"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// NodeView is the wire shape of a node response.
type NodeView struct {
	ID    string         `json:"id"`
	Data  map[string]string `json:"data"`
	Edges []EdgeRefView  `json:"edges"`
}

// EdgeRefView is one outgoing edge inside a NodeView.
type EdgeRefView struct {
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

// EdgeView is the wire shape of a standalone edge response.
type EdgeView struct {
	From string            `json:"from"`
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

// Server wires the write path, query engine, and graph cache to HTTP
// routes.
type Server struct {
	store   *kv.Store
	path    *writepath.Path
	qe      *queryengine.Engine
	cache   *graph.Cache
	apiKey  string
	metrics *requestMetrics
}

// New returns a Server. meter may be nil, in which case request metrics are
// not recorded.
func New(store *kv.Store, path *writepath.Path, qe *queryengine.Engine, cache *graph.Cache, apiKey string, meter metric.Meter) *Server {
	return &Server{store: store, path: path, qe: qe, cache: cache, apiKey: apiKey, metrics: newRequestMetrics(meter)}
}

// Mux builds the full route table.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /nodes", s.createNode)
	mux.HandleFunc("GET /nodes", s.listNodes)
	mux.HandleFunc("GET /nodes/{id}", s.getNode)
	mux.HandleFunc("PATCH /nodes/{id}", s.patchNode)
	mux.HandleFunc("DELETE /nodes/{id}", s.deleteNode)
	mux.HandleFunc("PUT /nodes/{id}/data", s.setNodeData)

	mux.HandleFunc("POST /edges", s.createEdge)
	mux.HandleFunc("GET /edges", s.listEdges)
	mux.HandleFunc("PUT /edges", s.setEdgeData)
	mux.HandleFunc("PATCH /edges", s.patchEdge)
	mux.HandleFunc("DELETE /edges", s.deleteEdge)

	mux.HandleFunc("POST /blocks", s.createBlock)
	mux.HandleFunc("DELETE /blocks", s.deleteBlock)

	mux.HandleFunc("POST /schema", s.upsertSchema)
	mux.HandleFunc("GET /schema", s.getSchema)

	mux.HandleFunc("GET /path", s.pathExists)
	mux.HandleFunc("GET /recommendations", s.recommendations)
	mux.HandleFunc("GET /nearby", s.nearby)

	return mux
}

// Handler returns the fully wrapped HTTP handler: auth, request-id
// correlation, and metrics around Mux's route table.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withMetrics(s.withAuth(s.Mux())))
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, apperr.Unauthorized("missing or invalid x-api-key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

var requestIDKey = ctxKey{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = logging.WithContext(ctx, logging.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.record(r.Context(), r.Pattern, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindStorage, apperr.KindDecode:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": ae.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.BadRequest("malformed request body: %v", err)
	}
	return nil
}

func queryBool(r *http.Request, key string, def bool) bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func queryFloatPtr(r *http.Request, key string) *float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

func queryIntOrZero(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toByteIDs(ids []string) [][]byte {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		out[i] = []byte(id)
	}
	return out
}
