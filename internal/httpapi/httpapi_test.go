package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/queryengine"
	"github.com/elo-graph/elo/internal/whitelist"
	"github.com/elo-graph/elo/internal/writepath"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-secret"

func newTestServer(t *testing.T) (http.Handler, *kv.Store) {
	t.Helper()
	store, err := kv.Open(t.TempDir() + "/httpapi.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	wl := whitelist.New()
	cache, err := graph.Build(store, wl)
	require.NoError(t, err)

	path := writepath.New(store, cache, wl)
	qe := queryengine.New(store, cache)
	srv := New(store, path, qe, cache, testAPIKey, nil)
	return srv.Handler(), store
}

func do(t *testing.T, h http.Handler, method, target string, body any, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if withKey {
		req.Header.Set("x-api-key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingOrWrongKey(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, "GET", "/nodes", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/nodes", nil)
	req.Header.Set("x-api-key", "wrong-"+testAPIKey)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetNode(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, "POST", "/nodes", createNodeRequest{ID: "user:me", Data: map[string]string{"type": "User"}}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, "GET", "/nodes/user:me", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var view NodeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "user:me", view.ID)
	require.Equal(t, "User", view.Data["type"])
	require.Equal(t, "active", view.Data["status"])
}

func TestGetNodeMissingIsNotFound(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, "GET", "/nodes/ghost", nil, true)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEdgeAndListEdges(t *testing.T) {
	h, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{ID: "a"}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{ID: "b"}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/edges", createEdgeRequest{From: "a", To: "b", Data: map[string]string{"weight": "2"}}, true).Code)

	rec := do(t, h, "GET", "/edges", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []EdgeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "a", views[0].From)
	require.Equal(t, "b", views[0].To)
	require.Equal(t, "2", views[0].Data["weight"])
}

func TestBlockEdgeIsSymmetricAndDeletable(t *testing.T) {
	h, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{ID: "a"}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{ID: "b"}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/blocks", createEdgeRequest{From: "a", To: "b"}, true).Code)

	rec := do(t, h, "GET", "/path?from=b&to=a", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got["exists"])

	rec = do(t, h, "DELETE", "/blocks?from=a&to=b", nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, "GET", "/path?from=a&to=b", nil, true)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.False(t, got["exists"])
}

func TestSchemaUpsertAndGet(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, "POST", "/schema", upsertSchemaRequest{Entity: "node", Fields: []string{"rating", "type"}}, true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, "GET", "/schema?entity=node", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, []any{"rating", "type"}, got["fields"])
}

func TestSchemaUpsertRejectsEmptyFields(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, "POST", "/schema", upsertSchemaRequest{Entity: "node", Fields: nil}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{
		ID: "user:me", Data: map[string]string{"type": "User", "location": "-23.5505,-46.6333"},
	}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{ID: "user:friend", Data: map[string]string{"type": "User"}}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/nodes", createNodeRequest{
		ID: "team:near", Data: map[string]string{"type": "Team", "location": "-23.5510,-46.6340"},
	}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/edges", createEdgeRequest{From: "user:me", To: "user:friend"}, true).Code)
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/edges", createEdgeRequest{From: "user:friend", To: "team:near"}, true).Code)

	rec := do(t, h, "GET", "/recommendations?start=user:me&type=Team&radius_km=10", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []recommendationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "team:near", got[0].ID)
}
