package writepath

import (
	"testing"

	"github.com/elo-graph/elo/internal/apperr"
	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
	"github.com/elo-graph/elo/internal/whitelist"
	"github.com/stretchr/testify/require"
)

func newPath(t *testing.T) (*Path, *kv.Store, *graph.Cache, *whitelist.Whitelist) {
	t.Helper()
	store, err := kv.Open(t.TempDir() + "/writepath.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	cache := graph.New()
	wl := whitelist.New()
	return New(store, cache, wl), store, cache, wl
}

func TestCreateNodeDefaultsStatusActiveAndPopulatesCache(t *testing.T) {
	p, store, cache, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), map[string]string{"type": "User"}))

	require.True(t, cache.HasNode([]byte("a")))
	require.NoError(t, store.View(func(tx *kv.Tx) error {
		v, ok := schema.GetNodeProperty(tx, []byte("a"), "status")
		require.True(t, ok)
		require.Equal(t, "active", v)
		return nil
	}))
}

func TestCreateNodeRejectsEmptyID(t *testing.T) {
	p, _, _, _ := newPath(t)
	err := p.CreateNode(nil, nil)
	require.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestCreateEdgeRequiresActiveEndpoints(t *testing.T) {
	p, _, _, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), nil))
	err := p.CreateEdge([]byte("a"), []byte("missing"), nil)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateEdgeMirrorsBlockType(t *testing.T) {
	p, _, cache, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), nil))
	require.NoError(t, p.CreateNode([]byte("b"), nil))
	require.NoError(t, p.CreateEdge([]byte("a"), []byte("b"), map[string]string{"type": "block"}))

	require.True(t, cache.HasEdge([]byte("a"), []byte("b")))
	require.True(t, cache.HasEdge([]byte("b"), []byte("a")))
}

func TestSetEdgeDataMirrorsBlockPair(t *testing.T) {
	p, store, cache, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), nil))
	require.NoError(t, p.CreateNode([]byte("b"), nil))
	require.NoError(t, p.CreateEdge([]byte("a"), []byte("b"), nil))

	require.NoError(t, p.SetEdgeData([]byte("a"), []byte("b"), "type", "block"))
	require.True(t, cache.HasEdge([]byte("b"), []byte("a")))
	require.NoError(t, store.View(func(tx *kv.Tx) error {
		v, ok := schema.GetEdgeProperty(tx, []byte("b"), []byte("a"), "type")
		require.True(t, ok)
		require.Equal(t, "block", v)
		return nil
	}))
}

func TestDeleteNodeCascadesToEdges(t *testing.T) {
	p, _, cache, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), nil))
	require.NoError(t, p.CreateNode([]byte("b"), nil))
	require.NoError(t, p.CreateNode([]byte("c"), nil))
	require.NoError(t, p.CreateEdge([]byte("a"), []byte("b"), nil))
	require.NoError(t, p.CreateEdge([]byte("c"), []byte("a"), nil))

	require.NoError(t, p.DeleteNode([]byte("a")))

	require.False(t, cache.HasNode([]byte("a")))
	require.False(t, cache.HasEdge([]byte("a"), []byte("b")))
	require.False(t, cache.HasEdge([]byte("c"), []byte("a")))
}

func TestDeleteEdgeMirrorsBlockPair(t *testing.T) {
	p, _, cache, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), nil))
	require.NoError(t, p.CreateNode([]byte("b"), nil))
	require.NoError(t, p.CreateEdge([]byte("a"), []byte("b"), map[string]string{"type": "block"}))

	require.NoError(t, p.DeleteEdge([]byte("a"), []byte("b")))

	require.False(t, cache.HasEdge([]byte("a"), []byte("b")))
	require.False(t, cache.HasEdge([]byte("b"), []byte("a")))
}

func TestUpsertWhitelistRejectsEmptyFields(t *testing.T) {
	p, _, _, _ := newPath(t)
	err := p.UpsertWhitelist("node", nil)
	require.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestUpsertWhitelistRebuildsCache(t *testing.T) {
	p, _, cache, wl := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), map[string]string{"rating": "10", "secret": "x"}))

	require.NoError(t, p.UpsertWhitelist("node", []string{"rating"}))

	require.True(t, wl.Allows("node", "rating"))
	require.False(t, wl.Allows("node", "secret"))
	cache.View(func(nodes map[string]*graph.Node) {
		_, hasSecret := nodes["a"].Props["secret"]
		require.False(t, hasSecret)
		require.Equal(t, "10", nodes["a"].Props["rating"])
	})
}

func TestPatchEdgeMirrorsWhenTypeBecomesBlock(t *testing.T) {
	p, _, cache, _ := newPath(t)
	require.NoError(t, p.CreateNode([]byte("a"), nil))
	require.NoError(t, p.CreateNode([]byte("b"), nil))
	require.NoError(t, p.CreateEdge([]byte("a"), []byte("b"), nil))

	require.NoError(t, p.PatchEdge([]byte("a"), []byte("b"), map[string]string{"type": "block"}))

	require.True(t, cache.HasEdge([]byte("b"), []byte("a")))
}
