package graph

import (
	"testing"

	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
	"github.com/elo-graph/elo/internal/whitelist"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *kv.Store {
	t.Helper()
	store, err := kv.Open(t.TempDir() + "/graph.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBuildIncludesOnlyActiveNodesAndEdges(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Update(func(tx *kv.Tx) error {
		require.NoError(t, schema.CreateNode(tx, []byte("a")))
		require.NoError(t, schema.CreateNode(tx, []byte("b")))
		require.NoError(t, schema.CreateNode(tx, []byte("c")))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("a"), "status", "active"))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("b"), "status", "active"))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("c"), "status", "deleted"))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("a"), "rating", "10"))

		require.NoError(t, schema.CreateEdge(tx, []byte("a"), []byte("b")))
		require.NoError(t, schema.CreateEdge(tx, []byte("a"), []byte("c")))
		require.NoError(t, schema.UpsertEdgeProperty(tx, []byte("a"), []byte("b"), "status", "active"))
		require.NoError(t, schema.UpsertEdgeProperty(tx, []byte("a"), []byte("c"), "status", "active"))
		require.NoError(t, schema.UpsertEdgeProperty(tx, []byte("a"), []byte("b"), "weight", "2.0"))
		return nil
	}))

	wl := whitelist.New()
	c, err := Build(store, wl)
	require.NoError(t, err)

	require.True(t, c.HasNode([]byte("a")))
	require.True(t, c.HasNode([]byte("b")))
	require.False(t, c.HasNode([]byte("c")), "deleted node must not be cached")

	c.View(func(nodes map[string]*Node) {
		a := nodes["a"]
		require.NotNil(t, a)
		require.Equal(t, "10", a.Props["rating"])
		require.Len(t, a.Out, 1, "edge to deleted node c must be dropped")
		require.Equal(t, []byte("b"), a.Out[0].To)
		require.Equal(t, "2.0", a.Out[0].Props["weight"])
	})
}

func TestBuildAppliesWhitelist(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Update(func(tx *kv.Tx) error {
		require.NoError(t, schema.CreateNode(tx, []byte("a")))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("a"), "status", "active"))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("a"), "rating", "10"))
		require.NoError(t, schema.UpsertNodeProperty(tx, []byte("a"), "secret", "hidden"))
		return nil
	}))

	wl := whitelist.New()
	wl.Set(schema.EntityNode, []string{"rating"})
	c, err := Build(store, wl)
	require.NoError(t, err)

	c.View(func(nodes map[string]*Node) {
		a := nodes["a"]
		require.Equal(t, "10", a.Props["rating"])
		_, hasSecret := a.Props["secret"]
		require.False(t, hasSecret)
	})
}

func TestRemoveNodeDetachesIncomingEdges(t *testing.T) {
	c := New()
	c.AddNode([]byte("a"))
	c.AddNode([]byte("b"))
	c.AddEdge([]byte("a"), []byte("b"), map[string]string{})

	c.RemoveNode([]byte("b"))

	require.False(t, c.HasNode([]byte("b")))
	c.View(func(nodes map[string]*Node) {
		require.Len(t, nodes["a"].Out, 0)
	})
}

func TestRemoveEdge(t *testing.T) {
	c := New()
	c.AddNode([]byte("a"))
	c.AddNode([]byte("b"))
	c.AddEdge([]byte("a"), []byte("b"), map[string]string{})

	c.RemoveEdge([]byte("a"), []byte("b"))

	c.View(func(nodes map[string]*Node) {
		require.Len(t, nodes["a"].Out, 0)
	})
}

func TestReplaceSwapsEntireMap(t *testing.T) {
	c := New()
	c.AddNode([]byte("old"))

	next := New()
	next.AddNode([]byte("new"))
	c.Replace(next)

	require.False(t, c.HasNode([]byte("old")))
	require.True(t, c.HasNode([]byte("new")))
}
