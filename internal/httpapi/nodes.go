package httpapi

import (
	"net/http"
	"sort"

	"github.com/elo-graph/elo/internal/apperr"
	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
)

type createNodeRequest struct {
	ID   string            `json:"id"`
	Data map[string]string `json:"data"`
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.CreateNode([]byte(req.ID), req.Data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

// nodeView builds a NodeView from the current cache snapshot, optionally
// replacing the whitelist-filtered subset with the full persisted map —
// hydrate=true bypasses the whitelist filter entirely.
func (s *Server) nodeView(id []byte, hydrate bool) (NodeView, bool) {
	props, edges, ok := s.snapshotNode(id)
	if !ok {
		return NodeView{}, false
	}
	view := NodeView{ID: string(id), Data: props, Edges: edges}
	if hydrate {
		_ = s.store.View(func(tx *kv.Tx) error {
			view.Data = schema.AllNodeProperties(tx, id)
			for i := range view.Edges {
				view.Edges[i].Data = schema.AllEdgeProperties(tx, id, []byte(view.Edges[i].To))
			}
			return nil
		})
	}
	return view, true
}

func (s *Server) snapshotNode(id []byte) (map[string]string, []EdgeRefView, bool) {
	var props map[string]string
	var edges []EdgeRefView
	found := false
	s.cache.View(func(nodes map[string]*graph.Node) {
		n, ok := nodes[string(id)]
		if !ok {
			return
		}
		found = true
		props = make(map[string]string, len(n.Props))
		for k, v := range n.Props {
			props[k] = v
		}
		for _, e := range n.Out {
			data := make(map[string]string, len(e.Props))
			for k, v := range e.Props {
				data[k] = v
			}
			edges = append(edges, EdgeRefView{To: string(e.To), Data: data})
		}
	})
	return props, edges, found
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hydrate := queryBool(r, "hydrate", false)
	view, ok := s.nodeView([]byte(id), hydrate)
	if !ok {
		writeError(w, apperr.NotFound("node not found"))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")
	hydrate := queryBool(r, "hydrate", false)

	var ids [][]byte
	s.cache.View(func(nodes map[string]*graph.Node) {
		for idStr, n := range nodes {
			if typeFilter != "" && n.Props["type"] != typeFilter {
				continue
			}
			ids = append(ids, []byte(idStr))
		}
	})
	sort.Slice(ids, func(i, j int) bool { return string(ids[i]) < string(ids[j]) })

	views := make([]NodeView, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.nodeView(id, hydrate); ok {
			views = append(views, v)
		}
	}
	writeJSON(w, http.StatusOK, views)
}

type patchNodeRequest struct {
	Data map[string]string `json:"data"`
}

func (s *Server) patchNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req patchNodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.PatchNode([]byte(id), req.Data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.path.DeleteNode([]byte(id)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type setNodeDataRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) setNodeData(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req setNodeDataRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.SetNodeData([]byte(id), req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
