package httpapi

import (
	"net/http"
	"sort"

	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
)

type createEdgeRequest struct {
	From string            `json:"from"`
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

func (s *Server) createEdge(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.CreateEdge([]byte(req.From), []byte(req.To), req.Data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

// createBlock forces type=block regardless of the caller-supplied data.
func (s *Server) createBlock(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	data := map[string]string{}
	for k, v := range req.Data {
		data[k] = v
	}
	data["type"] = "block"
	if err := s.path.CreateEdge([]byte(req.From), []byte(req.To), data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := s.path.DeleteEdge([]byte(from), []byte(to)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) edgeView(from, to []byte, hydrate bool) (EdgeView, bool) {
	var data map[string]string
	found := false
	s.cache.View(func(nodes map[string]*graph.Node) {
		n, ok := nodes[string(from)]
		if !ok {
			return
		}
		for _, e := range n.Out {
			if string(e.To) == string(to) {
				found = true
				data = make(map[string]string, len(e.Props))
				for k, v := range e.Props {
					data[k] = v
				}
				return
			}
		}
	})
	if !found {
		return EdgeView{}, false
	}
	if hydrate {
		_ = s.store.View(func(tx *kv.Tx) error {
			data = schema.AllEdgeProperties(tx, from, to)
			return nil
		})
	}
	return EdgeView{From: string(from), To: string(to), Data: data}, true
}

func (s *Server) listEdges(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")
	fromFilter := r.URL.Query().Get("from")
	toFilter := r.URL.Query().Get("to")
	hydrate := queryBool(r, "hydrate", false)

	type pair struct{ from, to []byte }
	var pairs []pair
	s.cache.View(func(nodes map[string]*graph.Node) {
		for fromStr, n := range nodes {
			if fromFilter != "" && fromStr != fromFilter {
				continue
			}
			for _, e := range n.Out {
				if toFilter != "" && string(e.To) != toFilter {
					continue
				}
				if typeFilter != "" && e.Props["type"] != typeFilter {
					continue
				}
				pairs = append(pairs, pair{from: []byte(fromStr), to: e.To})
			}
		}
	})
	sort.Slice(pairs, func(i, j int) bool {
		if string(pairs[i].from) != string(pairs[j].from) {
			return string(pairs[i].from) < string(pairs[j].from)
		}
		return string(pairs[i].to) < string(pairs[j].to)
	})

	views := make([]EdgeView, 0, len(pairs))
	for _, p := range pairs {
		if v, ok := s.edgeView(p.from, p.to, hydrate); ok {
			views = append(views, v)
		}
	}
	writeJSON(w, http.StatusOK, views)
}

type setEdgeDataRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) setEdgeData(w http.ResponseWriter, r *http.Request) {
	var req setEdgeDataRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.SetEdgeData([]byte(req.From), []byte(req.To), req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type patchEdgeRequest struct {
	From string            `json:"from"`
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

func (s *Server) patchEdge(w http.ResponseWriter, r *http.Request) {
	var req patchEdgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.PatchEdge([]byte(req.From), []byte(req.To), req.Data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := s.path.DeleteEdge([]byte(from), []byte(to)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
