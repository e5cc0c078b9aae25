package httpapi

import (
	"net/http"

	"github.com/elo-graph/elo/internal/apperr"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/schema"
)

type upsertSchemaRequest struct {
	Entity string   `json:"entity"`
	Fields []string `json:"fields"`
}

func (s *Server) upsertSchema(w http.ResponseWriter, r *http.Request) {
	var req upsertSchemaRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.path.UpsertWhitelist(req.Entity, req.Fields); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	if entity != schema.EntityNode && entity != schema.EntityEdge {
		writeError(w, apperr.BadRequest("entity must be node or edge"))
		return
	}

	var fields []string
	err := s.store.View(func(tx *kv.Tx) error {
		f, ok := schema.GetWhitelist(tx, entity)
		if ok {
			fields = f
		}
		return nil
	})
	if err != nil {
		writeError(w, apperr.Storage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity": entity, "fields": fields})
}
