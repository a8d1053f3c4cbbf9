package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/lineage"
)

const (
	sessionName     = "dsptool"
	sessionSpaceKey = "space"
)

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSpaces serves the space list, preferring the loaded catalog over a
// live API call.
func (s *Server) ListSpaces(w http.ResponseWriter, r *http.Request) {
	if spaces, ok := s.cachedSpaces(); ok {
		s.writeJSON(w, http.StatusOK, map[string]any{"spaces": spaces, "cached": true})
		return
	}

	spaces, err := s.service.Spaces(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"spaces": spaces, "cached": false})
}

func (s *Server) cachedSpaces() ([]api.Space, bool) {
	if s.catalog == nil {
		return nil, false
	}
	spaces, ok := s.catalog.Spaces()
	if !ok {
		return nil, false
	}
	// Decorate with business names from the catalog.
	out := make([]api.Space, len(spaces))
	copy(out, spaces)
	for i := range out {
		if name, ok := s.catalog.BusinessName(out[i].ID); ok && name != out[i].ID {
			out[i].BusinessName = name
		}
	}
	return out, true
}

// ListObjects serves the objects of one space.
func (s *Server) ListObjects(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "spaceID")

	if s.catalog != nil {
		if objects, ok := s.catalog.Objects(spaceID); ok {
			s.writeJSON(w, http.StatusOK, map[string]any{"objects": objects, "cached": true})
			return
		}
	}

	objects, err := s.service.SpaceObjects(r.Context(), spaceID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"objects": objects, "cached": false})
}

// SelectSpace stores the chosen space in the browser session.
func (s *Server) SelectSpace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SpaceID string `json:"spaceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SpaceID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "spaceId is required"})
		return
	}

	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values[sessionSpaceKey] = body.SpaceID
	if err := session.Save(r, w); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"spaceId": body.SpaceID})
}

// SelectedSpace returns the space stored in the browser session.
func (s *Server) SelectedSpace(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"spaceId": s.sessionSpace(r)})
}

func (s *Server) sessionSpace(r *http.Request) string {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	if space, ok := session.Values[sessionSpaceKey].(string); ok {
		return space
	}
	return ""
}

// fetchTree resolves the {objectID} URL parameter to a lineage tree. When a
// space is known (query parameter or session) the parameter is treated as a
// technical name and resolved to a repository ID first.
func (s *Server) fetchTree(w http.ResponseWriter, r *http.Request) (*lineage.Tree, bool) {
	objectID := chi.URLParam(r, "objectID")

	space := r.URL.Query().Get("space")
	if space == "" {
		space = s.sessionSpace(r)
	}
	if space != "" {
		id, found, err := s.service.FindObjectID(r.Context(), objectID, space)
		if err != nil {
			s.writeError(w, err)
			return nil, false
		}
		if found {
			objectID = id
		}
	}

	opts := api.DefaultLineageOptions()
	if v := r.URL.Query().Get("impact"); v != "" {
		opts.Impact = v == "true"
	}

	tree, err := s.service.Lineage(r.Context(), objectID, opts)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return tree, true
}

// LineageTree serves the full lineage tree with statistics.
func (s *Server) LineageTree(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.fetchTree(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, lineage.Export(tree))
}

// TransactionalTree serves the transactional projection, or an empty-state
// response when nothing in the lineage moves data.
func (s *Server) TransactionalTree(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.fetchTree(w, r)
	if !ok {
		return
	}

	filtered, ok := lineage.TransactionalLineage(tree)
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"hasTransactional": false,
			"message":          "no transactional lineage found",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"hasTransactional": true,
		"tree":             lineage.Export(filtered),
	})
}

// LineageTable serves the deduplicated flat lineage table.
func (s *Server) LineageTable(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.fetchTree(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rows": lineage.FlatRows(tree)})
}

// LineageFlow serves the qualified names grouped by depth, the data behind
// the flow diagram.
func (s *Server) LineageFlow(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.fetchTree(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"levels": lineage.Levels(tree)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps API errors to their upstream status and everything else
// to a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 {
		status = apiErr.StatusCode
	}
	s.logger.Error("request failed", "status", status, "error", err)
	s.writeJSON(w, status, map[string]string{"message": err.Error()})
}
