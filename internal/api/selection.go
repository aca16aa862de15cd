package api

import (
	"net/http"
)

// SelectionResponse lists the selected image ids.
type SelectionResponse struct {
	IDs []string `json:"ids"`
}

func (s *Server) selectionResponse() SelectionResponse {
	ids := s.cat.Selection()
	if ids == nil {
		ids = []string{}
	}
	return SelectionResponse{IDs: ids}
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selectionResponse())
}

func (s *Server) selectionNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"names": s.cat.CopyNames()})
}

func (s *Server) toggleSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}
	s.cat.ToggleSelection(id)
	writeJSON(w, http.StatusOK, s.selectionResponse())
}

func (s *Server) selectAll(w http.ResponseWriter, r *http.Request) {
	s.cat.SelectAll()
	writeJSON(w, http.StatusOK, s.selectionResponse())
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	s.cat.DeselectAll()
	writeJSON(w, http.StatusOK, s.selectionResponse())
}

// BatchRequest names the target images and tags of a batch operation.
// Without IDs the current selection is used.
type BatchRequest struct {
	IDs  []string `json:"ids,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// BatchResponse reports how many images a batch operation changed.
type BatchResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) decodeBatch(w http.ResponseWriter, r *http.Request) (BatchRequest, bool) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return req, false
	}
	if len(req.IDs) > 0 {
		ids := make([]string, 0, len(req.IDs))
		for _, prefix := range req.IDs {
			if id, ok := s.cat.ResolveImageID(prefix); ok {
				ids = append(ids, id)
			}
		}
		s.cat.Select(ids)
	}
	return req, true
}

func (s *Server) batchAddTags(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}
	tags := s.resolveTags(req.Tags, true)
	if len(tags) == 0 {
		badRequest(w, "tags are required")
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Updated: s.cat.BatchAddTags(tags)})
}

func (s *Server) batchRemoveTags(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}
	tags := s.resolveTags(req.Tags, false)
	if len(req.Tags) == 0 {
		badRequest(w, "tags are required")
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Updated: s.cat.BatchRemoveTags(tags)})
}

func (s *Server) batchDelete(w http.ResponseWriter, r *http.Request) {
	if !s.cat.IsAdmin() {
		adminRequired(w)
		return
	}
	if !confirmed(r) {
		confirmationRequired(w)
		return
	}
	if _, ok := s.decodeBatch(w, r); !ok {
		return
	}
	n := s.cat.BatchDeleteImages(s.cat.Selection())
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
