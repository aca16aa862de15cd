package api

import (
	"net/http"
	"strings"

	"github.com/pbaille/gallery/internal/domain"
)

// TagWithCount is a tag and the number of images referencing it.
type TagWithCount struct {
	domain.Tag
	Count int `json:"count"`
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	for _, img := range s.cat.Images() {
		for _, id := range img.Tags {
			counts[id]++
		}
	}

	tags := s.cat.Tags()
	out := make([]TagWithCount, len(tags))
	for i, t := range tags {
		out[i] = TagWithCount{Tag: t, Count: counts[t.ID]}
	}
	writeJSON(w, http.StatusOK, out)
}

// TagRequest is the request body for creating or renaming a tag
type TagRequest struct {
	Name string `json:"name"`
}

func (s *Server) addTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(w, "name is required")
		return
	}

	tag, ok := s.cat.AddTag(req.Name)
	if !ok {
		conflict(w, "a tag with this name already exists")
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) findTag(id string) (domain.Tag, bool) {
	for _, t := range s.cat.Tags() {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tag{}, false
}

func (s *Server) renameTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if _, ok := s.findTag(id); !ok {
		notFound(w, "tag not found")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(w, "name is required")
		return
	}

	if !s.cat.RenameTag(id, req.Name) {
		conflict(w, "a tag with this name already exists")
		return
	}
	tag, _ := s.findTag(id)
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	if !s.cat.IsAdmin() {
		adminRequired(w)
		return
	}
	id := r.PathValue("id")
	if _, ok := s.findTag(id); !ok {
		notFound(w, "tag not found")
		return
	}
	if !s.cat.DeleteTag(id) {
		conflict(w, "built-in tag cannot be deleted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
