package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/domain"
	"github.com/pbaille/gallery/internal/upload"
)

// listImages returns a page of the filtered view. The q and tag parameters,
// when present, replace the current search text and tag filter.
func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	if params.Has("q") {
		s.cat.SetQuery(params.Get("q"))
	}
	if params.Has("tag") {
		s.cat.SetTagFilter(s.filterTags(splitList(params.Get("tag"))))
	}

	offset := 0
	limit := catalog.DefaultPageSize
	if o := params.Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			badRequest(w, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	if l := params.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, s.cat.Page(offset, limit))
}

// AddImageRequest is the request body for adding an image by URL
type AddImageRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) addImage(w http.ResponseWriter, r *http.Request) {
	var req AddImageRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.URL) == "" {
		badRequest(w, "name and url are required")
		return
	}

	writeJSON(w, http.StatusCreated, s.cat.AddImage(req.Name, req.URL))
}

// uploadImages streams the multipart "files" field. Each part is read up to
// upload.MaxFileSize+1 bytes, so an oversized or invalid file is rejected on
// its own and the rest of the batch still imports.
func (s *Server) uploadImages(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	report := upload.Report{Added: []domain.Image{}, Rejected: []upload.Rejection{}}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			badRequest(w, "invalid multipart form")
			return
		}
		if part.FormName() != "files" || part.FileName() == "" {
			part.Close()
			continue
		}

		name := part.FileName()
		cand, err := readPart(name, part)
		if err != nil {
			report.Rejected = append(report.Rejected, upload.Rejection{Path: name, Err: err, Reason: err.Error()})
			continue
		}
		report.Added = append(report.Added, s.cat.AddImage(cand.Name, cand.DataURI()))
	}

	switch {
	case len(report.Added)+len(report.Rejected) == 0:
		badRequest(w, "no files")
		return
	case len(report.Added) == 0:
		badRequest(w, "no valid images: "+report.Rejected[0].Reason)
		return
	}
	s.log.Info("upload", zap.Int("added", len(report.Added)), zap.Int("rejected", len(report.Rejected)))
	writeJSON(w, http.StatusCreated, report)
}

// ImportURLRequest is the request body for importing a remote image
type ImportURLRequest struct {
	URL string `json:"url"`
	// Link keeps the remote URL instead of embedding the bytes.
	Link bool `json:"link,omitempty"`
}

func (s *Server) importURL(w http.ResponseWriter, r *http.Request) {
	var req ImportURLRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		badRequest(w, "url is required")
		return
	}
	if s.fetch == nil {
		writeError(w, http.StatusNotImplemented, CodeUpstream, "remote import disabled")
		return
	}

	cand, err := s.fetch.Fetch(r.Context(), req.URL)
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, err.Error())
		return
	case errors.Is(err, upload.ErrUnsupportedType):
		badRequest(w, err.Error())
		return
	case err != nil:
		s.log.Warn("remote import failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, CodeUpstream, err.Error())
		return
	}

	url := cand.DataURI()
	if req.Link {
		url = req.URL
	}
	writeJSON(w, http.StatusCreated, s.cat.AddImage(cand.Name, url))
}

// imageID resolves the {id} path value, accepting unique prefixes.
func (s *Server) imageID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := s.cat.ResolveImageID(r.PathValue("id"))
	if !ok {
		notFound(w, "image not found")
	}
	return id, ok
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}
	img, _ := s.cat.Image(id)
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request) {
	if !s.cat.IsAdmin() {
		adminRequired(w)
		return
	}
	if !confirmed(r) {
		confirmationRequired(w)
		return
	}
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}
	if !s.cat.DeleteImage(id) {
		notFound(w, "image not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// TagsRequest carries tag ids or names.
type TagsRequest struct {
	Tags []string `json:"tags"`
}

func (s *Server) setImageTags(w http.ResponseWriter, r *http.Request) {
	var req TagsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}

	if !s.cat.UpdateImageTags(id, s.resolveTags(req.Tags, true)) {
		notFound(w, "image not found")
		return
	}
	img, _ := s.cat.Image(id)
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) toggleStar(w http.ResponseWriter, r *http.Request) {
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}
	s.cat.ToggleStar(id)
	img, _ := s.cat.Image(id)
	writeJSON(w, http.StatusOK, img)
}

// AnnotationRequest is the request body for adding an annotation
type AnnotationRequest struct {
	Content string `json:"content"`
}

func (s *Server) addAnnotation(w http.ResponseWriter, r *http.Request) {
	var req AnnotationRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}

	a, ok := s.cat.AddAnnotation(id, req.Content)
	if !ok {
		badRequest(w, "content is required")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) deleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.imageID(w, r)
	if !ok {
		return
	}
	if !s.cat.DeleteAnnotation(id, r.PathValue("aid")) {
		notFound(w, "annotation not found")
		return
	}
	img, _ := s.cat.Image(id)
	writeJSON(w, http.StatusOK, img)
}

// resolveTags maps tag ids or names to ids. Unknown names are created when
// create is set and skipped otherwise.
func (s *Server) resolveTags(refs []string, create bool) []string {
	known := make(map[string]bool)
	for _, t := range s.cat.Tags() {
		known[t.ID] = true
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		switch {
		case ref == "":
			continue
		case known[ref]:
			ids = append(ids, ref)
		default:
			if id, ok := s.cat.TagIDByName(ref); ok {
				ids = append(ids, id)
				continue
			}
			if !create {
				continue
			}
			if tag, ok := s.cat.EnsureTag(ref); ok {
				ids = append(ids, tag.ID)
			}
		}
	}
	return ids
}

// filterTags maps tag names to ids and keeps everything else as given, so
// a filter may name ids of deleted tags.
func (s *Server) filterTags(refs []string) []string {
	known := make(map[string]bool)
	for _, t := range s.cat.Tags() {
		known[t.ID] = true
	}

	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref
		if known[ref] {
			continue
		}
		if id, ok := s.cat.TagIDByName(ref); ok {
			out[i] = id
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readPart validates one uploaded file. Closing the part discards whatever
// the size cap left unread.
func readPart(name string, part *multipart.Part) (upload.Candidate, error) {
	defer part.Close()
	return upload.ReadFrom(name, part)
}
