package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/dataset"
	"github.com/pbaille/gallery/internal/export"
)

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cat.Settings())
}

// ConfigRequest updates settings. Absent fields are left unchanged.
type ConfigRequest struct {
	ItemsPerRow *int  `json:"itemsPerRow,omitempty"`
	IsAdmin     *bool `json:"isAdmin,omitempty"`
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ItemsPerRow != nil && !s.cat.SetItemsPerRow(*req.ItemsPerRow) {
		badRequest(w, fmt.Sprintf("itemsPerRow must be between %d and %d", catalog.MinItemsPerRow, catalog.MaxItemsPerRow))
		return
	}
	if req.IsAdmin != nil {
		s.cat.SetAdmin(*req.IsAdmin)
	}
	writeJSON(w, http.StatusOK, s.cat.Settings())
}

func (s *Server) datasetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrAdminRequired):
		adminRequired(w)
	case errors.Is(err, dataset.ErrSectionNotFound):
		notFound(w, err.Error())
	case errors.Is(err, dataset.ErrEmptyContent):
		badRequest(w, err.Error())
	default:
		s.log.Error("dataset page", zap.Error(err))
		internalError(w)
	}
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	page, err := s.pages.Page(r.Context())
	if err != nil {
		s.datasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DatasetRequest updates the page heading.
type DatasetRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) updateDataset(w http.ResponseWriter, r *http.Request) {
	var req DatasetRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	page, err := s.pages.SetTitle(r.Context(), req.Title, req.Description)
	if err != nil {
		s.datasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// resetDataset drops the stored page so the default one shows again.
func (s *Server) resetDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.Reset(r.Context()); err != nil {
		s.datasetError(w, err)
		return
	}
	page, err := s.pages.Page(r.Context())
	if err != nil {
		s.datasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SectionRequest creates or updates a dataset page section.
type SectionRequest struct {
	Kind    string `json:"kind"`
	HTML    string `json:"html"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

func (s *Server) addSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	var (
		sec dataset.Section
		err error
	)
	switch req.Kind {
	case dataset.KindText, "":
		sec, err = s.pages.AddText(r.Context(), req.HTML)
	case dataset.KindImage:
		sec, err = s.pages.AddImage(r.Context(), req.URL, req.Caption)
	default:
		badRequest(w, "kind must be text or image")
		return
	}
	if err != nil {
		s.datasetError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

func (s *Server) updateSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	sec, err := s.pages.UpdateText(r.Context(), r.PathValue("id"), req.HTML)
	if err != nil {
		s.datasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.DeleteSection(r.Context(), r.PathValue("id")); err != nil {
		s.datasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}

// exportXLSX downloads the current filtered view as a spreadsheet.
func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := export.XLSX(s.cat.FilteredView(), s.cat)
	if err != nil {
		s.log.Error("export", zap.Error(err))
		internalError(w)
		return
	}

	name := "gallery-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
