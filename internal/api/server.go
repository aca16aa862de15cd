// Package api exposes the catalog over HTTP with a JSON envelope
// {"data": ..., "error": ...}.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/dataset"
	"github.com/pbaille/gallery/internal/upload"
)

// Fetcher downloads a remote image. *upload.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (upload.Candidate, error)
}

// Server handles HTTP requests for the gallery API
type Server struct {
	cat   *catalog.Catalog
	pages *dataset.Store
	fetch Fetcher
	log   *zap.Logger
	addr  string
}

// New creates a new API server
func New(cat *catalog.Catalog, pages *dataset.Store, fetch Fetcher, log *zap.Logger, addr string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cat: cat, pages: pages, fetch: fetch, log: log.Named("api"), addr: addr}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Images
	mux.HandleFunc("GET /images", s.listImages)
	mux.HandleFunc("POST /images", s.addImage)
	mux.HandleFunc("POST /images/upload", s.uploadImages)
	mux.HandleFunc("POST /images/import-url", s.importURL)
	mux.HandleFunc("GET /images/{id}", s.getImage)
	mux.HandleFunc("DELETE /images/{id}", s.deleteImage)
	mux.HandleFunc("PUT /images/{id}/tags", s.setImageTags)
	mux.HandleFunc("POST /images/{id}/star", s.toggleStar)
	mux.HandleFunc("POST /images/{id}/annotations", s.addAnnotation)
	mux.HandleFunc("DELETE /images/{id}/annotations/{aid}", s.deleteAnnotation)

	// Selection and batch operations
	mux.HandleFunc("GET /selection", s.getSelection)
	mux.HandleFunc("GET /selection/names", s.selectionNames)
	mux.HandleFunc("POST /selection/toggle/{id}", s.toggleSelection)
	mux.HandleFunc("POST /selection/all", s.selectAll)
	mux.HandleFunc("DELETE /selection", s.clearSelection)
	mux.HandleFunc("POST /batch/tags/add", s.batchAddTags)
	mux.HandleFunc("POST /batch/tags/remove", s.batchRemoveTags)
	mux.HandleFunc("POST /batch/delete", s.batchDelete)

	// Tags
	mux.HandleFunc("GET /tags", s.listTags)
	mux.HandleFunc("POST /tags", s.addTag)
	mux.HandleFunc("PUT /tags/{id}", s.renameTag)
	mux.HandleFunc("DELETE /tags/{id}", s.deleteTag)

	// Settings, dataset page, export
	mux.HandleFunc("GET /config", s.getConfig)
	mux.HandleFunc("PUT /config", s.updateConfig)
	mux.HandleFunc("GET /dataset", s.getDataset)
	mux.HandleFunc("PUT /dataset", s.updateDataset)
	mux.HandleFunc("DELETE /dataset", s.resetDataset)
	mux.HandleFunc("POST /dataset/sections", s.addSection)
	mux.HandleFunc("PUT /dataset/sections/{id}", s.updateSection)
	mux.HandleFunc("DELETE /dataset/sections/{id}", s.deleteSection)
	mux.HandleFunc("GET /export.xlsx", s.exportXLSX)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withRecovery(s.log, withLogging(s.log, withCORS(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// confirmed reports whether the destructive request carries confirm=true.
func confirmed(r *http.Request) bool {
	switch r.URL.Query().Get("confirm") {
	case "true", "1", "yes":
		return true
	}
	return false
}
