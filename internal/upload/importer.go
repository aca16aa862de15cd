package upload

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pbaille/gallery/internal/domain"
)

// Adder receives validated images. *catalog.Catalog satisfies it.
type Adder interface {
	AddImage(name, url string) domain.Image
}

// Rejection records why one file was not imported.
type Rejection struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
	// Reason is Err as text, for JSON output.
	Reason string `json:"reason"`
}

// Report summarizes an import batch.
type Report struct {
	Added    []domain.Image `json:"added"`
	Rejected []Rejection    `json:"rejected"`
}

// Importer reads files concurrently and adds each valid one to the catalog.
type Importer struct {
	adder   Adder
	log     *zap.Logger
	workers int
}

// NewImporter creates an Importer. workers <= 0 uses GOMAXPROCS.
func NewImporter(adder Adder, log *zap.Logger, workers int) *Importer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{adder: adder, log: log, workers: workers}
}

// Import expands paths and imports every file. Each file that finishes
// reading triggers exactly one AddImage; completion order across files is
// not defined. Bad files are reported, never fatal. The only error is the
// context's.
func (im *Importer) Import(ctx context.Context, paths []string) (Report, error) {
	files, err := Collect(paths)
	if err != nil {
		return Report{}, err
	}
	return im.ImportFiles(ctx, files)
}

// ImportFiles imports an already expanded file list.
func (im *Importer) ImportFiles(ctx context.Context, files []string) (Report, error) {
	var (
		mu     sync.Mutex
		report Report
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			cand, err := ReadFile(path)
			if err != nil {
				im.log.Warn("file rejected", zap.String("path", path), zap.Error(err))
				mu.Lock()
				report.Rejected = append(report.Rejected, Rejection{Path: path, Err: err, Reason: err.Error()})
				mu.Unlock()
				return nil
			}

			img := im.adder.AddImage(cand.Name, cand.DataURI())
			im.log.Debug("file imported", zap.String("path", path), zap.String("id", img.ID))

			mu.Lock()
			report.Added = append(report.Added, img)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	im.log.Info("import finished",
		zap.Int("added", len(report.Added)),
		zap.Int("rejected", len(report.Rejected)),
	)
	return report, err
}
